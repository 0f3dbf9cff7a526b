package quizchain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quiz.lib.quizchain")

const (
	// MaxDuration bounds a whole chain from its start time. The check
	// happens at the top of every iteration, an iteration in flight
	// runs to completion even if it crosses the ceiling.
	MaxDuration = time.Second * 180

	requestTimeout = time.Second * 30
)

// Step describes one completed iteration of a chain.
type Step struct {
	Url       string
	Type      QuestionType
	SubmitUrl string
	Answer    any
	Response  map[string]any
}

type Options struct {
	Renderer Renderer
	// Http overrides the per-chain client, mainly for tests. When nil
	// every Run builds its own client so concurrent chains never share
	// connection state.
	Http *resty.Client
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Budget defaults to MaxDuration.
	Budget time.Duration
	// OnStep, when set, is called after every submitted iteration.
	OnStep func(Step)
}

// Engine runs quiz chains. It holds no per-chain state, concurrent
// Run calls are independent.
type Engine struct {
	renderer Renderer
	http     *resty.Client
	clock    func() time.Time
	budget   time.Duration
	onStep   func(Step)
}

func New(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	budget := opts.Budget
	if budget == 0 {
		budget = MaxDuration
	}
	return &Engine{
		renderer: opts.Renderer,
		http:     opts.Http,
		clock:    clock,
		budget:   budget,
		onStep:   opts.OnStep,
	}
}

// chainState is owned by exactly one Run call and dies with it.
type chainState struct {
	url       string
	startedAt time.Time
	email     string
	secret    string
}

type submission struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	Url    string `json:"url"`
	Answer any    `json:"answer"`
}

func newChainClient() *resty.Client {
	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(requestTimeout)
	telemetry.InstrumentResty(client, "quiz.lib.quizchain.http")
	return client
}

func timeoutResult() map[string]any {
	return map[string]any{"correct": false, "reason": "timeout or missing url"}
}

// Run walks the chain from startUrl until the server stops returning a
// next url or the time budget runs out. It returns the last parsed
// submission response, or the timeout result when the loop never got
// to finish a terminal iteration. Solver and network failures abort
// the chain immediately, there is no retry.
func (e *Engine) Run(ctx context.Context, startUrl, email, secret string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("start_url", startUrl))

	client := e.http
	if client == nil {
		client = newChainClient()
	}
	solvers := map[QuestionType]Solver{
		QuestionScrape:   ScrapeSolver{Renderer: e.renderer},
		QuestionAudioCSV: AudioCSVSolver{Http: client},
		QuestionGeneric:  GenericSolver{},
	}

	state := chainState{
		url:       startUrl,
		startedAt: e.clock(),
		email:     email,
		secret:    secret,
	}

	for state.url != "" && e.clock().Sub(state.startedAt) < e.budget {
		result, next, err := e.step(ctx, client, solvers, &state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "chain aborted")
			return nil, err
		}
		if next == "" {
			slog.InfoContext(ctx, "no more urls returned, quiz chain finished")
			return result, nil
		}
		slog.InfoContext(ctx, "moving to next url", "url", next)
		state.url = next
	}

	slog.InfoContext(ctx, "time limit reached or url missing, ending quiz chain")
	return timeoutResult(), nil
}

// step runs a single render→classify→solve→submit iteration. A
// returned empty next url means the server signalled completion and
// result holds its final response verbatim.
func (e *Engine) step(ctx context.Context, client *resty.Client, solvers map[QuestionType]Solver, state *chainState) (result map[string]any, next string, err error) {
	ctx, span := tracer.Start(ctx, "step")
	defer span.End()
	span.SetAttributes(attribute.String("url", state.url))

	slog.InfoContext(ctx, "fetching quiz page", "url", state.url)
	html, err := e.renderer.Render(ctx, state.url)
	if err != nil {
		span.SetStatus(codes.Error, "failed to render quiz page")
		return nil, "", fmt.Errorf("render %s: %w", state.url, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse quiz page html")
		return nil, "", fmt.Errorf("parse quiz page html: %w", err)
	}

	submitUrl, err := ResolveSubmitTarget(doc, state.url)
	if err != nil {
		return nil, "", err
	}

	qtype := Classify(html)
	span.SetAttributes(
		attribute.String("quiz_type", qtype.String()),
		attribute.String("submit_url", submitUrl),
	)
	slog.DebugContext(ctx, "classified quiz page", "type", qtype.String(), "submit_url", submitUrl)

	solver, ok := solvers[qtype]
	if !ok {
		// the solver table covers every QuestionType the classifier
		// can return, reaching this means a type was added without a
		// solver
		return nil, "", fmt.Errorf("no solver registered for question type %s", qtype)
	}
	answer, err := solver.Solve(ctx, doc, state.url)
	if err != nil {
		span.SetStatus(codes.Error, "solver failed")
		return nil, "", err
	}
	span.SetAttributes(attribute.String("answer", fmt.Sprint(answer)))

	res, err := client.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(submission{
			Email:  state.email,
			Secret: state.secret,
			Url:    state.url,
			Answer: answer,
		}).
		Post(submitUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit answer")
		return nil, "", fmt.Errorf("submit answer to %s: %w", submitUrl, err)
	}
	slog.DebugContext(ctx, "submitted answer", "answer", answer, "raw_response", res.String())

	err = json.Unmarshal(res.Body(), &result)
	if err != nil {
		span.SetStatus(codes.Error, "invalid json from submit")
		return nil, "", &InvalidResponseError{Body: res.String(), Err: err}
	}

	if e.onStep != nil {
		e.onStep(Step{
			Url:       state.url,
			Type:      qtype,
			SubmitUrl: submitUrl,
			Answer:    answer,
			Response:  result,
		})
	}

	next, _ = result["url"].(string)
	return result, next, nil
}

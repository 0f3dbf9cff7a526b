// Package quiz is the thin inbound façade around the chain engine: it
// checks the shared secret, runs one chain per request and records the
// terminal result.
package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/chainstore"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/quizchain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quiz.services.quiz")

var ErrInvalidSecret = fmt.Errorf("invalid secret")
var ErrMissingFields = fmt.Errorf("missing required fields")

type Request struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	Url    string `json:"url"`
}

type Response struct {
	RunId  string         `json:"run_id"`
	Result map[string]any `json:"result"`
}

type Service struct {
	secret string
	engine *quizchain.Engine
	store  chainstore.Store
}

func NewService(expectedSecret string, engine *quizchain.Engine, store chainstore.Store) Service {
	return Service{
		secret: expectedSecret,
		engine: engine,
		store:  store,
	}
}

// Run validates the request, walks the chain to its terminal result
// and records the outcome. Each call is independent, concurrent calls
// share nothing but the renderer's browser process.
func (s Service) Run(ctx context.Context, req Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	if req.Email == "" || req.Secret == "" || req.Url == "" {
		span.SetStatus(codes.Error, ErrMissingFields.Error())
		return Response{}, ErrMissingFields
	}
	if req.Secret != s.secret {
		span.SetStatus(codes.Error, ErrInvalidSecret.Error())
		return Response{}, ErrInvalidSecret
	}

	runId := uuid.NewString()
	span.SetAttributes(
		attribute.String("run_id", runId),
		attribute.String("start_url", req.Url),
	)
	slog.InfoContext(ctx, "starting quiz chain", "run_id", runId, "url", req.Url)

	startedAt := time.Now()
	result, err := s.engine.Run(ctx, req.Url, req.Email, req.Secret)
	finishedAt := time.Now()

	run := chainstore.Run{
		Id:         runId,
		StartUrl:   req.Url,
		Email:      req.Email,
		Ok:         err == nil,
		Result:     result,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if err != nil {
		run.Result = map[string]any{"error": err.Error()}
	}
	recordErr := s.store.Record(ctx, run)
	if recordErr != nil {
		// recording is diagnostics, it must not mask the chain outcome
		slog.WarnContext(ctx, "failed to record chain run", "run_id", runId, "err", recordErr)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain failed")
		return Response{}, fmt.Errorf("run chain %s: %w", runId, err)
	}

	slog.InfoContext(ctx, "quiz chain finished", "run_id", runId, "seconds", finishedAt.Sub(startedAt).Seconds())
	return Response{
		RunId:  runId,
		Result: result,
	}, nil
}

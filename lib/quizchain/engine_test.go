package quizchain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

// fakeRenderer serves canned html per url and counts calls.
type fakeRenderer struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func (f *fakeRenderer) Render(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no canned page for %s", url)
	}
	return html, nil
}

type receivedSubmission struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	Url    string `json:"url"`
	Answer any    `json:"answer"`
}

// submitServer replies to each POST /submit with the next canned
// response and records every payload it saw.
func submitServer(t testing.TB, responses []string) (*httptest.Server, *[]receivedSubmission) {
	var mu sync.Mutex
	var received []receivedSubmission
	i := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/submit", r.URL.Path)

		var payload receivedSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
		require.Less(t, i, len(responses), "more submissions than canned responses")
		fmt.Fprint(w, responses[i])
		i++
	}))
	t.Cleanup(server.Close)
	return server, &received
}

func genericPage(origin string) string {
	return fmt.Sprintf(`<span class="origin">%s</span><p>answer the riddle</p>`, origin)
}

func TestRunChain(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "lib/quizchain")
	defer cleanup()

	page1 := "http://quiz.example.com/q/1"
	page2 := "http://quiz.example.com/q/2"

	server, received := submitServer(t, []string{
		fmt.Sprintf(`{"url": %q}`, page2),
		`{"correct": true, "message": "done"}`,
	})

	renderer := &fakeRenderer{pages: map[string]string{
		page1: genericPage(server.URL),
		page2: genericPage(server.URL),
	}}

	engine := New(Options{Renderer: renderer, Http: resty.New()})
	result, err := engine.Run(context.Background(), page1, "a@b.c", "hunter2")
	require.NoError(t, err)

	// the terminal response comes back verbatim
	require.Equal(t, map[string]any{"correct": true, "message": "done"}, result)
	require.Equal(t, 2, renderer.calls)

	require.Len(t, *received, 2)
	require.Equal(t, "a@b.c", (*received)[0].Email)
	require.Equal(t, "hunter2", (*received)[0].Secret)
	require.Equal(t, page1, (*received)[0].Url)
	require.Equal(t, "hello-from-agent", (*received)[0].Answer)
	require.Equal(t, page2, (*received)[1].Url)
}

func TestRunMixedChain(t *testing.T) {
	page1 := "http://quiz.example.com/q/csv"
	page2 := "http://quiz.example.com/q/scrape"
	dataPage := "http://quiz.example.com/demo-scrape-data?email=a@b.c"

	csvFile := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "5\n10\n15\n20\n")
	})
	mux := http.NewServeMux()
	mux.Handle("/data.csv", csvFile)

	var received []receivedSubmission
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		var payload receivedSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received = append(received, payload)
		if len(received) == 1 {
			fmt.Fprintf(w, `{"url": %q}`, page2)
			return
		}
		fmt.Fprint(w, `{"correct": true}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	renderer := &fakeRenderer{pages: map[string]string{
		page1: fmt.Sprintf(
			`<span class="origin">%s</span><a href="%s/data.csv">listen</a><span id="cutoff">10</span>`,
			server.URL, server.URL,
		),
		page2: fmt.Sprintf(
			`<span class="origin">%s</span><div id="question"><a href="%s">data</a></div>`,
			server.URL, dataPage,
		),
		dataPage: "<html><body><pre>the code is\n32000\n</pre></body></html>",
	}}

	engine := New(Options{Renderer: renderer, Http: resty.New()})
	result, err := engine.Run(context.Background(), page1, "a@b.c", "hunter2")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"correct": true}, result)

	require.Len(t, received, 2)
	// json numbers decode as float64
	require.Equal(t, float64(45), received[0].Answer)
	require.Equal(t, "32000", received[1].Answer)
}

func TestRunEmptyStartUrl(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{}}

	engine := New(Options{Renderer: renderer, Http: resty.New()})
	result, err := engine.Run(context.Background(), "", "a@b.c", "hunter2")
	require.NoError(t, err)

	require.Equal(t, map[string]any{"correct": false, "reason": "timeout or missing url"}, result)
	require.Equal(t, 0, renderer.calls)
}

func TestRunBudgetExhausted(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{}}

	t0 := time.Unix(1700000000, 0)
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return t0
		}
		return t0.Add(MaxDuration)
	}

	engine := New(Options{Renderer: renderer, Http: resty.New(), Clock: clock})
	result, err := engine.Run(context.Background(), "http://quiz.example.com/q/1", "a@b.c", "hunter2")
	require.NoError(t, err)

	require.Equal(t, map[string]any{"correct": false, "reason": "timeout or missing url"}, result)
	require.Equal(t, 0, renderer.calls)
}

func TestRunInvalidSubmitResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "certainly not json")
	}))
	defer server.Close()

	page1 := "http://quiz.example.com/q/1"
	renderer := &fakeRenderer{pages: map[string]string{
		page1: genericPage(server.URL),
	}}

	engine := New(Options{Renderer: renderer, Http: resty.New()})
	_, err := engine.Run(context.Background(), page1, "a@b.c", "hunter2")

	var invalid *InvalidResponseError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "certainly not json", invalid.Body)
}

func TestRunStepObserver(t *testing.T) {
	page1 := "http://quiz.example.com/q/1"
	server, _ := submitServer(t, []string{`{"correct": true}`})

	renderer := &fakeRenderer{pages: map[string]string{
		page1: genericPage(server.URL),
	}}

	var steps []Step
	engine := New(Options{
		Renderer: renderer,
		Http:     resty.New(),
		OnStep:   func(s Step) { steps = append(steps, s) },
	})
	_, err := engine.Run(context.Background(), page1, "a@b.c", "hunter2")
	require.NoError(t, err)

	require.Len(t, steps, 1)
	require.Equal(t, page1, steps[0].Url)
	require.Equal(t, QuestionGeneric, steps[0].Type)
	require.Equal(t, server.URL+"/submit", steps[0].SubmitUrl)
	require.Equal(t, "hello-from-agent", steps[0].Answer)
}

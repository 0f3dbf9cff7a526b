package quiz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/chainstore"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/quizchain"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) (Service, chainstore.Store, string) {
	cleanup := telemetry.SetupForTesting(t, "services/quiz")
	t.Cleanup(cleanup)

	// terminal on the first submission
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"correct": true}`)
	}))
	t.Cleanup(server.Close)

	startUrl := "http://quiz.example.com/q/1"
	renderer := quizchain.RendererFunc(func(ctx context.Context, url string) (string, error) {
		return fmt.Sprintf(`<span class="origin">%s</span><p>a riddle</p>`, server.URL), nil
	})

	store, err := chainstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := quizchain.New(quizchain.Options{Renderer: renderer, Http: resty.New()})
	return NewService("hunter2", engine, store), store, startUrl
}

func TestServiceRun(t *testing.T) {
	service, store, startUrl := setup(t)
	ctx := context.Background()

	res, err := service.Run(ctx, Request{
		Email:  "a@b.c",
		Secret: "hunter2",
		Url:    startUrl,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunId)
	require.Equal(t, map[string]any{"correct": true}, res.Result)

	recorded, err := store.Get(ctx, res.RunId)
	require.NoError(t, err)
	require.True(t, recorded.Ok)
	require.Equal(t, startUrl, recorded.StartUrl)
	require.Equal(t, map[string]any{"correct": true}, recorded.Result)
}

func TestServiceRejectsBadSecret(t *testing.T) {
	service, _, startUrl := setup(t)

	_, err := service.Run(context.Background(), Request{
		Email:  "a@b.c",
		Secret: "wrong",
		Url:    startUrl,
	})
	require.ErrorIs(t, err, ErrInvalidSecret)
}

func TestServiceRejectsMissingFields(t *testing.T) {
	service, _, _ := setup(t)

	testCases := []Request{
		{},
		{Email: "a@b.c"},
		{Email: "a@b.c", Secret: "hunter2"},
		{Secret: "hunter2", Url: "http://quiz.example.com/q/1"},
	}
	for _, req := range testCases {
		_, err := service.Run(context.Background(), req)
		require.ErrorIs(t, err, ErrMissingFields)
	}
}

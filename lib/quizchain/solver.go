package quizchain

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Renderer renders a url to html after any client-side scripts have
// run. Implementations may be slow, a call blocks only the chain that
// issued it.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, url string) (string, error)

func (f RendererFunc) Render(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// Solver computes the answer value for one question type. The returned
// answer is either a string or an int64 and is serialized as a json
// scalar in the submission payload.
type Solver interface {
	Solve(ctx context.Context, doc *goquery.Document, currentUrl string) (any, error)
}

const genericAnswer = "hello-from-agent"

// GenericSolver answers pages that match no other question type with a
// constant greeting, no computation involved.
type GenericSolver struct{}

func (GenericSolver) Solve(ctx context.Context, doc *goquery.Document, currentUrl string) (any, error) {
	return genericAnswer, nil
}

package quizchain

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var digitRun = regexp.MustCompile(`\d+`)

// ScrapeSolver follows the data link inside the question container,
// renders the data page and returns the first run of decimal digits
// found on a non-blank line as the answer string.
type ScrapeSolver struct {
	Renderer Renderer
}

func (s ScrapeSolver) Solve(ctx context.Context, doc *goquery.Document, currentUrl string) (any, error) {
	ctx, span := tracer.Start(ctx, "ScrapeSolver.Solve")
	defer span.End()

	href := doc.Find("#question a").First().AttrOr("href", "")
	if href == "" {
		span.SetStatus(codes.Error, "question link not found")
		return nil, fmt.Errorf("question link not found: %w", ErrExtraction)
	}

	dataUrl, err := resolveRef(currentUrl, href)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("data_url", dataUrl))
	slog.DebugContext(ctx, "scrape solver following data link", "url", dataUrl)

	dataHtml, err := s.Renderer.Render(ctx, dataUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to render data page")
		return nil, fmt.Errorf("render data page: %w", err)
	}

	dataDoc, err := goquery.NewDocumentFromReader(strings.NewReader(dataHtml))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("parse data page html: %w", err)
	}

	text := htmlutil.GetText(dataDoc.Get(0))
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		code := digitRun.FindString(line)
		if code == "" {
			continue
		}
		span.SetAttributes(attribute.String("secret_code", code))
		slog.DebugContext(ctx, "scrape solver extracted secret code", "code", code)
		return code, nil
	}

	span.SetStatus(codes.Error, "no digit run found on data page")
	return nil, fmt.Errorf("no digit run on data page %s: %w", dataUrl, ErrExtraction)
}

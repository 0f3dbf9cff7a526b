package quizchain

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AudioCSVSolver downloads the csv the page links to, reads the page's
// cutoff value and answers with the truncated sum of the first-column
// values greater than or equal to the cutoff.
type AudioCSVSolver struct {
	Http *resty.Client
}

func (s AudioCSVSolver) Solve(ctx context.Context, doc *goquery.Document, currentUrl string) (any, error) {
	ctx, span := tracer.Start(ctx, "AudioCSVSolver.Solve")
	defer span.End()

	href := ""
	for _, a := range htmlutil.Anchors(ctx, doc.Find("a")) {
		if strings.HasSuffix(a.Href, ".csv") {
			href = a.Href
			break
		}
	}
	if href == "" {
		span.SetStatus(codes.Error, ErrMissingLink.Error())
		return nil, ErrMissingLink
	}

	csvUrl, err := resolveRef(currentUrl, href)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("csv_url", csvUrl))
	slog.DebugContext(ctx, "audio solver downloading csv", "url", csvUrl)

	res, err := s.Http.R().
		SetContext(ctx).
		Get(csvUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to download csv")
		return nil, fmt.Errorf("download csv: %w", err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "non-success status for csv")
		return nil, &DownloadError{Url: csvUrl, StatusCode: res.StatusCode()}
	}

	series, err := parseSeries(res.Body())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	cutoff, err := readCutoff(doc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("cutoff", cutoff),
		attribute.Int("rows", len(series)),
	)

	sum := 0.0
	for _, v := range series {
		if v >= float64(cutoff) {
			sum += v
		}
	}
	answer := int64(sum)
	slog.DebugContext(ctx, "audio solver computed sum", "cutoff", cutoff, "answer", answer)
	return answer, nil
}

// parseSeries reads the first column of headerless csv data as floats.
// Cells that do not parse as numbers count as missing, they are
// dropped instead of failing the solve.
func parseSeries(data []byte) ([]float64, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var series []float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			continue
		}
		series = append(series, v)
	}
	return series, nil
}

// readCutoff parses the page's `#cutoff` element as an integer,
// defaulting to 0 when the element is absent.
func readCutoff(doc *goquery.Document) (int, error) {
	sel := doc.Find("#cutoff")
	if len(sel.Nodes) == 0 {
		return 0, nil
	}
	text := strings.TrimSpace(sel.First().Text())
	cutoff, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse cutoff %q: %w", text, err)
	}
	return cutoff, nil
}

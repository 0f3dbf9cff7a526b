// Package quizchain walks a server-driven quiz chain: it renders the
// current page, figures out which kind of question it is, computes an
// answer, posts it to the submission endpoint the page points at and
// follows the next url the server hands back, until the server stops
// returning one or the chain runs out of its time budget.
package quizchain

import (
	"fmt"
)

// QuestionType labels which solver handles a quiz page.
type QuestionType int

const (
	QuestionGeneric QuestionType = iota
	QuestionScrape
	QuestionAudioCSV
)

func (t QuestionType) String() string {
	switch t {
	case QuestionGeneric:
		return "generic"
	case QuestionScrape:
		return "scrape"
	case QuestionAudioCSV:
		return "audio"
	}
	return fmt.Sprintf("QuestionType(%d)", int(t))
}

// ErrExtraction is returned by the scrape solver when the question page
// has no data link or the data page yields no digit run.
var ErrExtraction = fmt.Errorf("could not extract secret code")

// ErrMissingLink is returned by the audio/csv solver when the page has
// no anchor pointing at a csv file.
var ErrMissingLink = fmt.Errorf("csv link not found")

// DownloadError reports a non-success status while fetching a resource.
type DownloadError struct {
	Url        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: unexpected status %d", e.Url, e.StatusCode)
}

// InvalidResponseError reports a submission response body that does not
// parse as json. The raw body is kept for diagnostics.
type InvalidResponseError struct {
	Body string
	Err  error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid json from submit: %s", e.Body)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

package quizchain

import "strings"

// Classify returns the question type for a rendered quiz page.
// Matching is case-insensitive, first match wins. Pages that match
// nothing fall through to the generic type rather than failing, the
// quiz family treats unknown pages as answerable with the default
// answer.
func Classify(html string) QuestionType {
	lowered := strings.ToLower(html)
	if strings.Contains(lowered, "demo-scrape-data") || strings.Contains(lowered, "scrape") {
		return QuestionScrape
	}
	if strings.Contains(lowered, ".csv") || strings.Contains(lowered, "audio") {
		return QuestionAudioCSV
	}
	return QuestionGeneric
}

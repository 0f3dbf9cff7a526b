package quizchain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResolveSubmitTarget computes the absolute submission endpoint for a
// quiz page. A non-empty `.origin` element on the page overrides the
// scheme+host derived from the page's own url. No network access.
func ResolveSubmitTarget(doc *goquery.Document, currentUrl string) (string, error) {
	origin := strings.TrimSpace(doc.Find(".origin").First().Text())

	if origin == "" {
		parsed, err := url.Parse(currentUrl)
		if err != nil {
			return "", fmt.Errorf("parse current url: %w", err)
		}
		origin = (&url.URL{Scheme: parsed.Scheme, Host: parsed.Host}).String()
	}

	return strings.TrimRight(origin, "/") + "/submit", nil
}

// resolveRef resolves href against base the way a browser resolves a
// link on a page.
func resolveRef(base, href string) (string, error) {
	baseUrl, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	refUrl, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return baseUrl.ResolveReference(refUrl).String(), nil
}

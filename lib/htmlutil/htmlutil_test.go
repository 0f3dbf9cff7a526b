package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<html><body><p>hello <b>bold</b> world</p></body></html>",
	))
	require.NoError(t, err)

	require.Equal(t, "hello bold world", GetText(doc.Get(0)))
}

func TestCleanText(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"  hello   world  ", "hello world"},
		{"\tone\n\ntwo\t", "one two"},
		{"plain", "plain"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, CleanText(test.input))
	}
}

func TestAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<a href="/first">First   link</a>
		<a href="https://example.com/data.csv">download</a>
		<a>no href</a>
	`))
	require.NoError(t, err)

	anchors := Anchors(context.Background(), doc.Find("a"))
	require.Len(t, anchors, 3)
	require.Equal(t, Anchor{Name: "First link", Href: "/first"}, anchors[0])
	require.Equal(t, Anchor{Name: "download", Href: "https://example.com/data.csv"}, anchors[1])
	require.Equal(t, "", anchors[2].Href)
}

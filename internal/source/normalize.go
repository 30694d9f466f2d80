package source

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsPipeline/internal/domain"
)

// Fields is the provider-neutral view of one item before it becomes a RawArticle.
type Fields struct {
	URL         string
	Title       string
	Content     string
	Description string
	Source      string
	Category    string
	Author      string
	ImageURL    string
	PublishedAt string
	Published   *time.Time
}

var truncatedMarker = regexp.MustCompile(`\s*(…|\.\.\.)?\s*\[\+\d+ chars\]\s*$`)

// Normalize maps provider fields to a RawArticle. Blank optional fields become nil.
func Normalize(f Fields) domain.RawArticle {
	content := cleanText(f.Content)
	if content == "" {
		content = cleanText(f.Description)
	}

	raw := domain.RawArticle{
		URL:      strings.TrimSpace(f.URL),
		Title:    cleanText(f.Title),
		Content:  optional(content),
		Source:   strings.TrimSpace(f.Source),
		Category: optional(strings.ToLower(strings.TrimSpace(f.Category))),
		Author:   optional(cleanText(f.Author)),
		ImageURL: optional(strings.TrimSpace(f.ImageURL)),
	}

	switch {
	case f.Published != nil:
		t := f.Published.UTC()
		raw.PublishedAt = &t
	case strings.TrimSpace(f.PublishedAt) != "":
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(f.PublishedAt)); err == nil {
			t = t.UTC()
			raw.PublishedAt = &t
		}
	}
	return raw
}

// cleanText strips markup and the provider truncation marker and collapses whitespace.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = truncatedMarker.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

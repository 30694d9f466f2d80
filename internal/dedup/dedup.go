package dedup

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"NewsPipeline/internal/domain"
)

// CanonicalURL lower-cases scheme, host and path, strips query and fragment
// and removes trailing slashes. The result is the sole dedup identity of an article.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", domain.ErrValidation)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: parse url %q: %v", domain.ErrValidation, raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: url %q is not absolute", domain.ErrValidation, raw)
	}

	path := strings.TrimRight(parsed.EscapedPath(), "/")
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host) + strings.ToLower(path), nil
}

// Validate checks the fields every stored article needs and returns its canonical key.
func Validate(raw domain.RawArticle) (string, error) {
	if strings.TrimSpace(raw.Title) == "" {
		return "", fmt.Errorf("%w: missing title", domain.ErrValidation)
	}
	return CanonicalURL(raw.URL)
}

// Batch is the outcome of admitting a raw batch.
type Batch struct {
	Articles          []domain.NewArticle
	ValidationDropped int
}

// Admit validates and canonicalizes raw items. Invalid items are dropped and counted.
// Repeats inside the batch are kept; the store's unique key turns them into skips.
func Admit(raws []domain.RawArticle, fetchedAt time.Time) Batch {
	batch := Batch{Articles: make([]domain.NewArticle, 0, len(raws))}
	for _, raw := range raws {
		key, err := Validate(raw)
		if err != nil {
			batch.ValidationDropped++
			continue
		}
		raw.Title = strings.TrimSpace(raw.Title)
		if strings.TrimSpace(raw.Source) == "" {
			raw.Source = "unknown"
		}
		batch.Articles = append(batch.Articles, domain.NewArticle{
			Raw:          raw,
			CanonicalURL: key,
			FetchedAt:    fetchedAt,
		})
	}
	return batch
}

package enrich

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/ports"
)

const shortTextLimit = 50

// ExtractiveSummarizer picks the highest scoring sentences of the article body.
// Sentences score by the frequency of their keywords, with a small boost for earlier ones.
type ExtractiveSummarizer struct {
	Sentences int
}

var _ ports.Summarizer = (*ExtractiveSummarizer)(nil)

// NewExtractiveSummarizer returns a summarizer keeping n sentences (default 3).
func NewExtractiveSummarizer(n int) *ExtractiveSummarizer {
	if n <= 0 {
		n = 3
	}
	return &ExtractiveSummarizer{Sentences: n}
}

// Summarize falls back to the title when the article carries no content.
func (s *ExtractiveSummarizer) Summarize(ctx context.Context, article domain.Article) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	text := clean(article.ContentText())
	if text == "" {
		text = clean(article.Title)
	}
	if text == "" {
		return "", fmt.Errorf("%w: article %d has no text", domain.ErrSummarizationFailed, article.ID)
	}
	if len(text) < shortTextLimit {
		return text, nil
	}

	n := s.Sentences
	if n <= 0 {
		n = 3
	}
	all := sentences(text)
	if len(all) <= n {
		return strings.Join(all, " "), nil
	}

	freq := frequencies(text)
	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(all))
	for i, sentence := range all {
		var sum int
		for _, w := range words(sentence) {
			sum += freq[strings.Trim(w, "-")]
		}
		boost := 1.0 + 0.1*float64(len(all)-i)/float64(len(all))
		ranked[i] = scored{idx: i, score: float64(sum) * boost}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	top := ranked[:n]
	sort.Slice(top, func(a, b int) bool { return top[a].idx < top[b].idx })

	picked := make([]string, 0, n)
	for _, sc := range top {
		picked = append(picked, all[sc.idx])
	}
	return strings.Join(picked, " "), nil
}

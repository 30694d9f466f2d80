package enrich

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPipeline/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestSummarizeShortTextReturnedAsIs(t *testing.T) {
	t.Parallel()

	s := NewExtractiveSummarizer(3)
	got, err := s.Summarize(context.Background(), domain.Article{Title: "T", Content: strPtr("  Brief   note. ")})
	require.NoError(t, err)
	assert.Equal(t, "Brief note.", got)
}

func TestSummarizeFallsBackToTitle(t *testing.T) {
	t.Parallel()

	got, err := NewExtractiveSummarizer(3).Summarize(context.Background(), domain.Article{Title: "Headline only"})
	require.NoError(t, err)
	assert.Equal(t, "Headline only", got)

	_, err = NewExtractiveSummarizer(3).Summarize(context.Background(), domain.Article{ID: 3})
	assert.ErrorIs(t, err, domain.ErrSummarizationFailed)
}

func TestSummarizePicksKeySentencesInOrder(t *testing.T) {
	t.Parallel()

	body := "The central bank raised interest rates again. " +
		"Weather in the capital was mild. " +
		"Interest rates now sit at a decade high, the bank said. " +
		"A local bakery opened downtown. " +
		"Analysts expect the bank to hold rates steady next quarter."

	got, err := NewExtractiveSummarizer(2).Summarize(context.Background(), domain.Article{Content: strPtr(body)})
	require.NoError(t, err)
	assert.NotContains(t, got, "bakery")
	assert.NotContains(t, got, "Weather")
	assert.Equal(t, 2, strings.Count(got, "."))
	assert.True(t, strings.HasPrefix(got, "The central bank") || strings.HasPrefix(got, "Interest rates"))
}

func TestSummarizeHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExtractiveSummarizer(3).Summarize(ctx, domain.Article{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestTagsEmptyContent(t *testing.T) {
	t.Parallel()

	tags := NewKeywordTagger().Tags("AI is everywhere", "   ")
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestTagsTaxonomyAndKeywords(t *testing.T) {
	t.Parallel()

	content := "OpenAI released a new chatbot. Researchers say deep learning and machine learning " +
		"keep improving the chatbot. Regulators watch the chatbot closely."
	tags := NewKeywordTagger().Tags("Chatbot race heats up", content)

	require.NotEmpty(t, tags)
	assert.LessOrEqual(t, len(tags), MaxTags)
	assert.Equal(t, "ai", tags[0])
	assert.Contains(t, tags, "machine-learning")
	assert.Contains(t, tags, "chatbot")
	for _, tag := range tags {
		assert.Equal(t, domain.NormalizeTag(tag), tag)
	}
}

func TestTagsDeterministic(t *testing.T) {
	t.Parallel()

	content := "Solar and nuclear power lead the energy transition as oil prices fall and carbon emissions drop."
	tagger := NewKeywordTagger()
	first := tagger.Tags("Energy shift", content)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, tagger.Tags("Energy shift", content))
	}
	assert.Equal(t, []string{"energy", "climate"}, first[:2])
}

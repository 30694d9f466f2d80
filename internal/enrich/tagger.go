package enrich

import (
	"sort"
	"strings"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/ports"
)

// MaxTags bounds the tags attached to one article.
const MaxTags = 5

// taxonomy maps a tag to the keywords that imply it. Multi-word keywords match as phrases.
var taxonomy = map[string][]string{
	"ai": {
		"ai", "artificial intelligence", "chatgpt", "openai", "llm", "gpt", "chatbot", "generative",
	},
	"machine-learning": {
		"machine learning", "deep learning", "neural network", "neural", "training data", "model training",
	},
	"climate": {
		"climate", "emissions", "carbon", "global warming", "wildfire", "heatwave",
	},
	"economy": {
		"economy", "inflation", "interest rates", "gdp", "recession", "central bank", "tariffs",
	},
	"markets": {
		"stocks", "stock market", "shares", "nasdaq", "dow jones", "investors", "earnings",
	},
	"politics": {
		"election", "elections", "senate", "congress", "parliament", "president", "campaign",
	},
	"security": {
		"cybersecurity", "hack", "hackers", "breach", "ransomware", "vulnerability", "malware",
	},
	"health": {
		"health", "vaccine", "virus", "hospital", "disease", "medical", "cancer", "outbreak",
	},
	"space": {
		"nasa", "spacex", "rocket", "satellite", "orbit", "astronaut", "mars", "moon",
	},
	"crypto": {
		"bitcoin", "crypto", "cryptocurrency", "blockchain", "ethereum",
	},
	"energy": {
		"oil", "solar", "renewable", "nuclear", "electricity", "battery", "batteries",
	},
	"sports": {
		"football", "soccer", "basketball", "tennis", "olympics", "championship", "league",
	},
}

// taxonomyOrder fixes iteration order so tagging is deterministic.
var taxonomyOrder = func() []string {
	names := make([]string, 0, len(taxonomy))
	for name := range taxonomy {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// KeywordTagger derives tags from a fixed taxonomy, then fills up with the most frequent
// content keywords. It is local and never fails.
type KeywordTagger struct {
	Max int
}

var _ ports.Tagger = (*KeywordTagger)(nil)

// NewKeywordTagger returns a tagger producing at most MaxTags tags.
func NewKeywordTagger() *KeywordTagger {
	return &KeywordTagger{Max: MaxTags}
}

// Tags returns normalized tag names. Empty content yields no tags.
func (k *KeywordTagger) Tags(title, content string) []string {
	max := k.Max
	if max <= 0 {
		max = MaxTags
	}
	content = clean(content)
	if content == "" {
		return []string{}
	}

	text := clean(title) + ". " + content
	tokens := words(text)
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}
	padded := " " + strings.Join(tokens, " ") + " "

	type hit struct {
		tag   string
		count int
	}
	var hits []hit
	for _, tag := range taxonomyOrder {
		count := 0
		for _, kw := range taxonomy[tag] {
			if strings.Contains(kw, " ") {
				count += strings.Count(padded, " "+kw+" ")
				continue
			}
			if _, ok := tokenSet[kw]; ok {
				count++
			}
		}
		if count > 0 {
			hits = append(hits, hit{tag: tag, count: count})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].count > hits[b].count })

	out := make([]string, 0, max)
	seen := map[string]struct{}{}
	add := func(tag string) {
		tag = domain.NormalizeTag(tag)
		if tag == "" || len(out) >= max {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	for _, h := range hits {
		add(h.tag)
	}

	freq := frequencies(text)
	keywords := make([]string, 0, len(freq))
	for w, n := range freq {
		if n >= 2 {
			keywords = append(keywords, w)
		}
	}
	sort.Slice(keywords, func(a, b int) bool {
		if freq[keywords[a]] != freq[keywords[b]] {
			return freq[keywords[a]] > freq[keywords[b]]
		}
		return keywords[a] < keywords[b]
	})
	for _, w := range keywords {
		add(w)
	}
	return out
}

package enrich

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlExpr      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	sentenceExpr = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

var stopwords = toSet(`a about above after again against all also am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from further
had has have having he her here hers herself him himself his how i if in into is it its itself just
me more most my myself no nor not now of off on once only or other our ours ourselves out over own
said same says she should so some such than that the their theirs them themselves then there these they
this those through to too under until up very was we were what when where which while who whom why will
with would you your yours yourself yourselves new one two year years first last like get got make made
many much may might must per still well according told report reports reported`)

func toSet(words string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(words) {
		out[w] = struct{}{}
	}
	return out
}

// clean removes links and collapses whitespace.
func clean(text string) string {
	text = urlExpr.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// words splits text into lower-cased letter/digit tokens.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func isKeyword(w string) bool {
	if len([]rune(w)) < 3 {
		return false
	}
	if _, stop := stopwords[w]; stop {
		return false
	}
	return strings.IndexFunc(w, unicode.IsLetter) >= 0
}

// frequencies counts keyword tokens.
func frequencies(text string) map[string]int {
	freq := map[string]int{}
	for _, w := range words(text) {
		w = strings.Trim(w, "-")
		if isKeyword(w) {
			freq[w]++
		}
	}
	return freq
}

func sentences(text string) []string {
	var out []string
	for _, s := range sentenceExpr.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

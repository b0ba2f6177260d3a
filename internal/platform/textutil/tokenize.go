package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "are": {}, "from": {},
	"into": {}, "its": {}, "was": {}, "were": {}, "has": {}, "have": {}, "will": {}, "can": {},
	"than": {}, "then": {}, "also": {}, "such": {}, "each": {}, "which": {}, "when": {}, "where": {},
	"who": {}, "why": {}, "how": {}, "what": {}, "there": {}, "their": {}, "these": {}, "those": {},
	"been": {}, "being": {}, "about": {}, "over": {}, "under": {}, "they": {}, "them": {}, "our": {},
	"you": {}, "your": {}, "lecture": {}, "today": {}, "use": {}, "used": {}, "using": {},
}

// Fold lowercases text and strips combining marks ("Schrödinger" -> "schrodinger").
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	return strings.ToLower(out)
}

// Tokenize splits text into normalized tokens, preserving order and duplicates.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(Fold(text), -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < 3 {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		terms = append(terms, stem(token))
	}
	return terms
}

// Terms returns the unique tokens of text in first-seen order.
func Terms(text string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, tok := range Tokenize(text) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func stem(tok string) string {
	if len(tok) > 4 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && !strings.HasSuffix(tok, "us") && !strings.HasSuffix(tok, "is") {
		return tok[:len(tok)-1]
	}
	return tok
}

package textutil

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	tagPattern   = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// CleanEvidence strips HTML markup (extractors and LLMs occasionally return fragments)
// and collapses whitespace.
func CleanEvidence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if tagPattern.MatchString(text) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			doc.Find("script, style").Remove()
			text = doc.Text()
		} else {
			text = tagPattern.ReplaceAllString(text, " ")
		}
	}
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// DisplayTitle turns a raw concept summary into a short title-cased label.
func DisplayTitle(raw string, maxWords int) string {
	raw = CleanEvidence(raw)
	if raw == "" {
		return ""
	}
	if i := strings.IndexAny(raw, ".;:\n"); i > 0 {
		raw = raw[:i]
	}
	words := strings.Fields(raw)
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

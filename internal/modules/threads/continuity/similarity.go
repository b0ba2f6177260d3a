package continuity

import (
	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/textutil"
)

// Profile is the comparable shape of a thread or a candidate.
type Profile struct {
	Text  *textutil.Fingerprint
	Terms []string
	Facet threads.Facet
}

func candidateProfile(c Candidate, terms []string) Profile {
	tokens := textutil.Tokenize(c.Title + " " + c.Summary + " " + c.Evidence)
	return Profile{Text: textutil.FingerprintOf(tokens), Terms: terms, Facet: c.DominantFacet}
}

// ThreadProfile builds the profile from title, summary and accumulated evidence terms.
func ThreadProfile(th *threads.Thread) Profile {
	terms := th.Terms()
	tokens := textutil.Tokenize(th.Title + " " + th.Summary)
	tokens = append(tokens, terms...)
	return Profile{Text: textutil.FingerprintOf(tokens), Terms: terms, Facet: th.Face}
}

// Similarity blends cosine text similarity with evidence-term overlap and scales the
// result down on facet disagreement. It is symmetric and bounded in [0,1].
func Similarity(a, b Profile, cfg Config) float64 {
	text := cfg.TextWeight*textutil.CosineSimilarity(a.Text, b.Text) +
		(1-cfg.TextWeight)*textutil.Jaccard(a.Terms, b.Terms)
	if a.Facet != b.Facet {
		text *= cfg.FacetMismatchPenalty
	}
	if text < 0 {
		return 0
	}
	if text > 1 {
		return 1
	}
	return text
}

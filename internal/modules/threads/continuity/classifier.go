package continuity

import (
	"regexp"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/textutil"
)

// Classification is the verdict on what new evidence means for a matched thread.
// An empty Change means the evidence only corroborates.
type Classification struct {
	Change     threads.ChangeType
	NovelTerms []string
	Reason     string
}

// ChangeClassifier decides whether matched evidence refines, contradicts or extends a thread.
type ChangeClassifier interface {
	Classify(th *threads.Thread, c Candidate, candidateTerms []string) Classification
}

// RuleClassifier is the default rule set:
//   - contradiction when negation polarity differs from the thread's standing claim and the texts overlap
//   - complexity_increase when at least NovelTermsForComplexity unseen terms appear
//   - refinement for fewer unseen terms
//   - corroboration otherwise
type RuleClassifier struct {
	NovelTermsForComplexity int
	// MinContradictionOverlap is the cosine floor below which polarity is not compared.
	MinContradictionOverlap float64
}

func NewRuleClassifier(cfg Config) *RuleClassifier {
	return &RuleClassifier{NovelTermsForComplexity: cfg.ComplexityNovelTerms, MinContradictionOverlap: 0.2}
}

func (r *RuleClassifier) Classify(th *threads.Thread, c Candidate, candidateTerms []string) Classification {
	novel := textutil.Novel(candidateTerms, th.Terms())

	claim := standingClaim(th.Summary)
	if negated(c.Evidence) != negated(claim) {
		overlap := textutil.CosineSimilarity(textutil.NewFingerprint(c.Evidence), textutil.NewFingerprint(claim))
		if overlap >= r.MinContradictionOverlap {
			return Classification{Change: threads.ChangeContradiction, NovelTerms: novel, Reason: "negation polarity differs from thread claim"}
		}
	}
	switch {
	case len(novel) >= r.NovelTermsForComplexity:
		return Classification{Change: threads.ChangeComplexityIncrease, NovelTerms: novel, Reason: "new sub-concepts introduced"}
	case len(novel) > 0:
		return Classification{Change: threads.ChangeRefinement, NovelTerms: novel, Reason: "adds detail to existing concept"}
	default:
		return Classification{Reason: "corroborating evidence"}
	}
}

var wordPattern = regexp.MustCompile(`[a-z']+`)

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "cannot": {}, "can't": {}, "isn't": {}, "aren't": {},
	"doesn't": {}, "don't": {}, "didn't": {}, "won't": {}, "wasn't": {}, "neither": {}, "nor": {},
	"false": {}, "incorrect": {}, "untrue": {}, "fails": {}, "contrary": {},
}

// negated reports odd negation parity so "not untrue" reads as affirmative.
func negated(text string) bool {
	n := 0
	for _, w := range wordPattern.FindAllString(textutil.Fold(text), -1) {
		if _, ok := negations[w]; ok {
			n++
		}
	}
	return n%2 == 1
}

package continuity

import (
	"errors"
	"math"
	"testing"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/textutil"
)

func classifierThread() *threads.Thread {
	th := &threads.Thread{Summary: "derivative defined as limit of difference quotient", Face: threads.FacetWhat}
	th.SetTerms([]string{"define", "derivative", "limit", "difference", "quotient"})
	return th
}

func TestRuleClassifier(t *testing.T) {
	cls := NewRuleClassifier(DefaultConfig())
	th := classifierThread()
	cases := []struct {
		name     string
		evidence string
		want     threads.ChangeType
	}{
		{"corroboration", "define derivative as limit of difference quotient", ""},
		{"refinement", "derivative as limit of difference quotient for tangent", threads.ChangeRefinement},
		{"complexity", "derivative limit tangent slope instantaneous rate", threads.ChangeComplexityIncrease},
		{"contradiction", "the derivative is not defined as a limit of difference quotient", threads.ChangeContradiction},
		{"double negation", "it is not untrue that the derivative is a limit of difference quotient", threads.ChangeRefinement},
		{"unrelated negation", "photosynthesis never happens at night", threads.ChangeComplexityIncrease},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cls.Classify(th, Candidate{Evidence: tc.evidence}, textutil.Terms(tc.evidence))
			if got.Change != tc.want {
				t.Fatalf("Classify(%q) = %q (%s), want %q", tc.evidence, got.Change, got.Reason, tc.want)
			}
		})
	}
}

func TestStandingClaimIgnoresAppendedNotes(t *testing.T) {
	cases := []struct {
		summary string
		want    string
	}{
		{"limit of difference quotient", "limit of difference quotient"},
		{"limit of difference quotient. Contested: it is not a limit.", "limit of difference quotient."},
		{"limit of difference quotient. Refined: never negative. Contested: not a limit.", "limit of difference quotient."},
		{"Contested: odd seed", "Contested: odd seed"},
	}
	for _, tc := range cases {
		if got := standingClaim(tc.summary); got != tc.want {
			t.Fatalf("standingClaim(%q) = %q, want %q", tc.summary, got, tc.want)
		}
	}

	cls := NewRuleClassifier(DefaultConfig())
	th := classifierThread()
	th.Summary = appendSentence(th.Summary, noteContested+"the derivative is not defined as limit of difference quotient")
	evidence := "define derivative as limit of difference quotient"
	if got := cls.Classify(th, Candidate{Evidence: evidence}, textutil.Terms(evidence)); got.Change != "" {
		t.Fatalf("Classify after contest = %q (%s), want corroboration", got.Change, got.Reason)
	}
}

func TestSimilaritySymmetricAndBounded(t *testing.T) {
	cfg := DefaultConfig()
	texts := []string{
		"derivative defined as limit of difference quotient",
		"integral as area under curve via riemann sums",
		"derivative as limit of difference quotient, tangent slope",
	}
	var profiles []Profile
	for i, txt := range texts {
		facet := threads.FacetWhat
		if i == 1 {
			facet = threads.FacetHow
		}
		p, err := prepare(Candidate{Evidence: txt, DominantFacet: facet}, "")
		if err != nil {
			t.Fatalf("prepare: %v", err)
		}
		profiles = append(profiles, p.Profile)
	}
	for i := range profiles {
		if s := Similarity(profiles[i], profiles[i], cfg); math.Abs(s-1) > 1e-9 {
			t.Fatalf("self similarity = %v", s)
		}
		for j := range profiles {
			a, b := Similarity(profiles[i], profiles[j], cfg), Similarity(profiles[j], profiles[i], cfg)
			if math.Abs(a-b) > 1e-12 || a < 0 || a > 1 {
				t.Fatalf("Similarity(%d,%d)=%v, reverse %v", i, j, a, b)
			}
		}
	}
}

func TestFacetMismatchPenalty(t *testing.T) {
	cfg := DefaultConfig()
	p, err := prepare(Candidate{Evidence: "derivative defined as limit of difference quotient", DominantFacet: threads.FacetWhat}, "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	other := p.Profile
	other.Facet = threads.FacetWhy
	same := Similarity(p.Profile, p.Profile, cfg)
	mismatch := Similarity(p.Profile, other, cfg)
	if math.Abs(mismatch-same*cfg.FacetMismatchPenalty) > 1e-9 {
		t.Fatalf("mismatch = %v, want %v", mismatch, same*cfg.FacetMismatchPenalty)
	}
}

func TestPrepareValidation(t *testing.T) {
	cases := []struct {
		name string
		in   Candidate
		ok   bool
	}{
		{"valid", Candidate{Evidence: "limits approach values", DominantFacet: threads.FacetWhat}, true},
		{"lowercase facet", Candidate{Evidence: "limits approach values", DominantFacet: "why"}, true},
		{"empty evidence", Candidate{Evidence: "   ", DominantFacet: threads.FacetWhat}, false},
		{"markup only", Candidate{Evidence: "<div><br/></div>", DominantFacet: threads.FacetWhat}, false},
		{"no terms", Candidate{Evidence: "a of to", DominantFacet: threads.FacetWhat}, false},
		{"bad facet", Candidate{Evidence: "limits approach values", DominantFacet: "UP"}, false},
		{"missing facet without fallback", Candidate{Evidence: "limits approach values"}, false},
		{"confidence out of range", Candidate{Evidence: "limits approach values", DominantFacet: threads.FacetWhat, Confidence: 1.5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := prepare(tc.in, "")
			if tc.ok {
				if err != nil {
					t.Fatalf("prepare: %v", err)
				}
				if p.ArtifactID != p.Key || len(p.Key) != 32 {
					t.Fatalf("artifact id should default to the 32-char key, got %q / %q", p.ArtifactID, p.Key)
				}
				return
			}
			if !errors.Is(err, ErrMalformedCandidate) {
				t.Fatalf("err = %v, want ErrMalformedCandidate", err)
			}
		})
	}
}

func TestCandidateKeyIgnoresCaseAndMarkup(t *testing.T) {
	a, err := prepare(Candidate{Summary: "Limit", Evidence: "<b>Limits</b> approach values", DominantFacet: threads.FacetWhat}, "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	b, err := prepare(Candidate{Summary: "limit", Evidence: "limits approach values", DominantFacet: threads.FacetWhat}, "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if a.Key != b.Key {
		t.Fatalf("keys differ: %s vs %s", a.Key, b.Key)
	}
}

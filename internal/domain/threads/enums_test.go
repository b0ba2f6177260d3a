package threads

import "testing"

func TestParseFacet(t *testing.T) {
	tests := []struct {
		in   string
		want Facet
		ok   bool
	}{
		{"how", FacetHow, true},
		{" WHAT ", FacetWhat, true},
		{"purple", FacetWhy, true},
		{"Green", FacetWhere, true},
		{"which", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFacet(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseFacet(%q) err=%v, want ok=%v", tt.in, err, tt.ok)
		}
		if got != tt.want {
			t.Fatalf("ParseFacet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFacetIndexCoversCanonicalOrder(t *testing.T) {
	for i, f := range Facets {
		if f.Index() != i {
			t.Fatalf("%s.Index() = %d, want %d", f, f.Index(), i)
		}
		if f.Color() == "" {
			t.Fatalf("%s has no color", f)
		}
	}
	if Facet("NOPE").Valid() {
		t.Fatalf("unexpected valid facet")
	}
}

func TestChangeTypePrecedence(t *testing.T) {
	if ChangeContradiction.Precedence() >= ChangeComplexityIncrease.Precedence() {
		t.Fatalf("contradiction must outrank complexity_increase")
	}
	if ChangeStatusPromotion.Precedence() <= ChangeFaceShift.Precedence() {
		t.Fatalf("face_shift must outrank status_promotion")
	}
}

func TestThreadJSONHelpersRoundTrip(t *testing.T) {
	th := &Thread{}
	if len(th.LectureIDs()) != 0 || len(th.Terms()) != 0 || len(th.Votes()) != 0 {
		t.Fatalf("empty thread should decode to empty collections")
	}
	th.SetTerms([]string{"limit", "derivative"})
	th.SetVotes(map[Facet]int{FacetWhat: 2})
	cp := th.Clone()
	cp.SetTerms([]string{"other"})
	if got := th.Terms(); len(got) != 2 {
		t.Fatalf("Clone shares term storage: %v", got)
	}
	if th.Votes()[FacetWhat] != 2 {
		t.Fatalf("Votes() = %v", th.Votes())
	}
}

func TestParseCourseMode(t *testing.T) {
	if m, err := ParseCourseMode("natural-science"); err != nil || m != ModeNaturalScience {
		t.Fatalf("ParseCourseMode = %v, %v", m, err)
	}
	if _, err := ParseCourseMode("astrology"); err == nil {
		t.Fatalf("expected error")
	}
}

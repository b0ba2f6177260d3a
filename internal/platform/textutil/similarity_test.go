package textutil

import (
	"math"
	"testing"
)

func TestTokenizeNormalizes(t *testing.T) {
	got := Tokenize("The Derivatives of Schrödinger's <b>equations</b>, as we discussed")
	want := []string{"derivative", "schrodinger", "equation", "discussed"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize()[%d] = %q, want %q (all=%v)", i, got[i], want[i], got)
		}
	}
}

func TestTermsDedupes(t *testing.T) {
	got := Terms("limit limit limits quotient")
	if len(got) != 2 || got[0] != "limit" || got[1] != "quotient" {
		t.Fatalf("Terms() = %v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		wantMin float64
		wantMax float64
	}{
		{"identical", "derivative limit quotient", "derivative limit quotient", 1, 1},
		{"disjoint", "apple banana cherry", "dog elephant frog", 0, 0},
		{"partial", "the quick brown fox", "the slow brown cat", 0.01, 0.99},
		{"empty", "", "derivative", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(NewFingerprint(tt.a), NewFingerprint(tt.b))
			if got < tt.wantMin-1e-9 || got > tt.wantMax+1e-9 {
				t.Fatalf("CosineSimilarity() = %v, want in [%v,%v]", got, tt.wantMin, tt.wantMax)
			}
			back := CosineSimilarity(NewFingerprint(tt.b), NewFingerprint(tt.a))
			if math.Abs(got-back) > 1e-12 {
				t.Fatalf("CosineSimilarity not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	if got := Jaccard([]string{"a", "b"}, []string{"b", "c"}); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Fatalf("Jaccard() = %v, want 1/3", got)
	}
	if got := Jaccard(nil, []string{"a"}); got != 0 {
		t.Fatalf("Jaccard(nil) = %v, want 0", got)
	}
}

func TestNovel(t *testing.T) {
	got := Novel([]string{"limit", "chain", "rule", "chain"}, []string{"limit"})
	if len(got) != 2 || got[0] != "chain" || got[1] != "rule" {
		t.Fatalf("Novel() = %v", got)
	}
}

func TestCleanEvidence(t *testing.T) {
	got := CleanEvidence("<p>Define the <em>derivative</em></p>\n<script>x()</script>  as a limit")
	if got != "Define the derivative as a limit" {
		t.Fatalf("CleanEvidence() = %q", got)
	}
	if got := CleanEvidence("  plain   text "); got != "plain text" {
		t.Fatalf("CleanEvidence(plain) = %q", got)
	}
}

func TestDisplayTitle(t *testing.T) {
	got := DisplayTitle("derivative as limit of difference quotient. extra sentence", 4)
	if got != "Derivative As Limit Of" {
		t.Fatalf("DisplayTitle() = %q", got)
	}
}

package dice

import (
	"testing"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

func TestScheduleIsComplete(t *testing.T) {
	perms := Schedule()
	seen := make(map[Permutation]bool, NumPermutations)
	var positions [threads.NumFacets]map[threads.Facet]int
	for i := range positions {
		positions[i] = map[threads.Facet]int{}
	}
	for _, p := range perms {
		if seen[p] {
			t.Fatalf("duplicate permutation %v", p)
		}
		seen[p] = true
		used := map[threads.Facet]bool{}
		for pos, f := range p {
			if !f.Valid() || used[f] {
				t.Fatalf("invalid permutation %v", p)
			}
			used[f] = true
			positions[pos][f]++
		}
	}
	if len(seen) != NumPermutations {
		t.Fatalf("got %d unique permutations, want %d", len(seen), NumPermutations)
	}
	for pos, counts := range positions {
		for _, f := range threads.Facets {
			if counts[f] != 120 {
				t.Fatalf("facet %s appears %d times at position %d, want 120", f, counts[f], pos)
			}
		}
	}
	if perms[0] != Permutation(threads.Facets) {
		t.Fatalf("schedule must start at canonical order, got %v", perms[0])
	}
}

func TestScheduleIsStableAndImmutable(t *testing.T) {
	a := Schedule()
	a[0][0] = threads.FacetWhy
	b := Schedule()
	if b[0][0] != threads.FacetHow {
		t.Fatalf("mutating a returned schedule leaked into the cache")
	}
	if ScheduleAt(719, 1) != b[0] {
		t.Fatalf("ScheduleAt should wrap around")
	}
	if ScheduleAt(-1, 0) != b[719] {
		t.Fatalf("negative offsets should wrap")
	}
}

func TestSeedForIsDeterministic(t *testing.T) {
	s1 := SeedFor("lecture-1")
	if s1 != SeedFor("lecture-1") {
		t.Fatalf("seed not deterministic")
	}
	if s1 < 0 || s1 >= NumPermutations {
		t.Fatalf("seed out of range: %d", s1)
	}
}

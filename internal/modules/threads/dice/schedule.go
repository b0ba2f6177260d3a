package dice

import (
	"hash/fnv"
	"sync"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

// NumPermutations is 6!, the size of the complete rotation schedule.
const NumPermutations = 720

// Permutation is one ordering of the six facets.
type Permutation [threads.NumFacets]threads.Facet

var (
	scheduleOnce sync.Once
	schedule     [NumPermutations]Permutation
)

// Schedule returns every facet ordering exactly once, in Heap's algorithm order
// starting from canonical order. The table is built once and returned by value.
func Schedule() [NumPermutations]Permutation {
	scheduleOnce.Do(func() { schedule = heapPermutations(threads.Facets) })
	return schedule
}

// ScheduleAt returns the permutation consumed by iteration i of a run seeded with seed.
func ScheduleAt(seed, i int) Permutation {
	scheduleOnce.Do(func() { schedule = heapPermutations(threads.Facets) })
	idx := (seed + i) % NumPermutations
	if idx < 0 {
		idx += NumPermutations
	}
	return schedule[idx]
}

// SeedFor derives the default schedule offset from a lecture id.
func SeedFor(lectureID string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(lectureID))
	return int(h.Sum64() % NumPermutations)
}

func heapPermutations(start [threads.NumFacets]threads.Facet) [NumPermutations]Permutation {
	var out [NumPermutations]Permutation
	a := Permutation(start)
	var c [threads.NumFacets]int
	n := 0
	out[n] = a
	n++
	for i := 1; i < len(a); {
		if c[i] < i {
			if i%2 == 0 {
				a[0], a[i] = a[i], a[0]
			} else {
				a[c[i]], a[i] = a[i], a[c[i]]
			}
			out[n] = a
			n++
			c[i]++
			i = 1
			continue
		}
		c[i] = 0
		i++
	}
	return out
}

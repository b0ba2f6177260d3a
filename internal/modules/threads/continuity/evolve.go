package continuity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/textutil"
)

const maxNoteChars = 240

// Prefixes of the sentences evolve appends to a summary. Text before the first of
// them is the thread's standing claim.
const (
	noteContested = "Contested: "
	noteExtends   = "Extends to: "
	noteRefined   = "Refined: "
	noteCovers    = "Also covers: "
)

var notePrefixes = []string{noteContested, noteExtends, noteRefined, noteCovers}

// evolution is the staged result of applying one matched candidate to a thread.
type evolution struct {
	Next    *threads.Thread
	Changes []threads.ChangeType
	Notes   []string
}

func (e evolution) Material() bool { return len(e.Changes) > 0 }

// Primary is the change type recorded on the ThreadUpdate.
func (e evolution) Primary() threads.ChangeType {
	best := threads.ChangeType("")
	for _, c := range e.Changes {
		if best == "" || c.Precedence() < best.Precedence() {
			best = c
		}
	}
	return best
}

func newThread(courseID, lectureID uuid.UUID, p prepared, now time.Time) *threads.Thread {
	th := &threads.Thread{
		ID:               threadID(courseID, lectureID, p),
		CourseID:         courseID,
		Title:            p.displayTitle(),
		Summary:          p.summaryText(),
		Status:           threads.ThreadStatusFoundational,
		ComplexityLevel:  1,
		Face:             p.DominantFacet,
		OccurrenceCount:  1,
		OriginLectureID:  lectureID,
		OriginArtifactID: p.ArtifactID,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	th.SetLectureIDs([]uuid.UUID{lectureID})
	th.SetTerms(p.Terms)
	th.SetVotes(map[threads.Facet]int{p.DominantFacet: 1})
	th.SetNotes([]threads.EvolutionNote{})
	return th
}

// evolve stages every field change one match causes. cur is never modified.
func evolve(cur *threads.Thread, p prepared, lectureID uuid.UUID, cls Classification, cfg Config, now time.Time) evolution {
	next := cur.Clone()
	ev := evolution{Next: next}

	refs := next.LectureIDs()
	if !next.HasLecture(lectureID) {
		refs = append(refs, lectureID)
		next.SetLectureIDs(refs)
	}
	next.OccurrenceCount++

	votes := next.Votes()
	votes[p.DominantFacet]++
	next.SetVotes(votes)

	if len(cls.NovelTerms) > 0 && cls.Change != "" {
		next.SetTerms(append(next.Terms(), cls.NovelTerms...))
	}

	switch cls.Change {
	case threads.ChangeContradiction:
		next.ContradictionCount++
		next.Summary = appendSentence(next.Summary, noteContested+clip(p.Evidence, maxNoteChars))
		ev.add(threads.ChangeContradiction, fmt.Sprintf("evidence contradicts summary (%s)", cls.Reason))
	case threads.ChangeComplexityIncrease:
		next.ComplexityLevel++
		next.Summary = appendSentence(next.Summary, noteExtends+strings.Join(cls.NovelTerms, ", "))
		ev.add(threads.ChangeComplexityIncrease, fmt.Sprintf("complexity %d -> %d: %s", cur.ComplexityLevel, next.ComplexityLevel, strings.Join(cls.NovelTerms, ", ")))
	case threads.ChangeRefinement:
		addition := noteRefined + p.Summary
		if p.Summary == "" || strings.Contains(textutil.Fold(next.Summary), textutil.Fold(p.Summary)) {
			addition = noteCovers + strings.Join(cls.NovelTerms, ", ")
		}
		next.Summary = appendSentence(next.Summary, clip(addition, maxNoteChars))
		ev.add(threads.ChangeRefinement, "refined with "+strings.Join(cls.NovelTerms, ", "))
	}

	if shifted, ok := faceShift(next.Face, votes, cfg.FaceShiftMargin); ok {
		ev.add(threads.ChangeFaceShift, fmt.Sprintf("face %s -> %s (votes %d vs %d)", next.Face, shifted, votes[shifted], votes[next.Face]))
		next.Face = shifted
	}

	if next.Status == threads.ThreadStatusFoundational &&
		next.ComplexityLevel >= cfg.AdvancedComplexity &&
		len(next.LectureIDs()) >= cfg.AdvancedMinLectures {
		next.Status = threads.ThreadStatusAdvanced
		ev.add(threads.ChangeStatusPromotion, fmt.Sprintf("promoted to advanced at complexity %d across %d lectures", next.ComplexityLevel, len(next.LectureIDs())))
	}

	if ev.Material() {
		notes := next.Notes()
		for i, c := range ev.Changes {
			notes = append(notes, threads.EvolutionNote{At: now, LectureID: lectureID, ChangeType: c, Note: ev.Notes[i]})
		}
		next.SetNotes(notes)
	}
	return ev
}

func (e *evolution) add(c threads.ChangeType, note string) {
	e.Changes = append(e.Changes, c)
	e.Notes = append(e.Notes, note)
}

// faceShift returns the facet whose votes lead the current face by at least margin.
func faceShift(face threads.Facet, votes map[threads.Facet]int, margin int) (threads.Facet, bool) {
	best := threads.Facet("")
	for _, f := range threads.Facets {
		if f == face {
			continue
		}
		if best == "" || votes[f] > votes[best] {
			best = f
		}
	}
	if best == "" || votes[best]-votes[face] < margin {
		return "", false
	}
	return best, true
}

func appendSentence(summary, addition string) string {
	summary = strings.TrimSpace(summary)
	addition = strings.TrimSpace(addition)
	if addition == "" {
		return summary
	}
	if !strings.HasSuffix(addition, ".") {
		addition += "."
	}
	if summary == "" {
		return addition
	}
	if !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return summary + " " + addition
}

// standingClaim drops the appended notes so polarity is read from what the thread asserts.
func standingClaim(summary string) string {
	cut := len(summary)
	for _, prefix := range notePrefixes {
		if i := strings.Index(summary, " "+prefix); i >= 0 && i < cut {
			cut = i
		}
	}
	if claim := strings.TrimSpace(summary[:cut]); claim != "" {
		return claim
	}
	return summary
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

func updateDetails(cur *threads.Thread, ev evolution, cls Classification, sim float64, amb *ambiguity) map[string]any {
	changes := make([]string, 0, len(ev.Changes))
	for _, c := range ev.Changes {
		changes = append(changes, string(c))
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return threads.ChangeType(changes[i]).Precedence() < threads.ChangeType(changes[j]).Precedence()
	})
	d := map[string]any{
		"changes":     changes,
		"reason":      cls.Reason,
		"novel_terms": cls.NovelTerms,
		"similarity":  sim,
		"prior": map[string]any{
			"summary":          cur.Summary,
			"complexity_level": cur.ComplexityLevel,
			"status":           cur.Status,
			"face":             cur.Face,
		},
		"next": map[string]any{
			"complexity_level": ev.Next.ComplexityLevel,
			"status":           ev.Next.Status,
			"face":             ev.Next.Face,
		},
	}
	if amb != nil {
		d["ambiguity"] = amb
	}
	return d
}

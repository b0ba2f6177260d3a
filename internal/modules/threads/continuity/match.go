package continuity

import (
	"sort"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

type scoredThread struct {
	Thread *threads.Thread
	Score  float64
	Refs   int
}

type contender struct {
	ThreadID    uuid.UUID `json:"thread_id"`
	Score       float64   `json:"score"`
	LectureRefs int       `json:"lecture_refs"`
}

// ambiguity records how a near-tie between threads was broken.
type ambiguity struct {
	Contenders []contender `json:"contenders"`
	Chosen     uuid.UUID   `json:"chosen"`
	TieBreak   string      `json:"tie_break"`
}

// selectMatch returns the thread the candidate should join, or nil to create a new one.
// Threads within AmbiguityMargin of the best score are tied; ties prefer more lecture
// refs, then the lexicographically smallest thread id.
func selectMatch(p prepared, open []*threads.Thread, cfg Config) (*scoredThread, *ambiguity) {
	var above []scoredThread
	for _, th := range open {
		if !th.Status.Open() {
			continue
		}
		s := Similarity(p.Profile, ThreadProfile(th), cfg)
		if s >= cfg.MatchThreshold {
			above = append(above, scoredThread{Thread: th, Score: s, Refs: len(th.LectureIDs())})
		}
	}
	if len(above) == 0 {
		return nil, nil
	}
	sort.SliceStable(above, func(i, j int) bool { return above[i].Score > above[j].Score })

	top := above[0].Score
	tied := above[:1]
	for i := 1; i < len(above) && top-above[i].Score <= cfg.AmbiguityMargin; i++ {
		tied = above[:i+1]
	}
	if len(tied) == 1 {
		best := tied[0]
		return &best, nil
	}

	ranked := append([]scoredThread(nil), tied...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Refs != ranked[j].Refs {
			return ranked[i].Refs > ranked[j].Refs
		}
		return ranked[i].Thread.ID.String() < ranked[j].Thread.ID.String()
	})
	amb := &ambiguity{Chosen: ranked[0].Thread.ID, TieBreak: "thread_id"}
	if ranked[0].Refs != ranked[1].Refs {
		amb.TieBreak = "lecture_refs"
	}
	for _, s := range tied {
		amb.Contenders = append(amb.Contenders, contender{ThreadID: s.Thread.ID, Score: s.Score, LectureRefs: s.Refs})
	}
	best := ranked[0]
	return &best, amb
}

func threadID(courseID, lectureID uuid.UUID, p prepared) uuid.UUID {
	return uuid.NewSHA1(courseID, []byte(lectureID.String()+"|"+p.ArtifactID+"|"+p.Key))
}

func occurrenceID(threadID, lectureID uuid.UUID, artifactID string) uuid.UUID {
	return uuid.NewSHA1(threadID, []byte(lectureID.String()+"|"+artifactID))
}

func updateID(threadID, lectureID uuid.UUID, artifactID string) uuid.UUID {
	return uuid.NewSHA1(threadID, []byte(lectureID.String()+"|"+artifactID+"|update"))
}

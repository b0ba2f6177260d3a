package threads

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Thread is the durable, cross-lecture concept entity of a course.
type Thread struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;column:course_id;not null;index:idx_thread_course_status,priority:1" json:"course_id"`

	Title   string `gorm:"column:title;not null" json:"title"`
	Summary string `gorm:"column:summary;type:text" json:"summary"`

	Status          ThreadStatus `gorm:"column:status;not null;index:idx_thread_course_status,priority:2" json:"status"`
	ComplexityLevel int          `gorm:"column:complexity_level;not null" json:"complexity_level"`
	Face            Facet        `gorm:"column:face;not null" json:"face"`

	LectureRefs    datatypes.JSON `gorm:"column:lecture_refs" json:"lecture_refs"`       // []uuid.UUID, first-seen order
	EvidenceTerms  datatypes.JSON `gorm:"column:evidence_terms" json:"evidence_terms"`   // []string
	FacetVotes     datatypes.JSON `gorm:"column:facet_votes" json:"facet_votes"`         // map[Facet]int
	EvolutionNotes datatypes.JSON `gorm:"column:evolution_notes" json:"evolution_notes"` // []EvolutionNote

	OccurrenceCount    int `gorm:"column:occurrence_count;not null" json:"occurrence_count"`
	ContradictionCount int `gorm:"column:contradiction_count;not null" json:"contradiction_count"`

	// Origin identifies the candidate that created the thread so replays can report created=true.
	OriginLectureID  uuid.UUID `gorm:"type:uuid;column:origin_lecture_id" json:"origin_lecture_id"`
	OriginArtifactID string    `gorm:"column:origin_artifact_id" json:"origin_artifact_id"`

	Version   int       `gorm:"column:version;not null" json:"version"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Thread) TableName() string { return "thread" }

// EvolutionNote is one structured change annotation on a thread.
type EvolutionNote struct {
	At         time.Time  `json:"at"`
	LectureID  uuid.UUID  `json:"lecture_id"`
	ChangeType ChangeType `json:"change_type"`
	Note       string     `json:"note"`
}

func (t *Thread) LectureIDs() []uuid.UUID {
	var out []uuid.UUID
	decodeJSON(t.LectureRefs, &out)
	return out
}

func (t *Thread) SetLectureIDs(ids []uuid.UUID) { t.LectureRefs = encodeJSON(ids, "[]") }

// HasLecture reports whether id already contributed evidence.
func (t *Thread) HasLecture(id uuid.UUID) bool {
	for _, ref := range t.LectureIDs() {
		if ref == id {
			return true
		}
	}
	return false
}

func (t *Thread) Terms() []string {
	var out []string
	decodeJSON(t.EvidenceTerms, &out)
	return out
}

func (t *Thread) SetTerms(terms []string) { t.EvidenceTerms = encodeJSON(terms, "[]") }

func (t *Thread) Votes() map[Facet]int {
	out := map[Facet]int{}
	decodeJSON(t.FacetVotes, &out)
	return out
}

func (t *Thread) SetVotes(v map[Facet]int) { t.FacetVotes = encodeJSON(v, "{}") }

func (t *Thread) Notes() []EvolutionNote {
	var out []EvolutionNote
	decodeJSON(t.EvolutionNotes, &out)
	return out
}

func (t *Thread) SetNotes(notes []EvolutionNote) { t.EvolutionNotes = encodeJSON(notes, "[]") }

// Clone returns a deep copy so callers can stage mutations without touching the original.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	cp := *t
	cp.LectureRefs = cloneJSON(t.LectureRefs)
	cp.EvidenceTerms = cloneJSON(t.EvidenceTerms)
	cp.FacetVotes = cloneJSON(t.FacetVotes)
	cp.EvolutionNotes = cloneJSON(t.EvolutionNotes)
	return &cp
}

func decodeJSON(raw datatypes.JSON, dst any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}

func encodeJSON(v any, empty string) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return datatypes.JSON([]byte(empty))
	}
	return datatypes.JSON(b)
}

func cloneJSON(raw datatypes.JSON) datatypes.JSON {
	if raw == nil {
		return nil
	}
	out := make(datatypes.JSON, len(raw))
	copy(out, raw)
	return out
}

// MarshalJSONValue encodes v for a JSON column, falling back to "{}".
func MarshalJSONValue(v any) datatypes.JSON { return encodeJSON(v, "{}") }

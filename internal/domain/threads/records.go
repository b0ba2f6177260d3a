package threads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ThreadOccurrence is an append-only evidence record linking a thread to a lecture artifact.
type ThreadOccurrence struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID uuid.UUID `gorm:"type:uuid;column:thread_id;not null;uniqueIndex:idx_thread_occurrence_key,priority:1" json:"thread_id"`
	CourseID uuid.UUID `gorm:"type:uuid;column:course_id;not null;index:idx_thread_occurrence_replay,priority:1" json:"course_id"`

	LectureID    uuid.UUID `gorm:"type:uuid;column:lecture_id;not null;uniqueIndex:idx_thread_occurrence_key,priority:2;index:idx_thread_occurrence_replay,priority:2" json:"lecture_id"`
	ArtifactID   string    `gorm:"column:artifact_id;not null;uniqueIndex:idx_thread_occurrence_key,priority:3;index:idx_thread_occurrence_replay,priority:3" json:"artifact_id"`
	CandidateKey string    `gorm:"column:candidate_key;not null;index:idx_thread_occurrence_replay,priority:4" json:"candidate_key"`

	Evidence   string         `gorm:"column:evidence;type:text" json:"evidence"`
	Confidence float64        `gorm:"column:confidence;not null" json:"confidence"`
	Facet      Facet          `gorm:"column:facet" json:"facet"`
	Created    bool           `gorm:"column:created;not null" json:"created"` // occurrence that created the thread
	Metadata   datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null" json:"created_at"`
}

func (ThreadOccurrence) TableName() string { return "thread_occurrence" }

// ThreadUpdate is an append-only record of a material change to a thread.
type ThreadUpdate struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID uuid.UUID `gorm:"type:uuid;column:thread_id;not null;uniqueIndex:idx_thread_update_key,priority:1" json:"thread_id"`
	CourseID uuid.UUID `gorm:"type:uuid;column:course_id;not null;index" json:"course_id"`

	LectureID  uuid.UUID `gorm:"type:uuid;column:lecture_id;not null;uniqueIndex:idx_thread_update_key,priority:2" json:"lecture_id"`
	ArtifactID string    `gorm:"column:artifact_id;not null;uniqueIndex:idx_thread_update_key,priority:3" json:"artifact_id"`

	ChangeType ChangeType     `gorm:"column:change_type;not null;index" json:"change_type"`
	Summary    string         `gorm:"column:summary;type:text" json:"summary"`
	Details    datatypes.JSON `gorm:"column:details" json:"details"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null" json:"created_at"`
}

func (ThreadUpdate) TableName() string { return "thread_update" }

// ThreadRotation is the persisted transparency record of one lecture's dice rotation.
type ThreadRotation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LectureID uuid.UUID `gorm:"type:uuid;column:lecture_id;not null;uniqueIndex" json:"lecture_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;column:course_id;not null;index" json:"course_id"`

	Mode           CourseMode     `gorm:"column:mode" json:"mode"`
	Weights        datatypes.JSON `gorm:"column:weights" json:"weights"` // map[Facet]float64
	Status         RotationStatus `gorm:"column:status;not null" json:"status"`
	Iterations     int            `gorm:"column:iterations;not null" json:"iterations"`
	MaxIterations  int            `gorm:"column:max_iterations;not null" json:"max_iterations"`
	Seed           int            `gorm:"column:seed;not null" json:"seed"`
	Entropy        float64        `gorm:"column:entropy" json:"entropy"`
	EquilibriumGap float64        `gorm:"column:equilibrium_gap" json:"equilibrium_gap"`
	DominantFacet  Facet          `gorm:"column:dominant_facet" json:"dominant_facet"`
	DominantScore  float64        `gorm:"column:dominant_score" json:"dominant_score"`
	FinalScores    datatypes.JSON `gorm:"column:final_scores" json:"final_scores"` // map[Facet]float64
	Schedule       datatypes.JSON `gorm:"column:schedule" json:"schedule"`         // [][]Facet
	History        datatypes.JSON `gorm:"column:history" json:"history"`           // []dice.IterationRecord

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (ThreadRotation) TableName() string { return "thread_rotation" }

// ThreadMetrics is one write-once quality record per detection run.
type ThreadMetrics struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;column:course_id;not null;index" json:"course_id"`
	LectureID uuid.UUID `gorm:"type:uuid;column:lecture_id;not null;index" json:"lecture_id"`

	Candidates         int `gorm:"column:candidates" json:"candidates"`
	NewThreads         int `gorm:"column:new_threads" json:"new_threads"`
	UpdatedThreads     int `gorm:"column:updated_threads" json:"updated_threads"`
	MatchedThreads     int `gorm:"column:matched_threads" json:"matched_threads"`
	OccurrencesWritten int `gorm:"column:occurrences_written" json:"occurrences_written"`
	UpdatesWritten     int `gorm:"column:updates_written" json:"updates_written"`
	Replayed           int `gorm:"column:replayed" json:"replayed"`
	Malformed          int `gorm:"column:malformed" json:"malformed"`
	Failed             int `gorm:"column:failed" json:"failed"`
	Ambiguous          int `gorm:"column:ambiguous" json:"ambiguous"`

	ComplexityHistogram datatypes.JSON `gorm:"column:complexity_histogram" json:"complexity_histogram"` // map[int]int
	ChangeTypeCounts    datatypes.JSON `gorm:"column:change_type_counts" json:"change_type_counts"`     // map[ChangeType]int

	AvgEvidenceLength float64 `gorm:"column:avg_evidence_length" json:"avg_evidence_length"`
	EvidenceCoverage  float64 `gorm:"column:evidence_coverage" json:"evidence_coverage"`
	AvgConfidence     float64 `gorm:"column:avg_confidence" json:"avg_confidence"`

	RotationStatus     RotationStatus `gorm:"column:rotation_status" json:"rotation_status"`
	RotationIterations int            `gorm:"column:rotation_iterations" json:"rotation_iterations"`
	WeightsFallback    bool           `gorm:"column:weights_fallback" json:"weights_fallback"`

	DetectionMethod string  `gorm:"column:detection_method" json:"detection_method"`
	DurationMs      int64   `gorm:"column:duration_ms" json:"duration_ms"`
	QualityScore    float64 `gorm:"column:quality_score" json:"quality_score"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (ThreadMetrics) TableName() string { return "thread_metrics" }

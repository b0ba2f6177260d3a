package threaddetect

import (
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/detect"
)

const (
	WorkflowName          = "thread_detect"
	ActivityDetectLecture = "thread_detect_lecture"

	// Application error types that the retry policy never retries.
	ErrTypeInvalidInput  = "ThreadInvalidInput"
	ErrTypeInvalidConfig = "ThreadInvalidConfig"
)

// Request runs lectures in order. Config holds per-job overrides applied to the worker's
// base configuration.
type Request struct {
	Lectures []detect.Input `json:"lectures"`
	Config   map[string]any `json:"config,omitempty"`
}

type LectureRequest struct {
	Input  detect.Input   `json:"input"`
	Config map[string]any `json:"config,omitempty"`
}

type LectureSummary struct {
	LectureID      string  `json:"lecture_id"`
	RotationStatus string  `json:"rotation_status"`
	DominantFacet  string  `json:"dominant_facet"`
	Iterations     int     `json:"iterations"`
	NewThreads     int     `json:"new_threads"`
	UpdatedThreads int     `json:"updated_threads"`
	Replayed       int     `json:"replayed"`
	Malformed      int     `json:"malformed"`
	QualityScore   float64 `json:"quality_score"`
}

type Result struct {
	Lectures []LectureSummary `json:"lectures"`
}

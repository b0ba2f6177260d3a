package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

func TestThreadRowsFiltersOtherCourses(t *testing.T) {
	courseID := uuid.New()
	rows := []*threads.Thread{
		{ID: uuid.New(), CourseID: courseID, Title: "Limits", Status: threads.ThreadStatusAdvanced, Face: threads.FacetWhat, ComplexityLevel: 3},
		{ID: uuid.New(), CourseID: uuid.New(), Title: "Elsewhere"},
		nil,
	}
	out := ThreadRows(courseID, rows, "now")
	if len(out) != 1 {
		t.Fatalf("rows = %d, want 1", len(out))
	}
	if out[0]["status"] != "advanced" || out[0]["complexity_level"] != int64(3) || out[0]["face"] != "WHAT" {
		t.Fatalf("row = %v", out[0])
	}
}

func TestAppearanceRows(t *testing.T) {
	courseID := uuid.New()
	occs := []*threads.ThreadOccurrence{
		{ThreadID: uuid.New(), CourseID: courseID, LectureID: uuid.New(), ArtifactID: "a1", Confidence: 0.8, Facet: threads.FacetHow, Created: true},
		{ThreadID: uuid.New(), CourseID: courseID},
	}
	out := AppearanceRows(courseID, occs, "now")
	if len(out) != 1 || out[0]["artifact_id"] != "a1" || out[0]["created"] != true {
		t.Fatalf("rows = %v", out)
	}
}

func TestUpsertWithoutClientIsNoop(t *testing.T) {
	if err := UpsertCourseThreads(context.Background(), nil, nil, uuid.New(), []*threads.Thread{{ID: uuid.New()}}, nil); err != nil {
		t.Fatalf("err = %v", err)
	}
}

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

// SeedThread inserts an open thread with one lecture ref and the given terms.
func SeedThread(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, face types.Facet, summary string, terms []string) *types.Thread {
	tb.Helper()
	now := time.Now().UTC()
	th := &types.Thread{
		ID:              uuid.New(),
		CourseID:        courseID,
		Title:           "seed",
		Summary:         summary,
		Status:          types.ThreadStatusFoundational,
		ComplexityLevel: 1,
		Face:            face,
		OccurrenceCount: 1,
		OriginLectureID: uuid.New(),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	th.SetLectureIDs([]uuid.UUID{th.OriginLectureID})
	th.SetTerms(terms)
	th.SetVotes(map[types.Facet]int{face: 1})
	th.SetNotes(nil)
	if err := tx.WithContext(ctx).Create(th).Error; err != nil {
		tb.Fatalf("seed thread: %v", err)
	}
	return th
}

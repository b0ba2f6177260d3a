package threads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

type ThreadRotationRepo interface {
	UpsertByLectureID(dbc dbctx.Context, row *types.ThreadRotation) error
	GetByLectureID(dbc dbctx.Context, lectureID uuid.UUID) (*types.ThreadRotation, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.ThreadRotation, error)
}

type threadRotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadRotationRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRotationRepo {
	return &threadRotationRepo{db: db, log: baseLog.With("repo", "ThreadRotationRepo")}
}

func (r *threadRotationRepo) UpsertByLectureID(dbc dbctx.Context, row *types.ThreadRotation) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.LectureID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "lecture_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"course_id",
				"mode",
				"weights",
				"status",
				"iterations",
				"max_iterations",
				"seed",
				"entropy",
				"equilibrium_gap",
				"dominant_facet",
				"dominant_score",
				"final_scores",
				"schedule",
				"history",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *threadRotationRepo) GetByLectureID(dbc dbctx.Context, lectureID uuid.UUID) (*types.ThreadRotation, error) {
	if lectureID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ThreadRotation
	if err := t.WithContext(dbc.Ctx).Where("lecture_id = ?", lectureID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *threadRotationRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.ThreadRotation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ThreadRotation
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

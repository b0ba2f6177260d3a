package threads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

type ThreadMetricsRepo interface {
	Create(dbc dbctx.Context, row *types.ThreadMetrics) error
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*types.ThreadMetrics, error)
}

type threadMetricsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadMetricsRepo(db *gorm.DB, baseLog *logger.Logger) ThreadMetricsRepo {
	return &threadMetricsRepo{db: db, log: baseLog.With("repo", "ThreadMetricsRepo")}
}

func (r *threadMetricsRepo) Create(dbc dbctx.Context, row *types.ThreadMetrics) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *threadMetricsRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*types.ThreadMetrics, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ThreadMetrics
	if courseID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where("course_id = ?", courseID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

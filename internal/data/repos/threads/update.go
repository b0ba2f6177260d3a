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

type ThreadUpdateRepo interface {
	Insert(dbc dbctx.Context, row *types.ThreadUpdate) (inserted bool, err error)
	GetByKey(dbc dbctx.Context, threadID, lectureID uuid.UUID, artifactID string) (*types.ThreadUpdate, error)
	ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.ThreadUpdate, error)
	ListByLecture(dbc dbctx.Context, lectureID uuid.UUID) ([]*types.ThreadUpdate, error)
}

type threadUpdateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadUpdateRepo(db *gorm.DB, baseLog *logger.Logger) ThreadUpdateRepo {
	return &threadUpdateRepo{db: db, log: baseLog.With("repo", "ThreadUpdateRepo")}
}

func (r *threadUpdateRepo) Insert(dbc dbctx.Context, row *types.ThreadUpdate) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ThreadID == uuid.Nil || row.LectureID == uuid.Nil {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *threadUpdateRepo) GetByKey(dbc dbctx.Context, threadID, lectureID uuid.UUID, artifactID string) (*types.ThreadUpdate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ThreadUpdate
	if err := t.WithContext(dbc.Ctx).
		Where("thread_id = ? AND lecture_id = ? AND artifact_id = ?", threadID, lectureID, artifactID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *threadUpdateRepo) ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.ThreadUpdate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ThreadUpdate
	if threadID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *threadUpdateRepo) ListByLecture(dbc dbctx.Context, lectureID uuid.UUID) ([]*types.ThreadUpdate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ThreadUpdate
	if lectureID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("lecture_id = ?", lectureID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

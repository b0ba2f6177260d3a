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

type ThreadOccurrenceRepo interface {
	// Insert appends the occurrence keyed by (thread_id, lecture_id, artifact_id).
	// inserted is false when the key already existed.
	Insert(dbc dbctx.Context, row *types.ThreadOccurrence) (inserted bool, err error)
	GetByKey(dbc dbctx.Context, threadID, lectureID uuid.UUID, artifactID string) (*types.ThreadOccurrence, error)
	FindReplay(dbc dbctx.Context, courseID, lectureID uuid.UUID, artifactID, candidateKey string) (*types.ThreadOccurrence, error)
	ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.ThreadOccurrence, error)
	ListByLecture(dbc dbctx.Context, lectureID uuid.UUID) ([]*types.ThreadOccurrence, error)
}

type threadOccurrenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadOccurrenceRepo(db *gorm.DB, baseLog *logger.Logger) ThreadOccurrenceRepo {
	return &threadOccurrenceRepo{db: db, log: baseLog.With("repo", "ThreadOccurrenceRepo")}
}

func (r *threadOccurrenceRepo) Insert(dbc dbctx.Context, row *types.ThreadOccurrence) (bool, error) {
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

func (r *threadOccurrenceRepo) GetByKey(dbc dbctx.Context, threadID, lectureID uuid.UUID, artifactID string) (*types.ThreadOccurrence, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ThreadOccurrence
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

func (r *threadOccurrenceRepo) FindReplay(dbc dbctx.Context, courseID, lectureID uuid.UUID, artifactID, candidateKey string) (*types.ThreadOccurrence, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ThreadOccurrence
	if err := t.WithContext(dbc.Ctx).
		Where("course_id = ? AND lecture_id = ? AND artifact_id = ? AND candidate_key = ?", courseID, lectureID, artifactID, candidateKey).
		Order("created_at ASC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *threadOccurrenceRepo) ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.ThreadOccurrence, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ThreadOccurrence
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

func (r *threadOccurrenceRepo) ListByLecture(dbc dbctx.Context, lectureID uuid.UUID) ([]*types.ThreadOccurrence, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ThreadOccurrence
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

package threads

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

type ThreadRepo interface {
	Create(dbc dbctx.Context, row *types.Thread) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Thread, error)
	ListOpenByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Thread, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Thread, error)
	// UpdateVersioned writes row only if the stored version still equals prevVersion.
	UpdateVersioned(dbc dbctx.Context, row *types.Thread, prevVersion int) error
	Archive(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
}

type threadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRepo {
	return &threadRepo{db: db, log: baseLog.With("repo", "ThreadRepo")}
}

func (r *threadRepo) Create(dbc dbctx.Context, row *types.Thread) error {
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
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	if row.Version == 0 {
		row.Version = 1
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *threadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Thread, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Thread
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *threadRepo) ListOpenByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Thread, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Thread
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("course_id = ? AND status IN ?", courseID, []types.ThreadStatus{types.ThreadStatusFoundational, types.ThreadStatusAdvanced}).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *threadRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Thread, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Thread
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *threadRepo) UpdateVersioned(dbc dbctx.Context, row *types.Thread, prevVersion int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	row.Version = prevVersion + 1
	row.UpdatedAt = time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&types.Thread{}).
		Where("id = ? AND version = ?", row.ID, prevVersion).
		Updates(map[string]interface{}{
			"title":               row.Title,
			"summary":             row.Summary,
			"status":              row.Status,
			"complexity_level":    row.ComplexityLevel,
			"face":                row.Face,
			"lecture_refs":        row.LectureRefs,
			"evidence_terms":      row.EvidenceTerms,
			"facet_votes":         row.FacetVotes,
			"evolution_notes":     row.EvolutionNotes,
			"occurrence_count":    row.OccurrenceCount,
			"contradiction_count": row.ContradictionCount,
			"version":             row.Version,
			"updated_at":          row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: thread %s at version %d", ErrStaleVersion, row.ID, prevVersion)
	}
	return nil
}

// Archive is the only way a thread leaves matching; it is driven by external workflows.
func (r *threadRepo) Archive(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.Thread{}).
		Where("id IN ? AND status <> ?", ids, types.ThreadStatusArchived).
		Updates(map[string]interface{}{
			"status":     types.ThreadStatusArchived,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

package continuity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	repos "github.com/yungbote/neurobridge-threads/internal/data/repos/threads"
	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

type Deps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Threads     repos.ThreadRepo
	Occurrences repos.ThreadOccurrenceRepo
	Updates     repos.ThreadUpdateRepo
	// Classifier defaults to RuleClassifier.
	Classifier ChangeClassifier
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

type Engine struct {
	db         *gorm.DB
	log        *logger.Logger
	threads    repos.ThreadRepo
	occ        repos.ThreadOccurrenceRepo
	upd        repos.ThreadUpdateRepo
	classifier ChangeClassifier
	now        func() time.Time
	cfg        Config
}

func NewEngine(deps Deps, cfg Config) (*Engine, error) {
	if deps.DB == nil || deps.Threads == nil || deps.Occurrences == nil || deps.Updates == nil {
		return nil, fmt.Errorf("continuity: missing deps")
	}
	cfg = cfg.Normalized()
	e := &Engine{
		db:         deps.DB,
		log:        deps.Log.With("module", "continuity"),
		threads:    deps.Threads,
		occ:        deps.Occurrences,
		upd:        deps.Updates,
		classifier: deps.Classifier,
		now:        deps.Now,
		cfg:        cfg,
	}
	if e.classifier == nil {
		e.classifier = NewRuleClassifier(cfg)
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Batch is one lecture's candidates. FallbackFacet (usually the rotation's dominant
// facet) is used for candidates that carry none.
type Batch struct {
	CourseID      uuid.UUID
	LectureID     uuid.UUID
	Candidates    []Candidate
	FallbackFacet threads.Facet
}

// Result is the outcome for one candidate, in input order.
type Result struct {
	Index        int                `json:"index"`
	ThreadID     uuid.UUID          `json:"thread_id"`
	Created      bool               `json:"created"`
	OccurrenceID uuid.UUID          `json:"occurrence_id"`
	UpdateID     *uuid.UUID         `json:"update_id,omitempty"`
	ChangeType   threads.ChangeType `json:"change_type,omitempty"`
	Similarity   float64            `json:"similarity"`
	Ambiguous    bool               `json:"ambiguous,omitempty"`
	Replayed     bool               `json:"replayed,omitempty"`
	// Duplicate means another candidate of the same artifact already joined this thread.
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
	Err       error  `json:"-"`
}

func (r Result) Malformed() bool { return errors.Is(r.Err, ErrMalformedCandidate) }

// BatchResult carries everything written by one matching pass.
type BatchResult struct {
	Results     []Result
	Threads     []*threads.Thread
	Occurrences []*threads.ThreadOccurrence
	Updates     []*threads.ThreadUpdate
}

// Conflict returns the first persistence conflict, if any.
func (b *BatchResult) Conflict() error {
	for _, r := range b.Results {
		if errors.Is(r.Err, ErrPersistenceConflict) {
			return r.Err
		}
	}
	return nil
}

type written struct {
	thread *threads.Thread
	occ    *threads.ThreadOccurrence
	upd    *threads.ThreadUpdate
}

// MatchBatch matches every candidate against the course's open threads. Each candidate
// commits in its own transaction, so a failure never touches the others. Callers must
// hold the course lock. Cancellation stops the batch between candidates.
func (e *Engine) MatchBatch(ctx context.Context, b Batch) (*BatchResult, error) {
	if b.CourseID == uuid.Nil || b.LectureID == uuid.Nil {
		return nil, fmt.Errorf("continuity: course and lecture ids are required")
	}
	ctx, span := otel.Tracer("threads/continuity").Start(ctx, "continuity.MatchBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("course_id", b.CourseID.String()),
		attribute.String("lecture_id", b.LectureID.String()),
		attribute.Int("candidates", len(b.Candidates)),
	)

	out := &BatchResult{Results: make([]Result, 0, len(b.Candidates))}
	touched := map[uuid.UUID]int{}
	for i, c := range b.Candidates {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return out, err
		}
		res, w := e.matchOne(ctx, b, i, c)
		out.Results = append(out.Results, res)
		if w.thread != nil {
			if idx, ok := touched[w.thread.ID]; ok {
				out.Threads[idx] = w.thread
			} else {
				touched[w.thread.ID] = len(out.Threads)
				out.Threads = append(out.Threads, w.thread)
			}
		}
		if w.occ != nil {
			out.Occurrences = append(out.Occurrences, w.occ)
		}
		if w.upd != nil {
			out.Updates = append(out.Updates, w.upd)
		}
	}
	span.SetAttributes(
		attribute.Int("occurrences_written", len(out.Occurrences)),
		attribute.Int("updates_written", len(out.Updates)),
	)
	return out, nil
}

func (e *Engine) matchOne(ctx context.Context, b Batch, idx int, c Candidate) (Result, written) {
	res := Result{Index: idx}
	var w written

	p, err := prepare(c, b.FallbackFacet)
	if err != nil {
		e.log.Warn("skipping malformed candidate",
			"course_id", b.CourseID,
			"lecture_id", b.LectureID,
			"index", idx,
			"error", err,
		)
		res.Err, res.Error = err, err.Error()
		return res, w
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		res, w = Result{Index: idx}, written{}

		prior, err := e.occ.FindReplay(dbc, b.CourseID, b.LectureID, p.ArtifactID, p.Key)
		if err != nil {
			return err
		}
		if prior != nil {
			return e.replay(dbc, b, prior, &res)
		}

		open, err := e.threads.ListOpenByCourse(dbc, b.CourseID)
		if err != nil {
			return err
		}
		choice, amb := selectMatch(p, open, e.cfg)
		now := e.now().UTC()
		if choice == nil {
			return e.create(dbc, b, p, now, &res, &w)
		}
		return e.join(dbc, b, p, choice, amb, now, &res, &w)
	})
	if err != nil {
		if errors.Is(err, repos.ErrStaleVersion) || repos.IsUniqueViolation(err) {
			err = fmt.Errorf("%w: %v", ErrPersistenceConflict, err)
		}
		e.log.Warn("candidate match failed",
			"course_id", b.CourseID,
			"lecture_id", b.LectureID,
			"index", idx,
			"error", err,
		)
		return Result{Index: idx, Err: err, Error: err.Error()}, written{}
	}
	return res, w
}

func (e *Engine) replay(dbc dbctx.Context, b Batch, prior *threads.ThreadOccurrence, res *Result) error {
	res.ThreadID = prior.ThreadID
	res.Created = prior.Created
	res.OccurrenceID = prior.ID
	res.Similarity = prior.Confidence
	res.Replayed = true
	upd, err := e.upd.GetByKey(dbc, prior.ThreadID, b.LectureID, prior.ArtifactID)
	if err != nil {
		return err
	}
	if upd != nil {
		id := upd.ID
		res.UpdateID = &id
		res.ChangeType = upd.ChangeType
	}
	e.log.Debug("candidate already recorded", "thread_id", prior.ThreadID, "lecture_id", b.LectureID, "artifact_id", prior.ArtifactID)
	return nil
}

func (e *Engine) create(dbc dbctx.Context, b Batch, p prepared, now time.Time, res *Result, w *written) error {
	th := newThread(b.CourseID, b.LectureID, p, now)
	if err := e.threads.Create(dbc, th); err != nil {
		return err
	}
	conf := p.Confidence
	if conf == 0 {
		conf = 1
	}
	occ := &threads.ThreadOccurrence{
		ID:           occurrenceID(th.ID, b.LectureID, p.ArtifactID),
		ThreadID:     th.ID,
		CourseID:     b.CourseID,
		LectureID:    b.LectureID,
		ArtifactID:   p.ArtifactID,
		CandidateKey: p.Key,
		Evidence:     p.Evidence,
		Confidence:   conf,
		Facet:        p.DominantFacet,
		Created:      true,
		Metadata:     threads.MarshalJSONValue(map[string]any{"decision": "created"}),
		CreatedAt:    now,
	}
	inserted, err := e.occ.Insert(dbc, occ)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("%w: occurrence %s already exists for new thread", ErrPersistenceConflict, occ.ID)
	}

	res.ThreadID, res.Created, res.OccurrenceID, res.Similarity = th.ID, true, occ.ID, 0
	w.thread, w.occ = th, occ
	e.log.Debug("thread created", "thread_id", th.ID, "course_id", b.CourseID, "face", th.Face)
	return nil
}

func (e *Engine) join(dbc dbctx.Context, b Batch, p prepared, choice *scoredThread, amb *ambiguity, now time.Time, res *Result, w *written) error {
	cur := choice.Thread
	cls := e.classifier.Classify(cur, p.Candidate, p.Terms)
	ev := evolve(cur, p, b.LectureID, cls, e.cfg, now)

	meta := map[string]any{"decision": "matched", "similarity": choice.Score}
	if ev.Material() {
		meta["change_type"] = ev.Primary()
	}
	if amb != nil {
		meta["ambiguity"] = amb
		e.log.Warn("ambiguous thread match resolved by tie-break",
			"course_id", b.CourseID,
			"lecture_id", b.LectureID,
			"chosen", amb.Chosen,
			"tie_break", amb.TieBreak,
			"contenders", len(amb.Contenders),
		)
	}
	occ := &threads.ThreadOccurrence{
		ID:           occurrenceID(cur.ID, b.LectureID, p.ArtifactID),
		ThreadID:     cur.ID,
		CourseID:     b.CourseID,
		LectureID:    b.LectureID,
		ArtifactID:   p.ArtifactID,
		CandidateKey: p.Key,
		Evidence:     p.Evidence,
		Confidence:   choice.Score,
		Facet:        p.DominantFacet,
		Metadata:     threads.MarshalJSONValue(meta),
		CreatedAt:    now,
	}
	inserted, err := e.occ.Insert(dbc, occ)
	if err != nil {
		return err
	}
	res.ThreadID, res.Similarity, res.Ambiguous = cur.ID, choice.Score, amb != nil
	if !inserted {
		existing, err := e.occ.GetByKey(dbc, cur.ID, b.LectureID, p.ArtifactID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: occurrence %s vanished", ErrPersistenceConflict, occ.ID)
		}
		res.OccurrenceID, res.Duplicate = existing.ID, true
		return nil
	}
	res.OccurrenceID = occ.ID
	w.occ = occ

	if ev.Material() {
		upd := &threads.ThreadUpdate{
			ID:         updateID(cur.ID, b.LectureID, p.ArtifactID),
			ThreadID:   cur.ID,
			CourseID:   b.CourseID,
			LectureID:  b.LectureID,
			ArtifactID: p.ArtifactID,
			ChangeType: ev.Primary(),
			Summary:    strings.Join(ev.Notes, "; "),
			Details:    threads.MarshalJSONValue(updateDetails(cur, ev, cls, choice.Score, amb)),
			CreatedAt:  now,
		}
		inserted, err := e.upd.Insert(dbc, upd)
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("%w: update %s already exists", ErrPersistenceConflict, upd.ID)
		}
		id := upd.ID
		res.UpdateID, res.ChangeType = &id, upd.ChangeType
		w.upd = upd
		e.log.Debug("thread evolved",
			"thread_id", cur.ID,
			"lecture_id", b.LectureID,
			"change_type", upd.ChangeType,
			"changes", len(ev.Changes),
		)
	}

	if err := e.threads.UpdateVersioned(dbc, ev.Next, cur.Version); err != nil {
		return err
	}
	w.thread = ev.Next
	return nil
}

// History is the audit view of one thread.
type History struct {
	Thread      *threads.Thread             `json:"thread"`
	Occurrences []*threads.ThreadOccurrence `json:"occurrences"`
	Updates     []*threads.ThreadUpdate     `json:"updates"`
}

// ThreadHistory returns the thread with its occurrences and updates in write order.
func (e *Engine) ThreadHistory(ctx context.Context, id uuid.UUID) (*History, error) {
	dbc := dbctx.Context{Ctx: ctx}
	th, err := e.threads.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if th == nil {
		return nil, nil
	}
	occs, err := e.occ.ListByThread(dbc, id)
	if err != nil {
		return nil, err
	}
	upds, err := e.upd.ListByThread(dbc, id)
	if err != nil {
		return nil, err
	}
	return &History{Thread: th, Occurrences: occs, Updates: upds}, nil
}

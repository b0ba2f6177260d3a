package detect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-threads/internal/data/graph"
	repos "github.com/yungbote/neurobridge-threads/internal/data/repos/threads"
	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/config"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/continuity"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/courselock"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/dice"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/facet"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/metrics"
	"github.com/yungbote/neurobridge-threads/internal/observability"
	"github.com/yungbote/neurobridge-threads/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
	"github.com/yungbote/neurobridge-threads/internal/platform/neo4jdb"
)

// ErrInvalidInput rejects a whole lecture batch before any work is done.
var ErrInvalidInput = errors.New("detect: invalid input")

// MetricsSink receives the finished metrics record. Failures are logged, never returned.
type MetricsSink interface {
	Publish(ctx context.Context, m *threads.ThreadMetrics) error
}

type Deps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Dice        *dice.Engine
	Continuity  *continuity.Engine
	Rotations   repos.ThreadRotationRepo
	Metrics     repos.ThreadMetricsRepo
	Locker      courselock.Locker
	LockBackend string

	// Optional sinks.
	Publisher MetricsSink
	Graph     *neo4jdb.Client

	DefaultMode    threads.CourseMode
	CustomProfiles map[string]map[threads.Facet]float64
	Now            func() time.Time
}

// NewDeps wires repos and engines from cfg on db. Locker, Publisher and Graph are left
// for the caller.
func NewDeps(cfg config.Config, db *gorm.DB, log *logger.Logger) (Deps, error) {
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	profiles, err := cfg.CustomProfiles()
	if err != nil {
		return Deps{}, err
	}
	eng, err := continuity.NewEngine(continuity.Deps{
		DB:          db,
		Log:         log,
		Threads:     repos.NewThreadRepo(db, log),
		Occurrences: repos.NewThreadOccurrenceRepo(db, log),
		Updates:     repos.NewThreadUpdateRepo(db, log),
	}, cfg.Continuity())
	if err != nil {
		return Deps{}, err
	}
	mode := threads.CourseMode(strings.ToUpper(strings.TrimSpace(cfg.DefaultMode)))
	if parsed, err := threads.ParseCourseMode(cfg.DefaultMode); err == nil {
		mode = parsed
	}
	return Deps{
		DB:             db,
		Log:            log,
		Dice:           dice.NewEngine(cfg.Dice(), log),
		Continuity:     eng,
		Rotations:      repos.NewThreadRotationRepo(db, log),
		Metrics:        repos.NewThreadMetricsRepo(db, log),
		LockBackend:    cfg.LockBackend,
		DefaultMode:    mode,
		CustomProfiles: profiles,
	}, nil
}

// Input is one lecture's detection request.
type Input struct {
	CourseID  uuid.UUID `json:"course_id"`
	LectureID uuid.UUID `json:"lecture_id"`
	// Mode names a built-in or custom course mode; empty uses the default.
	Mode            string                    `json:"mode,omitempty"`
	Weights         map[threads.Facet]float64 `json:"weights,omitempty"`
	Mix             *float64                  `json:"mix,omitempty"`
	FallbackWeights map[threads.Facet]float64 `json:"fallback_weights,omitempty"`
	// Signals override the candidate-derived facet signals.
	Signals    map[threads.Facet]float64 `json:"signals,omitempty"`
	Seed       *int                      `json:"seed,omitempty"`
	Candidates []continuity.Candidate    `json:"candidates"`
}

type Output struct {
	Rotation      *dice.RotationState
	WeightsSource string
	Batch         *continuity.BatchResult
	Metrics       *threads.ThreadMetrics
}

// Run characterizes the lecture, matches its candidates under the course lock and
// reports metrics. A persistence conflict on any candidate is returned wrapped in
// continuity.ErrPersistenceConflict after all other candidates have committed.
func Run(ctx context.Context, deps Deps, in Input) (*Output, error) {
	if err := validate(deps, in); err != nil {
		return nil, err
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	start := now()
	log := deps.Log.With("course_id", in.CourseID, "lecture_id", in.LectureID)

	ctx, span := otel.Tracer("threads/detect").Start(ctx, "detect.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("course_id", in.CourseID.String()),
		attribute.String("lecture_id", in.LectureID.String()),
		attribute.Int("candidates", len(in.Candidates)),
	)
	fail := func(err error) (*Output, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	mode := resolveMode(in.Mode, deps.DefaultMode)
	res, err := facet.ResolveWeights(facet.Selection{
		Mode:     mode,
		Explicit: in.Weights,
		Mix:      in.Mix,
		Fallback: in.FallbackWeights,
		Custom:   deps.CustomProfiles,
	})
	if err != nil {
		return fail(err)
	}
	if res.Fallback {
		log.Warn("course weights unusable, using fallback weights", "mode", mode)
	}
	signals, err := signalsFor(in)
	if err != nil {
		return fail(err)
	}

	state, err := rotate(ctx, deps.Dice, dice.Input{
		LectureID: in.LectureID,
		CourseID:  in.CourseID,
		Mode:      mode,
		Weights:   res.Weights,
		Signals:   signals,
		Seed:      in.Seed,
	})
	if err != nil {
		return fail(err)
	}
	if err := deps.Rotations.UpsertByLectureID(dbctx.Context{Ctx: ctx}, state.Record(now().UTC())); err != nil {
		return fail(fmt.Errorf("persist rotation: %w", err))
	}

	batch, err := matchLocked(ctx, deps, log, continuity.Batch{
		CourseID:      in.CourseID,
		LectureID:     in.LectureID,
		Candidates:    in.Candidates,
		FallbackFacet: state.DominantFacet,
	})
	if err != nil {
		return fail(err)
	}

	m := metrics.Compute(metrics.RunSummary{
		CourseID:           in.CourseID,
		LectureID:          in.LectureID,
		Candidates:         len(in.Candidates),
		Batch:              batch,
		RotationStatus:     state.Status,
		RotationIterations: state.IterationsCompleted,
		WeightsFallback:    res.Fallback,
		Duration:           now().Sub(start),
		Now:                now(),
	})
	emit(ctx, deps, log, m)
	syncGraph(ctx, deps, log, in.CourseID, batch)

	out := &Output{Rotation: state, WeightsSource: res.Source, Batch: batch, Metrics: m}
	if conflict := batch.Conflict(); conflict != nil {
		span.SetStatus(codes.Error, "persistence conflict")
		return out, fmt.Errorf("detect lecture %s: %w", in.LectureID, conflict)
	}
	return out, nil
}

func validate(deps Deps, in Input) error {
	if deps.Dice == nil || deps.Continuity == nil || deps.Rotations == nil || deps.Locker == nil {
		return fmt.Errorf("detect: missing deps")
	}
	switch {
	case in.CourseID == uuid.Nil:
		return fmt.Errorf("%w: course id required", ErrInvalidInput)
	case in.LectureID == uuid.Nil:
		return fmt.Errorf("%w: lecture id required", ErrInvalidInput)
	case len(in.Candidates) == 0:
		return fmt.Errorf("%w: lecture %s has no candidates", ErrInvalidInput, in.LectureID)
	}
	return nil
}

func resolveMode(raw string, def threads.CourseMode) threads.CourseMode {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	if m, err := threads.ParseCourseMode(raw); err == nil {
		return m
	}
	return threads.CourseMode(strings.ToUpper(strings.TrimSpace(raw)))
}

// signalsFor returns explicit signals, or derives them from the candidates: each
// candidate adds 1 + min(len(evidence)/400, 1) to its dominant facet.
func signalsFor(in Input) (facet.Vector, error) {
	if in.Signals != nil {
		v := facet.FromMap(in.Signals)
		if err := v.Validate(); err != nil {
			return facet.Vector{}, err
		}
		return v, nil
	}
	var v facet.Vector
	for _, c := range in.Candidates {
		f, err := threads.ParseFacet(string(c.DominantFacet))
		if err != nil {
			continue
		}
		n := float64(utf8.RuneCountInString(c.Evidence))
		v.Set(f, v.Get(f)+1+math.Min(n/400, 1))
	}
	return v, nil
}

func rotate(ctx context.Context, eng *dice.Engine, in dice.Input) (*dice.RotationState, error) {
	_, span := otel.Tracer("threads/dice").Start(ctx, "dice.Rotate")
	defer span.End()
	state, err := eng.Rotate(in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("status", string(state.Status)),
		attribute.Int("iterations", state.IterationsCompleted),
		attribute.String("dominant_facet", string(state.DominantFacet)),
		attribute.Float64("entropy", state.Entropy),
	)
	return state, nil
}

func matchLocked(ctx context.Context, deps Deps, log *logger.Logger, b continuity.Batch) (*continuity.BatchResult, error) {
	waitStart := time.Now()
	lease, err := deps.Locker.Acquire(ctx, b.CourseID)
	if err != nil {
		observability.Current().ObserveLockWait(deps.LockBackend, "failed", time.Since(waitStart))
		return nil, fmt.Errorf("acquire course lock: %w", err)
	}
	observability.Current().ObserveLockWait(deps.LockBackend, "ok", time.Since(waitStart))
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("course lock release failed", "error", err)
		}
	}()
	mctx, stop := courselock.Guard(ctx, lease)
	defer stop()
	out, err := deps.Continuity.MatchBatch(mctx, b)
	if err != nil && errors.Is(context.Cause(mctx), courselock.ErrLeaseLost) {
		log.Error("course lock lost during matching", "course_id", b.CourseID)
		return out, fmt.Errorf("match course %s: %w", b.CourseID, courselock.ErrLeaseLost)
	}
	return out, err
}

func emit(ctx context.Context, deps Deps, log *logger.Logger, m *threads.ThreadMetrics) {
	if deps.Metrics != nil {
		if err := deps.Metrics.Create(dbctx.Context{Ctx: ctx}, m); err != nil {
			log.Warn("persist thread metrics failed (continuing)", "error", err)
			observability.Current().IncSinkFailure("repo")
		}
	}
	if deps.Publisher != nil {
		if err := deps.Publisher.Publish(ctx, m); err != nil {
			log.Warn("publish thread metrics failed (continuing)", "error", err)
			observability.Current().IncSinkFailure("publisher")
		}
	}
	observability.ReportThreadMetrics(ctx, log, m)
}

func syncGraph(ctx context.Context, deps Deps, log *logger.Logger, courseID uuid.UUID, b *continuity.BatchResult) {
	if deps.Graph == nil || b == nil {
		return
	}
	if err := graph.UpsertCourseThreads(ctx, deps.Graph, log, courseID, b.Threads, b.Occurrences); err != nil {
		log.Warn("neo4j thread projection failed (continuing)", "error", err)
		observability.Current().IncSinkFailure("neo4j")
	}
}

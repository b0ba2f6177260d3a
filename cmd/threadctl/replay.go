package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-threads/internal/data/db"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/continuity"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/courselock"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/detect"
	"github.com/yungbote/neurobridge-threads/internal/temporalx/threaddetect"
)

// fixture is a detection request file. A course_id at the top fills lectures that omit one.
type fixture struct {
	CourseID uuid.UUID `json:"course_id"`
	threaddetect.Request
}

func readFixture(path string) (threaddetect.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return threaddetect.Request{}, fmt.Errorf("read fixture: %w", err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return threaddetect.Request{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i := range fx.Lectures {
		if fx.Lectures[i].CourseID == uuid.Nil {
			fx.Lectures[i].CourseID = fx.CourseID
		}
	}
	if len(fx.Lectures) == 0 {
		return threaddetect.Request{}, fmt.Errorf("fixture %s has no lectures", path)
	}
	return fx.Request, nil
}

type replayLecture struct {
	LectureID string                      `json:"lecture_id"`
	Rotation  any                         `json:"rotation"`
	Weights   string                      `json:"weights_source"`
	Results   []continuity.Result         `json:"results"`
	Metrics   any                         `json:"metrics"`
	Summary   threaddetect.LectureSummary `json:"summary"`
	Error     string                      `json:"error,omitempty"`
}

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "replay <fixture.json>",
		Short: "Run a lecture fixture through rotation and matching on a local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readFixture(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg.ApplyPayload(req.Config)

			gdb, err := db.OpenSQLite(dbPath, true)
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := db.AutoMigrateAll(gdb); err != nil {
				return fmt.Errorf("migrate %s: %w", dbPath, err)
			}

			log := ctx.logger()
			deps, err := detect.NewDeps(cfg, gdb, log)
			if err != nil {
				return err
			}
			deps.Locker = courselock.NewLocalLocker(cfg.LockWait(), log)

			var lectures []replayLecture
			var firstErr error
			for _, in := range req.Lectures {
				out, err := detect.Run(cmd.Context(), deps, in)
				if out == nil {
					return err
				}
				rl := replayLecture{
					LectureID: in.LectureID.String(),
					Rotation:  out.Rotation,
					Weights:   out.WeightsSource,
					Results:   out.Batch.Results,
					Metrics:   out.Metrics,
					Summary:   threaddetect.Summarize(out),
				}
				if err != nil {
					rl.Error = err.Error()
					if firstErr == nil {
						firstErr = err
					}
				}
				lectures = append(lectures, rl)
				if !ctx.json() {
					printLecture(cmd, out)
				}
			}
			if ctx.json() {
				if err := writeJSON(cmd, lectures); err != nil {
					return err
				}
			}
			if firstErr != nil && !errors.Is(firstErr, continuity.ErrPersistenceConflict) {
				return firstErr
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", ":memory:", "SQLite database path")
	return cmd
}

func printLecture(cmd *cobra.Command, out *detect.Output) {
	rot := out.Rotation
	rows := make([][]string, 0, len(rot.History))
	for _, h := range rot.History {
		perm := make([]string, 0, len(h.Permutation))
		for _, f := range h.Permutation {
			perm = append(perm, string(f))
		}
		rows = append(rows, []string{
			fmt.Sprint(h.Iteration),
			strings.Join(perm, " "),
			string(h.DominantFacet),
			ratio(h.DominantScore),
			ratio(h.Entropy),
			ratio(h.Gap),
		})
	}
	title := fmt.Sprintf("Lecture %s  rotation %s after %d iterations (weights: %s)",
		shortID(rot.LectureID.String()), rot.Status, rot.IterationsCompleted, out.WeightsSource)
	printTable(cmd, title,
		[]string{"#", "Permutation", "Dominant", "Score", "Entropy", "Gap"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight})

	rows = rows[:0]
	for _, r := range out.Batch.Results {
		outcome := "matched"
		switch {
		case r.Error != "":
			outcome = "error: " + r.Error
		case r.Replayed:
			outcome = "replayed"
		case r.Created:
			outcome = "created"
		case r.Duplicate:
			outcome = "duplicate"
		}
		flags := ""
		if r.Ambiguous {
			flags = "ambiguous"
		}
		rows = append(rows, []string{
			fmt.Sprint(r.Index),
			shortID(r.ThreadID.String()),
			outcome,
			string(r.ChangeType),
			ratio(r.Similarity),
			flags,
		})
	}
	printTable(cmd, "Candidates",
		[]string{"#", "Thread", "Outcome", "Change", "Similarity", "Flags"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})

	m := out.Metrics
	fmt.Fprintf(cmd.OutOrStdout(), "new=%d updated=%d matched=%d malformed=%d ambiguous=%d quality=%s\n\n",
		m.NewThreads, m.UpdatedThreads, m.MatchedThreads, m.Malformed, m.Ambiguous, ratio(m.QualityScore))
}

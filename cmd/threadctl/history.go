package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-threads/internal/data/db"
	repos "github.com/yungbote/neurobridge-threads/internal/data/repos/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/detect"
	"github.com/yungbote/neurobridge-threads/internal/platform/dbctx"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var dbPath, course, thread string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a course's threads, or one thread's occurrences and updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("open %s: %w", dbPath, err)
			}
			gdb, err := db.OpenSQLite(dbPath, true)
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer sqlDB.Close()
			}
			log := ctx.logger()

			if thread != "" {
				id, err := uuid.Parse(thread)
				if err != nil {
					return fmt.Errorf("invalid --thread: %w", err)
				}
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				deps, err := detect.NewDeps(cfg, gdb, log)
				if err != nil {
					return err
				}
				h, err := deps.Continuity.ThreadHistory(cmd.Context(), id)
				if err != nil {
					return err
				}
				if h == nil {
					return fmt.Errorf("thread %s not found", id)
				}
				if ctx.json() {
					return writeJSON(cmd, h)
				}
				rows := make([][]string, 0, len(h.Occurrences))
				for _, o := range h.Occurrences {
					rows = append(rows, []string{shortID(o.LectureID.String()), o.ArtifactID, fmt.Sprint(o.Created), ratio(o.Confidence)})
				}
				printTable(cmd, fmt.Sprintf("%s [%s, %s, complexity %d]", h.Thread.Title, h.Thread.Face, h.Thread.Status, h.Thread.ComplexityLevel),
					[]string{"Lecture", "Artifact", "Created", "Confidence"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
				rows = rows[:0]
				for _, u := range h.Updates {
					rows = append(rows, []string{shortID(u.LectureID.String()), string(u.ChangeType), u.CreatedAt.Format("2006-01-02 15:04:05")})
				}
				printTable(cmd, "Updates", []string{"Lecture", "Change", "At"}, rows, nil)
				return nil
			}

			courseID, err := uuid.Parse(course)
			if err != nil {
				return fmt.Errorf("invalid --course: %w", err)
			}
			rows, err := repos.NewThreadRepo(gdb, log).ListByCourse(dbctx.Context{Ctx: cmd.Context()}, courseID)
			if err != nil {
				return err
			}
			if ctx.json() {
				return writeJSON(cmd, rows)
			}
			table := make([][]string, 0, len(rows))
			for _, th := range rows {
				table = append(table, []string{
					th.ID.String(),
					th.Title,
					string(th.Face),
					string(th.Status),
					fmt.Sprint(th.ComplexityLevel),
					fmt.Sprint(len(th.LectureIDs())),
					fmt.Sprint(th.OccurrenceCount),
				})
			}
			printTable(cmd, fmt.Sprintf("Course %s: %d threads", courseID, len(rows)),
				[]string{"Thread", "Title", "Face", "Status", "Complexity", "Lectures", "Occurrences"}, table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight})
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "threads.db", "SQLite database path")
	cmd.Flags().StringVar(&course, "course", "", "Course id")
	cmd.Flags().StringVar(&thread, "thread", "", "Thread id; prints its audit trail")
	return cmd
}

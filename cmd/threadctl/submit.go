package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-threads/internal/temporalx"
	"github.com/yungbote/neurobridge-threads/internal/temporalx/threaddetect"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "submit <fixture.json>",
		Short: "Start a thread detection workflow on Temporal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readFixture(args[0])
			if err != nil {
				return err
			}
			log := ctx.logger()
			tc, err := temporalx.NewClient(log)
			if err != nil {
				return err
			}
			if tc == nil {
				return fmt.Errorf("TEMPORAL_ADDRESS is not set")
			}
			defer tc.Close()

			run, err := threaddetect.Start(cmd.Context(), tc, temporalx.LoadConfig().TaskQueue, req)
			if err != nil {
				return err
			}
			if !wait {
				if ctx.json() {
					return writeJSON(cmd, map[string]string{"workflow_id": run.GetID(), "run_id": run.GetRunID()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "started %s (run %s)\n", run.GetID(), run.GetRunID())
				return nil
			}

			var res threaddetect.Result
			if err := run.Get(cmd.Context(), &res); err != nil {
				return fmt.Errorf("workflow %s: %w", run.GetID(), err)
			}
			if ctx.json() {
				return writeJSON(cmd, res)
			}
			rows := make([][]string, 0, len(res.Lectures))
			for _, l := range res.Lectures {
				rows = append(rows, []string{
					shortID(l.LectureID), l.RotationStatus, l.DominantFacet,
					fmt.Sprint(l.NewThreads), fmt.Sprint(l.UpdatedThreads), fmt.Sprint(l.Malformed), ratio(l.QualityScore),
				})
			}
			printTable(cmd, run.GetID(),
				[]string{"Lecture", "Rotation", "Dominant", "New", "Updated", "Malformed", "Quality"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight})
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the workflow finishes and print its result")
	return cmd
}

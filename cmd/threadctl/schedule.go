package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-threads/internal/modules/threads/dice"
)

type scheduleRow struct {
	Iteration   int      `json:"iteration"`
	Index       int      `json:"index"`
	Permutation []string `json:"permutation"`
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var seed, count int
	var lecture string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the facet permutations a rotation would consume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lecture != "" {
				id, err := uuid.Parse(lecture)
				if err != nil {
					return fmt.Errorf("invalid --lecture: %w", err)
				}
				seed = dice.SeedFor(id.String())
			}
			if count <= 0 || count > dice.NumPermutations {
				return fmt.Errorf("--count must be between 1 and %d", dice.NumPermutations)
			}
			rows := make([]scheduleRow, 0, count)
			for i := 0; i < count; i++ {
				perm := dice.ScheduleAt(seed, i)
				names := make([]string, 0, len(perm))
				for _, f := range perm {
					names = append(names, string(f))
				}
				idx := (seed + i) % dice.NumPermutations
				if idx < 0 {
					idx += dice.NumPermutations
				}
				rows = append(rows, scheduleRow{Iteration: i, Index: idx, Permutation: names})
			}
			if ctx.json() {
				return writeJSON(cmd, rows)
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{fmt.Sprint(r.Iteration), fmt.Sprint(r.Index), strings.Join(r.Permutation, " ")})
			}
			printTable(cmd, fmt.Sprintf("Schedule from seed %d", seed),
				[]string{"Iteration", "Index", "Permutation"}, table,
				[]columnAlignment{alignRight, alignRight, alignLeft})
			return nil
		},
	}
	cmd.Flags().IntVar(&seed, "seed", 0, "Schedule offset")
	cmd.Flags().IntVar(&count, "count", 6, "Number of iterations to print")
	cmd.Flags().StringVar(&lecture, "lecture", "", "Derive the seed from a lecture id")
	return cmd
}

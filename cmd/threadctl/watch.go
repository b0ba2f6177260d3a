package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-threads/internal/clients/redis"
	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream thread metrics published by workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.logger()
			rdb, err := redis.NewClient(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer rdb.Close()
			pub, err := redis.NewMetricsPublisher(rdb, cfg.MetricsChannel, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			err = pub.StartForwarder(cmd.Context(), func(m *threads.ThreadMetrics) {
				if ctx.json() {
					_ = writeJSON(cmd, m)
					return
				}
				fmt.Fprintf(out, "%s course=%s lecture=%s rotation=%s new=%d updated=%d malformed=%d quality=%s\n",
					m.CreatedAt.Format("15:04:05"), shortID(m.CourseID.String()), shortID(m.LectureID.String()),
					m.RotationStatus, m.NewThreads, m.UpdatedThreads, m.Malformed, ratio(m.QualityScore))
			})
			if err != nil {
				return err
			}
			<-cmd.Context().Done()
			return nil
		},
	}
}

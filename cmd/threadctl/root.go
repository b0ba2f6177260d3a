package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-threads/internal/modules/threads/config"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	quietFlag  *bool

	configOnce sync.Once
	config     config.Config
	configErr  error

	logOnce sync.Once
	log     *logger.Logger
}

func newCommandContext(configFlag *string, jsonFlag, quietFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag, quietFlag: quietFlag}
}

// ensureConfig reads the environment, then the --config file on top of it.
func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		cfg := config.LoadConfigFromEnv()
		if c.configFlag != nil {
			if path := strings.TrimSpace(*c.configFlag); path != "" {
				loaded, err := config.LoadFile(path, cfg)
				if err != nil {
					c.configErr = err
					return
				}
				cfg = loaded
			}
		}
		c.configErr = cfg.Validate()
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *logger.Logger {
	c.logOnce.Do(func() {
		if c.quietFlag != nil && *c.quietFlag {
			c.log = logger.NewNop()
			return
		}
		log, err := logger.New("development")
		if err != nil {
			c.log = logger.NewNop()
			return
		}
		c.log = log
	})
	return c.log
}

func (c *commandContext) json() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var jsonFlag, quietFlag bool

	ctx := newCommandContext(&configFlag, &jsonFlag, &quietFlag)

	rootCmd := &cobra.Command{
		Use:           "threadctl",
		Short:         "Inspect and replay lecture thread detection",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Engine config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress engine logs")

	rootCmd.AddCommand(newReplayCommand(ctx))
	rootCmd.AddCommand(newScheduleCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))

	return rootCmd
}

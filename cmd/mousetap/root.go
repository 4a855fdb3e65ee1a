package main

import (
	"github.com/frudas24/mousetap/internal/config"
	"github.com/frudas24/mousetap/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cli carries state shared by the subcommands once the root pre-run is done.
type cli struct {
	envPath string
	debug   bool
	cfg     config.Config
	logger  *zap.Logger
}

// NewRootCommand builds a fresh command tree so tests never share flag state.
func NewRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "mousetap",
		Short:         "Decode mouse hook notifications and stream them to live viewers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.envPath, "env", "", "path to the .env file (default <DATA_DIR>/.env)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newDecodeCommand(c),
		newReplayCommand(c),
		newServeCommand(c),
	)
	return root
}

// init loads configuration and builds the logger.
func (c *cli) init(cmd *cobra.Command) error {
	cfg, err := config.Load(c.envPath)
	if err != nil {
		return err
	}
	if c.debug {
		cfg.LogLevel = "debug"
	}
	c.cfg = cfg
	c.logger = logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Name:   "mousetap",
		Output: zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())),
	})
	return nil
}

package main

import (
	"fmt"

	"github.com/frudas24/mousetap/internal/app"
	"github.com/frudas24/mousetap/internal/decoder"
	"github.com/frudas24/mousetap/internal/pipeline"
	"github.com/frudas24/mousetap/internal/replay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newReplayCommand runs a recorded log through the rules and prints each event.
func newReplayCommand(c *cli) *cobra.Command {
	var rulesPath string
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Decode a recorded notification log through the rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if rulesPath != "" {
				cfg.RulesPath = rulesPath
			}
			a, err := app.New(cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var suppressed, skipped int
			count, err := replay.Run(cmd.Context(), replay.Open(args[0]), a,
				func(rec replay.Record, res pipeline.Result) {
					ev := res.Event
					if res.Verdict.Suppress {
						suppressed++
					}
					fmt.Fprintf(out, "t=%d %-16s kind=%-8s button=%-6s clicks=%d pos=(%d,%d) wheel=%d suppress=%t\n",
						rec.T, decoder.Message(rec.Msg), ev.Kind(), ev.Button,
						ev.Clicks, ev.Pos.X, ev.Pos.Y, ev.WheelDelta, res.Verdict.Suppress)
				},
				func(rec replay.Record, err error) {
					skipped++
					c.logger.Warn("record skipped", zap.Int64("t", rec.T), zap.Error(err))
				},
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "events=%d suppressed=%d skipped=%d\n", count, suppressed, skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule file (overrides RULES_PATH)")
	return cmd
}

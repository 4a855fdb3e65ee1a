package main

import (
	"fmt"
	"strconv"

	"github.com/frudas24/mousetap/internal/decoder"
	"github.com/frudas24/mousetap/internal/mouse"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type decodeOutput struct {
	Msg   string         `json:"msg"`
	Scope string         `json:"scope"`
	Event mouse.Snapshot `json:"event"`
}

// newDecodeCommand decodes a single notification given on the command line.
func newDecodeCommand(c *cli) *cobra.Command {
	var (
		scope string
		x, y  int32
		extra uint32
	)
	cmd := &cobra.Command{
		Use:   "decode <msg> [mouseData]",
		Short: "Decode one raw notification and print the event as JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := decoder.ParseMessage(args[0])
			if err != nil {
				return err
			}
			sc, err := decoder.ParseScope(scope)
			if err != nil {
				return err
			}
			var data uint64
			if len(args) == 2 {
				data, err = strconv.ParseUint(args[1], 0, 32)
				if err != nil {
					return fmt.Errorf("mouseData: %w", err)
				}
			}
			ev, err := decoder.Decode(msg, &decoder.Payload{
				Pt:        mouse.Point{X: x, Y: y},
				MouseData: uint32(data),
				ExtraInfo: extra,
			}, sc)
			if err != nil {
				return err
			}
			c.logger.Debug("decoded", zap.Stringer("msg", msg), zap.Stringer("kind", ev.Kind()))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(decodeOutput{Msg: msg.String(), Scope: sc.String(), Event: ev.Snapshot()})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "system", "hook scope: system or process")
	cmd.Flags().Int32Var(&x, "x", 0, "pointer x")
	cmd.Flags().Int32Var(&y, "y", 0, "pointer y")
	cmd.Flags().Uint32Var(&extra, "extra", 0, "extra info word (auxiliary field for process hooks)")
	return cmd
}

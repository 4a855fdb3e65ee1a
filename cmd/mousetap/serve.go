package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/frudas24/mousetap/internal/app"
	"github.com/frudas24/mousetap/internal/replay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	speed float64
	delay time.Duration
	loop  bool
}

// newServeCommand replays a recording into the live feeds while serving HTTP.
func newServeCommand(c *cli) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Serve the live feeds and replay a recording into them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().Float64Var(&opts.speed, "speed", 1, "playback speed; 0 disables pacing")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "wait before starting playback")
	cmd.Flags().BoolVar(&opts.loop, "loop", false, "restart playback at the end of the recording")
	return cmd
}

// serve wires the application and blocks until shutdown.
func (c *cli) serve(ctx context.Context, path string, opts serveOptions) error {
	a, err := app.New(c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	server := &http.Server{
		Addr:              c.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", c.cfg.ListenAddr)
	if err != nil {
		return err
	}
	c.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil {
			errCh <- err
		}
	}()

	// Runs before a.Close so no replay is in flight while the feeds shut down.
	stopPlay := startPlayback(ctx, func(ctx context.Context) { c.play(ctx, a, path, opts) })
	defer stopPlay()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// startPlayback runs play in its own goroutine. The returned stop cancels it
// and waits for it to return.
func startPlayback(ctx context.Context, play func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		play(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// play feeds the recording into the app until it ends or ctx is done.
func (c *cli) play(ctx context.Context, a *app.App, path string, opts serveOptions) {
	if opts.delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(opts.delay):
		}
	}
	src := replay.Paced(replay.Open(path), opts.speed)
	for {
		count, err := a.Replay(ctx, src)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Error("playback failed", zap.String("file", path), zap.Error(err))
			return
		}
		c.logger.Info("playback finished", zap.String("file", path), zap.Int("events", count))
		if !opts.loop || count == 0 {
			return
		}
	}
}

// Package app wires the decoding pipeline, rules and live feeds together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/frudas24/mousetap/internal/config"
	"github.com/frudas24/mousetap/internal/dispatch"
	"github.com/frudas24/mousetap/internal/feed"
	"github.com/frudas24/mousetap/internal/logging"
	"github.com/frudas24/mousetap/internal/monitor"
	"github.com/frudas24/mousetap/internal/pipeline"
	"github.com/frudas24/mousetap/internal/replay"
	"github.com/frudas24/mousetap/internal/rtcfeed"
	"github.com/frudas24/mousetap/internal/rules"
	"github.com/frudas24/mousetap/internal/wininput"
	"go.uber.org/zap"
)

// App coordinates rule evaluation, the live feeds and the HTTP API.
//
// Events go through two dispatchers. The primary one runs the rules and
// decides the verdict; the observer one runs afterwards so the feeds always
// see every event together with its final handled state.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	started   time.Time
	rules     *rules.Set
	layout    *monitor.Layout
	pipeline  *pipeline.Pipeline
	observers *dispatch.Dispatcher
	feed      *feed.Hub
	rtc       *rtcfeed.Server
}

// New loads the rule file and builds the dispatchers and feeds.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	set, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if inj, err := wininput.New(); err == nil {
		set.WithInjector(inj)
	} else if !errors.Is(err, wininput.ErrUnsupported) {
		logger.Warn("input injection unavailable", zap.Error(err))
	}

	layout := monitor.NewLayout(nil)
	if err := layout.Refresh(monitor.ListMonitors); err != nil {
		if !errors.Is(err, monitor.ErrUnsupported) {
			logger.Warn("monitor enumeration failed", zap.Error(err))
		}
	}

	hub := feed.NewHub(feed.Options{
		Token:  cfg.FeedToken,
		Queue:  cfg.FeedQueue,
		Locate: layout.Locate,
		Logger: logger,
	})
	rtc, err := rtcfeed.NewServer(rtcfeed.Options{
		Authorize: func(r *http.Request) bool { return feed.CheckToken(r, cfg.FeedToken) },
		Locate:    layout.Locate,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("webrtc: %w", err)
	}

	primary := dispatch.New(dispatch.Options{
		Parallel:      cfg.DispatchParallel,
		StopOnHandled: cfg.StopOnHandled,
		Logger:        logger,
	})
	primary.Register("rules", set)

	observers := dispatch.New(dispatch.Options{Parallel: true, Logger: logger.Named("observers")})
	observers.Register("feed", hub)
	observers.Register("rtcfeed", rtc)

	logger.Info("app ready",
		zap.Int("rules", set.Len()),
		zap.Int("monitors", len(layout.Monitors())),
		zap.Bool("parallel", cfg.DispatchParallel),
		zap.Bool("stopOnHandled", cfg.StopOnHandled),
	)

	return &App{
		cfg:       cfg,
		logger:    logger,
		started:   time.Now(),
		rules:     set,
		layout:    layout,
		pipeline:  pipeline.New(primary, logger),
		observers: observers,
		feed:      hub,
		rtc:       rtc,
	}, nil
}

// Register adds a consumer to the primary dispatcher after the rules.
func (a *App) Register(name string, c dispatch.Consumer) {
	a.pipeline.Dispatcher().Register(name, c)
}

// Handle decodes one notification, applies the rules and publishes the
// event to the feeds. The verdict comes from the primary dispatcher only.
func (a *App) Handle(ctx context.Context, n pipeline.Notification) (pipeline.Result, error) {
	res, err := a.pipeline.Handle(ctx, n)
	if err != nil {
		return res, err
	}
	a.observers.Dispatch(ctx, res.Event)
	return res, nil
}

// Replay streams src through Handle. Records that fail to decode are logged
// and skipped.
func (a *App) Replay(ctx context.Context, src replay.Source) (int, error) {
	return replay.Run(ctx, src, a, nil, func(rec replay.Record, err error) {
		a.logger.Warn("replay record skipped", zap.Int64("t", rec.T), zap.Error(err))
	})
}

// Close disconnects every feed client.
func (a *App) Close() {
	a.feed.Close()
	a.rtc.Close()
}

// Feed returns the websocket feed hub.
func (a *App) Feed() *feed.Hub {
	return a.feed
}

// RTC returns the WebRTC feed server.
func (a *App) RTC() *rtcfeed.Server {
	return a.rtc
}

// Rules returns the loaded rule set.
func (a *App) Rules() *rules.Set {
	return a.rules
}

package app

import (
	"net/http"
	"time"

	"github.com/frudas24/mousetap/internal/dispatch"
	"github.com/frudas24/mousetap/internal/feed"
	"github.com/frudas24/mousetap/internal/monitor"
	"github.com/frudas24/mousetap/internal/rtcfeed"
	"github.com/frudas24/mousetap/internal/web"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RegisterRoutes wires API and websocket handlers onto the mux.
func (a *App) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/ws/events", a.feed)
	mux.Handle("/ws/signal", a.rtc)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/monitors", a.handleMonitors)
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/", staticFileServer(a))
}

type statsResponse struct {
	UptimeSec int64             `json:"uptimeSec"`
	Dispatch  dispatch.Stats    `json:"dispatch"`
	Feed      feed.Stats        `json:"feed"`
	RTC       rtcfeed.Stats     `json:"rtc"`
	RuleHits  map[string]uint64 `json:"ruleHits"`
}

// handleStats reports dispatch, feed and rule counters.
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	if !a.requireToken(w, r) {
		return
	}
	writeJSON(w, statsResponse{
		UptimeSec: int64(time.Since(a.started) / time.Second),
		Dispatch:  a.pipeline.Dispatcher().Stats(),
		Feed:      a.feed.Stats(),
		RTC:       a.rtc.Stats(),
		RuleHits:  a.rules.Hits(),
	})
}

// handleMonitors returns the cached monitor layout.
func (a *App) handleMonitors(w http.ResponseWriter, r *http.Request) {
	if !a.requireToken(w, r) {
		return
	}
	list := a.layout.Monitors()
	if list == nil {
		list = []monitor.Monitor{}
	}
	writeJSON(w, list)
}

// requireToken returns false and writes an error if the feed token is missing.
func (a *App) requireToken(w http.ResponseWriter, r *http.Request) bool {
	if !feed.CheckToken(r, a.cfg.FeedToken) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// staticFileServer serves the embedded viewer page.
func staticFileServer(a *App) http.Handler {
	h, err := web.Handler()
	if err != nil {
		a.logger.Warn("static assets unavailable", zap.Error(err))
		return http.NotFoundHandler()
	}
	return h
}

// handleHealth answers liveness probes.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]bool{"ok": true})
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

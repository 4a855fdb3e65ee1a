// Package pipeline decodes raw hook notifications and dispatches the result.
package pipeline

import (
	"context"

	"github.com/frudas24/mousetap/internal/decoder"
	"github.com/frudas24/mousetap/internal/dispatch"
	"github.com/frudas24/mousetap/internal/logging"
	"github.com/frudas24/mousetap/internal/mouse"
	"go.uber.org/zap"
)

// Notification is one raw mouse hook notification.
type Notification struct {
	Msg     decoder.Message
	Payload *decoder.Payload
	Scope   decoder.Scope
}

// Result is the outcome of handling one notification.
type Result struct {
	Event   *mouse.Event
	Verdict dispatch.Verdict
}

// Pipeline joins the decoder and a dispatcher. A hook callback calls Handle
// and skips CallNextHookEx when the result says to suppress.
type Pipeline struct {
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

// New returns a pipeline that dispatches through d.
func New(d *dispatch.Dispatcher, logger *zap.Logger) *Pipeline {
	return &Pipeline{dispatcher: d, logger: logging.OrNop(logger).Named("pipeline")}
}

// Handle decodes n and dispatches the event. The only error is a decode
// precondition failure.
func (p *Pipeline) Handle(ctx context.Context, n Notification) (Result, error) {
	ev, err := decoder.Decode(n.Msg, n.Payload, n.Scope)
	if err != nil {
		p.logger.Error("decode rejected notification", zap.Stringer("msg", n.Msg), zap.Error(err))
		return Result{}, err
	}
	v := p.dispatcher.Dispatch(ctx, ev)
	if ce := p.logger.Check(zap.DebugLevel, "notification"); ce != nil {
		ce.Write(
			zap.Stringer("msg", n.Msg),
			zap.Stringer("scope", n.Scope),
			zap.Stringer("button", ev.Button),
			zap.Stringer("kind", ev.Kind()),
			zap.Int16("wheel", ev.WheelDelta),
			zap.Bool("suppress", v.Suppress),
		)
	}
	return Result{Event: ev, Verdict: v}, nil
}

// Dispatcher returns the underlying dispatcher.
func (p *Pipeline) Dispatcher() *dispatch.Dispatcher {
	return p.dispatcher
}

// Package dispatch hands decoded mouse events to consumers and reports
// whether the underlying notification should be suppressed.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/frudas24/mousetap/internal/logging"
	"github.com/frudas24/mousetap/internal/mouse"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Consumer observes decoded events and may mark them handled.
type Consumer interface {
	Consume(ctx context.Context, ev *mouse.Event) error
}

// ConsumerFunc adapts a function literal to the Consumer interface.
type ConsumerFunc func(ctx context.Context, ev *mouse.Event) error

// Consume calls the underlying function.
func (f ConsumerFunc) Consume(ctx context.Context, ev *mouse.Event) error {
	return f(ctx, ev)
}

// Options controls dispatch behaviour.
type Options struct {
	// Parallel runs all consumers concurrently for each event.
	Parallel bool
	// StopOnHandled skips the remaining consumers once an event is handled.
	// Ignored in parallel mode.
	StopOnHandled bool
	Logger        *zap.Logger
}

// Verdict is the outcome of dispatching one event.
type Verdict struct {
	// Suppress is true when the event ended up handled; the hook caller
	// must then not pass the notification on.
	Suppress  bool
	Consumers int
	Errors    int
}

// Stats are cumulative dispatch counters.
type Stats struct {
	Dispatched     uint64 `json:"dispatched"`
	Suppressed     uint64 `json:"suppressed"`
	ConsumerErrors uint64 `json:"consumerErrors"`
}

type entry struct {
	name     string
	consumer Consumer
}

// Dispatcher delivers events to registered consumers.
type Dispatcher struct {
	mu        sync.RWMutex
	consumers []entry
	parallel  bool
	stop      bool
	logger    *zap.Logger

	dispatched atomic.Uint64
	suppressed atomic.Uint64
	errs       atomic.Uint64
}

// New returns a dispatcher with no consumers.
func New(opts Options) *Dispatcher {
	return &Dispatcher{
		parallel: opts.Parallel,
		stop:     opts.StopOnHandled && !opts.Parallel,
		logger:   logging.OrNop(opts.Logger).Named("dispatch"),
	}
}

// Register appends a consumer. Sequential dispatch follows registration order.
func (d *Dispatcher) Register(name string, c Consumer) {
	if c == nil {
		return
	}
	d.mu.Lock()
	d.consumers = append(d.consumers, entry{name: name, consumer: c})
	d.mu.Unlock()
}

// Dispatch delivers ev to the consumers. Consumer errors are logged and
// counted but never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *mouse.Event) Verdict {
	d.mu.RLock()
	consumers := d.consumers
	d.mu.RUnlock()

	var v Verdict
	if d.parallel {
		v = d.runParallel(ctx, consumers, ev)
	} else {
		v = d.runSequential(ctx, consumers, ev)
	}
	v.Suppress = ev.Handled()

	d.dispatched.Add(1)
	if v.Suppress {
		d.suppressed.Add(1)
	}
	d.errs.Add(uint64(v.Errors))
	return v
}

// runSequential invokes consumers in order, honoring StopOnHandled.
func (d *Dispatcher) runSequential(ctx context.Context, consumers []entry, ev *mouse.Event) Verdict {
	var v Verdict
	for _, e := range consumers {
		if d.stop && ev.Handled() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		v.Consumers++
		if err := e.consumer.Consume(ctx, ev); err != nil {
			v.Errors++
			d.logger.Warn("consumer failed", zap.String("consumer", e.name), zap.Error(err))
		}
	}
	return v
}

// runParallel invokes every consumer concurrently and waits for all of them.
// A context that is already done runs none.
func (d *Dispatcher) runParallel(ctx context.Context, consumers []entry, ev *mouse.Event) Verdict {
	if ctx.Err() != nil {
		return Verdict{}
	}
	var (
		g      errgroup.Group
		failed atomic.Int64
	)
	for _, e := range consumers {
		e := e
		g.Go(func() error {
			if err := e.consumer.Consume(ctx, ev); err != nil {
				failed.Add(1)
				d.logger.Warn("consumer failed", zap.String("consumer", e.name), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return Verdict{Consumers: len(consumers), Errors: int(failed.Load())}
}

// Stats returns the cumulative counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched:     d.dispatched.Load(),
		Suppressed:     d.suppressed.Load(),
		ConsumerErrors: d.errs.Load(),
	}
}

// Package testutil provides test doubles shared across packages.
package testutil

import (
	"context"
	"sync"

	"github.com/frudas24/mousetap/internal/dispatch"
	"github.com/frudas24/mousetap/internal/mouse"
)

// Call records a single consumed event.
type Call struct {
	Name       string
	Snapshot   mouse.Snapshot
	SawHandled bool
}

// Recorder implements dispatch.Consumer and records calls for tests.
type Recorder struct {
	mu    sync.Mutex
	name  string
	mark  func(*mouse.Event) bool
	err   error
	calls []Call
}

// Ensure Recorder implements the interface.
var _ dispatch.Consumer = (*Recorder)(nil)

// NewRecorder returns a recorder that never marks events handled.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name}
}

// MarkWhen makes the recorder set the handled flag when fn returns true.
func (r *Recorder) MarkWhen(fn func(*mouse.Event) bool) *Recorder {
	r.mu.Lock()
	r.mark = fn
	r.mu.Unlock()
	return r
}

// FailWith makes every Consume call return err after recording.
func (r *Recorder) FailWith(err error) *Recorder {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	return r
}

// Consume records the event and applies the configured behaviour.
func (r *Recorder) Consume(_ context.Context, ev *mouse.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Name: r.name, Snapshot: ev.Snapshot(), SawHandled: ev.Handled()})
	if r.mark != nil && r.mark(ev) {
		ev.SetHandled()
	}
	return r.err
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

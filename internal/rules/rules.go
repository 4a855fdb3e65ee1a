// Package rules marks mouse events handled according to a YAML rule file.
package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/frudas24/mousetap/internal/dispatch"
	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/frudas24/mousetap/internal/wininput"
	"gopkg.in/yaml.v3"
)

// Action says what a matching rule does with an event.
type Action string

const (
	// ActionSuppress marks the event handled.
	ActionSuppress Action = "suppress"
	// ActionPass stops evaluation and leaves the event untouched.
	ActionPass Action = "pass"
	// ActionRemap injects the same transition on another button and marks
	// the original handled.
	ActionRemap Action = "remap"
)

// ErrNoInjector is returned when a remap rule matches but no injector is set.
var ErrNoInjector = errors.New("remap rule matched without an input injector")

// Rule is one entry of the rule file. Empty match fields match anything.
type Rule struct {
	Name   string `yaml:"name"`
	Button string `yaml:"button,omitempty"`
	Kind   string `yaml:"kind,omitempty"`
	Region *Rect  `yaml:"region,omitempty"`
	Action Action `yaml:"action"`
	// To is the target button of a remap rule.
	To string `yaml:"to,omitempty"`
}

type file struct {
	Rules []Rule `yaml:"rules"`
}

type compiled struct {
	name      string
	button    mouse.Button
	hasButton bool
	kind      mouse.Kind
	hasKind   bool
	region    Rect
	hasRegion bool
	action    Action
	to        mouse.Button
	hits      atomic.Uint64
}

// Set is an ordered, immutable list of rules. The first matching rule wins.
// A press remapped by a rule owns the matching release of its source button,
// whatever that release matches.
type Set struct {
	rules    []*compiled
	injector wininput.Injector

	mu   sync.Mutex
	held map[mouse.Button]heldPress
}

// heldPress is an injected press waiting for the source button's release.
type heldPress struct {
	rule string
	to   mouse.Button
}

// Ensure Set implements the consumer interface.
var _ dispatch.Consumer = (*Set)(nil)

// Load reads a rule file from disk. A missing file yields an empty set.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Set{}, nil
		}
		return nil, err
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse compiles YAML rule data.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	set := &Set{rules: make([]*compiled, 0, len(f.Rules))}
	for i, r := range f.Rules {
		c, err := compile(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, r.Name, err)
		}
		set.rules = append(set.rules, c)
	}
	if err := checkRemapCycles(set.rules); err != nil {
		return nil, err
	}
	return set, nil
}

// checkRemapCycles rejects remaps whose target is itself remapped, since the
// injected input would come straight back through the hook.
func checkRemapCycles(rules []*compiled) error {
	sources := make(map[mouse.Button]string)
	for _, r := range rules {
		if r.action == ActionRemap {
			sources[r.button] = r.name
		}
	}
	for _, r := range rules {
		if r.action != ActionRemap {
			continue
		}
		if other, ok := sources[r.to]; ok {
			return fmt.Errorf("rule %s remaps to %s, which rule %s remaps again", r.name, r.to, other)
		}
	}
	return nil
}

// compile validates a rule and resolves its names.
func compile(r Rule) (*compiled, error) {
	c := &compiled{name: r.Name}
	switch Action(strings.ToLower(string(r.Action))) {
	case ActionSuppress:
		c.action = ActionSuppress
	case ActionPass:
		c.action = ActionPass
	case ActionRemap:
		c.action = ActionRemap
	default:
		return nil, fmt.Errorf("invalid action %q", r.Action)
	}
	if r.Button != "" {
		b, err := mouse.ParseButton(r.Button)
		if err != nil {
			return nil, err
		}
		c.button, c.hasButton = b, true
	}
	if r.Kind != "" {
		k, err := mouse.ParseKind(r.Kind)
		if err != nil {
			return nil, err
		}
		c.kind, c.hasKind = k, true
	}
	if r.Region != nil {
		region := Normalize(*r.Region)
		if region.W <= 0 || region.H <= 0 {
			return nil, errors.New("region must have a non-zero size")
		}
		c.region, c.hasRegion = region, true
	}
	if c.action == ActionRemap {
		if !c.hasButton || c.button == mouse.ButtonNone {
			return nil, errors.New("remap needs a source button")
		}
		to, err := mouse.ParseButton(r.To)
		if err != nil {
			return nil, fmt.Errorf("remap target: %w", err)
		}
		if to == mouse.ButtonNone || to == c.button {
			return nil, fmt.Errorf("invalid remap target %q", r.To)
		}
		c.to = to
	}
	return c, nil
}

// WithInjector sets the injector used by remap rules and returns s.
func (s *Set) WithInjector(inj wininput.Injector) *Set {
	s.injector = inj
	return s
}

// Len returns the number of rules.
func (s *Set) Len() int {
	return len(s.rules)
}

// match returns the first matching compiled rule and counts the hit.
func (s *Set) match(ev *mouse.Event) *compiled {
	for _, r := range s.rules {
		if r.matches(ev) {
			r.hits.Add(1)
			return r
		}
	}
	return nil
}

// Consume applies the first matching rule to ev. A failed remap leaves the
// event unhandled so the original input still reaches the system.
func (s *Set) Consume(_ context.Context, ev *mouse.Event) error {
	if ev.Released {
		if h, ok := s.release(ev.Button); ok {
			return s.inject(ev, h.rule, h.to, false)
		}
	}
	r := s.match(ev)
	if r == nil {
		return nil
	}
	switch r.action {
	case ActionSuppress:
		ev.SetHandled()
	case ActionRemap:
		// A double click arrives in place of the second press.
		if !ev.Pressed && ev.Kind() != mouse.KindDoubleClick {
			// The press went through unchanged, so its release must too.
			return nil
		}
		if err := s.inject(ev, r.name, r.to, true); err != nil {
			return err
		}
		s.press(ev.Button, heldPress{rule: r.name, to: r.to})
	}
	return nil
}

// inject sends one transition on to and marks ev handled on success.
func (s *Set) inject(ev *mouse.Event, rule string, to mouse.Button, down bool) error {
	if s.injector == nil {
		return ErrNoInjector
	}
	if err := s.injector.Button(to, down); err != nil {
		return fmt.Errorf("remap %s: %w", rule, err)
	}
	ev.SetHandled()
	return nil
}

// press records an injected press for source.
func (s *Set) press(source mouse.Button, h heldPress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		s.held = make(map[mouse.Button]heldPress)
	}
	s.held[source] = h
}

// release takes the injected press recorded for source, if any.
func (s *Set) release(source mouse.Button) (heldPress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.held[source]
	if ok {
		delete(s.held, source)
	}
	return h, ok
}

// Hits returns the match count per rule name.
func (s *Set) Hits() map[string]uint64 {
	out := make(map[string]uint64, len(s.rules))
	for _, r := range s.rules {
		out[r.name] += r.hits.Load()
	}
	return out
}

// matches reports whether every configured field matches ev.
func (c *compiled) matches(ev *mouse.Event) bool {
	if c.hasButton && ev.Button != c.button {
		return false
	}
	if c.hasKind && ev.Kind() != c.kind {
		return false
	}
	if c.hasRegion && !Contains(c.region, int(ev.Pos.X), int(ev.Pos.Y)) {
		return false
	}
	return true
}

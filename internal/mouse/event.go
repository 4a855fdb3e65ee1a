// Package mouse defines the decoded mouse event model.
package mouse

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// WheelNotch is the wheel delta reported for one detent of a standard wheel.
const WheelNotch = 120

// ErrUnknownButton is returned when a button name cannot be parsed.
var ErrUnknownButton = errors.New("unknown mouse button")

// Button identifies the mouse button involved in an event.
type Button uint8

const (
	// ButtonNone means no button is involved (move or wheel).
	ButtonNone Button = iota
	// ButtonLeft is the primary button.
	ButtonLeft
	// ButtonRight is the secondary button.
	ButtonRight
	// ButtonMiddle is the wheel button.
	ButtonMiddle
	// ButtonX1 is the first extended button (usually "back").
	ButtonX1
	// ButtonX2 is the second extended button (usually "forward").
	ButtonX2
)

var buttonNames = map[Button]string{
	ButtonNone:   "none",
	ButtonLeft:   "left",
	ButtonRight:  "right",
	ButtonMiddle: "middle",
	ButtonX1:     "x1",
	ButtonX2:     "x2",
}

// String returns the lowercase button name.
func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// ParseButton maps a case-insensitive name back to a Button.
func ParseButton(name string) (Button, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "back", "xbutton1":
		return ButtonX1, nil
	case "forward", "xbutton2":
		return ButtonX2, nil
	}
	for b, n := range buttonNames {
		if n == key {
			return b, nil
		}
	}
	return ButtonNone, fmt.Errorf("%w: %q", ErrUnknownButton, name)
}

// Point is a coordinate pair as reported by the OS.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Fields carries the values an Event is built from.
type Fields struct {
	Button     Button
	Clicks     int
	Pos        Point
	WheelDelta int16
	Pressed    bool
	Released   bool
}

// Event is a decoded mouse notification. All fields are fixed at
// construction; only the handled flag changes afterwards.
type Event struct {
	Button     Button
	Clicks     int
	Pos        Point
	WheelDelta int16
	Pressed    bool
	Released   bool

	handled atomic.Bool
}

// New returns an unhandled event built from f.
func New(f Fields) *Event {
	return &Event{
		Button:     f.Button,
		Clicks:     f.Clicks,
		Pos:        f.Pos,
		WheelDelta: f.WheelDelta,
		Pressed:    f.Pressed,
		Released:   f.Released,
	}
}

// Handled reports whether any consumer marked the event as handled.
func (e *Event) Handled() bool {
	return e.handled.Load()
}

// SetHandled marks the event as handled. Once set the flag stays set;
// concurrent calls are safe.
func (e *Event) SetHandled() {
	e.handled.Store(true)
}

// WheelScrolled reports whether the event carries a wheel movement.
func (e *Event) WheelScrolled() bool {
	return e.WheelDelta != 0
}

// Clicked reports whether the event completes at least one click.
func (e *Event) Clicked() bool {
	return e.Clicks > 0
}

// Notches returns the wheel delta in detents; negative values scroll toward the user.
func (e *Event) Notches() float64 {
	return float64(e.WheelDelta) / WheelNotch
}

// Kind returns the derived category of the event.
func (e *Event) Kind() Kind {
	switch {
	case e.WheelDelta != 0:
		return KindWheel
	case e.Clicks == 2:
		return KindDoubleClick
	case e.Pressed:
		return KindPress
	case e.Released:
		return KindRelease
	default:
		return KindMove
	}
}

// Validate checks the structural invariants of a decoded event.
func (e *Event) Validate() error {
	if e.Pressed && e.Released {
		return errors.New("event is both pressed and released")
	}
	if e.Clicks < 0 || e.Clicks > 2 {
		return fmt.Errorf("click count %d out of range", e.Clicks)
	}
	if e.WheelDelta != 0 {
		if e.Button != ButtonNone {
			return fmt.Errorf("wheel event carries button %s", e.Button)
		}
		if e.Clicks != 0 || e.Pressed || e.Released {
			return errors.New("wheel event carries click or press state")
		}
	}
	if e.Clicks == 2 && (e.Pressed || e.Released) {
		return errors.New("double click carries press state")
	}
	return nil
}

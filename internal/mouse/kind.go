package mouse

import (
	"fmt"
	"strings"
)

// Kind classifies an event by what happened.
type Kind uint8

const (
	// KindMove covers moves and any notification that is not a button or wheel change.
	KindMove Kind = iota
	// KindPress is a button-down notification.
	KindPress
	// KindRelease is a button-up notification.
	KindRelease
	// KindDoubleClick is a double-click notification.
	KindDoubleClick
	// KindWheel is a wheel scroll.
	KindWheel
)

var kindNames = [...]string{"move", "press", "release", "dblclick", "wheel"}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a case-insensitive name back to a Kind.
func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "doubleclick" || key == "double_click" {
		return KindDoubleClick, nil
	}
	for i, n := range kindNames {
		if n == key {
			return Kind(i), nil
		}
	}
	return KindMove, fmt.Errorf("unknown event kind %q", name)
}

// Snapshot is a plain copy of an event suitable for encoding.
type Snapshot struct {
	Kind       string  `json:"kind"`
	Button     string  `json:"button"`
	Clicks     int     `json:"clicks"`
	Pos        Point   `json:"pos"`
	WheelDelta int16   `json:"wheelDelta,omitempty"`
	Pressed    bool    `json:"pressed,omitempty"`
	Released   bool    `json:"released,omitempty"`
	Handled    bool    `json:"handled"`
	Monitor    int     `json:"monitor,omitempty"`
	Notches    float64 `json:"notches,omitempty"`
}

// Snapshot captures the event, including the handled flag at call time.
func (e *Event) Snapshot() Snapshot {
	return Snapshot{
		Kind:       e.Kind().String(),
		Button:     e.Button.String(),
		Clicks:     e.Clicks,
		Pos:        e.Pos,
		WheelDelta: e.WheelDelta,
		Pressed:    e.Pressed,
		Released:   e.Released,
		Handled:    e.Handled(),
		Notches:    e.Notches(),
	}
}

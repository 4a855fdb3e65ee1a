// Package monitor describes display geometry and maps pointer positions to displays.
package monitor

import (
	"errors"
	"sync"
)

// ErrUnsupported is returned by ListMonitors where enumeration is unavailable.
var ErrUnsupported = errors.New("monitor enumeration is not supported on this platform")

// Monitor describes a display and its bounds in virtual-desktop pixels.
type Monitor struct {
	Index   int  `json:"index"`
	X       int  `json:"x"`
	Y       int  `json:"y"`
	W       int  `json:"w"`
	H       int  `json:"h"`
	Primary bool `json:"primary,omitempty"`
}

// Contains reports whether (x, y) lies on the monitor. The right and bottom
// edges belong to the neighbour.
func (m Monitor) Contains(x, y int) bool {
	return x >= m.X && y >= m.Y && x < m.X+m.W && y < m.Y+m.H
}

// Locate returns the 1-based index of the monitor containing (x, y), or 0
// when the position is off every monitor.
func Locate(list []Monitor, x, y int) int {
	for _, m := range list {
		if m.Contains(x, y) {
			return m.Index
		}
	}
	return 0
}

// Layout is a cached monitor list shared by feed consumers.
type Layout struct {
	mu   sync.RWMutex
	list []Monitor
}

// NewLayout returns a layout holding list.
func NewLayout(list []Monitor) *Layout {
	return &Layout{list: append([]Monitor(nil), list...)}
}

// Refresh replaces the cached list with the result of lister.
func (l *Layout) Refresh(lister func() ([]Monitor, error)) error {
	list, err := lister()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.list = list
	l.mu.Unlock()
	return nil
}

// Monitors returns a copy of the cached list.
func (l *Layout) Monitors() []Monitor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Monitor(nil), l.list...)
}

// Locate returns the index of the cached monitor containing (x, y). A nil
// layout locates nothing.
func (l *Layout) Locate(x, y int32) int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Locate(l.list, int(x), int(y))
}

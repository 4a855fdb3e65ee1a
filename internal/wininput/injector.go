// Package wininput injects synthetic mouse input.
package wininput

import (
	"errors"
	"fmt"

	"github.com/frudas24/mousetap/internal/mouse"
)

// ErrUnsupported indicates input injection is not available on this platform.
var ErrUnsupported = errors.New("input injection is only supported on Windows")

// Injector sends synthetic button transitions.
type Injector interface {
	Button(b mouse.Button, down bool) error
}

// SendInput flag and data values for MOUSEINPUT.
const (
	eventLeftDown   uint32 = 0x0002
	eventLeftUp     uint32 = 0x0004
	eventRightDown  uint32 = 0x0008
	eventRightUp    uint32 = 0x0010
	eventMiddleDown uint32 = 0x0020
	eventMiddleUp   uint32 = 0x0040
	eventXDown      uint32 = 0x0080
	eventXUp        uint32 = 0x0100

	xButton1Data uint32 = 0x0001
	xButton2Data uint32 = 0x0002
)

// buttonInput returns the MOUSEINPUT flags and data word for a transition.
func buttonInput(b mouse.Button, down bool) (flags, data uint32, err error) {
	pick := func(d, u uint32) uint32 {
		if down {
			return d
		}
		return u
	}
	switch b {
	case mouse.ButtonLeft:
		return pick(eventLeftDown, eventLeftUp), 0, nil
	case mouse.ButtonRight:
		return pick(eventRightDown, eventRightUp), 0, nil
	case mouse.ButtonMiddle:
		return pick(eventMiddleDown, eventMiddleUp), 0, nil
	case mouse.ButtonX1:
		return pick(eventXDown, eventXUp), xButton1Data, nil
	case mouse.ButtonX2:
		return pick(eventXDown, eventXUp), xButton2Data, nil
	default:
		return 0, 0, fmt.Errorf("cannot inject button %s", b)
	}
}

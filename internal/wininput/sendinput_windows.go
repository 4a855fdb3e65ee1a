//go:build windows

package wininput

import (
	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/lxn/win"
)

type winInjector struct{}

// New returns an injector backed by SendInput.
func New() (Injector, error) {
	return winInjector{}, nil
}

// Button presses or releases b at the current cursor position.
func (winInjector) Button(b mouse.Button, down bool) error {
	flags, data, err := buttonInput(b, down)
	if err != nil {
		return err
	}
	return sendMouseInput(flags, data)
}

// sendMouseInput dispatches a single mouse input event.
func sendMouseInput(flags, data uint32) error {
	input := win.INPUT{
		Type: win.INPUT_MOUSE,
		Mi: win.MOUSEINPUT{
			MouseData: data,
			DwFlags:   flags,
		},
	}
	if win.SendInput(1, &input, int32(win.SizeofINPUT)) != 1 {
		return win.GetLastError()
	}
	return nil
}

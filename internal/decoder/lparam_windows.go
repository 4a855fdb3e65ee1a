//go:build windows

package decoder

import (
	"unsafe"

	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/lxn/win"
)

// msllHookStruct mirrors MSLLHOOKSTRUCT, delivered to WH_MOUSE_LL hooks.
type msllHookStruct struct {
	Pt          win.POINT
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// mouseHookStruct mirrors MOUSEHOOKSTRUCT, delivered to WH_MOUSE hooks.
type mouseHookStruct struct {
	Pt           win.POINT
	Hwnd         win.HWND
	WHitTestCode uint32
	DwExtraInfo  uintptr
}

// PayloadFromLParam copies the hook structure lParam points to. The pointer
// is only valid for the duration of the hook callback.
func PayloadFromLParam(lParam uintptr, scope Scope) (*Payload, error) {
	if lParam == 0 {
		return nil, ErrNilPayload
	}
	if scope == ScopeSystem {
		s := (*msllHookStruct)(unsafe.Pointer(lParam))
		return &Payload{
			Pt:        mouse.Point{X: s.Pt.X, Y: s.Pt.Y},
			MouseData: s.MouseData,
			ExtraInfo: uint32(s.DwExtraInfo),
			Flags:     s.Flags,
			Time:      s.Time,
		}, nil
	}
	s := (*mouseHookStruct)(unsafe.Pointer(lParam))
	return &Payload{
		Pt:        mouse.Point{X: s.Pt.X, Y: s.Pt.Y},
		ExtraInfo: uint32(s.DwExtraInfo),
		Window:    uintptr(s.Hwnd),
		HitTest:   s.WHitTestCode,
	}, nil
}

package decoder

import "github.com/frudas24/mousetap/internal/mouse"

// buttonMessages maps plain button messages to their button and transition.
var buttonMessages = map[Message]struct {
	button     mouse.Button
	transition transition
}{
	MsgLButtonDown:   {mouse.ButtonLeft, down},
	MsgLButtonUp:     {mouse.ButtonLeft, up},
	MsgLButtonDblClk: {mouse.ButtonLeft, dblclk},
	MsgRButtonDown:   {mouse.ButtonRight, down},
	MsgRButtonUp:     {mouse.ButtonRight, up},
	MsgRButtonDblClk: {mouse.ButtonRight, dblclk},
	MsgMButtonDown:   {mouse.ButtonMiddle, down},
	MsgMButtonUp:     {mouse.ButtonMiddle, up},
	MsgMButtonDblClk: {mouse.ButtonMiddle, dblclk},
}

type transition uint8

const (
	down transition = iota + 1
	up
	dblclk
)

// apply fills the click count and press flags for t.
func (t transition) apply(f *mouse.Fields) {
	switch t {
	case down:
		f.Pressed = true
	case up:
		f.Clicks = 1
		f.Released = true
	case dblclk:
		f.Clicks = 2
	}
}

// Decode converts a hook notification into an event. Unknown messages yield a
// buttonless event at the payload position; the only error is a nil payload.
func Decode(msg Message, p *Payload, scope Scope) (*mouse.Event, error) {
	if p == nil {
		return nil, ErrNilPayload
	}
	aux := p.Auxiliary(scope)
	f := mouse.Fields{Pos: p.Pt}

	if b, ok := buttonMessages[msg]; ok {
		f.Button = b.button
		b.transition.apply(&f)
		return mouse.New(f), nil
	}

	switch msg {
	case MsgMouseWheel:
		f.WheelDelta = WheelDelta(aux)
	case MsgXButtonDown:
		f.Button = XButton(aux)
		down.apply(&f)
	case MsgXButtonUp:
		f.Button = XButton(aux)
		up.apply(&f)
	case MsgXButtonDblClk:
		f.Button = XButton(aux)
		dblclk.apply(&f)
	}
	return mouse.New(f), nil
}

// WheelDelta extracts the signed wheel movement from the high word of aux.
func WheelDelta(aux uint32) int16 {
	return int16(uint16(aux >> 16))
}

// XButton identifies the extended button packed in aux. Only the exact
// XBUTTON1 word selects X1; every other value, zero included, is X2.
func XButton(aux uint32) mouse.Button {
	if aux == xButton1Word {
		return mouse.ButtonX1
	}
	return mouse.ButtonX2
}

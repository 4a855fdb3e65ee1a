package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/frudas24/mousetap/internal/mouse"
)

var (
	// ErrNilPayload is returned when the hook hands over no payload.
	ErrNilPayload = errors.New("nil mouse hook payload")
	// ErrShortPayload is returned when raw payload bytes are truncated.
	ErrShortPayload = errors.New("short mouse hook payload")
)

// PayloadSize is the size in bytes of both native hook structures on 64-bit Windows.
const PayloadSize = 32

// Payload is the fixed-layout structure passed with a mouse hook notification.
// MouseData is only filled by system-wide hooks and ExtraInfo by process-local
// ones; Auxiliary picks the right one.
type Payload struct {
	Pt        mouse.Point
	MouseData uint32
	ExtraInfo uint32
	Flags     uint32
	Time      uint32
	Window    uintptr
	HitTest   uint32
}

// Auxiliary returns the 32-bit field carrying wheel and X-button data for scope.
func (p *Payload) Auxiliary(scope Scope) uint32 {
	if scope == ScopeSystem {
		return p.MouseData
	}
	return p.ExtraInfo
}

// ReadPayload parses the little-endian native layout used by scope:
//
//	system:  pt.x@0 pt.y@4 mouseData@8 flags@12 time@16 dwExtraInfo@24
//	process: pt.x@0 pt.y@4 hwnd@8 wHitTestCode@16 dwExtraInfo@24
func ReadPayload(raw []byte, scope Scope) (*Payload, error) {
	if len(raw) < PayloadSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortPayload, len(raw), PayloadSize)
	}
	le := binary.LittleEndian
	p := &Payload{
		Pt: mouse.Point{
			X: int32(le.Uint32(raw[0:4])),
			Y: int32(le.Uint32(raw[4:8])),
		},
		ExtraInfo: uint32(le.Uint64(raw[24:32])),
	}
	if scope == ScopeSystem {
		p.MouseData = le.Uint32(raw[8:12])
		p.Flags = le.Uint32(raw[12:16])
		p.Time = le.Uint32(raw[16:20])
		return p, nil
	}
	p.Window = uintptr(le.Uint64(raw[8:16]))
	p.HitTest = le.Uint32(raw[16:20])
	return p, nil
}

// AppendPayload encodes p in the native layout of scope. It is the inverse of
// ReadPayload and is used to build fixtures and recordings.
func AppendPayload(dst []byte, p *Payload, scope Scope) []byte {
	var buf [PayloadSize]byte
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], uint32(p.Pt.X))
	le.PutUint32(buf[4:8], uint32(p.Pt.Y))
	if scope == ScopeSystem {
		le.PutUint32(buf[8:12], p.MouseData)
		le.PutUint32(buf[12:16], p.Flags)
		le.PutUint32(buf[16:20], p.Time)
	} else {
		le.PutUint64(buf[8:16], uint64(p.Window))
		le.PutUint32(buf[16:20], p.HitTest)
	}
	le.PutUint64(buf[24:32], uint64(p.ExtraInfo))
	return append(dst, buf[:]...)
}

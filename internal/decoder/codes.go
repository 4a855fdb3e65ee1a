// Package decoder turns raw mouse hook notifications into mouse events.
package decoder

import (
	"fmt"
	"strconv"
	"strings"
)

// Message is a window message code delivered to a mouse hook.
type Message uint32

// Mouse message codes as defined by the Windows SDK.
const (
	MsgMouseMove     Message = 0x0200
	MsgLButtonDown   Message = 0x0201
	MsgLButtonUp     Message = 0x0202
	MsgLButtonDblClk Message = 0x0203
	MsgRButtonDown   Message = 0x0204
	MsgRButtonUp     Message = 0x0205
	MsgRButtonDblClk Message = 0x0206
	MsgMButtonDown   Message = 0x0207
	MsgMButtonUp     Message = 0x0208
	MsgMButtonDblClk Message = 0x0209
	MsgMouseWheel    Message = 0x020A
	MsgXButtonDown   Message = 0x020B
	MsgXButtonUp     Message = 0x020C
	MsgXButtonDblClk Message = 0x020D
)

// xButton1Word is the packed auxiliary value identifying the first X button.
const xButton1Word uint32 = 0x00010000

var messageNames = map[Message]string{
	MsgMouseMove:     "WM_MOUSEMOVE",
	MsgLButtonDown:   "WM_LBUTTONDOWN",
	MsgLButtonUp:     "WM_LBUTTONUP",
	MsgLButtonDblClk: "WM_LBUTTONDBLCLK",
	MsgRButtonDown:   "WM_RBUTTONDOWN",
	MsgRButtonUp:     "WM_RBUTTONUP",
	MsgRButtonDblClk: "WM_RBUTTONDBLCLK",
	MsgMButtonDown:   "WM_MBUTTONDOWN",
	MsgMButtonUp:     "WM_MBUTTONUP",
	MsgMButtonDblClk: "WM_MBUTTONDBLCLK",
	MsgMouseWheel:    "WM_MOUSEWHEEL",
	MsgXButtonDown:   "WM_XBUTTONDOWN",
	MsgXButtonUp:     "WM_XBUTTONUP",
	MsgXButtonDblClk: "WM_XBUTTONDBLCLK",
}

var nameToMessage = func() map[string]Message {
	out := make(map[string]Message, len(messageNames))
	for code, name := range messageNames {
		out[name] = code
	}
	return out
}()

// String returns the SDK name of the message, or its hex value when unknown.
func (m Message) String() string {
	if name, ok := messageNames[m]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint32(m))
}

// ParseMessage accepts an SDK name (with or without the WM_ prefix), a decimal
// value or a 0x-prefixed hex value.
func ParseMessage(raw string) (Message, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return 0, fmt.Errorf("empty message code")
	}
	if code, ok := nameToMessage[value]; ok {
		return code, nil
	}
	if code, ok := nameToMessage["WM_"+value]; ok {
		return code, nil
	}
	n, err := strconv.ParseUint(strings.ToLower(value), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid message code %q: %w", raw, err)
	}
	return Message(n), nil
}

// Scope says whether the hook observes one process or the whole desktop.
type Scope uint8

const (
	// ScopeProcess is a thread or process-local mouse hook.
	ScopeProcess Scope = iota
	// ScopeSystem is a system-wide low-level mouse hook.
	ScopeSystem
)

// String returns "process" or "system".
func (s Scope) String() string {
	if s == ScopeSystem {
		return "system"
	}
	return "process"
}

// ParseScope maps "system"/"global" and "process"/"local" to a Scope.
func ParseScope(raw string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "system", "global", "ll":
		return ScopeSystem, nil
	case "process", "local", "":
		return ScopeProcess, nil
	default:
		return ScopeProcess, fmt.Errorf("invalid scope %q", raw)
	}
}

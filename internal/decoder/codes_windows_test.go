//go:build windows

package decoder

import (
	"testing"
	"unsafe"

	"github.com/lxn/win"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMessageCodes_MatchSDK verifies the portable constants match lxn/win.
func TestMessageCodes_MatchSDK(t *testing.T) {
	pairs := map[Message]uint32{
		MsgMouseMove:     win.WM_MOUSEMOVE,
		MsgLButtonDown:   win.WM_LBUTTONDOWN,
		MsgLButtonUp:     win.WM_LBUTTONUP,
		MsgLButtonDblClk: win.WM_LBUTTONDBLCLK,
		MsgRButtonDown:   win.WM_RBUTTONDOWN,
		MsgRButtonUp:     win.WM_RBUTTONUP,
		MsgRButtonDblClk: win.WM_RBUTTONDBLCLK,
		MsgMButtonDown:   win.WM_MBUTTONDOWN,
		MsgMButtonUp:     win.WM_MBUTTONUP,
		MsgMButtonDblClk: win.WM_MBUTTONDBLCLK,
		MsgMouseWheel:    win.WM_MOUSEWHEEL,
		MsgXButtonDown:   win.WM_XBUTTONDOWN,
		MsgXButtonUp:     win.WM_XBUTTONUP,
	}
	for ours, sdk := range pairs {
		assert.Equal(t, sdk, uint32(ours), ours.String())
	}
}

// TestPayloadFromLParam_MatchesReadPayload verifies the pointer reader agrees with the byte reader.
func TestPayloadFromLParam_MatchesReadPayload(t *testing.T) {
	native := msllHookStruct{
		Pt:          win.POINT{X: 11, Y: 22},
		MouseData:   0x00010000,
		Flags:       1,
		Time:        99,
		DwExtraInfo: 7,
	}
	require.Equal(t, uintptr(PayloadSize), unsafe.Sizeof(native))

	got, err := PayloadFromLParam(uintptr(unsafe.Pointer(&native)), ScopeSystem)
	require.NoError(t, err)

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&native)), PayloadSize)
	want, err := ReadPayload(raw, ScopeSystem)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = PayloadFromLParam(0, ScopeProcess)
	assert.ErrorIs(t, err, ErrNilPayload)
}

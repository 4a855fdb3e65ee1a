//go:build windows

package wininput

import (
	"testing"

	"github.com/lxn/win"
	"github.com/stretchr/testify/assert"
)

// TestEventFlags_MatchSDK verifies the portable flags against the SDK values.
func TestEventFlags_MatchSDK(t *testing.T) {
	assert.Equal(t, uint32(win.MOUSEEVENTF_LEFTDOWN), eventLeftDown)
	assert.Equal(t, uint32(win.MOUSEEVENTF_LEFTUP), eventLeftUp)
}

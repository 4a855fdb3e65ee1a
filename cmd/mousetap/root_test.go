package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// TestDecode_Wheel verifies the decode command prints the signed wheel delta.
func TestDecode_Wheel(t *testing.T) {
	out, err := run(t, "decode", "WM_MOUSEWHEEL", "0xFF880000", "--x=5", "--y=-3")
	require.NoError(t, err)

	var got decodeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "WM_MOUSEWHEEL", got.Msg)
	assert.Equal(t, "system", got.Scope)
	assert.Equal(t, "wheel", got.Event.Kind)
	assert.Equal(t, int16(-120), got.Event.WheelDelta)
	assert.Equal(t, mouse.Point{X: 5, Y: -3}, got.Event.Pos)
}

// TestDecode_ProcessScopeUsesExtra verifies the process scope reads the extra word.
func TestDecode_ProcessScopeUsesExtra(t *testing.T) {
	out, err := run(t, "decode", "xbuttonup", "65536", "--scope", "process", "--extra", "65536")
	require.NoError(t, err)

	var got decodeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "x1", got.Event.Button)
	assert.Equal(t, "release", got.Event.Kind)

	out, err = run(t, "decode", "xbuttonup", "65536", "--scope", "process")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "x2", got.Event.Button)
}

// TestDecode_BadInput verifies argument errors are returned.
func TestDecode_BadInput(t *testing.T) {
	_, err := run(t, "decode", "WM_NOPE")
	assert.Error(t, err)
	_, err = run(t, "decode", "513", "zz")
	assert.Error(t, err)
	_, err = run(t, "decode", "513", "--scope", "desktop")
	assert.Error(t, err)
}

// TestReplay_Summary verifies the replay command applies rules and summarizes.
func TestReplay_Summary(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("rules:\n  - name: eat-back\n    button: back\n    action: suppress\n"), 0o600))
	logPath := filepath.Join(dir, "session.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join([]string{
		`{"t":0,"msg":"WM_MOUSEMOVE","scope":"system","x":1,"y":1}`,
		`{"t":4,"msg":"WM_XBUTTONDOWN","scope":"system","mouseData":65536}`,
		`{"t":9,"msg":"WM_XBUTTONDOWN","scope":"system","mouseData":131072}`,
		`{"t":12,"msg":"WM_LBUTTONDOWN","scope":"sideways"}`,
	}, "\n")), 0o600))

	out, err := run(t, "replay", logPath, "--rules", rulesPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "suppress=true")
	assert.Contains(t, lines[2], "suppress=false")
	assert.Equal(t, "events=3 suppressed=1 skipped=1", lines[3])
}

// TestReplay_MissingFile verifies a missing recording is an error.
func TestReplay_MissingFile(t *testing.T) {
	_, err := run(t, "replay", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

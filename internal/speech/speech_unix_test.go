// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package speech

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellEngine builds an ExecEngine that runs script under sh with the
// utterance on stdin.
func shellEngine(t *testing.T, script string) *ExecEngine {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	spec := engineSpec{
		name:   "test",
		binary: "sh",
		args:   func(Options, string) []string { return []string{"-c", script} },
		stdin:  true,
	}
	return newExecEngine(spec, sh, Options{})
}

func TestExecEngine_SpeaksNormalizedText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken.txt")
	engine := shellEngine(t, "cat > "+out)

	require.NoError(t, engine.Speak("I hear you.\nTake a breath."))
	engine.Wait()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "I hear you. Take a breath.", string(data))
	assert.False(t, engine.Speaking())
}

func TestExecEngine_CancelStopsPlayback(t *testing.T) {
	engine := shellEngine(t, "sleep 30")

	require.NoError(t, engine.Speak("long reply"))
	assert.True(t, engine.Speaking())

	start := time.Now()
	engine.Cancel()
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, engine.Speaking())
}

func TestExecEngine_SpeakReplacesCurrent(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken.txt")
	engine := shellEngine(t, "cat > "+out+"; sleep 30")

	require.NoError(t, engine.Speak("first"))
	require.NoError(t, engine.Speak("second"))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && string(data) == "second"
	}, 5*time.Second, 20*time.Millisecond)

	engine.Cancel()
	assert.False(t, engine.Speaking())
}

func TestExecEngine_EmptyTextOnlyCancels(t *testing.T) {
	engine := shellEngine(t, "sleep 30")

	require.NoError(t, engine.Speak("playing"))
	require.NoError(t, engine.Speak("\n"))
	assert.False(t, engine.Speaking())
}

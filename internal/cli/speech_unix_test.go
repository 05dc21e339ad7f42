// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/chat"
)

// fakeEspeak puts an espeak-ng on PATH that appends its stdin to a file.
func fakeEspeak(t *testing.T) string {
	t.Helper()
	bin := t.TempDir()
	out := filepath.Join(bin, "spoken.txt")
	script := "#!/bin/sh\ncat >> '" + out + "'\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "espeak-ng"), []byte(script), 0755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	return out
}

func TestStartChat_SpeechCanBeEnabledLater(t *testing.T) {
	dir := isolate(t)
	t.Setenv("COMPANION_SPEECH", "")
	spoken := fakeEspeak(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[speech]\nenabled = false\n"), 0600))

	cfg := config.Default()
	cfg.Speech.Enabled = false
	cfg.Speech.Engine = "espeak-ng"
	app := &App{Config: cfg, Logger: zap.NewNop(), configPath: path}

	screen := chat.NewScreen()
	defer screen.Close()
	sess, err := app.startChat(context.Background(), screen)
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, "espeak-ng", sess.speaker.Name())
	assert.True(t, sess.controller.Muted())

	sess.controller.Speak("not yet")

	require.NoError(t, os.WriteFile(path, []byte("[speech]\nenabled = true\nengine = \"espeak-ng\"\n"), 0600))
	require.Eventually(t, func() bool {
		return screen.Snapshot().Status.Text == "Settings reloaded."
	}, 5*time.Second, 20*time.Millisecond)
	assert.False(t, sess.controller.Muted())

	sess.controller.Speak("now you hear me")
	if waiter, ok := sess.speaker.(interface{ Wait() }); ok {
		waiter.Wait()
	}

	data, err := os.ReadFile(spoken)
	require.NoError(t, err)
	assert.Equal(t, "now you hear me", strings.TrimSpace(string(data)))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reload struct {
	cfg *Config
	err error
}

func startWatch(t *testing.T, path string) <-chan reload {
	t.Helper()
	ch := make(chan reload, 8)
	w, err := Watch(context.Background(), path, 100*time.Millisecond, func(cfg *Config, err error) {
		ch <- reload{cfg: cfg, err: err}
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return ch
}

func nextReload(t *testing.T, ch <-chan reload) reload {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the config file changed")
		return reload{}
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[speech]\nenabled = true\n"), 0600))

	ch := startWatch(t, path)
	require.NoError(t, os.WriteFile(path, []byte("[speech]\nenabled = false\n"), 0600))

	r := nextReload(t, ch)
	require.NoError(t, r.err)
	assert.False(t, r.cfg.Speech.Enabled)
}

func TestWatch_ReportsBrokenFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[speech]\n"), 0600))

	ch := startWatch(t, path)
	require.NoError(t, os.WriteFile(path, []byte("[speech\nenabled = "), 0600))

	r := nextReload(t, ch)
	assert.Error(t, r.err)
	assert.Nil(t, r.cfg)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0600))

	ch := startWatch(t, path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session"), []byte("x"), 0600))

	select {
	case r := <-ch:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatch_CloseStopsCallbacks(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0600))

	called := make(chan struct{}, 1)
	w, err := Watch(context.Background(), path, 100*time.Millisecond, func(*Config, error) {
		called <- struct{}{}
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, os.WriteFile(path, []byte("[ui]\n"), 0600))
	select {
	case <-called:
		t.Fatal("callback after Close")
	case <-time.After(400 * time.Millisecond):
	}
}

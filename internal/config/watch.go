// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce groups the burst of events an editor save produces.
const DefaultWatchDebounce = 250 * time.Millisecond

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config, error)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// Watch starts watching path. onChange receives the reloaded config, or the
// load error, once per burst of edits. The parent directory is watched so
// editors that save by renaming a temp file are still seen.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*Config, error)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	path = filepath.Clean(path)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		watcher:  fw,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.run(ctx)
	return w, nil
}

// Close stops watching and waits for the event loop to exit. A reload
// already scheduled is dropped.
func (w *Watcher) Close() error {
	w.cancel()
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule(ctx)
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.onChange(LoadFromPath(w.path))
	})
}

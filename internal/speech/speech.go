// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// ENGINE INTERFACE
// =============================================================================

// Engine speaks text aloud.
type Engine interface {
	// Speak stops any current utterance and starts speaking text.
	// It returns once playback has started.
	Speak(text string) error
	// Cancel stops the current utterance, if any.
	Cancel()
	// Name identifies the engine ("espeak-ng", "none", ...).
	Name() string
}

// ErrNoEngine is returned when no supported speech program is installed.
var ErrNoEngine = errors.New("no speech engine found")

// Options configures engine selection.
type Options struct {
	// Engine is "auto", "none" or a specific engine name.
	Engine string
	// Voice is passed to the engine when set.
	Voice string
	// Rate is words per minute; 0 keeps the engine default.
	Rate int
	// Logger receives playback diagnostics.
	Logger *zap.Logger
}

// New returns the engine selected by opts. "auto" picks the first installed
// engine and falls back to Null when none is found.
func New(opts Options) (Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	name := strings.ToLower(strings.TrimSpace(opts.Engine))
	switch name {
	case "none":
		return Null{}, nil
	case "", "auto":
		spec, path, ok := detect()
		if !ok {
			opts.Logger.Info("no speech engine installed; speech disabled")
			return Null{}, nil
		}
		return newExecEngine(spec, path, opts), nil
	}

	spec, ok := lookupSpec(name)
	if !ok {
		return nil, fmt.Errorf("speech engine %q is not supported on this platform", opts.Engine)
	}
	path, err := exec.LookPath(spec.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not in PATH", ErrNoEngine, spec.binary)
	}
	return newExecEngine(spec, path, opts), nil
}

// Available lists the installed engine names in preference order.
func Available() []string {
	var names []string
	for _, spec := range platformSpecs() {
		if _, err := exec.LookPath(spec.binary); err == nil {
			names = append(names, spec.name)
		}
	}
	return names
}

// Normalize prepares text for an engine: compatibility characters are
// folded (ligatures, full-width forms) and line breaks become spaces.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}

// =============================================================================
// ENGINE SPECS
// =============================================================================

// engineSpec describes how to drive one speech program.
type engineSpec struct {
	name   string
	binary string
	// args builds the argument list. Text is appended by the builder when
	// the program does not read stdin.
	args func(opts Options, text string) []string
	// stdin feeds the text on standard input.
	stdin bool
	// stopArgs, when set, is run after killing the process to silence a
	// speech daemon that outlives its client.
	stopArgs []string
}

func lookupSpec(name string) (engineSpec, bool) {
	for _, spec := range platformSpecs() {
		if spec.name == name {
			return spec, true
		}
	}
	return engineSpec{}, false
}

func detect() (engineSpec, string, bool) {
	for _, spec := range platformSpecs() {
		if path, err := exec.LookPath(spec.binary); err == nil {
			return spec, path, true
		}
	}
	return engineSpec{}, "", false
}

func espeakArgs(opts Options, _ string) []string {
	var args []string
	if opts.Voice != "" {
		args = append(args, "-v", opts.Voice)
	}
	if opts.Rate > 0 {
		args = append(args, "-s", fmt.Sprint(opts.Rate))
	}
	return args
}

func spdSayArgs(opts Options, text string) []string {
	args := []string{"-w"}
	if opts.Voice != "" {
		args = append(args, "-y", opts.Voice)
	}
	return append(args, "--", text)
}

func sayArgs(opts Options, _ string) []string {
	var args []string
	if opts.Voice != "" {
		args = append(args, "-v", opts.Voice)
	}
	if opts.Rate > 0 {
		args = append(args, "-r", fmt.Sprint(opts.Rate))
	}
	return args
}

// =============================================================================
// EXEC ENGINE
// =============================================================================

// ExecEngine runs one speech process per utterance.
type ExecEngine struct {
	spec   engineSpec
	path   string
	opts   Options
	logger *zap.Logger

	speakMu sync.Mutex // serialises Speak so cancel-then-start is atomic

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func newExecEngine(spec engineSpec, path string, opts Options) *ExecEngine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecEngine{
		spec:   spec,
		path:   path,
		opts:   opts,
		logger: logger.With(zap.String("engine", spec.name)),
	}
}

// Name returns the engine name.
func (e *ExecEngine) Name() string {
	return e.spec.name
}

// Speak stops the current utterance and starts a new one. Empty text
// only stops.
func (e *ExecEngine) Speak(text string) error {
	e.speakMu.Lock()
	defer e.speakMu.Unlock()

	e.Cancel()

	text = Normalize(text)
	if text == "" {
		return nil
	}

	cmd := exec.Command(e.path, e.spec.args(e.opts, text)...)
	if e.spec.stdin {
		cmd.Stdin = strings.NewReader(text)
	}
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.spec.name, err)
	}

	u := &utterance{cmd: cmd, done: make(chan struct{})}
	e.mu.Lock()
	e.current = u
	e.mu.Unlock()

	go func() {
		err := cmd.Wait()
		e.mu.Lock()
		if e.current == u {
			e.current = nil
		}
		e.mu.Unlock()
		close(u.done)
		if err != nil {
			e.logger.Debug("speech process ended", zap.Error(err))
		}
	}()

	e.logger.Debug("speaking", zap.Int("chars", len(text)))
	return nil
}

// Cancel kills the current utterance and waits for its process to exit.
func (e *ExecEngine) Cancel() {
	e.mu.Lock()
	u := e.current
	e.current = nil
	e.mu.Unlock()

	if u == nil {
		return
	}
	killProcess(u.cmd)
	<-u.done

	if len(e.spec.stopArgs) > 0 {
		if err := exec.Command(e.path, e.spec.stopArgs...).Run(); err != nil {
			e.logger.Debug("speech stop command failed", zap.Error(err))
		}
	}
}

// Wait blocks until the current utterance finishes.
func (e *ExecEngine) Wait() {
	e.mu.Lock()
	u := e.current
	e.mu.Unlock()
	if u != nil {
		<-u.done
	}
}

// Speaking reports whether an utterance is playing.
func (e *ExecEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// =============================================================================
// NULL ENGINE
// =============================================================================

// Null is the silent engine used when speech is off or unavailable.
type Null struct{}

func (Null) Speak(string) error { return nil }
func (Null) Cancel()            {}
func (Null) Name() string       { return "none" }

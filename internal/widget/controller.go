// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HeadupandFace/cbt-companion-app/internal/api"
	"github.com/HeadupandFace/cbt-companion-app/internal/model"
)

const (
	// EmptyInputStatus is shown when the user sends a blank message.
	EmptyInputStatus = "Please type a message to send."

	// ErrorPrefix starts every failure message shown to the user.
	ErrorPrefix = "Sorry, I encountered an error: "

	// DefaultStatusDuration is how long a status message stays visible.
	DefaultStatusDuration = 5 * time.Second
)

// ErrEmptyInput is returned by Submit for blank input.
var ErrEmptyInput = errors.New("empty input")

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in the request cycle.
type State int

const (
	StateIdle State = iota
	StateSending
)

// String returns the state name.
func (s State) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

// Outcome is how a send settled.
type Outcome int

const (
	// OutcomeReply: an assistant message was appended.
	OutcomeReply Outcome = iota
	// OutcomeCrisis: the crisis modal was shown.
	OutcomeCrisis
	// OutcomeError: an error message was appended.
	OutcomeError
	// OutcomeSuperseded: a newer send started first; nothing was rendered.
	OutcomeSuperseded
	// OutcomeRejected: the input was blank; no request was made.
	OutcomeRejected
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeReply:
		return "reply"
	case OutcomeCrisis:
		return "crisis"
	case OutcomeError:
		return "error"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "rejected"
	}
}

// Exchange is one accepted send waiting for its response.
type Exchange struct {
	Token string
	Text  string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	Renderer Renderer
	Sender   Sender
	// Speaker defaults to a silent speaker.
	Speaker Speaker
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// StatusDuration defaults to DefaultStatusDuration.
	StatusDuration time.Duration
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc AfterFunc
	// NewToken defaults to random UUIDs.
	NewToken func() string
}

// Controller drives the chat widget.
//
// The Controller is safe for concurrent use.
type Controller struct {
	renderer       Renderer
	speaker        Speaker
	sender         Sender
	logger         *zap.Logger
	statusDuration time.Duration
	afterFunc      AfterFunc
	newToken       func() string

	mu        sync.Mutex
	latest    string // token of the most recent send
	indicator string // token whose indicator is on screen, "" if none
	modalOpen bool
	muted     bool
	closed    bool
	timers    map[Timer]struct{}

	inflight sync.WaitGroup
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Renderer == nil {
		return nil, errors.New("widget: renderer is required")
	}
	if opts.Sender == nil {
		return nil, errors.New("widget: sender is required")
	}

	c := &Controller{
		renderer:       opts.Renderer,
		speaker:        opts.Speaker,
		sender:         opts.Sender,
		logger:         opts.Logger,
		statusDuration: opts.StatusDuration,
		afterFunc:      opts.AfterFunc,
		newToken:       opts.NewToken,
		timers:         make(map[Timer]struct{}),
	}
	if c.speaker == nil {
		c.speaker = silentSpeaker{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.statusDuration <= 0 {
		c.statusDuration = DefaultStatusDuration
	}
	if c.afterFunc == nil {
		c.afterFunc = stdAfterFunc
	}
	if c.newToken == nil {
		c.newToken = uuid.NewString
	}
	return c, nil
}

// Submit accepts the input for sending: it appends the user message,
// clears the input and shows the thinking indicator. Blank input shows a
// warning status and returns ErrEmptyInput.
//
// Submit does no I/O; call Complete with the returned Exchange to perform
// the request.
func (c *Controller) Submit(input string) (Exchange, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		c.ShowStatus(EmptyInputStatus, StatusWarning)
		return Exchange{}, ErrEmptyInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.newToken()
	if c.indicator != "" {
		c.renderer.RemoveIndicator(c.indicator)
		c.logger.Debug("superseding pending request", zap.String("token", c.indicator))
	}

	c.renderer.AppendMessage(model.NewUserMessage(text))
	c.renderer.ClearInput()
	c.renderer.ShowIndicator(token)

	c.latest = token
	c.indicator = token

	return Exchange{Token: token, Text: text}, nil
}

// Complete sends the exchange and renders its result. The request runs
// without holding the controller lock.
func (c *Controller) Complete(ctx context.Context, ex Exchange) Outcome {
	result := c.sender.Send(ctx, ex.Text)
	return c.settle(ex, result)
}

// Send runs Submit and Complete back to back.
func (c *Controller) Send(ctx context.Context, input string) Outcome {
	ex, err := c.Submit(input)
	if err != nil {
		return OutcomeRejected
	}
	return c.Complete(ctx, ex)
}

// Dispatch submits input synchronously and completes it in the background.
// It reports whether a request was started. Wait blocks until every
// dispatched request has settled.
func (c *Controller) Dispatch(ctx context.Context, input string) bool {
	ex, err := c.Submit(input)
	if err != nil {
		return false
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.Complete(ctx, ex)
	}()
	return true
}

// Wait blocks until all dispatched requests have settled.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// settle renders one result, unless a newer send has replaced it.
func (c *Controller) settle(ex Exchange, result api.Result) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ex.Token != c.latest {
		// Support contacts are shown even for an older message; the reply
		// text is not, and the newer request keeps its indicator and speech.
		if !result.Failed() && result.Response.CrisisAlert {
			c.logger.Warn("crisis alert received for superseded request",
				zap.String("token", ex.Token))
			c.renderer.ShowModal(result.Response.Alert())
			c.modalOpen = true
			return OutcomeCrisis
		}
		c.logger.Info("dropping response to superseded request",
			zap.String("token", ex.Token),
			zap.Bool("failed", result.Failed()))
		return OutcomeSuperseded
	}

	if c.indicator == ex.Token {
		c.renderer.RemoveIndicator(ex.Token)
		c.indicator = ""
	}

	if result.Failed() {
		c.logger.Warn("chat request failed",
			zap.String("token", ex.Token),
			zap.Error(result.Err))
		text := ErrorPrefix + result.ErrorMessage()
		c.renderer.AppendMessage(model.NewErrorMessage(text))
		c.speakLocked(text)
		return OutcomeError
	}

	resp := result.Response
	if resp.CrisisAlert {
		c.logger.Warn("crisis alert received", zap.String("token", ex.Token))
		c.renderer.ShowModal(resp.Alert())
		c.modalOpen = true
		c.speakLocked(resp.AIResponse)
		return OutcomeCrisis
	}

	c.renderer.AppendMessage(model.NewAssistantMessage(resp.AIResponse))
	c.speakLocked(resp.AIResponse)
	return OutcomeReply
}

// State reports whether a request is awaiting its response.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indicator != "" {
		return StateSending
	}
	return StateIdle
}

// =============================================================================
// SPEECH
// =============================================================================

// Speak stops any current speech and speaks text. Line breaks are read as
// spaces; blank text only stops.
func (c *Controller) Speak(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speakLocked(text)
}

func (c *Controller) speakLocked(text string) {
	c.speaker.Cancel()
	if c.muted {
		return
	}
	text = strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := c.speaker.Speak(text); err != nil {
		c.logger.Warn("speech failed", zap.Error(err))
	}
}

// SetMuted turns speech off or back on. Muting stops current speech.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
	if muted {
		c.speaker.Cancel()
	}
}

// Muted reports whether speech is off.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// =============================================================================
// MODAL & STATUS
// =============================================================================

// CloseModal hides the crisis modal. It is the only way the modal closes.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderer.HideModal()
	c.modalOpen = false
}

// ModalOpen reports whether the crisis modal is showing.
func (c *Controller) ModalOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modalOpen
}

// ShowStatus shows text on the status line and hides the line after the
// status duration. Every call schedules its own hide.
func (c *Controller) ShowStatus(text string, kind StatusKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.renderer.ShowStatus(text, kind)

	var timer Timer
	timer = c.afterFunc(c.statusDuration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.timers, timer)
		if c.closed {
			return
		}
		c.renderer.HideStatus()
	})
	c.timers[timer] = struct{}{}
}

// =============================================================================
// HISTORY
// =============================================================================

// Preload appends earlier messages without speaking them.
func (c *Controller) Preload(msgs []model.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range msgs {
		c.renderer.AppendMessage(msg)
	}
}

// =============================================================================
// SHUTDOWN
// =============================================================================

// Close stops speech and pending status timers. Requests already in flight
// still settle; use Wait to block for them.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for t := range c.timers {
		t.Stop()
	}
	c.timers = make(map[Timer]struct{})
	c.speaker.Cancel()
}

// silentSpeaker is used when no Speaker is configured.
type silentSpeaker struct{}

func (silentSpeaker) Speak(string) error { return nil }
func (silentSpeaker) Cancel()            {}

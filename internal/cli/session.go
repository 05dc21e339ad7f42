// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HeadupandFace/cbt-companion-app/internal/api"
	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/speech"
	"github.com/HeadupandFace/cbt-companion-app/internal/storage"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

// lookupTimeout bounds the profile and history requests made at startup.
const lookupTimeout = 5 * time.Second

// newClient creates the backend client from the configuration.
func (a *App) newClient() (*api.Client, error) {
	s := a.Config.Server
	return api.NewClient(api.Options{
		BaseURL:     s.BaseURL,
		ChatPath:    s.ChatPath,
		CSRFToken:   s.CSRFToken,
		CSRFPage:    s.CSRFPage,
		Timeout:     a.Config.Timeout(),
		SessionFile: a.Config.SessionPath(),
		RateLimit:   s.RateLimit,
		RateBurst:   s.RateBurst,
		Logger:      a.Logger.Named("api"),
	})
}

// newSpeaker returns the configured engine, even when speech starts
// disabled, so it can be turned on later. A missing engine disables speech
// rather than failing the chat.
func (a *App) newSpeaker() speech.Engine {
	engine, err := speech.New(speech.Options{
		Engine: a.Config.Speech.Engine,
		Voice:  a.Config.Speech.Voice,
		Rate:   a.Config.Speech.Rate,
		Logger: a.Logger.Named("speech"),
	})
	if err != nil {
		a.Logger.Warn("speech disabled", zap.Error(err))
		return speech.Null{}
	}
	return engine
}

// chatSession is everything one chat run owns.
type chatSession struct {
	client     *api.Client
	speaker    speech.Engine
	controller *widget.Controller
	transcript *storage.Transcript
	sessionID  string
	watcher    *config.Watcher
	logger     *zap.Logger
}

// startChat wires the controller to display.
func (a *App) startChat(ctx context.Context, display widget.Renderer) (*chatSession, error) {
	client, err := a.newClient()
	if err != nil {
		return nil, err
	}

	s := &chatSession{
		client:  client,
		speaker: a.newSpeaker(),
		logger:  a.Logger,
	}

	renderer := display
	if a.Config.Transcript.Enabled {
		if err := s.openTranscript(ctx, a.Config.TranscriptPath(), client.BaseURL()); err != nil {
			a.Logger.Warn("transcript disabled", zap.Error(err))
		} else {
			renderer = storage.NewRecordingRenderer(display, s.transcript, s.sessionID, a.Logger.Named("transcript"))
		}
	}

	s.controller, err = widget.New(widget.Options{
		Renderer:       renderer,
		Sender:         client,
		Speaker:        s.speaker,
		Logger:         a.Logger.Named("widget"),
		StatusDuration: a.Config.StatusDuration(),
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.controller.SetMuted(!a.Config.Speech.Enabled)

	a.watchConfig(ctx, s)

	a.Logger.Info("chat started",
		zap.String("url", client.ChatURL()),
		zap.String("speech", s.speaker.Name()),
		zap.Bool("transcript", s.transcript != nil))
	return s, nil
}

func (s *chatSession) openTranscript(ctx context.Context, path, baseURL string) error {
	t, err := storage.Open(path)
	if err != nil {
		return err
	}
	id, err := t.StartSession(ctx, baseURL)
	if err != nil {
		t.Close()
		return err
	}
	s.transcript = t
	s.sessionID = id
	return nil
}

// watchConfig applies edits of the config file while the chat runs.
// Only speech.enabled takes effect live; other settings need a restart.
func (a *App) watchConfig(ctx context.Context, s *chatSession) {
	path := a.configPath
	if path == "" {
		if err := config.EnsureConfigDir(); err != nil {
			a.Logger.Debug("config watch disabled", zap.Error(err))
			return
		}
		p, err := config.ConfigPathTOML()
		if err != nil {
			a.Logger.Debug("config watch disabled", zap.Error(err))
			return
		}
		path = p
	}

	ctrl := s.controller
	logger := a.Logger.Named("config")
	w, err := config.Watch(ctx, path, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
		if err != nil {
			logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
			ctrl.ShowStatus("Settings file has errors; keeping current settings.", widget.StatusWarning)
			return
		}
		ctrl.SetMuted(!cfg.Speech.Enabled)
		logger.Info("config reloaded", zap.Bool("speech", cfg.Speech.Enabled))
		ctrl.ShowStatus("Settings reloaded.", widget.StatusInfo)
	})
	if err != nil {
		logger.Debug("config watch disabled", zap.Error(err))
		return
	}
	s.watcher = w
}

// preloadHistory shows the conversation stored by the backend.
func (s *chatSession) preloadHistory(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	entries, err := s.client.History(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	msgs := make([]model.Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, e.Message())
	}
	s.controller.Preload(msgs)
	return nil
}

// assistantName returns the configured label, else the persona the user
// picked in the web app.
func (s *chatSession) assistantName(ctx context.Context, configured string) string {
	if configured != "" {
		return configured
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	user, err := s.client.UserData(ctx)
	if err != nil {
		s.logger.Debug("user data unavailable", zap.Error(err))
		return ""
	}
	return user.PreferredAssistant
}

// Close stops speech and timers and ends the transcript session. Requests
// still in flight are abandoned.
func (s *chatSession) Close() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Debug("failed to stop config watcher", zap.Error(err))
		}
	}
	if s.controller != nil {
		s.controller.Close()
	}
	s.speaker.Cancel()
	if s.transcript != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.transcript.EndSession(ctx, s.sessionID); err != nil {
			s.logger.Warn("failed to end transcript session", zap.Error(err))
		}
		if err := s.transcript.Close(); err != nil {
			s.logger.Warn("failed to close transcript", zap.Error(err))
		}
	}
}

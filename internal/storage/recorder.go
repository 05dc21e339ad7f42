// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

// writeTimeout bounds a single transcript write.
const writeTimeout = 2 * time.Second

// RecordingRenderer forwards every call to the wrapped Renderer and records
// messages and crisis alerts in a Transcript. Transcript failures are logged
// and never affect the display.
type RecordingRenderer struct {
	widget.Renderer
	transcript *Transcript
	sessionID  string
	logger     *zap.Logger
}

// NewRecordingRenderer wraps next.
func NewRecordingRenderer(next widget.Renderer, t *Transcript, sessionID string, logger *zap.Logger) *RecordingRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordingRenderer{
		Renderer:   next,
		transcript: t,
		sessionID:  sessionID,
		logger:     logger,
	}
}

// AppendMessage displays msg, then records it.
func (r *RecordingRenderer) AppendMessage(msg model.Message) {
	r.Renderer.AppendMessage(msg)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.transcript.AppendMessage(ctx, r.sessionID, msg); err != nil {
		r.logger.Warn("transcript write failed", zap.Error(err))
	}
}

// ShowModal displays the crisis modal, then records the alert.
func (r *RecordingRenderer) ShowModal(alert model.CrisisAlert) {
	r.Renderer.ShowModal(alert)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.transcript.RecordAlert(ctx, r.sessionID, alert); err != nil {
		r.logger.Warn("transcript write failed", zap.Error(err))
	}
}

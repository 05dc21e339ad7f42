// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

func openTest(t *testing.T) *Transcript {
	t.Helper()
	tr, err := Open(filepath.Join(t.TempDir(), "sub", "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestTranscript_MessagesKeepOrder(t *testing.T) {
	tr := openTest(t)
	ctx := context.Background()

	id, err := tr.StartSession(ctx, "http://127.0.0.1:5001")
	require.NoError(t, err)

	msgs := []model.Message{
		model.NewUserMessage("I couldn't sleep"),
		model.NewAssistantMessage("That sounds exhausting."),
		model.NewErrorMessage("Sorry, I encountered an error: An unknown error occurred."),
	}
	for _, m := range msgs {
		require.NoError(t, tr.AppendMessage(ctx, id, m))
	}
	require.NoError(t, tr.EndSession(ctx, id))

	sess, err := tr.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 3)
	for i, m := range msgs {
		assert.Equal(t, m.ID, sess.Messages[i].ID)
		assert.Equal(t, m.Role, sess.Messages[i].Role)
		assert.Equal(t, m.Kind, sess.Messages[i].Kind)
		assert.Equal(t, m.Text, sess.Messages[i].Text)
	}
	assert.True(t, sess.Messages[2].IsError())
	assert.False(t, sess.EndedAt.IsZero())
	assert.Equal(t, "I couldn't sleep", sess.Summary())
}

func TestTranscript_Alerts(t *testing.T) {
	tr := openTest(t)
	ctx := context.Background()
	id, err := tr.StartSession(ctx, "")
	require.NoError(t, err)

	alert := model.CrisisAlert{
		Message: "Please reach out.",
		Contacts: []model.Contact{
			{Key: "samaritans", Name: "Samaritans", Phone: "116 123"},
			{Key: "nhs", Name: "NHS", Phone: "111"},
		},
	}
	require.NoError(t, tr.RecordAlert(ctx, id, alert))

	sess, err := tr.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, sess.Alerts, 1)
	assert.Equal(t, alert, sess.Alerts[0].CrisisAlert)
}

func TestTranscript_ListAndResolve(t *testing.T) {
	tr := openTest(t)
	tr.now = fixedClock()
	ctx := context.Background()

	first, err := tr.StartSession(ctx, "")
	require.NoError(t, err)
	require.NoError(t, tr.AppendMessage(ctx, first, model.NewUserMessage("first  session\nopening")))
	second, err := tr.StartSession(ctx, "")
	require.NoError(t, err)

	metas, err := tr.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, second, metas[0].ID)
	assert.Equal(t, first, metas[1].ID)
	assert.Equal(t, 1, metas[1].MessageCount)
	assert.Equal(t, "first session opening", metas[1].Preview)

	limited, err := tr.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	latest, err := tr.Resolve(ctx, "latest")
	require.NoError(t, err)
	assert.Equal(t, second, latest)

	byPrefix, err := tr.Resolve(ctx, first[:8])
	require.NoError(t, err)
	assert.Equal(t, first, byPrefix)

	_, err = tr.Resolve(ctx, "zzzz")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = tr.Resolve(ctx, "%")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTranscript_ResolveEmptyDatabase(t *testing.T) {
	tr := openTest(t)
	_, err := tr.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTranscript_DeleteCascades(t *testing.T) {
	tr := openTest(t)
	ctx := context.Background()
	id, err := tr.StartSession(ctx, "")
	require.NoError(t, err)
	require.NoError(t, tr.AppendMessage(ctx, id, model.NewUserMessage("bye")))
	require.NoError(t, tr.RecordAlert(ctx, id, model.CrisisAlert{Message: "x"}))

	require.NoError(t, tr.Delete(ctx, id))

	_, err = tr.Load(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	var count int
	require.NoError(t, tr.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count))
	assert.Zero(t, count)
}

func TestTranscript_FilePermissions(t *testing.T) {
	if os.PathSeparator != '/' {
		t.Skip("permission bits are not meaningful on this platform")
	}
	path := filepath.Join(t.TempDir(), "t.db")
	tr, err := Open(path)
	require.NoError(t, err)
	defer tr.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// =============================================================================
// RECORDING RENDERER
// =============================================================================

type countingRenderer struct {
	appended int
	modals   int
	cleared  int
}

func (c *countingRenderer) AppendMessage(model.Message)          { c.appended++ }
func (c *countingRenderer) ShowIndicator(string)                 {}
func (c *countingRenderer) RemoveIndicator(string)               {}
func (c *countingRenderer) ShowModal(model.CrisisAlert)          { c.modals++ }
func (c *countingRenderer) HideModal()                           {}
func (c *countingRenderer) ShowStatus(string, widget.StatusKind) {}
func (c *countingRenderer) HideStatus()                          {}
func (c *countingRenderer) ClearInput()                          { c.cleared++ }

func TestRecordingRenderer(t *testing.T) {
	tr := openTest(t)
	ctx := context.Background()
	id, err := tr.StartSession(ctx, "")
	require.NoError(t, err)

	inner := &countingRenderer{}
	var r widget.Renderer = NewRecordingRenderer(inner, tr, id, nil)

	r.AppendMessage(model.NewUserMessage("hello"))
	r.ClearInput()
	r.ShowModal(model.CrisisAlert{Message: "reach out"})

	assert.Equal(t, 1, inner.appended)
	assert.Equal(t, 1, inner.cleared)
	assert.Equal(t, 1, inner.modals)

	sess, err := tr.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 1)
	assert.Len(t, sess.Alerts, 1)
}

func TestRecordingRenderer_WriteFailureDoesNotBlockDisplay(t *testing.T) {
	tr := openTest(t)
	inner := &countingRenderer{}
	r := NewRecordingRenderer(inner, tr, "no-such-session", nil)

	r.AppendMessage(model.NewUserMessage("hello"))
	assert.Equal(t, 1, inner.appended)
}

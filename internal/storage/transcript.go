// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/util"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAmbiguousID     = errors.New("session id prefix matches more than one session")
)

// =============================================================================
// TYPES
// =============================================================================

// StoredSession is one client run with everything it displayed.
type StoredSession struct {
	ID        string          `json:"id"`
	BaseURL   string          `json:"base_url"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at,omitempty"`
	Messages  []model.Message `json:"messages"`
	Alerts    []StoredAlert   `json:"alerts,omitempty"`
}

// StoredAlert is a crisis alert as shown.
type StoredAlert struct {
	model.CrisisAlert
	ShownAt time.Time `json:"shown_at"`
}

// SessionMeta contains metadata for listing sessions.
type SessionMeta struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	MessageCount int       `json:"message_count"`
	AlertCount   int       `json:"alert_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// Summary returns a short title for the session.
func (s *StoredSession) Summary() string {
	for _, msg := range s.Messages {
		if msg.Role == model.RoleUser {
			return msg.Preview(50)
		}
	}
	return "Session " + s.StartedAt.Format("2006-01-02 15:04")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the SQLite transcript database.
type Transcript struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the transcript at path.
func Open(path string) (*Transcript, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if path != ":memory:" {
		// The transcript holds private conversations.
		_ = os.Chmod(path, 0600)
	}

	return &Transcript{db: db, now: time.Now}, nil
}

// Close closes the database.
func (t *Transcript) Close() error {
	return t.db.Close()
}

// StartSession records the start of a client run and returns its id.
func (t *Transcript) StartSession(ctx context.Context, baseURL string) (string, error) {
	id := uuid.NewString()
	_, err := t.db.ExecContext(ctx,
		"INSERT INTO sessions (id, base_url, started_at) VALUES (?, ?, ?)",
		id, baseURL, t.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (t *Transcript) EndSession(ctx context.Context, sessionID string) error {
	_, err := t.db.ExecContext(ctx,
		"UPDATE sessions SET ended_at = ? WHERE id = ?",
		t.now().UnixMilli(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// AppendMessage records a displayed message.
func (t *Transcript) AppendMessage(ctx context.Context, sessionID string, msg model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = t.now()
	}
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, seq, role, kind, text, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?), ?, ?, ?, ?)`,
		msg.ID, sessionID, sessionID, string(msg.Role), string(msg.Kind), msg.Text, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

// RecordAlert records a displayed crisis alert.
func (t *Transcript) RecordAlert(ctx context.Context, sessionID string, alert model.CrisisAlert) error {
	contacts, err := json.Marshal(alert.Contacts)
	if err != nil {
		return fmt.Errorf("failed to encode contacts: %w", err)
	}
	_, err = t.db.ExecContext(ctx,
		"INSERT INTO alerts (session_id, message, contacts, created_at) VALUES (?, ?, ?, ?)",
		sessionID, alert.Message, string(contacts), t.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record alert: %w", err)
	}
	return nil
}

// List returns session metadata, newest first. limit <= 0 returns all.
func (t *Transcript) List(ctx context.Context, limit int) ([]SessionMeta, error) {
	query := `
		SELECT s.id, s.started_at,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
			(SELECT COUNT(*) FROM alerts a WHERE a.session_id = s.id),
			COALESCE((SELECT m.text FROM messages m
				WHERE m.session_id = s.id AND m.role = 'user'
				ORDER BY m.seq LIMIT 1), '')
		FROM sessions s
		ORDER BY s.started_at DESC, s.rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var meta SessionMeta
		var started int64
		var preview string
		if err := rows.Scan(&meta.ID, &started, &meta.MessageCount, &meta.AlertCount, &preview); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		meta.StartedAt = time.UnixMilli(started)
		meta.Preview = util.TruncateWidth(strings.Join(strings.Fields(preview), " "), 50)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Resolve expands a session id prefix to the full id. "latest" (or an
// empty string) selects the newest session.
func (t *Transcript) Resolve(ctx context.Context, idOrPrefix string) (string, error) {
	if idOrPrefix == "" || idOrPrefix == "latest" {
		var id string
		err := t.db.QueryRowContext(ctx,
			"SELECT id FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT 1").Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		if err != nil {
			return "", fmt.Errorf("failed to resolve session: %w", err)
		}
		return id, nil
	}

	rows, err := t.db.QueryContext(ctx,
		"SELECT id FROM sessions WHERE id LIKE ? ESCAPE '\\' LIMIT 2",
		escapeLike(idOrPrefix)+"%")
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to resolve session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", ErrSessionNotFound
	case 1:
		return ids[0], nil
	default:
		return "", ErrAmbiguousID
	}
}

// Load returns a session with its messages and alerts.
func (t *Transcript) Load(ctx context.Context, idOrPrefix string) (*StoredSession, error) {
	id, err := t.Resolve(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}

	sess := &StoredSession{ID: id}
	var started int64
	var ended sql.NullInt64
	err = t.db.QueryRowContext(ctx,
		"SELECT base_url, started_at, ended_at FROM sessions WHERE id = ?", id).
		Scan(&sess.BaseURL, &started, &ended)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess.StartedAt = time.UnixMilli(started)
	if ended.Valid {
		sess.EndedAt = time.UnixMilli(ended.Int64)
	}

	if sess.Messages, err = t.loadMessages(ctx, id); err != nil {
		return nil, err
	}
	if sess.Alerts, err = t.loadAlerts(ctx, id); err != nil {
		return nil, err
	}
	return sess, nil
}

func (t *Transcript) loadMessages(ctx context.Context, id string) ([]model.Message, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT id, role, kind, text, created_at FROM messages WHERE session_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var msg model.Message
		var role, kind string
		var created int64
		if err := rows.Scan(&msg.ID, &role, &kind, &msg.Text, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Kind = model.Kind(kind)
		msg.Timestamp = time.UnixMilli(created)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (t *Transcript) loadAlerts(ctx context.Context, id string) ([]StoredAlert, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT message, contacts, created_at FROM alerts WHERE session_id = ? ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}
	defer rows.Close()

	var alerts []StoredAlert
	for rows.Next() {
		var alert StoredAlert
		var contacts string
		var created int64
		if err := rows.Scan(&alert.Message, &contacts, &created); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if err := json.Unmarshal([]byte(contacts), &alert.Contacts); err != nil {
			return nil, fmt.Errorf("failed to decode contacts: %w", err)
		}
		alert.ShownAt = time.UnixMilli(created)
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// Delete removes a session and everything recorded in it.
func (t *Transcript) Delete(ctx context.Context, idOrPrefix string) error {
	id, err := t.Resolve(ctx, idOrPrefix)
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

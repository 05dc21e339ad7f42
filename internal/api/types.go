// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
)

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is a successful reply from POST /api/chat.
type ChatResponse struct {
	AIResponse      string          `json:"ai_response"`
	CrisisAlert     bool            `json:"crisis_alert"`
	SupportContacts SupportContacts `json:"support_contacts,omitempty"`
}

// ContactField is one key of the support_contacts object.
type ContactField struct {
	Key   string
	Value string
}

// SupportContacts holds support_contacts in document order.
type SupportContacts []ContactField

// Get returns the value stored under key.
func (s SupportContacts) Get(key string) (string, bool) {
	for _, f := range s {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes the fields as a JSON object, keeping their order.
func (s SupportContacts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping its key order.
func (s *SupportContacts) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	if r.Type == gjson.Null {
		*s = nil
		return nil
	}
	if !r.IsObject() {
		return errors.New("support_contacts: expected a JSON object")
	}
	*s = readContacts(r)
	return nil
}

func readContacts(obj gjson.Result) SupportContacts {
	var fields SupportContacts
	obj.ForEach(func(key, value gjson.Result) bool {
		fields = append(fields, ContactField{Key: key.String(), Value: value.String()})
		return true
	})
	return fields
}

// Pairs matches every "<x>_title" key with its "<x>_phone" key, in the
// order the titles appear. A title without a phone yields an empty Phone.
func (s SupportContacts) Pairs() []model.Contact {
	var contacts []model.Contact
	for _, f := range s {
		if !strings.HasSuffix(f.Key, "_title") {
			continue
		}
		phone, _ := s.Get(strings.Replace(f.Key, "_title", "_phone", 1))
		contacts = append(contacts, model.Contact{
			Key:   strings.TrimSuffix(f.Key, "_title"),
			Name:  f.Value,
			Phone: phone,
		})
	}
	return contacts
}

// Alert builds the crisis modal content for this response.
func (r *ChatResponse) Alert() model.CrisisAlert {
	return model.CrisisAlert{
		Message:  r.AIResponse,
		Contacts: r.SupportContacts.Pairs(),
	}
}

var errInvalidJSON = errors.New("invalid JSON")

// decodeChatResponse parses a chat reply. gjson walks support_contacts in
// document order, which encoding/json maps would lose.
func decodeChatResponse(body []byte) (*ChatResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, errInvalidJSON
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, errors.New("expected a JSON object")
	}

	resp := &ChatResponse{
		AIResponse:  root.Get("ai_response").String(),
		CrisisAlert: root.Get("crisis_alert").Bool(),
	}

	contacts := root.Get("support_contacts")
	if contacts.IsObject() {
		resp.SupportContacts = readContacts(contacts)
	}

	return resp, nil
}

// errorField returns the "error" string of a JSON error body, if any.
func errorField(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	field := gjson.GetBytes(body, "error")
	if field.Type != gjson.String {
		return ""
	}
	return field.Str
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the settled outcome of one chat request: exactly one of
// Response and Err is set.
type Result struct {
	Response *ChatResponse
	Err      error
}

// Failed reports whether the request failed.
func (r Result) Failed() bool {
	return r.Err != nil || r.Response == nil
}

// ErrorMessage returns the user-facing failure text.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return GenericErrorMessage
	}
	return MessageOf(r.Err)
}

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	IDToken string `json:"idToken"`
}

// LoginResponse is a successful login reply.
type LoginResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// NeedsOnboarding reports whether the account has not finished onboarding.
// The chat endpoint works either way.
func (r *LoginResponse) NeedsOnboarding() bool {
	return strings.Contains(r.Redirect, "onboarding")
}

// UserData is the reply from GET /api/user_data.
type UserData struct {
	UserID             string `json:"user_id"`
	Username           string `json:"username"`
	DisplayName        string `json:"display_name"`
	PreferredAssistant string `json:"preferred_assistant"`
}

// Name returns the best display name for the user.
func (u *UserData) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// =============================================================================
// HISTORY TYPES
// =============================================================================

// Part is one text fragment of a history entry.
type Part struct {
	Text string `json:"text"`
}

// HistoryEntry is one turn of the stored conversation.
type HistoryEntry struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Text joins the entry's parts.
func (h HistoryEntry) Text() string {
	texts := make([]string, 0, len(h.Parts))
	for _, p := range h.Parts {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "")
}

// Message converts the entry to a model.Message.
func (h HistoryEntry) Message() model.Message {
	return model.NewMessage(model.ParseRole(h.Role), model.KindReply, h.Text())
}

// =============================================================================
// DIARY TYPES
// =============================================================================

// DiaryEntry is one day's diary text. Date is YYYY-MM-DD.
type DiaryEntry struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// DiaryRequest is the body of POST /api/diary.
type DiaryRequest struct {
	Text string `json:"text"`
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MessageID is an opaque message identifier. The wire form may be a JSON number
// or a JSON string.
type MessageID string

// UnmarshalJSON accepts both numeric and string ids.
func (id *MessageID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	*id = MessageID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers so the server keeps its integer form.
func (id MessageID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Message is a chat message as the list endpoint returns it
type Message struct {
	ID            MessageID `json:"id"`
	Message       string    `json:"message"`
	DisplayName   string    `json:"display_name"`
	CreatedAt     string    `json:"created_at"`
	IsHighlighted bool      `json:"is_highlighted"`
	CanDelete     bool      `json:"can_delete"`
}

// MessageList is the body of GET /chat/{eventId}/messages/.
// A nil Messages slice means the field was absent, which is not the same as an
// empty list.
type MessageList struct {
	Messages []Message `json:"messages"`
	Error    string    `json:"error,omitempty"`
}

// ActionResult is the body of the send and delete endpoints
type ActionResult struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// Change event types pushed over the websocket feed
const (
	ChangeCreated = "message_created"
	ChangeDeleted = "message_deleted"
)

// ChangeEvent is used for websocket change notifications
type ChangeEvent struct {
	Type    string    `json:"type"`
	EventID int64     `json:"event_id"`
	ID      MessageID `json:"id"`
	At      time.Time `json:"at"`
}

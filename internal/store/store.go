// Package store persists events and their chat messages.
package store

import (
	"context"
	"errors"
	"time"

	"eventchat/internal/model"
)

// ErrNotFound is returned when an event or message does not exist
var ErrNotFound = errors.New("not found")

// Store is the persistence used by the chat handlers.
type Store interface {
	// Event returns one event.
	Event(ctx context.Context, id int64) (model.Event, error)
	// Events returns every event.
	Events(ctx context.Context) ([]model.Event, error)
	// SaveEvent creates or replaces an event. A zero ID is assigned.
	SaveEvent(ctx context.Context, ev model.Event) (model.Event, error)

	// Messages returns the latest limit non-deleted messages of an event,
	// oldest first.
	Messages(ctx context.Context, eventID int64, limit int) ([]model.StoredMessage, error)
	// Message returns one message, deleted or not.
	Message(ctx context.Context, id int64) (model.StoredMessage, error)
	// CreateMessage stores a new message and returns it with its ID.
	CreateMessage(ctx context.Context, m model.StoredMessage) (model.StoredMessage, error)
	// DeleteMessage soft-deletes a message.
	DeleteMessage(ctx context.Context, id int64, at time.Time) error

	Close() error
}

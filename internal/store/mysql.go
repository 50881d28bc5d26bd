package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"eventchat/internal/model"
)

// MySQL stores events and messages in MariaDB. The schema is created by
// database.Migrate.
type MySQL struct {
	DB *sql.DB
}

// NewMySQL wraps an open connection
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{DB: db}
}

const eventColumns = "id, title, status, scheduled_at, duration_seconds, creator"

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (model.Event, error) {
	var ev model.Event
	var seconds int64
	if err := row.Scan(&ev.ID, &ev.Title, &ev.Status, &ev.ScheduledAt, &seconds, &ev.Creator); err != nil {
		return model.Event{}, err
	}
	ev.Duration = time.Duration(seconds) * time.Second
	return ev, nil
}

func (s *MySQL) Event(ctx context.Context, id int64) (model.Event, error) {
	ev, err := scanEvent(s.DB.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("select event %d: %w", id, err)
	}
	return ev, nil
}

func (s *MySQL) Events(ctx context.Context) ([]model.Event, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT "+eventColumns+" FROM events ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *MySQL) SaveEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	seconds := int64(ev.Duration / time.Second)
	if ev.ID == 0 {
		result, err := s.DB.ExecContext(ctx,
			"INSERT INTO events (title, status, scheduled_at, duration_seconds, creator) VALUES (?, ?, ?, ?, ?)",
			ev.Title, ev.Status, ev.ScheduledAt, seconds, ev.Creator)
		if err != nil {
			return model.Event{}, fmt.Errorf("insert event: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return model.Event{}, fmt.Errorf("insert event id: %w", err)
		}
		ev.ID = id
		return ev, nil
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO events (id, title, status, scheduled_at, duration_seconds, creator) VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE title = VALUES(title), status = VALUES(status),
		scheduled_at = VALUES(scheduled_at), duration_seconds = VALUES(duration_seconds), creator = VALUES(creator)`,
		ev.ID, ev.Title, ev.Status, ev.ScheduledAt, seconds, ev.Creator)
	if err != nil {
		return model.Event{}, fmt.Errorf("upsert event %d: %w", ev.ID, err)
	}
	return ev, nil
}

const messageColumns = "id, event_id, author, display_name, content, highlighted, created_at, deleted_at"

func scanMessage(row scanner) (model.StoredMessage, error) {
	var m model.StoredMessage
	var deletedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.EventID, &m.Author, &m.DisplayName, &m.Content, &m.Highlighted, &m.CreatedAt, &deletedAt); err != nil {
		return model.StoredMessage{}, err
	}
	if deletedAt.Valid {
		m.DeletedAt = &deletedAt.Time
	}
	return m, nil
}

func (s *MySQL) Messages(ctx context.Context, eventID int64, limit int) ([]model.StoredMessage, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	// newest first in the subquery, flipped back to oldest first
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM (SELECT "+messageColumns+
			" FROM chat_messages WHERE event_id = ? AND deleted_at IS NULL ORDER BY created_at DESC, id DESC LIMIT ?) AS recent"+
			" ORDER BY created_at, id",
		eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var out []model.StoredMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (s *MySQL) Message(ctx context.Context, id int64) (model.StoredMessage, error) {
	m, err := scanMessage(s.DB.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM chat_messages WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredMessage{}, ErrNotFound
	}
	if err != nil {
		return model.StoredMessage{}, fmt.Errorf("select message %d: %w", id, err)
	}
	return m, nil
}

func (s *MySQL) CreateMessage(ctx context.Context, m model.StoredMessage) (model.StoredMessage, error) {
	result, err := s.DB.ExecContext(ctx,
		"INSERT INTO chat_messages (event_id, author, display_name, content, highlighted, created_at, deleted_at) VALUES (?, ?, ?, ?, ?, ?, NULL)",
		m.EventID, m.Author, m.DisplayName, m.Content, m.Highlighted, m.CreatedAt)
	if err != nil {
		return model.StoredMessage{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.StoredMessage{}, fmt.Errorf("insert message id: %w", err)
	}
	m.ID = id
	m.DeletedAt = nil
	return m, nil
}

func (s *MySQL) DeleteMessage(ctx context.Context, id int64, at time.Time) error {
	result, err := s.DB.ExecContext(ctx, "UPDATE chat_messages SET deleted_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQL) Close() error {
	return s.DB.Close()
}

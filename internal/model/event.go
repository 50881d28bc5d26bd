package model

import "time"

// Event statuses
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusFinished  = "finished"
)

// Event is a chat room bound to a live event
type Event struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Status      string        `json:"status"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Duration    time.Duration `json:"duration"`
	Creator     string        `json:"creator"`
}

// NextStatus returns the status the event should have at now.
// Only forward transitions happen: scheduled → live → finished.
func (e Event) NextStatus(now time.Time) string {
	switch e.Status {
	case StatusScheduled:
		if !now.Before(e.ScheduledAt) {
			if e.Duration > 0 && !now.Before(e.ScheduledAt.Add(e.Duration)) {
				return StatusFinished
			}
			return StatusLive
		}
	case StatusLive:
		if e.Duration > 0 && !now.Before(e.ScheduledAt.Add(e.Duration)) {
			return StatusFinished
		}
	}
	return e.Status
}

// StoredMessage is the server-side record of a chat message
type StoredMessage struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"event_id"`
	Author      string     `json:"author"`
	DisplayName string     `json:"display_name"`
	Content     string     `json:"content"`
	Highlighted bool       `json:"highlighted"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Viewer is the identity making a request. The zero value is anonymous.
type Viewer struct {
	Username    string
	DisplayName string
	Staff       bool
}

// Authenticated reports whether the viewer is logged in
func (v Viewer) Authenticated() bool {
	return v.Username != ""
}

// Name returns the display name, falling back to the username.
func (v Viewer) Name() string {
	if v.DisplayName != "" {
		return v.DisplayName
	}
	return v.Username
}

// CanDelete reports whether v may delete m in ev: its author, the event creator
// or staff.
func (v Viewer) CanDelete(m StoredMessage, ev Event) bool {
	if !v.Authenticated() || m.DeletedAt != nil {
		return false
	}
	return m.Author == v.Username || (ev.Creator != "" && ev.Creator == v.Username) || v.Staff
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"eventchat/internal/model"
)

// Memory keeps everything in process memory.
type Memory struct {
	mu       sync.RWMutex
	events   map[int64]model.Event
	messages map[int64]model.StoredMessage
	order    []int64 // message ids in insertion order
	nextEv   int64
	nextMsg  int64
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		events:   make(map[int64]model.Event),
		messages: make(map[int64]model.StoredMessage),
	}
}

func (s *Memory) Event(ctx context.Context, id int64) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return ev, nil
}

func (s *Memory) Events(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.Values(s.events)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) SaveEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == 0 {
		s.nextEv++
		ev.ID = s.nextEv
	} else if ev.ID > s.nextEv {
		s.nextEv = ev.ID
	}
	s.events[ev.ID] = ev
	return ev, nil
}

func (s *Memory) Messages(ctx context.Context, eventID int64, limit int) ([]model.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := lo.FilterMap(s.order, func(id int64, _ int) (model.StoredMessage, bool) {
		m := s.messages[id]
		return m, m.EventID == eventID && m.DeletedAt == nil
	})
	return latest(live, limit), nil
}

func (s *Memory) Message(ctx context.Context, id int64) (model.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return model.StoredMessage{}, ErrNotFound
	}
	return m, nil
}

func (s *Memory) CreateMessage(ctx context.Context, m model.StoredMessage) (model.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsg++
	m.ID = s.nextMsg
	s.messages[m.ID] = m
	s.order = append(s.order, m.ID)
	return m, nil
}

func (s *Memory) DeleteMessage(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	m.DeletedAt = &at
	s.messages[id] = m
	return nil
}

func (s *Memory) Close() error {
	return nil
}

// latest keeps the last limit messages; limit <= 0 keeps all.
func latest(msgs []model.StoredMessage, limit int) []model.StoredMessage {
	if limit > 0 && len(msgs) > limit {
		return msgs[len(msgs)-limit:]
	}
	return msgs
}

package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"

	"eventchat/internal/model"
)

// Key layout. Ids are 8-byte big-endian so keys sort by id.
//
//	ev/<event>          event JSON
//	msg/<event><id>     message JSON, grouped per event
//	mid/<id>            event id of message <id>
var (
	eventPrefix   = []byte("ev/")
	messagePrefix = []byte("msg/")
	msgIndex      = []byte("mid/")
)

// Pebble persists events and messages in a PebbleDB key-value store.
type Pebble struct {
	db *pebble.DB

	mu      sync.Mutex
	nextEv  int64
	nextMsg int64
}

// OpenPebble opens (or creates) a store in dir.
func OpenPebble(dir string) (*Pebble, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	s := &Pebble{db: db}

	// Discover next ids from the last key of each prefix.
	if s.nextEv, err = s.lastID(eventPrefix); err != nil {
		db.Close()
		return nil, err
	}
	if s.nextMsg, err = s.lastID(msgIndex); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func key(prefix []byte, id int64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], uint64(id))
	return k
}

func messageKey(eventID, id int64) []byte {
	k := key(messagePrefix, eventID)
	return binary.BigEndian.AppendUint64(k, uint64(id))
}

// upperBound returns the first key after every key starting with prefix
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func (s *Pebble) iter(prefix []byte) (*pebble.Iterator, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("new iterator: %w", err)
	}
	return it, nil
}

func (s *Pebble) lastID(prefix []byte) (int64, error) {
	it, err := s.iter(prefix)
	if err != nil {
		return 0, err
	}
	defer func() { _ = it.Close() }()
	if it.Last() && len(it.Key()) == len(prefix)+8 {
		return int64(binary.BigEndian.Uint64(it.Key()[len(prefix):])), nil
	}
	return 0, nil
}

func (s *Pebble) get(k []byte, v any) error {
	val, closer, err := s.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %q: %w", k, err)
	}
	defer closer.Close()
	return json.Unmarshal(val, v)
}

func (s *Pebble) put(k []byte, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Set(k, val, pebble.Sync)
}

func (s *Pebble) Event(ctx context.Context, id int64) (model.Event, error) {
	var ev model.Event
	err := s.get(key(eventPrefix, id), &ev)
	return ev, err
}

func (s *Pebble) Events(ctx context.Context) ([]model.Event, error) {
	it, err := s.iter(eventPrefix)
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var out []model.Event
	for it.First(); it.Valid(); it.Next() {
		var ev model.Event
		if err := json.Unmarshal(it.Value(), &ev); err != nil {
			return nil, fmt.Errorf("decode event %x: %w", it.Key()[len(eventPrefix):], err)
		}
		out = append(out, ev)
	}
	return out, it.Error()
}

func (s *Pebble) SaveEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == 0 {
		s.nextEv++
		ev.ID = s.nextEv
	} else if ev.ID > s.nextEv {
		s.nextEv = ev.ID
	}
	if err := s.put(key(eventPrefix, ev.ID), ev); err != nil {
		return model.Event{}, fmt.Errorf("save event %d: %w", ev.ID, err)
	}
	return ev, nil
}

// Messages walks the event's key range backwards and stops once limit
// non-deleted messages are found.
func (s *Pebble) Messages(ctx context.Context, eventID int64, limit int) ([]model.StoredMessage, error) {
	it, err := s.iter(key(messagePrefix, eventID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var out []model.StoredMessage
	for it.Last(); it.Valid() && (limit <= 0 || len(out) < limit); it.Prev() {
		var m model.StoredMessage
		if err := json.Unmarshal(it.Value(), &m); err != nil {
			return nil, fmt.Errorf("decode message %x: %w", it.Key()[len(messagePrefix):], err)
		}
		if m.DeletedAt == nil {
			out = append(out, m)
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// locate returns the primary key of message id
func (s *Pebble) locate(id int64) ([]byte, error) {
	val, closer, err := s.db.Get(key(msgIndex, id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message index %d: %w", id, err)
	}
	defer closer.Close()
	if len(val) != 8 {
		return nil, fmt.Errorf("message index %d: bad value length %d", id, len(val))
	}
	return messageKey(int64(binary.BigEndian.Uint64(val)), id), nil
}

func (s *Pebble) Message(ctx context.Context, id int64) (model.StoredMessage, error) {
	var m model.StoredMessage
	k, err := s.locate(id)
	if err != nil {
		return m, err
	}
	err = s.get(k, &m)
	return m, err
}

func (s *Pebble) CreateMessage(ctx context.Context, m model.StoredMessage) (model.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsg++
	m.ID = s.nextMsg

	val, err := json.Marshal(m)
	if err != nil {
		return model.StoredMessage{}, err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(messageKey(m.EventID, m.ID), val, nil); err != nil {
		return model.StoredMessage{}, err
	}
	if err := b.Set(key(msgIndex, m.ID), binary.BigEndian.AppendUint64(nil, uint64(m.EventID)), nil); err != nil {
		return model.StoredMessage{}, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return model.StoredMessage{}, fmt.Errorf("save message: %w", err)
	}
	return m, nil
}

func (s *Pebble) DeleteMessage(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, err := s.locate(id)
	if err != nil {
		return err
	}
	var m model.StoredMessage
	if err := s.get(k, &m); err != nil {
		return err
	}
	m.DeletedAt = &at
	if err := s.put(k, m); err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	return nil
}

func (s *Pebble) Close() error {
	return s.db.Close()
}

// Package widget implements the event chat widget: it polls the message list
// into a page container, submits new messages and deletes the viewer's own.
//
// Every page access goes through one mutex so the page is never touched by two
// goroutines at once. Network calls run outside of it; overlapping polls are
// allowed and the last response processed wins.
package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"eventchat/internal/dom"
	"eventchat/internal/model"
)

// Element ids the widget binds to
const (
	IDMessages = "chat-messages"
	IDForm     = "chat-form"
	IDInput    = "chat-message-input"
	IDCounter  = "message-count"
	IDErrors   = "chat-errors"

	csrfSelector   = "[name=csrfmiddlewaretoken]"
	submitSelector = "button[type=submit]"
)

const (
	// DefaultPollInterval is the delay between two polls
	DefaultPollInterval = 3 * time.Second
	// MaxMessageLength is the longest message accepted client-side, in characters
	MaxMessageLength = 500
)

// User-visible texts
const (
	TextEmpty         = "Message cannot be empty"
	TextTooLong       = "Message is too long (max 500 characters)"
	TextSendFailed    = "Error sending message"
	TextConnection    = "Server connection error"
	TextLoadFailed    = "Error loading messages. Try again."
	TextNoMessages    = "No messages yet. Be the first to write!"
	TextDeleted       = "Message deleted"
	TextConfirmDelete = "Are you sure you want to delete this message?"
	TextDeleteFailed  = "Message cannot be deleted"
	TextSending       = "Sending..."
	TextDeleteTitle   = "Delete message"
)

// ErrNoContainer is returned by New when the page has no message container.
var ErrNoContainer = errors.New("page has no #" + IDMessages + " element")

// API is the server the widget talks to.
type API interface {
	ListMessages(ctx context.Context, eventID string) (model.MessageList, error)
	SendMessage(ctx context.Context, eventID, text, csrfToken string) (model.ActionResult, error)
	DeleteMessage(ctx context.Context, messageID, csrfToken string) (model.ActionResult, error)
}

// Prompter asks the viewer questions. Both calls may block until answered.
type Prompter interface {
	Confirm(ctx context.Context, question string) bool
	Alert(ctx context.Context, text string)
}

// Subscriber opens a change feed; every event received triggers a poll.
type Subscriber interface {
	Subscribe(ctx context.Context, eventID string) (<-chan model.ChangeEvent, error)
}

// Options configures a Widget
type Options struct {
	EventID      string
	PollInterval time.Duration
	Logger       zerolog.Logger
	// Feed is optional
	Feed Subscriber
}

// Widget is one chat widget bound to a page.
type Widget struct {
	mu  sync.Mutex
	doc *dom.Document

	api      API
	prompt   Prompter
	feed     Subscriber
	eventID  string
	interval time.Duration
	log      zerolog.Logger

	messages dom.Element
	form     dom.Element
	input    dom.Element
	counter  dom.Element
	errors   dom.Element

	changeMu sync.RWMutex
	onChange func()
}

// New binds a widget to the page. Only the message container is required; the
// form, input, counter and error box are used when present.
func New(doc *dom.Document, api API, prompt Prompter, opts Options) (*Widget, error) {
	messages := doc.ByID(IDMessages)
	if !messages.Exists() {
		return nil, ErrNoContainer
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Widget{
		doc:      doc,
		api:      api,
		prompt:   prompt,
		feed:     opts.Feed,
		eventID:  opts.EventID,
		interval: interval,
		log:      opts.Logger.With().Str("event", opts.EventID).Logger(),
		messages: messages,
		form:     doc.ByID(IDForm),
		input:    doc.ByID(IDInput),
		counter:  doc.ByID(IDCounter),
		errors:   doc.ByID(IDErrors),
	}, nil
}

// OnChange registers fn to be called after every page mutation. fn runs
// outside the page lock.
func (w *Widget) OnChange(fn func()) {
	w.changeMu.Lock()
	w.onChange = fn
	w.changeMu.Unlock()
}

// View runs fn with exclusive access to the page.
func (w *Widget) View(fn func(doc *dom.Document)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.doc)
}

// Update runs fn with exclusive access to the page and reports the change.
func (w *Widget) Update(fn func(doc *dom.Document)) {
	w.update(func() { fn(w.doc) })
}

// SetInput replaces the text of the message input.
func (w *Widget) SetInput(text string) {
	w.update(func() { w.input.SetValue(text) })
}

// Run polls once immediately, then every poll interval, until ctx is done.
// Each tick starts its own request; a slow response never delays the next one.
func (w *Widget) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	poll := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Refresh(ctx)
		}()
	}
	defer wg.Wait()

	var changes <-chan model.ChangeEvent
	if w.feed != nil {
		ch, err := w.feed.Subscribe(ctx, w.eventID)
		if err != nil {
			w.log.Warn().Err(err).Msg("[widget] change feed unavailable; polling only")
		} else {
			changes = ch
		}
	}

	poll()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			poll()
		case ev, ok := <-changes:
			if !ok {
				w.log.Warn().Msg("[widget] change feed closed; polling only")
				changes = nil
				continue
			}
			w.log.Debug().Str("type", ev.Type).Str("id", string(ev.ID)).Msg("[widget] change received")
			poll()
		}
	}
}

func (w *Widget) update(fn func()) {
	w.mu.Lock()
	fn()
	w.mu.Unlock()

	w.changeMu.RLock()
	notify := w.onChange
	w.changeMu.RUnlock()
	if notify != nil {
		notify()
	}
}

func (w *Widget) csrfToken() string {
	return w.doc.Query(csrfSelector).Value()
}

package widget

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"eventchat/internal/dom"
	"eventchat/internal/model"
)

const testPage = `<!DOCTYPE html>
<html><body>
<div id="chat-root" data-event-id="1">
  <span id="message-count"></span>
  <div id="chat-messages"></div>
  <form id="chat-form" method="post">
    <input type="hidden" name="csrfmiddlewaretoken" value="csrf-1">
    <textarea id="chat-message-input" name="message"></textarea>
    <div id="chat-errors"></div>
    <button type="submit">Send</button>
  </form>
</div>
</body></html>`

// fakeAPI serves an in-memory message list
type fakeAPI struct {
	mu sync.Mutex

	messages []model.Message
	nextID   int
	listErr  error
	absent   bool

	sendResult   *model.ActionResult
	sendErr      error
	deleteResult model.ActionResult
	deleteErr    error

	listFn func(call int) (model.MessageList, error)
	onSend func()

	listCalls   int
	sendCalls   int
	deleteCalls int
	sent        []string
	tokens      []string
	deleted     []string
}

func (f *fakeAPI) ListMessages(ctx context.Context, eventID string) (model.MessageList, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	fn := f.listFn
	f.mu.Unlock()

	if fn != nil {
		return fn(call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return model.MessageList{}, f.listErr
	}
	if f.absent {
		return model.MessageList{Error: "Event not found"}, nil
	}
	return model.MessageList{Messages: append([]model.Message{}, f.messages...)}, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, eventID, text, csrfToken string) (model.ActionResult, error) {
	if f.onSend != nil {
		f.onSend()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	f.sent = append(f.sent, text)
	f.tokens = append(f.tokens, csrfToken)
	if f.sendErr != nil {
		return model.ActionResult{}, f.sendErr
	}
	if f.sendResult != nil {
		return *f.sendResult, nil
	}
	f.nextID++
	f.messages = append(f.messages, model.Message{
		ID:          model.MessageID(strconv.Itoa(1000 + f.nextID)),
		Message:     text,
		DisplayName: "me",
		CreatedAt:   "now",
		CanDelete:   true,
	})
	return model.ActionResult{Success: true}, nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, messageID, csrfToken string) (model.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.deleted = append(f.deleted, messageID)
	f.tokens = append(f.tokens, csrfToken)
	return f.deleteResult, f.deleteErr
}

func (f *fakeAPI) setMessages(msgs []model.Message) {
	f.mu.Lock()
	f.messages = msgs
	f.mu.Unlock()
}

func (f *fakeAPI) calls() (list, send, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.sendCalls, f.deleteCalls
}

// fakePrompter answers every confirmation with answer and records alerts
type fakePrompter struct {
	mu     sync.Mutex
	answer bool
	asked  []string
	alerts []string
}

func (p *fakePrompter) Confirm(ctx context.Context, question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, question)
	return p.answer
}

func (p *fakePrompter) Alert(ctx context.Context, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, text)
}

func makeMessages(n int) []model.Message {
	out := make([]model.Message, n)
	for i := range out {
		out[i] = model.Message{
			ID:          model.MessageID(strconv.Itoa(i + 1)),
			Message:     fmt.Sprintf("message %d", i+1),
			DisplayName: fmt.Sprintf("user%d", i%3),
			CreatedAt:   "1 minute ago",
		}
	}
	return out
}

func newTestWidget(t *testing.T, api API, prompt Prompter) (*Widget, *dom.Document) {
	t.Helper()
	doc, err := dom.ParseString(testPage)
	require.NoError(t, err)
	w, err := New(doc, api, prompt, Options{EventID: "1"})
	require.NoError(t, err)
	return w, doc
}

package widget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventchat/internal/dom"
	"eventchat/internal/model"
)

type fakeFeed struct {
	ch  chan model.ChangeEvent
	err error
}

func (f *fakeFeed) Subscribe(ctx context.Context, eventID string) (<-chan model.ChangeEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func newRunWidget(t *testing.T, api API, opts Options) *Widget {
	t.Helper()
	doc, err := dom.ParseString(testPage)
	require.NoError(t, err)
	opts.EventID = "1"
	w, err := New(doc, api, &fakePrompter{}, opts)
	require.NoError(t, err)
	return w
}

func TestRun_PollsImmediatelyAndOnTimer(t *testing.T) {
	api := &fakeAPI{messages: makeMessages(1)}
	w := newRunWidget(t, api, Options{PollInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		lists, _, _ := api.calls()
		return lists >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_FirstPollIsImmediate(t *testing.T) {
	api := &fakeAPI{messages: makeMessages(1)}
	w := newRunWidget(t, api, Options{PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		lists, _, _ := api.calls()
		return lists == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRun_ChangeFeedTriggersPoll(t *testing.T) {
	api := &fakeAPI{messages: makeMessages(1)}
	feed := &fakeFeed{ch: make(chan model.ChangeEvent, 1)}
	w := newRunWidget(t, api, Options{PollInterval: time.Hour, Feed: feed})

	changed := make(chan struct{}, 16)
	w.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	<-changed
	feed.ch <- model.ChangeEvent{Type: model.ChangeCreated, EventID: 1, ID: "9"}

	require.Eventually(t, func() bool {
		lists, _, _ := api.calls()
		return lists == 2
	}, time.Second, 5*time.Millisecond)

	close(feed.ch)
}

func TestRun_FeedFailureFallsBackToPolling(t *testing.T) {
	api := &fakeAPI{messages: makeMessages(1)}
	feed := &fakeFeed{err: errors.New("bad handshake")}
	w := newRunWidget(t, api, Options{PollInterval: 20 * time.Millisecond, Feed: feed})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		lists, _, _ := api.calls()
		return lists >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

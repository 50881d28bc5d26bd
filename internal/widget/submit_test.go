package widget

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventchat/internal/dom"
	"eventchat/internal/model"
)

func TestSubmit_RejectsEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		api := &fakeAPI{}
		w, doc := newTestWidget(t, api, &fakePrompter{})
		w.SetInput(text)

		assert.False(t, w.Submit(context.Background()))

		_, sends, _ := api.calls()
		assert.Zero(t, sends)
		assert.Equal(t, TextEmpty, doc.ByID(IDErrors).Text())
	}
}

func TestSubmit_LengthLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("500 characters are accepted", func(t *testing.T) {
		api := &fakeAPI{}
		w, doc := newTestWidget(t, api, &fakePrompter{})
		w.SetInput(strings.Repeat("a", 500))

		assert.True(t, w.Submit(ctx))
		_, sends, _ := api.calls()
		assert.Equal(t, 1, sends)
		assert.Equal(t, "", doc.ByID(IDErrors).Text())
	})

	t.Run("501 characters are rejected", func(t *testing.T) {
		api := &fakeAPI{}
		w, doc := newTestWidget(t, api, &fakePrompter{})
		w.SetInput(strings.Repeat("a", 501))

		assert.False(t, w.Submit(ctx))
		_, sends, _ := api.calls()
		assert.Zero(t, sends)
		assert.Equal(t, TextTooLong, doc.ByID(IDErrors).Text())
	})

	t.Run("limit counts characters, not bytes", func(t *testing.T) {
		api := &fakeAPI{}
		w, _ := newTestWidget(t, api, &fakePrompter{})
		w.SetInput(strings.Repeat("é", 500))

		assert.True(t, w.Submit(ctx))
	})

	t.Run("surrounding whitespace is not counted", func(t *testing.T) {
		api := &fakeAPI{}
		w, _ := newTestWidget(t, api, &fakePrompter{})
		w.SetInput("  " + strings.Repeat("a", 500) + "\n")

		assert.True(t, w.Submit(ctx))
		assert.Equal(t, strings.Repeat("a", 500), api.sent[0])
	})
}

func TestSubmit_Success(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{messages: makeMessages(2)}
	w, doc := newTestWidget(t, api, &fakePrompter{})
	w.Refresh(ctx)

	w.SetInput("  hi there  ")
	require.True(t, w.Submit(ctx))

	assert.Equal(t, []string{"hi there"}, api.sent)
	assert.Equal(t, []string{"csrf-1"}, api.tokens)

	input := doc.ByID(IDInput)
	assert.Equal(t, "", input.Value())
	assert.Same(t, input.Node(), doc.Focused().Node())

	items := doc.QueryAll(".chat-message")
	require.Len(t, items, 3)
	assert.Equal(t, "hi there", items[2].Query(".message-content").Text())
	assert.Equal(t, "3", doc.ByID(IDCounter).Text())

	btn := doc.Query("#chat-form button[type=submit]")
	assert.False(t, btn.Disabled())
	assert.Equal(t, "Send", btn.Text())
}

func TestSubmit_BusyWhileSending(t *testing.T) {
	api := &fakeAPI{}
	w, _ := newTestWidget(t, api, &fakePrompter{})

	var disabled bool
	var label string
	api.onSend = func() {
		w.View(func(doc *dom.Document) {
			btn := doc.Query("button[type=submit]")
			disabled = btn.Disabled()
			label = btn.Text()
		})
	}

	w.SetInput("hello")
	require.True(t, w.Submit(context.Background()))

	assert.True(t, disabled)
	assert.Equal(t, TextSending, label)
}

func TestSubmit_ApplicationFailure(t *testing.T) {
	cases := []struct {
		name   string
		result model.ActionResult
		want   string
	}{
		{"server error", model.ActionResult{Error: "Event is not live"}, "Event is not live"},
		{"no error text", model.ActionResult{}, TextSendFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.result
			api := &fakeAPI{sendResult: &result}
			w, doc := newTestWidget(t, api, &fakePrompter{})
			w.SetInput("hello")

			assert.False(t, w.Submit(context.Background()))

			assert.Equal(t, tc.want, doc.ByID(IDErrors).Text())
			assert.Equal(t, "hello", doc.ByID(IDInput).Value())
			lists, _, _ := api.calls()
			assert.Zero(t, lists)

			btn := doc.Query("button[type=submit]")
			assert.False(t, btn.Disabled())
			assert.Equal(t, "Send", btn.Text())
		})
	}
}

func TestSubmit_TransportFailure(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("dial tcp: connection refused")}
	w, doc := newTestWidget(t, api, &fakePrompter{})
	w.SetInput("hello")

	assert.False(t, w.Submit(context.Background()))

	assert.Equal(t, TextConnection, doc.ByID(IDErrors).Text())
	assert.False(t, doc.Query("button[type=submit]").Disabled())
}

func TestSubmit_ClearsPreviousError(t *testing.T) {
	api := &fakeAPI{}
	w, doc := newTestWidget(t, api, &fakePrompter{})
	errorsBox := doc.ByID(IDErrors)
	errorsBox.SetClassName("text-success")

	w.SetInput("")
	w.Submit(context.Background())
	require.Equal(t, TextEmpty, errorsBox.Text())
	class, _ := errorsBox.Attr("class")
	assert.Equal(t, "text-danger small", class)

	w.SetInput("ok")
	require.True(t, w.Submit(context.Background()))
	assert.Equal(t, "", errorsBox.Text())
}

func TestSubmit_IgnoredWhileSending(t *testing.T) {
	api := &fakeAPI{}
	w, doc := newTestWidget(t, api, &fakePrompter{})

	entered := make(chan struct{})
	release := make(chan struct{})
	api.onSend = func() {
		close(entered)
		<-release
	}

	w.SetInput("first")
	done := make(chan bool, 1)
	go func() { done <- w.Submit(context.Background()) }()
	<-entered

	api.onSend = nil
	w.SetInput("second")
	assert.False(t, w.Submit(context.Background()))

	close(release)
	require.True(t, <-done)

	_, sends, _ := api.calls()
	assert.Equal(t, 1, sends)
	assert.Equal(t, []string{"first"}, api.sent)

	btn := doc.Query("button[type=submit]")
	assert.False(t, btn.Disabled())
	assert.Equal(t, "Send", btn.Text())
}

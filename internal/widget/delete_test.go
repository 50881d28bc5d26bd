package widget

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventchat/internal/dom"
	"eventchat/internal/model"
)

func deletableMessages() []model.Message {
	msgs := makeMessages(3)
	msgs[1].CanDelete = true
	return msgs
}

func TestDelete_Success(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{messages: deletableMessages(), deleteResult: model.ActionResult{Success: true}}
	prompt := &fakePrompter{answer: true}
	w, doc := newTestWidget(t, api, prompt)
	w.Refresh(ctx)

	btn := doc.Query(".delete-btn")
	require.True(t, btn.Exists())
	require.True(t, w.Delete(ctx, "2", btn))

	assert.Equal(t, []string{TextConfirmDelete}, prompt.asked)
	assert.Equal(t, []string{"2"}, api.deleted)
	assert.Equal(t, []string{"csrf-1"}, api.tokens)

	el := btn.Closest(".chat-message")
	assert.True(t, el.HasClass("message-deleted"))
	assert.Equal(t, TextDeleted, el.Query(".message-content em").Text())
	assert.True(t, btn.Hidden())
	assert.Equal(t, "2", doc.ByID(IDCounter).Text())

	// untouched neighbours
	others := doc.QueryAll(".chat-message:not(.message-deleted)")
	assert.Len(t, others, 2)
	assert.Equal(t, "message 1", others[0].Query(".message-content").Text())
}

func TestDelete_CounterNeverNegative(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{messages: deletableMessages(), deleteResult: model.ActionResult{Success: true}}
	w, doc := newTestWidget(t, api, &fakePrompter{answer: true})
	w.Refresh(ctx)

	counter := doc.ByID(IDCounter)
	counter.SetText("0")

	require.True(t, w.Delete(ctx, "2", doc.Query(".delete-btn")))
	assert.Equal(t, "0", counter.Text())
}

func TestDelete_CounterWithTrailingText(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{messages: deletableMessages(), deleteResult: model.ActionResult{Success: true}}
	w, doc := newTestWidget(t, api, &fakePrompter{answer: true})
	w.Refresh(ctx)

	counter := doc.ByID(IDCounter)
	counter.SetText(" 5 messages")

	require.True(t, w.Delete(ctx, "2", doc.Query(".delete-btn")))
	assert.Equal(t, "4", counter.Text())
}

func TestLeadingInt(t *testing.T) {
	for in, want := range map[string]int{
		"3":          3,
		" 12 ":       12,
		"5 messages": 5,
		"":           0,
		"n/a":        0,
	} {
		assert.Equal(t, want, leadingInt(in), "input %q", in)
	}
}

func TestDelete_Declined(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{messages: deletableMessages()}
	w, doc := newTestWidget(t, api, &fakePrompter{answer: false})
	w.Refresh(ctx)

	btn := doc.Query(".delete-btn")
	assert.False(t, w.Delete(ctx, "2", btn))

	_, _, deletes := api.calls()
	assert.Zero(t, deletes)
	assert.False(t, btn.Hidden())
	assert.Equal(t, "3", doc.ByID(IDCounter).Text())
}

func TestDelete_ApplicationFailure(t *testing.T) {
	cases := []struct {
		name   string
		result model.ActionResult
		want   string
	}{
		{"server error", model.ActionResult{Error: "Not allowed"}, "Error: Not allowed"},
		{"no error text", model.ActionResult{}, "Error: " + TextDeleteFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			api := &fakeAPI{messages: deletableMessages(), deleteResult: tc.result}
			prompt := &fakePrompter{answer: true}
			w, doc := newTestWidget(t, api, prompt)
			w.Refresh(ctx)

			btn := doc.Query(".delete-btn")
			assert.False(t, w.Delete(ctx, "2", btn))

			assert.Equal(t, []string{tc.want}, prompt.alerts)
			assert.False(t, btn.Hidden())
			assert.Equal(t, "3", doc.ByID(IDCounter).Text())
		})
	}
}

func TestDelete_TransportFailure(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{messages: deletableMessages(), deleteErr: errors.New("timeout")}
	prompt := &fakePrompter{answer: true}
	w, doc := newTestWidget(t, api, prompt)
	w.Refresh(ctx)

	assert.False(t, w.Delete(ctx, "2", doc.Query(".delete-btn")))
	assert.Equal(t, []string{TextConnection}, prompt.alerts)
}

func TestDelete_NextPollRestoresServerState(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{messages: deletableMessages(), deleteResult: model.ActionResult{Success: true}}
	w, doc := newTestWidget(t, api, &fakePrompter{answer: true})
	w.Refresh(ctx)

	require.True(t, w.Delete(ctx, "2", doc.Query(".delete-btn")))
	require.True(t, doc.Query(".message-deleted").Exists())

	msgs := makeMessages(3)
	api.setMessages([]model.Message{msgs[0], msgs[2]})
	w.Refresh(ctx)

	assert.False(t, doc.Query(".message-deleted").Exists())
	assert.Len(t, doc.QueryAll(".chat-message"), 2)
	assert.Equal(t, "2", doc.ByID(IDCounter).Text())
}

func TestClick_Delegation(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{messages: deletableMessages(), deleteResult: model.ActionResult{Success: true}}
	w, doc := newTestWidget(t, api, &fakePrompter{answer: true})
	w.Refresh(ctx)

	t.Run("outside a delete button", func(t *testing.T) {
		assert.False(t, w.Click(ctx, doc.Query(".message-content")))
		assert.False(t, w.Click(ctx, doc.Query("button[type=submit]")))
		assert.False(t, w.Click(ctx, dom.Element{}))
	})

	t.Run("on a delete button", func(t *testing.T) {
		assert.True(t, w.Click(ctx, doc.Query(".delete-btn")))
		assert.Equal(t, []string{"2"}, api.deleted)
	})

	t.Run("hidden button is inert", func(t *testing.T) {
		assert.False(t, w.Click(ctx, doc.Query(".delete-btn")))
		_, _, deletes := api.calls()
		assert.Equal(t, 1, deletes)
	})
}

package widget

import (
	"context"
	"strconv"

	"golang.org/x/net/html"

	"eventchat/internal/dom"
	"eventchat/internal/model"
)

// scrollTolerance is how far from the bottom, in rows, still counts as at the bottom
const scrollTolerance = 1

// Refresh fetches the message list and renders it. On failure the previous
// rendering is kept; an error block is shown only if the container is empty.
func (w *Widget) Refresh(ctx context.Context) {
	list, err := w.api.ListMessages(ctx, w.eventID)
	w.update(func() {
		if err != nil {
			w.log.Error().Err(err).Msg("[widget] load messages failed")
			if w.messages.ChildElementCount() == 0 {
				w.messages.ReplaceChildren(loadErrorNode())
			}
			return
		}
		w.render(list)
	})
}

func (w *Widget) render(list model.MessageList) {
	if list.Error != "" {
		w.log.Error().Str("server_error", list.Error).Msg("[widget] server reported an error")
	}
	if list.Messages == nil {
		return
	}

	box := w.messages
	if len(list.Messages) == 0 {
		if !box.Query(".no-messages").Exists() {
			box.ReplaceChildren(emptyNode())
		}
		w.counter.SetText("0")
		return
	}

	atBottom := box.ScrollHeight()-box.ClientHeight() <= box.ScrollTop()+scrollTolerance
	top := box.ScrollTop()

	box.Clear()
	w.counter.SetText(strconv.Itoa(len(list.Messages)))
	for _, m := range list.Messages {
		box.Append(messageNode(m))
	}

	if atBottom {
		box.SetScrollTop(box.ScrollHeight())
	} else {
		box.SetScrollTop(top)
	}
}

// messageNode builds the element for one message. Every server string goes
// into a text node.
func messageNode(m model.Message) *html.Node {
	class := "chat-message"
	if m.IsHighlighted {
		class += " highlighted"
	}
	id := string(m.ID)

	header := dom.Append(dom.El("div", "class", "message-header"),
		dom.Append(dom.El("strong", "class", "message-user"), dom.Text(m.DisplayName)),
		dom.Append(dom.El("small", "class", "message-time text-muted"), dom.Text(m.CreatedAt)),
	)
	if m.CanDelete {
		header.AppendChild(dom.Append(
			dom.El("button",
				"type", "button",
				"class", "delete-btn",
				"data-message-id", id,
				"title", TextDeleteTitle,
			),
			dom.Text("🗑"),
		))
	}

	return dom.Append(
		dom.El("div",
			"class", class,
			"data-id", id,
			"data-can-delete", strconv.FormatBool(m.CanDelete),
		),
		header,
		dom.Append(dom.El("div", "class", "message-content"), dom.Text(m.Message)),
	)
}

func emptyNode() *html.Node {
	return dom.Append(dom.El("div", "class", "no-messages text-center text-muted"),
		dom.Append(dom.El("p"), dom.Text(TextNoMessages)),
	)
}

func loadErrorNode() *html.Node {
	return dom.Append(dom.El("div", "class", "load-error text-danger text-center"),
		dom.Text(TextLoadFailed),
	)
}

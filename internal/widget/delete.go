package widget

import (
	"context"
	"strconv"
	"strings"

	"eventchat/internal/dom"
)

// Click dispatches a click on target. A click on a visible delete button
// inside the message container starts Delete for its message; anything else
// is ignored. It reports whether the click was handled.
func (w *Widget) Click(ctx context.Context, target dom.Element) bool {
	var (
		button dom.Element
		id     string
	)
	w.View(func(*dom.Document) {
		b := target.Closest(".delete-btn")
		if !b.Exists() || b.Hidden() || !w.messages.Contains(b) {
			return
		}
		button, id = b, b.Data("message-id")
	})
	if !button.Exists() || id == "" {
		return false
	}
	w.Delete(ctx, id, button)
	return true
}

// Delete asks for confirmation, then deletes a message and patches its element
// in place. The next poll replaces the patch with the server's state. It
// reports whether the message was deleted.
func (w *Widget) Delete(ctx context.Context, messageID string, button dom.Element) bool {
	if !w.prompt.Confirm(ctx, TextConfirmDelete) {
		return false
	}

	var token string
	w.View(func(*dom.Document) { token = w.csrfToken() })

	result, err := w.api.DeleteMessage(ctx, messageID, token)
	if err != nil {
		w.log.Error().Err(err).Str("id", messageID).Msg("[widget] delete message failed")
		w.prompt.Alert(ctx, TextConnection)
		return false
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = TextDeleteFailed
		}
		w.prompt.Alert(ctx, "Error: "+msg)
		return false
	}

	w.update(func() {
		if el := button.Closest(".chat-message"); el.Exists() {
			if content := el.Query(".message-content"); content.Exists() {
				content.ReplaceChildren(dom.Append(
					dom.El("em", "class", "text-muted"),
					dom.Text(TextDeleted),
				))
			}
			button.SetHidden(true)
			el.AddClass("message-deleted")
		}

		if w.counter.Exists() {
			n := leadingInt(w.counter.Text())
			if n > 0 {
				w.counter.SetText(strconv.Itoa(n - 1))
			}
		}
	})
	return true
}

// leadingInt reads the decimal number at the start of s, so "5 messages"
// gives 5. Text without leading digits gives 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	if end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); end >= 0 {
		s = s[:end]
	}
	n, _ := strconv.Atoi(s)
	return n
}

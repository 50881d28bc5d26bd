package widget

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"eventchat/internal/dom"
)

// Submit handles a submission of the chat form. It reports whether the
// message was accepted by the server; every failure is shown in the error box.
func (w *Widget) Submit(ctx context.Context) bool {
	var (
		text   string
		token  string
		button dom.Element
		saved  []*html.Node
		valid  bool
	)

	w.update(func() {
		if !w.form.Exists() {
			return
		}
		// a send is already in flight
		button = w.form.Query(submitSelector)
		if button.Disabled() {
			return
		}
		w.errors.SetText("")
		w.errors.SetClassName("text-danger small")

		text = strings.TrimSpace(w.input.Value())
		if text == "" {
			w.errors.SetText(TextEmpty)
			return
		}
		if utf8.RuneCountInString(text) > MaxMessageLength {
			w.errors.SetText(TextTooLong)
			return
		}

		token = w.csrfToken()
		saved = button.CloneChildren()
		button.SetDisabled(true)
		button.ReplaceChildren(
			dom.El("span", "class", "spinner"),
			dom.Text(TextSending),
		)
		valid = true
	})
	if !valid {
		return false
	}

	result, err := w.api.SendMessage(ctx, w.eventID, text, token)

	w.update(func() {
		switch {
		case err != nil:
			w.log.Error().Err(err).Msg("[widget] send message failed")
			w.errors.SetText(TextConnection)
		case result.Success:
			w.input.SetValue("")
			w.doc.Focus(w.input)
		default:
			msg := result.Error
			if msg == "" {
				msg = TextSendFailed
			}
			w.errors.SetText(msg)
		}
		button.SetDisabled(false)
		button.ReplaceChildren(saved...)
	})

	if err != nil || !result.Success {
		return false
	}
	w.Refresh(ctx)
	return true
}

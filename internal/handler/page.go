package handler

import (
	"errors"
	"html/template"
	"net/http"

	"eventchat/internal/model"
	"eventchat/internal/store"
)

var pageTemplate = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Event.Title}} · Chat</title></head>
<body>
<div id="chat-root" class="event-chat" data-event-id="{{.Event.ID}}" data-status="{{.Event.Status}}">
  <h2><span class="event-title">{{.Event.Title}}</span> <small>(<span id="message-count">0</span> messages)</small></h2>
  <div id="chat-messages" class="chat-messages"></div>
  {{- if .Viewer.Authenticated}}
  <form id="chat-form" method="post" action="/chat/{{.Event.ID}}/send/">
    <input type="hidden" name="csrfmiddlewaretoken" value="{{.CSRF}}">
    <textarea id="chat-message-input" name="message" maxlength="500" placeholder="Write a message..."></textarea>
    <div id="chat-errors" class="text-danger small"></div>
    <button type="submit" class="btn btn-primary">Send</button>
  </form>
  {{- else}}
  <p class="text-muted">Log in to take part in the chat.</p>
  {{- end}}
</div>
</body>
</html>
`))

type pageData struct {
	Event  model.Event
	Viewer model.Viewer
	CSRF   string
}

// Page handles GET /chat/{eventId}/ and renders the widget skeleton
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	lg := logger(r)
	eventID, ok := pathID(r, "eventId")
	if !ok {
		http.NotFound(w, r)
		return
	}

	ev, err := h.Store.Event(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		lg.Error().Err(err).Msgf("[GET /chat/%d/] ❌ Database error", eventID)
		http.Error(w, errDatabase, http.StatusInternalServerError)
		return
	}

	viewer := h.Auth.FromRequest(r)
	data := pageData{Event: ev, Viewer: viewer}
	if viewer.Authenticated() {
		data.CSRF = h.Auth.CSRFToken(viewer)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		lg.Error().Err(err).Msgf("[GET /chat/%d/] ❌ Template error", eventID)
	}
}

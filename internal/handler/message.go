package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"eventchat/internal/model"
	"eventchat/internal/store"
)

// maxMessagesPerRequest は1回のGETで返す最大レコード数
const maxMessagesPerRequest = 50

// リクエストボディの上限 (1MB)
const maxBodyBytes = 1 << 20

// MaxMessageLength is the longest message accepted, in characters
const MaxMessageLength = 500

// Error texts returned in the error field of JSON bodies
const (
	errEventNotFound   = "Event not found"
	errMessageNotFound = "Message not found"
	errLoginRequired   = "Login required"
	errBadCSRF         = "Invalid CSRF token"
	errNotLive         = "Chat is only available while the event is live"
	errEmpty           = "Message cannot be empty"
	errTooLong         = "Message is too long (max 500 characters)"
	errOffensive       = "Offensive language detected"
	errNoPermission    = "You do not have permission to delete this message"
	errDatabase        = "Database error"
)

type sendForm struct {
	Message string `validate:"required,max=500"`
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil
}

// toMessage converts a stored record into its list form for viewer v
func (h *Handler) toMessage(m model.StoredMessage, ev model.Event, v model.Viewer) model.Message {
	name := m.DisplayName
	if name == "" {
		name = m.Author
	}
	if name == "" {
		name = "Anonymous"
	}
	return model.Message{
		ID:            model.MessageID(strconv.FormatInt(m.ID, 10)),
		Message:       m.Content,
		DisplayName:   name,
		CreatedAt:     humanize.RelTime(m.CreatedAt, h.now(), "ago", "from now"),
		IsHighlighted: m.Highlighted,
		CanDelete:     v.CanDelete(m, ev),
	}
}

// GetMessages handles GET /chat/{eventId}/messages/
// 削除されていない最新50件を古い順に返す
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	lg := logger(r)
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSON(w, http.StatusNotFound, model.MessageList{Messages: []model.Message{}, Error: errEventNotFound})
		return
	}
	lg.Debug().Msgf("[GET /chat/%d/messages/] Request received", eventID)

	ev, err := h.Store.Event(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		lg.Warn().Msgf("[GET /chat/%d/messages/] ❌ Event not found", eventID)
		writeJSON(w, http.StatusOK, model.MessageList{Messages: []model.Message{}, Error: errEventNotFound})
		return
	}
	if err != nil {
		lg.Error().Err(err).Msgf("[GET /chat/%d/messages/] ❌ Database error", eventID)
		writeJSON(w, http.StatusInternalServerError, model.MessageList{Error: errDatabase})
		return
	}

	stored, err := h.Store.Messages(r.Context(), eventID, maxMessagesPerRequest)
	if err != nil {
		lg.Error().Err(err).Msgf("[GET /chat/%d/messages/] ❌ Database error", eventID)
		writeJSON(w, http.StatusInternalServerError, model.MessageList{Error: errDatabase})
		return
	}

	viewer := h.Auth.FromRequest(r)
	msgList := lo.Map(stored, func(m model.StoredMessage, _ int) model.Message {
		return h.toMessage(m, ev, viewer)
	})
	if msgList == nil {
		msgList = []model.Message{}
	}

	lg.Debug().Msgf("[GET /chat/%d/messages/] ✅ Returned %d messages", eventID, len(msgList))
	writeJSON(w, http.StatusOK, model.MessageList{Messages: msgList})
}

// SendMessage handles POST /chat/{eventId}/send/
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	lg := logger(r)
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ActionResult{Error: errEventNotFound})
		return
	}
	route := "[POST /chat/" + strconv.FormatInt(eventID, 10) + "/send/]"

	if err := parseForm(w, r); err != nil {
		lg.Warn().Err(err).Msg(route + " ❌ Bad Request")
		writeJSON(w, http.StatusBadRequest, model.ActionResult{Error: "Invalid request body"})
		return
	}

	viewer := h.Auth.FromRequest(r)
	if !viewer.Authenticated() {
		lg.Warn().Msg(route + " ❌ Anonymous sender")
		writeJSON(w, http.StatusUnauthorized, model.ActionResult{Error: errLoginRequired})
		return
	}
	if !h.Auth.CheckCSRF(viewer, r.PostFormValue("csrfmiddlewaretoken")) {
		lg.Warn().Str("user", viewer.Username).Msg(route + " ❌ CSRF check failed")
		writeJSON(w, http.StatusForbidden, model.ActionResult{Error: errBadCSRF})
		return
	}

	ev, err := h.Store.Event(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, model.ActionResult{Error: errEventNotFound})
		return
	}
	if err != nil {
		lg.Error().Err(err).Msg(route + " ❌ Database error")
		writeJSON(w, http.StatusInternalServerError, model.ActionResult{Error: errDatabase})
		return
	}
	if ev.Status != model.StatusLive {
		writeJSON(w, http.StatusOK, model.ActionResult{Error: errNotLive})
		return
	}

	form := sendForm{Message: strings.TrimSpace(r.PostFormValue("message"))}
	if err := h.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		msg := errEmpty
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			msg = errTooLong
		}
		writeJSON(w, http.StatusOK, model.ActionResult{Error: msg})
		return
	}
	if h.Filter.Blocked(form.Message) {
		lg.Info().Str("user", viewer.Username).Msg(route + " ❌ Blocked word")
		writeJSON(w, http.StatusOK, model.ActionResult{Error: errOffensive})
		return
	}

	stored, err := h.Store.CreateMessage(r.Context(), model.StoredMessage{
		EventID:     eventID,
		Author:      viewer.Username,
		DisplayName: viewer.Name(),
		Content:     form.Message,
		Highlighted: viewer.Staff || viewer.Username == ev.Creator,
		CreatedAt:   h.now(),
	})
	if err != nil {
		lg.Error().Err(err).Msg(route + " ❌ Database error")
		writeJSON(w, http.StatusInternalServerError, model.ActionResult{Error: "Failed to create message"})
		return
	}

	lg.Info().Msgf("%s ✅ Created message: ID=%d", route, stored.ID)

	msg := h.toMessage(stored, ev, viewer)
	h.notify(model.ChangeEvent{Type: model.ChangeCreated, EventID: eventID, ID: msg.ID, At: stored.CreatedAt})

	writeJSON(w, http.StatusOK, model.ActionResult{Success: true, Message: &msg})
}

// DeleteMessage handles POST /chat/message/{messageId}/delete/
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	lg := logger(r)
	id, ok := pathID(r, "messageId")
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ActionResult{Error: errMessageNotFound})
		return
	}
	route := "[POST /chat/message/" + strconv.FormatInt(id, 10) + "/delete/]"

	if err := parseForm(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ActionResult{Error: "Invalid request body"})
		return
	}

	viewer := h.Auth.FromRequest(r)
	if !viewer.Authenticated() {
		writeJSON(w, http.StatusUnauthorized, model.ActionResult{Error: errLoginRequired})
		return
	}
	if !h.Auth.CheckCSRF(viewer, r.PostFormValue("csrfmiddlewaretoken")) {
		lg.Warn().Str("user", viewer.Username).Msg(route + " ❌ CSRF check failed")
		writeJSON(w, http.StatusForbidden, model.ActionResult{Error: errBadCSRF})
		return
	}

	m, err := h.Store.Message(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && m.DeletedAt != nil) {
		lg.Warn().Msg(route + " ❌ Not Found")
		writeJSON(w, http.StatusNotFound, model.ActionResult{Error: errMessageNotFound})
		return
	}
	if err != nil {
		lg.Error().Err(err).Msg(route + " ❌ Database error")
		writeJSON(w, http.StatusInternalServerError, model.ActionResult{Error: errDatabase})
		return
	}

	// a missing event only removes the creator's right to moderate
	ev, err := h.Store.Event(r.Context(), m.EventID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		lg.Error().Err(err).Msg(route + " ❌ Database error")
		writeJSON(w, http.StatusInternalServerError, model.ActionResult{Error: errDatabase})
		return
	}
	if !viewer.CanDelete(m, ev) {
		lg.Warn().Str("user", viewer.Username).Msg(route + " ❌ No permission")
		writeJSON(w, http.StatusForbidden, model.ActionResult{Error: errNoPermission})
		return
	}

	now := h.now()
	if err := h.Store.DeleteMessage(r.Context(), id, now); err != nil {
		lg.Error().Err(err).Msg(route + " ❌ Database error")
		writeJSON(w, http.StatusInternalServerError, model.ActionResult{Error: "Failed to delete message"})
		return
	}

	lg.Info().Msg(route + " ✅ Deleted successfully")

	// WebSocket経由で他のクライアントに削除を通知
	h.notify(model.ChangeEvent{
		Type:    model.ChangeDeleted,
		EventID: m.EventID,
		ID:      model.MessageID(strconv.FormatInt(id, 10)),
		At:      now,
	})

	writeJSON(w, http.StatusOK, model.ActionResult{Success: true})
}

// parseForm reads a urlencoded or multipart body of at most maxBodyBytes
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := r.ParseMultipartForm(maxBodyBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

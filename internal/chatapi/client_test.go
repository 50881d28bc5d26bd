package chatapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventchat/internal/auth"
	"eventchat/internal/config"
	"eventchat/internal/handler"
	"eventchat/internal/model"
	"eventchat/internal/moderation"
	"eventchat/internal/store"
)

type backend struct {
	srv     *httptest.Server
	auth    *auth.Authenticator
	store   *store.Memory
	eventID string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	s := store.NewMemory()
	ev, err := s.SaveEvent(context.Background(), model.Event{Title: "Final", Status: model.StatusLive, Creator: "host"})
	require.NoError(t, err)

	filter, err := moderation.NewFilter(moderation.DefaultWords)
	require.NoError(t, err)
	a := auth.New("test-secret")
	h := handler.New(s, a, filter, config.Config{})
	go h.HandleBroadcast()
	t.Cleanup(func() { close(h.Broadcast) })

	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)
	return &backend{srv: srv, auth: a, store: s, eventID: strconv.FormatInt(ev.ID, 10)}
}

func (b *backend) client(t *testing.T, v model.Viewer) *Client {
	t.Helper()
	token, err := b.auth.Issue(v, time.Hour)
	require.NoError(t, err)
	return New(b.srv.URL+"/", WithToken(token), WithTimeout(5*time.Second))
}

func TestClient_RoundTrip(t *testing.T) {
	b := newBackend(t)
	alice := model.Viewer{Username: "alice", DisplayName: "Alice"}
	c := b.client(t, alice)
	ctx := context.Background()

	doc, err := c.Page(ctx, b.eventID)
	require.NoError(t, err)
	csrf, ok := doc.Query("[name=csrfmiddlewaretoken]").Attr("value")
	require.True(t, ok)
	assert.Equal(t, b.auth.CSRFToken(alice), csrf)

	list, err := c.ListMessages(ctx, b.eventID)
	require.NoError(t, err)
	require.NotNil(t, list.Messages)
	assert.Empty(t, list.Messages)

	res, err := c.SendMessage(ctx, b.eventID, "hello <b>world</b>", csrf)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Message)

	list, err = c.ListMessages(ctx, b.eventID)
	require.NoError(t, err)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "hello <b>world</b>", list.Messages[0].Message)
	assert.Equal(t, "Alice", list.Messages[0].DisplayName)
	assert.True(t, list.Messages[0].CanDelete)

	res, err = c.DeleteMessage(ctx, string(list.Messages[0].ID), csrf)
	require.NoError(t, err)
	assert.True(t, res.Success)

	list, err = c.ListMessages(ctx, b.eventID)
	require.NoError(t, err)
	assert.Empty(t, list.Messages)
}

func TestClient_ApplicationErrorsAreResults(t *testing.T) {
	b := newBackend(t)
	c := b.client(t, model.Viewer{Username: "alice"})

	// 403 with a JSON body is an unsuccessful result, not a transport error
	res, err := c.SendMessage(context.Background(), b.eventID, "hi", "wrong")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid CSRF token", res.Error)

	anon := New(b.srv.URL)
	res, err = anon.DeleteMessage(context.Background(), "1", "x")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestClient_TransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.ListMessages(ctx, "1")
	assert.ErrorIs(t, err, ErrStatus)

	_, err = c.SendMessage(ctx, "1", "hi", "t")
	assert.Error(t, err, "undecodable body")

	_, err = c.Page(ctx, "1")
	assert.ErrorIs(t, err, ErrStatus)

	srv.Close()
	_, err = c.ListMessages(ctx, "1")
	assert.Error(t, err)
}

func TestClient_SendsCredentials(t *testing.T) {
	requests := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		requests <- r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("tok"))
	res, err := c.SendMessage(context.Background(), "7", "hi there", "csrf-1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	got := <-requests
	assert.Equal(t, "/chat/7/send/", got.URL.Path)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
	assert.Equal(t, "hi there", got.PostForm.Get("message"))
	assert.Equal(t, "csrf-1", got.PostForm.Get("csrfmiddlewaretoken"))
}

func TestFeedURL(t *testing.T) {
	for base, want := range map[string]string{
		"http://localhost:8080":      "ws://localhost:8080/chat/3/ws",
		"https://chat.example/root/": "wss://chat.example/root/chat/3/ws",
	} {
		got, err := New(base).feedURL("3")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSubscribe(t *testing.T) {
	b := newBackend(t)
	alice := model.Viewer{Username: "alice"}
	c := b.client(t, alice)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.Subscribe(ctx, b.eventID)
	require.NoError(t, err)

	// the server registers the connection asynchronously; resend until it lands
	var ev model.ChangeEvent
	require.Eventually(t, func() bool {
		if _, err := c.SendMessage(ctx, b.eventID, "ping", b.auth.CSRFToken(alice)); err != nil {
			return false
		}
		select {
		case ev = <-events:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, model.ChangeCreated, ev.Type)

	cancel()
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}

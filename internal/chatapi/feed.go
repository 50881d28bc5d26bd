package chatapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"eventchat/internal/model"
)

// Subscribe opens the websocket change feed of an event. The returned channel
// is closed when the connection drops or ctx is done.
func (c *Client) Subscribe(ctx context.Context, eventID string) (<-chan model.ChangeEvent, error) {
	wsURL, err := c.feedURL(eventID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	c.authorize(header)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	events := make(chan model.ChangeEvent, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer close(done)
		for {
			var ev model.ChangeEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (c *Client) feedURL(eventID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/chat/" + eventID + "/ws"
	return u.String(), nil
}

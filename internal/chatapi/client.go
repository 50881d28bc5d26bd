// Package chatapi talks to the event chat endpoints.
package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventchat/internal/dom"
	"eventchat/internal/model"
)

// ErrStatus is returned when the server answers with a non-2xx status where a
// successful one is required.
var ErrStatus = errors.New("unexpected status")

// maxBodySize caps every response body read by the client
const maxBodySize = 1 << 20

// Client calls the chat endpoints of one server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithToken authenticates every request with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Page fetches the chat page skeleton of an event.
func (c *Client) Page(ctx context.Context, eventID string) (*dom.Document, error) {
	resp, err := c.do(ctx, http.MethodGet, "/chat/"+url.PathEscape(eventID)+"/", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get page: %w: %d", ErrStatus, resp.StatusCode)
	}
	return dom.Parse(io.LimitReader(resp.Body, maxBodySize))
}

// ListMessages reads the current message list of an event.
func (c *Client) ListMessages(ctx context.Context, eventID string) (model.MessageList, error) {
	var list model.MessageList

	resp, err := c.do(ctx, http.MethodGet, "/chat/"+url.PathEscape(eventID)+"/messages/", nil)
	if err != nil {
		return list, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return list, fmt.Errorf("list messages: %w: %d", ErrStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&list); err != nil {
		return list, fmt.Errorf("decode message list: %w", err)
	}
	return list, nil
}

// SendMessage posts a new message. The body is decoded whatever the status, so
// a failure the server explains is returned as an unsuccessful result, not as
// an error.
func (c *Client) SendMessage(ctx context.Context, eventID, text, csrfToken string) (model.ActionResult, error) {
	form := url.Values{}
	form.Set("message", text)
	form.Set("csrfmiddlewaretoken", csrfToken)
	return c.action(ctx, "/chat/"+url.PathEscape(eventID)+"/send/", form)
}

// DeleteMessage asks the server to delete one message.
func (c *Client) DeleteMessage(ctx context.Context, messageID, csrfToken string) (model.ActionResult, error) {
	form := url.Values{}
	form.Set("csrfmiddlewaretoken", csrfToken)
	return c.action(ctx, "/chat/message/"+url.PathEscape(messageID)+"/delete/", form)
}

func (c *Client) action(ctx context.Context, path string, form url.Values) (model.ActionResult, error) {
	var result model.ActionResult

	resp, err := c.do(ctx, http.MethodPost, path, form)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&result); err != nil {
		return result, fmt.Errorf("decode %s response (status %d): %w", path, resp.StatusCode, err)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request %s %s: %w", method, path, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
}

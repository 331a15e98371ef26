package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrymomot/replyflow/pkg/requestid"
)

const defaultMaxBodySize int64 = 10 << 20

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxBodySize caps the number of response bytes read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// Client posts actions to the automation endpoint.
type Client struct {
	url         string
	http        *http.Client
	maxBodySize int64
}

// New returns a Client for url. An empty url yields a client whose calls
// fail with ErrNotConfigured.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:         url,
		http:        http.DefaultClient,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the endpoint URL is set.
func (c *Client) Configured() bool {
	return c.url != ""
}

type callBody struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// Response is the endpoint's raw answer.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Call forwards action and payload and returns the response whatever its status.
// A nil or empty payload is sent as {}.
func (c *Client) Call(ctx context.Context, action string, payload json.RawMessage) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if len(payload) == 0 || string(payload) == "null" {
		payload = json.RawMessage(`{}`)
	}

	body, err := json.Marshal(callBody{Action: action, Payload: payload})
	if err != nil {
		return nil, errors.Join(ErrFailedToBuildCall, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Join(ErrFailedToBuildCall, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, c.maxBodySize+1))
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}
	if int64(len(raw)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: max %d bytes", ErrResponseTooLarge, c.maxBodySize)
	}

	return &Response{
		StatusCode:  res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
		Body:        raw,
	}, nil
}

// Package fetchtest provides an in-memory fetch.Client for tests.
package fetchtest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/krau/skraper/pkg/fetch"
)

// Client serves canned bodies keyed by exact URL. Unknown URLs yield a 404
// StatusError.
type Client struct {
	mu        sync.Mutex
	responses map[string][]byte
	requests  []fetch.Request
}

var _ fetch.Client = (*Client)(nil)

func New() *Client {
	return &Client{responses: make(map[string][]byte)}
}

func (c *Client) Handle(url string, body string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[url] = []byte(body)
	return c
}

func (c *Client) lookup(ctx context.Context, req fetch.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	body, ok := c.responses[req.URL]
	if !ok {
		return nil, &fetch.StatusError{URL: req.URL, StatusCode: http.StatusNotFound}
	}
	return body, nil
}

func (c *Client) Fetch(ctx context.Context, req fetch.Request) ([]byte, error) {
	return c.lookup(ctx, req)
}

func (c *Client) Open(ctx context.Context, req fetch.Request) (io.ReadCloser, int64, error) {
	body, err := c.lookup(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(body)), int64(len(body)), nil
}

// Requests returns the URLs requested so far, in order.
func (c *Client) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	urls := make([]string, 0, len(c.requests))
	for _, r := range c.requests {
		urls = append(urls, r.URL)
	}
	return urls
}

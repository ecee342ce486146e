// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/resume-optimizer/internal/llm"
)

// Response is one scripted answer.
type Response struct {
	Text string
	Err  error
}

// Client records requests and replays scripted responses. When the script is
// exhausted it answers with Default.
type Client struct {
	mu        sync.Mutex
	responses []Response
	requests  []llm.Request
	closed    bool

	Default Response
}

// New returns a Client that answers with responses in order.
func New(responses ...Response) *Client {
	return &Client{responses: responses}
}

// Reply returns a Client that always answers text.
func Reply(text string) *Client {
	return &Client{Default: Response{Text: text}}
}

// Fail returns a Client that always fails with err.
func Fail(err error) *Client {
	return &Client{Default: Response{Err: err}}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp := c.Default
	if len(c.responses) > 0 {
		resp = c.responses[0]
		c.responses = c.responses[1:]
	}
	return resp.Text, resp.Err
}

// Close implements llm.Client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Requests returns a copy of every request received so far.
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.requests...)
}

// Calls returns how many requests were received.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

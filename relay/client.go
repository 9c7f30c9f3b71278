// Package relay carries tool calls from the chat service to the MCP
// aggregation server.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single relay call when the caller's context has no
// earlier deadline.
const DefaultTimeout = 8 * time.Second

type callRequest struct {
	ToolName string                 `json:"tool_name"`
	Params   map[string]interface{} `json:"params"`
}

type errorBody struct {
	Success *bool           `json:"success,omitempty"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Client posts {tool_name, params} to the relay URL. One attempt per call, no
// caching.
type Client struct {
	url     string
	http    *resty.Client
	limiter *rate.Limiter
	timeout time.Duration
	// Observe, when set, is told the outcome of each call ("ok" or an ErrorKind).
	Observe func(tool, outcome string, elapsed time.Duration)
}

type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps outbound calls per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient swaps the resty client, mostly for tests.
func WithHTTPClient(rc *resty.Client) Option {
	return func(c *Client) { c.http = rc }
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url: url,
		http: resty.New().
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes one upstream tool and returns its JSON payload. Every failure is
// a *Error.
func (c *Client) Call(ctx context.Context, toolName string, params map[string]interface{}) (json.RawMessage, error) {
	start := time.Now()
	payload, err := c.call(ctx, toolName, params)
	if c.Observe != nil {
		outcome := "ok"
		var relayErr *Error
		if errors.As(err, &relayErr) {
			outcome = string(relayErr.Kind)
		}
		c.Observe(toolName, outcome, time.Since(start))
	}
	return payload, err
}

func (c *Client) call(ctx context.Context, toolName string, params map[string]interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(toolName, fmt.Errorf("rate limit: %w", err))
		}
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(callRequest{ToolName: toolName, Params: params}).
		Post(c.url)
	if err != nil {
		return nil, transportError(toolName, err)
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		return nil, &Error{
			Kind:    KindUpstream,
			Tool:    toolName,
			Status:  resp.StatusCode(),
			Message: upstreamMessage(resp.StatusCode(), body),
		}
	}

	if !json.Valid(body) {
		return nil, parseError(toolName, fmt.Errorf("body is not JSON: %.120q", string(body)))
	}

	// Some upstream functions answer 200 with {"success": false, "error": ...}.
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Success != nil && !*eb.Success && eb.Error != "" {
		return nil, &Error{Kind: KindUpstream, Tool: toolName, Status: resp.StatusCode(), Message: eb.Error}
	}

	return json.RawMessage(body), nil
}

// upstreamMessage prefers the body's "error" field, adding "details" when it
// is a plain string, and falls back to "HTTP <status>".
func upstreamMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == "" {
		return fmt.Sprintf("HTTP %d", status)
	}
	msg := eb.Error
	var details string
	if len(eb.Details) > 0 && json.Unmarshal(eb.Details, &details) == nil {
		details = strings.TrimSpace(details)
		if details != "" && !strings.Contains(msg, details) {
			msg += ": " + details
		}
	}
	return msg
}

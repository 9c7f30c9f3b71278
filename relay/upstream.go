package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Desarso/terrachat/models"
)

// Upstream talks to the MCP aggregation server directly. The relay endpoint,
// the health check and the tool listing are built on it.
type Upstream struct {
	baseURL string
	http    *resty.Client
}

// UpstreamResponse is a verbatim upstream reply.
type UpstreamResponse struct {
	Status     int
	StatusText string
	Body       []byte
}

func NewUpstream(baseURL string, timeout time.Duration) *Upstream {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Upstream{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("ngrok-skip-browser-warning", "true"),
	}
}

func (u *Upstream) BaseURL() string {
	return u.baseURL
}

// CallFunction forwards a raw {tool_name, params} body to /v1/functions/call.
// Non-2xx replies are returned, not turned into errors; err is set only when
// the server could not be reached.
func (u *Upstream) CallFunction(ctx context.Context, body json.RawMessage) (*UpstreamResponse, error) {
	resp, err := u.http.R().
		SetContext(ctx).
		SetBody([]byte(body)).
		Post("/v1/functions/call")
	if err != nil {
		return nil, fmt.Errorf("calling MCP server: %w", err)
	}
	return &UpstreamResponse{Status: resp.StatusCode(), StatusText: resp.Status(), Body: resp.Body()}, nil
}

// Health returns the upstream health document.
func (u *Upstream) Health(ctx context.Context) (json.RawMessage, error) {
	resp, err := u.http.R().
		SetContext(ctx).
		Get("/v1/health")
	if err != nil {
		return nil, fmt.Errorf("MCP health check failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("MCP Server health check failed: %s", resp.Status())
	}
	if !json.Valid(resp.Body()) {
		return nil, fmt.Errorf("MCP health check returned invalid JSON")
	}
	return json.RawMessage(resp.Body()), nil
}

// ListTools fetches one tier ("free" or "premium").
func (u *Upstream) ListTools(ctx context.Context, tier string) ([]models.Upstream_Tool_Spec, error) {
	resp, err := u.http.R().
		SetContext(ctx).
		Get("/v1/tools/" + tier)
	if err != nil {
		return nil, fmt.Errorf("fetching %s tools: %w", tier, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching %s tools: %s", tier, resp.Status())
	}
	return decodeToolList(resp.Body(), tier)
}

// ListAllTools fetches the free and premium tiers concurrently.
func (u *Upstream) ListAllTools(ctx context.Context) (free, premium []models.Upstream_Tool_Spec, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		free, err = u.ListTools(gctx, "free")
		return err
	})
	g.Go(func() error {
		var err error
		premium, err = u.ListTools(gctx, "premium")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return free, premium, nil
}

// decodeToolList accepts a bare array or an object wrapping one under
// "<tier>_tools", "tools" or "data".
func decodeToolList(body []byte, tier string) ([]models.Upstream_Tool_Spec, error) {
	var list []models.Upstream_Tool_Spec
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding tool list: %w", err)
	}
	for _, key := range []string{tier + "_tools", "tools", "data"} {
		raw, ok := wrapped[key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decoding tool list %q: %w", key, err)
		}
		return list, nil
	}
	return []models.Upstream_Tool_Spec{}, nil
}

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrachat "github.com/Desarso/terrachat"
	"github.com/Desarso/terrachat/env_tools"
	"github.com/Desarso/terrachat/location"
	"github.com/Desarso/terrachat/models"
	"github.com/Desarso/terrachat/relay"
	"github.com/Desarso/terrachat/stores"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// weatherModel asks for the weather once, then answers with the tool output.
type weatherModel struct {
	mu       sync.Mutex
	requests []models.Model_Request
}

func (m *weatherModel) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration) (<-chan models.Model_Response, <-chan error) {
	m.mu.Lock()
	round := len(m.requests)
	m.requests = append(m.requests, request)
	m.mu.Unlock()

	respChan := make(chan models.Model_Response, 1)
	errChan := make(chan error)
	if round == 0 {
		respChan <- models.Calls_Response([]models.FunctionCall{{ID: "call_w", Name: "get_weather_data", Args: map[string]interface{}{}}})
	} else {
		last := request.Messages[len(request.Messages)-1]
		respChan <- models.Text_Response("Summary: " + last.Content)
	}
	close(respChan)
	close(errChan)
	return respChan, errChan
}

func mcpServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/functions/call", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ToolName string                 `json:"tool_name"`
			Params   map[string]interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body.ToolName {
		case "OpenMeteoAPI":
			assert.Equal(t, 48.8566, body.Params["latitude"])
			assert.Equal(t, 2.3522, body.Params["longitude"])
			w.Write([]byte(`{"current":{"temperature_2m":18.2,"relative_humidity_2m":60,"weather_code":0}}`))
		case "Garbage":
			w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"station offline"}`))
		}
	})
	mux.HandleFunc("/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy","version":"1.2"}`))
	})
	mux.HandleFunc("/v1/tools/free", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"free_tools":[{"name":"OpenMeteoAPI","category":"weather"}]}`))
	})
	mux.HandleFunc("/v1/tools/premium", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"premium_tools":[{"name":"GRACEAPI"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	front  *httptest.Server
	server *Server
	model  *weatherModel
}

// newTestEnv wires the full stack: the catalog calls this server's own relay,
// which forwards to the fake MCP server.
func newTestEnv(t *testing.T, upstreamURL string) *testEnv {
	t.Helper()
	var router http.Handler
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(front.Close)

	cfg := terrachat.NewConfig()
	cfg.OpenAIAPIKey = "test"
	catalog := env_tools.NewCatalog(relay.NewClient(front.URL + "/api/mcp-proxy"))
	model := &weatherModel{}
	agent := terrachat.Create_Agent(model, catalog.Declarations())
	agent.Approver = terrachat.NewToolApprover("identify_crops")

	s := New(cfg, agent, location.NewResolver(location.Bengaluru), relay.NewUpstream(upstreamURL, time.Second))
	s.Logger = log.New(io.Discard, "", 0)
	router = s.Router()
	return &testEnv{front: front, server: s, model: model}
}

type sseEvent struct {
	Event string
	Data  string
}

func readSSE(t *testing.T, body io.Reader) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			current.Event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			current.Data = strings.TrimPrefix(line, "data:")
		case line == "" && current.Event != "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	return events
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestChatEndToEndWeatherForParis(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp := postJSON(t, env.front.URL+"/api/chat",
		`{"messages":[{"role":"user","content":"What's the weather?\n\nLocation: Paris, France (48.8566, 2.3522)"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Turn-ID"))

	events := readSSE(t, resp.Body)
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Event
	}
	assert.Equal(t, []string{"turn", "tool_call", "tool_result", "text", "done"}, names)

	assert.Contains(t, events[0].Data, `"name":"Paris, France"`)
	var result struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(events[2].Data), &result))
	assert.Equal(t, "call_w", result.ID)
	assert.Contains(t, result.Text, "18.2°C")
	assert.Contains(t, result.Text, "Paris, France")
	assert.Contains(t, events[3].Data, "18.2°C")

	require.Len(t, env.model.requests, 2)
	assert.Contains(t, env.model.requests[0].System_Prompt, "Latitude: 48.8566")
	assert.Equal(t, "call_w", env.model.requests[1].Messages[2].Tool_Call_ID)
}

func TestChatRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp := postJSON(t, env.front.URL+"/api/chat", `{"messages":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", decode(t, resp)["error"])

	resp = postJSON(t, env.front.URL+"/api/chat", `{"messages":[{"role":"system","content":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["error"], "unsupported role")

	resp = postJSON(t, env.front.URL+"/api/chat", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatWithoutModelIsPreparationFailure(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)
	env.server.Agent.Model = nil

	resp := postJSON(t, env.front.URL+"/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to process request", decode(t, resp)["error"])
}

func TestProxyForwardsSuccess(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp := postJSON(t, env.front.URL+"/api/mcp-proxy", `{"tool_name":"OpenMeteoAPI","params":{"latitude":48.8566,"longitude":2.3522}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	body := decode(t, resp)
	assert.Contains(t, body, "current")
}

func TestProxyPassesUpstreamStatusThrough(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp := postJSON(t, env.front.URL+"/api/mcp-proxy", `{"tool_name":"GRACEAPI","params":{}}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "MCP Server error: 502 Bad Gateway", body["error"])
	assert.Equal(t, `{"error":"station offline"}`, body["details"])
}

func TestProxyInvalidUpstreamJSON(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp := postJSON(t, env.front.URL+"/api/mcp-proxy", `{"tool_name":"Garbage","params":{}}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to proxy MCP request", decode(t, resp)["error"])
}

func TestProxyTransportFailure(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	env := newTestEnv(t, dead.URL)

	resp := postJSON(t, env.front.URL+"/api/mcp-proxy", `{"tool_name":"OpenMeteoAPI","params":{}}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Failed to proxy MCP request", body["error"])
	assert.NotEmpty(t, body["message"])

	resp = postJSON(t, env.front.URL+"/api/mcp-proxy", `not json`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestProxyOptions(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	req, err := http.NewRequest(http.MethodOptions, env.front.URL+"/api/mcp-proxy", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestToolsListing(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp, err := http.Get(env.front.URL + "/api/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing models.ToolsListingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.True(t, listing.Success)
	require.Len(t, listing.FreeTools, 1)
	assert.Equal(t, "weather", listing.FreeTools[0].Category)
	require.Len(t, listing.PremiumTools, 1)
}

func TestToolsListingFailure(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	env := newTestEnv(t, dead.URL)

	resp, err := http.Get(env.front.URL + "/api/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"free_tools":[]`)
	assert.Contains(t, string(raw), `"premium_tools":[]`)
	assert.Contains(t, string(raw), `"success":false`)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp, err := http.Get(env.front.URL + "/api/mcp-health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "healthy", body["mcpServer"].(map[string]interface{})["status"])
	_, err = time.Parse(time.RFC3339, body["timestamp"].(string))
	assert.NoError(t, err)
}

func TestHealthFailure(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	env := newTestEnv(t, dead.URL)

	resp, err := http.Get(env.front.URL + "/api/mcp-health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestCatalogMarksDisabledTools(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp, err := http.Get(env.front.URL + "/api/catalog")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Tools []struct {
			Name       string                 `json:"name"`
			Parameters map[string]interface{} `json:"parameters"`
			Disabled   bool                   `json:"disabled"`
		} `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Tools)

	byName := map[string]bool{}
	for _, tool := range body.Tools {
		byName[tool.Name] = tool.Disabled
		assert.Equal(t, "object", tool.Parameters["type"])
	}
	assert.True(t, byName["identify_crops"])
	assert.False(t, byName["get_weather_data"])
}

func TestTracesEndpoint(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)

	resp, err := http.Get(env.front.URL + "/api/traces/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	store, err := stores.NewTraceStore("sqlite", filepath.Join(t.TempDir(), "traces.sqlite"))
	require.NoError(t, err)
	defer store.Close()
	env.server.Traces = store

	chat := postJSON(t, env.front.URL+"/api/chat",
		`{"messages":[{"role":"user","content":"Weather?"}],"location":{"latitude":48.8566,"longitude":2.3522,"locationName":"Paris, France"}}`)
	turnID := chat.Header.Get("X-Turn-ID")
	readSSE(t, chat.Body)

	resp, err = http.Get(env.front.URL + "/api/traces/" + turnID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TurnID string             `json:"turn_id"`
		Traces []stores.ToolTrace `json:"traces"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, turnID, body.TurnID)
	require.Len(t, body.Traces, 1)
	assert.Equal(t, "get_weather_data", body.Traces[0].Tool)
	assert.Equal(t, stores.StatusOK, body.Traces[0].Status)
	assert.Equal(t, "Paris, France", body.Traces[0].LocationName)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, mcpServer(t).URL)
	postJSON(t, env.front.URL+"/api/mcp-proxy", `{"tool_name":"OpenMeteoAPI","params":{"latitude":48.8566,"longitude":2.3522}}`)

	resp, err := http.Get(env.front.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "terrachat_upstream_up")
}

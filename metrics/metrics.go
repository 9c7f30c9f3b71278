package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRegistry holds every terrachat collector; /metrics serves it.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ToolCallsTotal, ToolDuration,
		RelayRequestsTotal, RelayDuration,
		TurnsTotal, TurnDuration,
		UpstreamUp,
	)
}

// ToolCallsTotal counts catalog tool executions by outcome (ok | error | denied).
var ToolCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "terrachat_tool_calls_total",
		Help: "Catalog tool executions by outcome.",
	},
	[]string{"tool", "status"},
)

var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "terrachat_tool_duration_seconds",
		Help:    "Catalog tool execution time in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// RelayRequestsTotal counts relay calls by upstream tool and outcome
// (ok | transport | upstream | parse).
var RelayRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "terrachat_relay_requests_total",
		Help: "Tool proxy calls by upstream tool and outcome.",
	},
	[]string{"upstream", "outcome"},
)

var RelayDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "terrachat_relay_duration_seconds",
		Help:    "Tool proxy call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"upstream"},
)

// TurnsTotal counts chat turns by how they ended (completed | error | timeout).
var TurnsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "terrachat_turns_total",
		Help: "Chat turns by final status.",
	},
	[]string{"status"},
)

var TurnDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "terrachat_turn_duration_seconds",
		Help:    "Wall time of a chat turn in seconds.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	},
)

// UpstreamUp is 1 when the last MCP health probe succeeded.
var UpstreamUp = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "terrachat_upstream_up",
		Help: "Whether the last MCP server health probe succeeded.",
	},
)

func ObserveTool(tool, status string, elapsed time.Duration) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
	ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveRelay matches the relay.Client Observe hook.
func ObserveRelay(upstream, outcome string, elapsed time.Duration) {
	RelayRequestsTotal.WithLabelValues(upstream, outcome).Inc()
	RelayDuration.WithLabelValues(upstream).Observe(elapsed.Seconds())
}

func ObserveTurn(status string, elapsed time.Duration) {
	TurnsTotal.WithLabelValues(status).Inc()
	TurnDuration.Observe(elapsed.Seconds())
}

func SetUpstreamUp(up bool) {
	if up {
		UpstreamUp.Set(1)
		return
	}
	UpstreamUp.Set(0)
}

// Handler exposes DefaultRegistry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}

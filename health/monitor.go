// Package health probes the upstream MCP server on a schedule and keeps the
// latest result for the health endpoint and the upstream-up gauge.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Desarso/terrachat/metrics"
)

const DefaultProbeTimeout = 10 * time.Second

type Prober interface {
	Health(ctx context.Context) (json.RawMessage, error)
}

// Status is the outcome of one probe.
type Status struct {
	Up        bool            `json:"up"`
	MCPServer json.RawMessage `json:"mcpServer,omitempty"`
	Error     string          `json:"error,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}

type Monitor struct {
	prober  Prober
	timeout time.Duration
	cron    *cron.Cron
	logger  *log.Logger

	mu   sync.RWMutex
	last *Status
}

// NewMonitor schedules probes with a cron expression (seconds optional,
// descriptors such as "@every 1m" allowed). An empty schedule only probes on
// demand.
func NewMonitor(prober Prober, schedule string) (*Monitor, error) {
	m := &Monitor{
		prober:  prober,
		timeout: DefaultProbeTimeout,
		logger:  log.New(os.Stdout, "[HEALTH] ", log.LstdFlags),
		cron: cron.New(
			cron.WithParser(cron.NewParser(
				cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(
				cron.Recover(cron.DefaultLogger),
			),
		),
	}
	if schedule != "" {
		if _, err := m.cron.AddFunc(schedule, func() { m.Check(context.Background()) }); err != nil {
			return nil, fmt.Errorf("invalid health check schedule %q: %w", schedule, err)
		}
	}
	return m, nil
}

// Check probes the upstream now and records the result.
func (m *Monitor) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	status := Status{CheckedAt: time.Now().UTC()}
	payload, err := m.prober.Health(ctx)
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Up = true
		status.MCPServer = payload
	}

	m.mu.Lock()
	prev := m.last
	m.last = &status
	m.mu.Unlock()

	metrics.SetUpstreamUp(status.Up)
	if prev == nil || prev.Up != status.Up {
		if status.Up {
			m.logger.Printf("MCP server is up")
		} else {
			m.logger.Printf("MCP server is down: %s", status.Error)
		}
	}
	return status
}

// Last returns the most recent probe result, if any.
func (m *Monitor) Last() (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Status{}, false
	}
	return *m.last, true
}

// Start runs one probe immediately and then follows the schedule until ctx
// is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go m.Check(ctx)
	m.cron.Start()
	go func() {
		<-ctx.Done()
		m.Stop()
	}()
}

// Stop halts the schedule and waits for a running probe to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

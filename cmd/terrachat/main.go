package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	terrachat "github.com/Desarso/terrachat"
	"github.com/Desarso/terrachat/env_tools"
	"github.com/Desarso/terrachat/health"
	"github.com/Desarso/terrachat/location"
	"github.com/Desarso/terrachat/metrics"
	"github.com/Desarso/terrachat/relay"
	"github.com/Desarso/terrachat/server"
	"github.com/Desarso/terrachat/stores"
)

var (
	configPath = flag.String("config", "", "Path to a config file (yaml, json or toml)")
	listenAddr = flag.String("listen", "", "Address to listen on (overrides listen_addr)")
)

func main() {
	flag.Parse()

	cfg, err := terrachat.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	model, err := terrachat.Create_Model(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create %s model: %v", cfg.Provider, err)
	}

	relayURL := cfg.EffectiveRelayURL()
	client := relay.NewClient(relayURL,
		relay.WithTimeout(cfg.ToolTimeout),
		relay.WithRateLimit(cfg.RelayRateLimit, cfg.RelayBurst),
	)
	client.Observe = metrics.ObserveRelay

	catalog := env_tools.NewCatalog(client)
	agent := terrachat.Create_Agent(model, catalog.Declarations())
	agent.Approver = terrachat.NewToolApprover(cfg.DisabledTools...)
	agent.ToolTimeout = cfg.ToolTimeout

	resolver := location.NewResolver(cfg.DefaultLocation.Location())
	upstream := relay.NewUpstream(cfg.MCPServerURL, cfg.UpstreamTimeout)
	srv := server.New(cfg, agent, resolver, upstream)

	monitor, err := health.NewMonitor(upstream, cfg.HealthCheckSchedule)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	monitor.Start(ctx)
	srv.Monitor = monitor

	if cfg.TraceDB.Driver != "" {
		traces, err := stores.NewTraceStore(cfg.TraceDB.Driver, cfg.TraceDB.DSN)
		if err != nil {
			log.Fatalf("Failed to open trace database: %v", err)
		}
		defer traces.Close()
		srv.Traces = traces
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("terrachat listening on %s (provider %s, %d tools, relay %s, MCP %s)",
			cfg.ListenAddr, cfg.Provider, len(agent.Tools), relayURL, cfg.MCPServerURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.TurnTimeout+5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	monitor.Stop()
}

package terrachat

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Desarso/terrachat/models"
)

// ErrMissingAPIKey is returned by Validate when the selected provider has no key.
var ErrMissingAPIKey = errors.New("missing LLM provider API key")

// Config holds everything the server needs at startup. It is read once and
// not modified afterwards.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	MCPServerURL    string        `mapstructure:"mcp_server_url"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	// RelayURL is where tool calls are POSTed; empty means this server's own
	// /api/mcp-proxy.
	RelayURL       string  `mapstructure:"relay_url"`
	RelayRateLimit float64 `mapstructure:"relay_rate_limit"`
	RelayBurst     int     `mapstructure:"relay_burst"`

	Provider         string `mapstructure:"provider"`
	// Model empty means the provider's default.
	Model            string `mapstructure:"model"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
	GroqAPIKey       string `mapstructure:"groq_api_key"`
	CerebrasAPIKey   string `mapstructure:"cerebras_api_key"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`

	TurnTimeout       time.Duration `mapstructure:"turn_timeout"`
	ToolTimeout       time.Duration `mapstructure:"tool_timeout"`
	MaxToolIterations int           `mapstructure:"max_tool_iterations"`
	DisabledTools     []string      `mapstructure:"disabled_tools"`

	DefaultLocation     LocationConfig `mapstructure:"default_location"`
	TraceDB             TraceDBConfig  `mapstructure:"trace_db"`
	HealthCheckSchedule string         `mapstructure:"health_check_schedule"`
}

type LocationConfig struct {
	Name      string  `mapstructure:"name"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

func (l LocationConfig) Location() models.Location {
	return models.Location{Name: l.Name, Latitude: l.Latitude, Longitude: l.Longitude}
}

// TraceDBConfig selects where tool traces are persisted. An empty driver
// disables tracing.
type TraceDBConfig struct {
	Driver string `mapstructure:"driver"` // "", "sqlite", "postgres"
	DSN    string `mapstructure:"dsn"`
}

// NewConfig creates a configuration with default values
func NewConfig() *Config {
	return &Config{
		ListenAddr:        ":3000",
		MCPServerURL:      "http://localhost:8010",
		UpstreamTimeout:   30 * time.Second,
		RelayRateLimit:    10,
		RelayBurst:        5,
		Provider:          "openai",
		TurnTimeout:       30 * time.Second,
		ToolTimeout:       8 * time.Second,
		MaxToolIterations: 5,
		DisabledTools:     []string{},
		DefaultLocation: LocationConfig{
			Name:      "Bengaluru, India",
			Latitude:  12.9716,
			Longitude: 77.5946,
		},
		HealthCheckSchedule: "@every 1m",
	}
}

// WithProvider sets the LLM provider and model
func (c *Config) WithProvider(provider, model string) *Config {
	c.Provider = provider
	c.Model = model
	return c
}

// WithMCPServer sets the upstream MCP server base URL
func (c *Config) WithMCPServer(url string) *Config {
	c.MCPServerURL = url
	return c
}

// WithRelayURL points tool calls at an explicit relay
func (c *Config) WithRelayURL(url string) *Config {
	c.RelayURL = url
	return c
}

// WithDefaultLocation sets the fallback location
func (c *Config) WithDefaultLocation(loc models.Location) *Config {
	c.DefaultLocation = LocationConfig{Name: loc.Name, Latitude: loc.Latitude, Longitude: loc.Longitude}
	return c
}

// WithSQLiteTraces stores tool traces in a SQLite database file
func (c *Config) WithSQLiteTraces(path string) *Config {
	c.TraceDB = TraceDBConfig{Driver: "sqlite", DSN: path}
	return c
}

// WithPostgresTraces stores tool traces in PostgreSQL
func (c *Config) WithPostgresTraces(dsn string) *Config {
	c.TraceDB = TraceDBConfig{Driver: "postgres", DSN: dsn}
	return c
}

// LoadConfig reads .env, an optional config file and the environment, in
// increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v, NewConfig())
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.DisabledTools = splitList(cfg.DisabledTools)
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("mcp_server_url", d.MCPServerURL)
	v.SetDefault("upstream_timeout", d.UpstreamTimeout)
	v.SetDefault("relay_url", d.RelayURL)
	v.SetDefault("relay_rate_limit", d.RelayRateLimit)
	v.SetDefault("relay_burst", d.RelayBurst)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openrouter_api_key", "")
	v.SetDefault("groq_api_key", "")
	v.SetDefault("cerebras_api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("turn_timeout", d.TurnTimeout)
	v.SetDefault("tool_timeout", d.ToolTimeout)
	v.SetDefault("max_tool_iterations", d.MaxToolIterations)
	v.SetDefault("disabled_tools", d.DisabledTools)
	v.SetDefault("default_location.name", d.DefaultLocation.Name)
	v.SetDefault("default_location.latitude", d.DefaultLocation.Latitude)
	v.SetDefault("default_location.longitude", d.DefaultLocation.Longitude)
	v.SetDefault("trace_db.driver", d.TraceDB.Driver)
	v.SetDefault("trace_db.dsn", d.TraceDB.DSN)
	v.SetDefault("health_check_schedule", d.HealthCheckSchedule)
}

func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// apiKeyEnv names the environment variable that supplies each provider's key.
var apiKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"groq":       "GROQ_API_KEY",
	"cerebras":   "CEREBRAS_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case "openai":
		return c.OpenAIAPIKey
	case "openrouter":
		return c.OpenRouterAPIKey
	case "groq":
		return c.GroqAPIKey
	case "cerebras":
		return c.CerebrasAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	}
	return ""
}

// Validate reports configuration errors that must stop the process.
func (c *Config) Validate() error {
	env, ok := apiKeyEnv[c.Provider]
	if !ok {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if strings.TrimSpace(c.APIKey()) == "" {
		return fmt.Errorf("%w: set %s", ErrMissingAPIKey, env)
	}
	if err := c.DefaultLocation.Location().Validate(); err != nil {
		return fmt.Errorf("invalid default location: %w", err)
	}
	if c.MCPServerURL == "" {
		return errors.New("mcp_server_url is empty")
	}
	if c.TurnTimeout <= 0 || c.ToolTimeout <= 0 {
		return fmt.Errorf("turn_timeout and tool_timeout must be positive (got %s, %s)", c.TurnTimeout, c.ToolTimeout)
	}
	if c.ToolTimeout > c.TurnTimeout {
		return fmt.Errorf("tool_timeout %s exceeds turn_timeout %s", c.ToolTimeout, c.TurnTimeout)
	}
	if c.MaxToolIterations < 1 {
		return fmt.Errorf("max_tool_iterations must be at least 1, got %d", c.MaxToolIterations)
	}
	switch c.TraceDB.Driver {
	case "", "sqlite":
	case "postgres":
		if c.TraceDB.DSN == "" {
			return errors.New("trace_db.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown trace_db.driver %q", c.TraceDB.Driver)
	}
	return nil
}

// EffectiveRelayURL is RelayURL, or this server's own relay endpoint.
func (c *Config) EffectiveRelayURL() string {
	if c.RelayURL != "" {
		return c.RelayURL
	}
	host, port, err := net.SplitHostPort(c.ListenAddr)
	if err != nil {
		return "http://localhost:3000/api/mcp-proxy"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/api/mcp-proxy"
}

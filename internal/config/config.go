package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application level configuration loaded from file, environment and flags.
type Config struct {
	RunAddress         string
	OrdersAPIAddress   string
	PushURL            string
	PushTopic          string
	DatabaseURI        string
	DebounceWindow     time.Duration
	InteractionGrace   time.Duration
	RefetchThreshold   int
	ProductionEstimate time.Duration
	TimerTick          time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string
}

const (
	defaultRunAddress         = ":8080"
	defaultPushTopic          = "orders"
	defaultDebounceWindow     = 400 * time.Millisecond
	defaultInteractionGrace   = 500 * time.Millisecond
	defaultRefetchThreshold   = 10
	defaultProductionEstimate = 20 * time.Minute
	defaultTimerTick          = time.Second
	defaultRequestTimeout     = 10 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultLogLevel           = "info"
)

// fileConfig mirrors the optional YAML configuration file.
type fileConfig struct {
	RunAddress         string `yaml:"run_address"`
	OrdersAPIAddress   string `yaml:"orders_api_address"`
	PushURL            string `yaml:"push_url"`
	PushTopic          string `yaml:"push_topic"`
	DatabaseURI        string `yaml:"database_uri"`
	DebounceWindow     string `yaml:"debounce_window"`
	InteractionGrace   string `yaml:"interaction_grace"`
	RefetchThreshold   int    `yaml:"refetch_threshold"`
	ProductionEstimate string `yaml:"production_estimate"`
	TimerTick          string `yaml:"timer_tick"`
	RequestTimeout     string `yaml:"request_timeout"`
	ShutdownTimeout    string `yaml:"shutdown_timeout"`
	LogLevel           string `yaml:"log_level"`
}

// Load parses configuration from a .env file, the optional YAML file, environment variables and flags.
func Load() (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := defaults()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.RunAddress = getString(lookup, "RUN_ADDRESS", cfg.RunAddress)
	cfg.OrdersAPIAddress = getString(lookup, "ORDERS_API_ADDRESS", cfg.OrdersAPIAddress)
	cfg.PushURL = getString(lookup, "PUSH_URL", cfg.PushURL)
	cfg.PushTopic = getString(lookup, "PUSH_TOPIC", cfg.PushTopic)
	cfg.DatabaseURI = getString(lookup, "DATABASE_URI", cfg.DatabaseURI)
	cfg.DebounceWindow = getDuration(lookup, "DEBOUNCE_WINDOW", cfg.DebounceWindow)
	cfg.InteractionGrace = getDuration(lookup, "INTERACTION_GRACE", cfg.InteractionGrace)
	cfg.RefetchThreshold = getInt(lookup, "REFETCH_THRESHOLD", cfg.RefetchThreshold)
	cfg.ProductionEstimate = getDuration(lookup, "PRODUCTION_ESTIMATE", cfg.ProductionEstimate)
	cfg.TimerTick = getDuration(lookup, "TIMER_TICK", cfg.TimerTick)
	cfg.RequestTimeout = getDuration(lookup, "REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ShutdownTimeout = getDuration(lookup, "SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.LogLevel = getString(lookup, "LOG_LEVEL", cfg.LogLevel)

	fs := flag.NewFlagSet("orderboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		debounceStr = cfg.DebounceWindow.String()
		graceStr    = cfg.InteractionGrace.String()
		estimateStr = cfg.ProductionEstimate.String()
		shutdownStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.OrdersAPIAddress, "api", cfg.OrdersAPIAddress, "Orders REST API base URL")
	fs.StringVar(&cfg.PushURL, "push", cfg.PushURL, "Push channel URL (redis:// or amqp://)")
	fs.StringVar(&cfg.PushTopic, "topic", cfg.PushTopic, "Push channel topic")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN for the transition journal")
	fs.StringVar(&debounceStr, "debounce", debounceStr, "Event coalescing debounce window")
	fs.StringVar(&graceStr, "grace", graceStr, "Interaction grace period")
	fs.IntVar(&cfg.RefetchThreshold, "refetch-threshold", cfg.RefetchThreshold, "Pending updates that force a full refetch")
	fs.StringVar(&estimateStr, "production-estimate", estimateStr, "Default production duration")
	fs.StringVar(&shutdownStr, "shutdown-timeout", shutdownStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.DebounceWindow, err = time.ParseDuration(debounceStr); err != nil {
		return nil, fmt.Errorf("invalid debounce window: %w", err)
	}
	if cfg.InteractionGrace, err = time.ParseDuration(graceStr); err != nil {
		return nil, fmt.Errorf("invalid interaction grace: %w", err)
	}
	if cfg.ProductionEstimate, err = time.ParseDuration(estimateStr); err != nil {
		return nil, fmt.Errorf("invalid production estimate: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	cfg.normalize()

	if cfg.OrdersAPIAddress == "" {
		return nil, fmt.Errorf("orders api address must be provided")
	}
	if cfg.PushURL == "" {
		return nil, fmt.Errorf("push url must be provided")
	}
	u, err := url.Parse(cfg.PushURL)
	if err != nil {
		return nil, fmt.Errorf("invalid push url: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss", "amqp", "amqps":
	default:
		return nil, fmt.Errorf("unsupported push url scheme %q", u.Scheme)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		RunAddress:         defaultRunAddress,
		PushTopic:          defaultPushTopic,
		DebounceWindow:     defaultDebounceWindow,
		InteractionGrace:   defaultInteractionGrace,
		RefetchThreshold:   defaultRefetchThreshold,
		ProductionEstimate: defaultProductionEstimate,
		TimerTick:          defaultTimerTick,
		RequestTimeout:     defaultRequestTimeout,
		ShutdownTimeout:    defaultShutdownTimeout,
		LogLevel:           defaultLogLevel,
	}
}

func (c *Config) normalize() {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = defaultDebounceWindow
	}
	if c.InteractionGrace <= 0 {
		c.InteractionGrace = defaultInteractionGrace
	}
	if c.RefetchThreshold <= 0 {
		c.RefetchThreshold = defaultRefetchThreshold
	}
	if c.ProductionEstimate <= 0 {
		c.ProductionEstimate = defaultProductionEstimate
	}
	if c.TimerTick <= 0 {
		c.TimerTick = defaultTimerTick
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if strings.TrimSpace(c.PushTopic) == "" {
		c.PushTopic = defaultPushTopic
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

func applyFile(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(content, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.RunAddress, fc.RunAddress)
	setString(&cfg.OrdersAPIAddress, fc.OrdersAPIAddress)
	setString(&cfg.PushURL, fc.PushURL)
	setString(&cfg.PushTopic, fc.PushTopic)
	setString(&cfg.DatabaseURI, fc.DatabaseURI)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.RefetchThreshold > 0 {
		cfg.RefetchThreshold = fc.RefetchThreshold
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"debounce_window", fc.DebounceWindow, &cfg.DebounceWindow},
		{"interaction_grace", fc.InteractionGrace, &cfg.InteractionGrace},
		{"production_estimate", fc.ProductionEstimate, &cfg.ProductionEstimate},
		{"timer_tick", fc.TimerTick, &cfg.TimerTick},
		{"request_timeout", fc.RequestTimeout, &cfg.RequestTimeout},
		{"shutdown_timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %w", d.name, err)
		}
		*d.field = parsed
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

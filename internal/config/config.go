package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgREST = "postgrest"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

// Rate limiter backends.
const (
	BackendMemory = "memory"
	BackendValkey = "valkey"
)

// Config holds the marketsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Search    SearchConfig    `yaml:"search"`
	Media     MediaConfig     `yaml:"media"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	OpsAPIKeys      []string `yaml:"ops_api_keys"` // protect /metrics; empty = open
	// TrustedProxies lists the CIDRs (or bare IPs) whose forwarding headers
	// are believed. Empty means the peer address is always the client.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a
// single-address prefix.
func (h HTTPConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(h.TrustedProxies))
	for _, raw := range h.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("http.trusted_proxies: %q: %w", raw, err)
			}
			out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("http.trusted_proxies: %q: %w", raw, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

// StoreConfig holds relational store settings.
type StoreConfig struct {
	Driver           string        `yaml:"driver"` // postgrest (default), postgres, sqlite
	URL              string        `yaml:"url"`    // postgrest base URL
	APIKey           string        `yaml:"api_key"`
	Schema           string        `yaml:"schema"`
	DSN              string        `yaml:"dsn"` // postgres / sqlite
	MaxOpenConns     int           `yaml:"max_open_conns"`
	AutoMigrate      bool          `yaml:"auto_migrate"`
	ReadinessTimeout int           `yaml:"readiness_timeout_sec"`
	Breaker          BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker thresholds for the store.
type BreakerConfig struct {
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	OpenTimeoutSec      int    `yaml:"open_timeout_sec"`
	HalfOpenRequests    uint32 `yaml:"half_open_requests"`
}

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	Backend  string                   `yaml:"backend"` // memory (default), valkey
	Addrs    []string                 `yaml:"addrs"`
	Password string                   `yaml:"password"`
	Channels map[string]ChannelPolicy `yaml:"channels"`
}

// ChannelPolicy is the sliding-window budget for one channel.
type ChannelPolicy struct {
	MaxRequests int `yaml:"max_requests"`
	WindowSec   int `yaml:"window_sec"`
}

// Window returns the policy window as a duration.
func (p ChannelPolicy) Window() time.Duration {
	return time.Duration(p.WindowSec) * time.Second
}

// SearchConfig holds predictive search settings.
type SearchConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
	PhotoCap  int `yaml:"photo_cap"`
}

// Timeout returns the shared source deadline.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// MediaConfig holds public media URL settings.
type MediaConfig struct {
	BaseURL       string `yaml:"base_url"`
	ListingBucket string `yaml:"listing_bucket"`
	AvatarBucket  string `yaml:"avatar_bucket"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// defaultChannels mirrors the built-in gate policies.
var defaultChannels = map[string]ChannelPolicy{
	"search":      {MaxRequests: 60, WindowSec: 60},
	"marketplace": {MaxRequests: 30, WindowSec: 60},
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverPostgREST
	}
	if c.Store.Schema == "" {
		c.Store.Schema = "public"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Store.Breaker.ConsecutiveFailures == 0 {
		c.Store.Breaker.ConsecutiveFailures = 5
	}
	if c.Store.Breaker.OpenTimeoutSec <= 0 {
		c.Store.Breaker.OpenTimeoutSec = 30
	}
	if c.Store.Breaker.HalfOpenRequests == 0 {
		c.Store.Breaker.HalfOpenRequests = 1
	}

	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = BackendMemory
	}
	if c.RateLimit.Channels == nil {
		c.RateLimit.Channels = make(map[string]ChannelPolicy, len(defaultChannels))
	}
	for name, def := range defaultChannels {
		p := c.RateLimit.Channels[name]
		if p.MaxRequests <= 0 {
			p.MaxRequests = def.MaxRequests
		}
		if p.WindowSec <= 0 {
			p.WindowSec = def.WindowSec
		}
		c.RateLimit.Channels[name] = p
	}

	if c.Search.TimeoutMs <= 0 {
		c.Search.TimeoutMs = 5000
	}
	if c.Search.PhotoCap <= 0 {
		c.Search.PhotoCap = 200
	}

	if c.Media.ListingBucket == "" {
		c.Media.ListingBucket = "listing-photos"
	}
	if c.Media.AvatarBucket == "" {
		c.Media.AvatarBucket = "avatars"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if _, err := c.HTTP.TrustedProxyPrefixes(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case DriverPostgREST:
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required for driver %q", c.Store.Driver)
		}
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be one of postgrest, postgres, sqlite, got %q", c.Store.Driver)
	}

	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendValkey:
		if len(c.RateLimit.Addrs) == 0 {
			return fmt.Errorf("ratelimit.addrs is required for backend %q", BackendValkey)
		}
	default:
		return fmt.Errorf("ratelimit.backend must be \"memory\" or \"valkey\", got %q", c.RateLimit.Backend)
	}
	for name := range c.RateLimit.Channels {
		if _, ok := defaultChannels[name]; !ok {
			return fmt.Errorf("ratelimit.channels.%s: unknown channel", name)
		}
	}

	if c.Media.BaseURL == "" {
		return fmt.Errorf("media.base_url is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livetemplate/accordion"
)

// FileName is the configuration file looked up by LoadFromDir.
const FileName = "accordion.yaml"

// Config represents the accordion widget configuration
type Config struct {
	Title       string            `yaml:"title"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Store       StoreConfig       `yaml:"store"`
	Widget      WidgetConfig      `yaml:"widget"`
	Theme       ThemeConfig       `yaml:"theme"`
	Environment EnvironmentConfig `yaml:"environment"`
	API         *APIConfig        `yaml:"api,omitempty"`
}

// StoreConfig selects and configures the Remote List Store backend
type StoreConfig struct {
	Type         string            `yaml:"type"`                    // "memory", "sqlite", "pg", "rest"
	DB           string            `yaml:"db,omitempty"`            // For sqlite: database file path (default: ./accordion.db)
	DSN          string            `yaml:"dsn,omitempty"`           // For pg: connection string (falls back to DATABASE_URL)
	URL          string            `yaml:"url,omitempty"`           // For rest: base URL of the list API (env vars expanded)
	Headers      map[string]string `yaml:"headers,omitempty"`       // For rest: HTTP headers (env vars expanded)
	AllowPrivate bool              `yaml:"allow_private,omitempty"` // For rest: permit loopback/private hosts
	Timeout      string            `yaml:"timeout,omitempty"`       // Per-call timeout (e.g., "30s"). Default: 10s
	Retry        *RetryConfig      `yaml:"retry,omitempty"`         // Read retries (writes are never retried)
	Cache        *CacheConfig      `yaml:"cache,omitempty"`         // Container-name cache
}

// RetryConfig configures retry behavior for store reads
type RetryConfig struct {
	MaxRetries int    `yaml:"max_retries,omitempty"` // Maximum retry attempts (default: 0, attempt once)
	BaseDelay  string `yaml:"base_delay,omitempty"`  // Initial delay (e.g., "100ms"). Default: 100ms
	MaxDelay   string `yaml:"max_delay,omitempty"`   // Maximum delay (e.g., "5s"). Default: 5s
}

// CacheConfig configures caching of the container listing
type CacheConfig struct {
	TTL string `yaml:"ttl,omitempty"` // e.g. "5m". Default: disabled
}

// WidgetConfig holds the host-supplied widget properties
type WidgetConfig struct {
	Description   string `yaml:"description"`
	List          string `yaml:"list"`
	ListChoice    string `yaml:"list_choice,omitempty"`
	SelectionMode string `yaml:"selection_mode,omitempty"` // "create" or "select"
	Mode          string `yaml:"mode"`                     // "read" or "edit"
	RichText      string `yaml:"rich_text,omitempty"`      // "html" (default) or "markdown"
}

// ThemeConfig is the initial theme before any host notification
type ThemeConfig struct {
	Inverted    bool   `yaml:"inverted"`
	BodyText    string `yaml:"body_text,omitempty"`
	Link        string `yaml:"link,omitempty"`
	LinkHovered string `yaml:"link_hovered,omitempty"`
}

// EnvironmentConfig describes the hosting surface when it cannot be detected per request
type EnvironmentConfig struct {
	Host      string `yaml:"host,omitempty"` // "SharePoint", "Teams", "TeamsModern", "Office", "Outlook"
	Localhost bool   `yaml:"localhost,omitempty"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
	Watch bool   `yaml:"watch"` // Re-load and broadcast on config file changes
	// FrameAncestors lists the origins allowed to embed the widget page (default: 'self')
	FrameAncestors []string `yaml:"frame_ancestors,omitempty"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // "debug", "info", "warn", "error"; empty = silent
}

// APIConfig holds list REST API configuration
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	CORS      *CORSConfig      `yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
	Auth      *AuthConfig      `yaml:"auth,omitempty"`
}

// AuthConfig holds authentication configuration for the API
type AuthConfig struct {
	// APIKey supports environment variable expansion (e.g., "${API_KEY}")
	APIKey string `yaml:"api_key,omitempty"`
	// HeaderName defaults to "X-API-Key"; "Authorization" accepts "Bearer <token>"
	HeaderName string `yaml:"header_name,omitempty"`
}

// CORSConfig holds CORS configuration for the API
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty"`
}

// RateLimitConfig holds rate limiting configuration for the API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // default: 10
	Burst             int     `yaml:"burst,omitempty"`               // default: 20
	MaxTrackedIPs     int     `yaml:"max_tracked_ips,omitempty"`     // default: 10000
}

// GetType returns the backend type (default: "sqlite")
func (c StoreConfig) GetType() string {
	if c.Type == "" {
		return "sqlite"
	}
	return c.Type
}

// GetDB returns the sqlite database path (default: ./accordion.db)
func (c StoreConfig) GetDB() string {
	if c.DB == "" {
		return "./accordion.db"
	}
	return c.DB
}

// GetDSN returns the postgres DSN, falling back to DATABASE_URL
func (c StoreConfig) GetDSN() string {
	if c.DSN != "" {
		return os.ExpandEnv(c.DSN)
	}
	return os.Getenv("DATABASE_URL")
}

// GetTimeout returns the parsed per-call timeout (default: 10s)
func (c StoreConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetRetryMaxRetries returns the max read retries (default: 0)
func (c StoreConfig) GetRetryMaxRetries() int {
	if c.Retry == nil || c.Retry.MaxRetries < 0 {
		return 0
	}
	return c.Retry.MaxRetries
}

// GetRetryBaseDelay returns the base delay (default: 100ms)
func (c StoreConfig) GetRetryBaseDelay() time.Duration {
	if c.Retry == nil || c.Retry.BaseDelay == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(c.Retry.BaseDelay)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetRetryMaxDelay returns the max delay (default: 5s)
func (c StoreConfig) GetRetryMaxDelay() time.Duration {
	if c.Retry == nil || c.Retry.MaxDelay == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.Retry.MaxDelay)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// IsCacheEnabled returns true if the container listing is cached
func (c StoreConfig) IsCacheEnabled() bool {
	return c.GetCacheTTL() > 0
}

// GetCacheTTL returns the cache TTL (0 if caching is disabled)
func (c StoreConfig) GetCacheTTL() time.Duration {
	if c.Cache == nil || c.Cache.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0
	}
	return d
}

// ExpandedHeaders returns the REST headers with environment variables expanded
func (c StoreConfig) ExpandedHeaders() map[string]string {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = os.ExpandEnv(v)
	}
	return headers
}

// Properties returns the widget properties in the unified schema
func (w WidgetConfig) Properties() accordion.Properties {
	sel := accordion.SelectionMode(w.SelectionMode)
	if sel == "" {
		sel = accordion.SelectionCreate
	}
	return accordion.Properties{
		Description:   w.Description,
		ListReference: w.List,
		ListChoice:    w.ListChoice,
		SelectionMode: sel,
	}
}

// SetProperties writes properties back into the widget section
func (w *WidgetConfig) SetProperties(p accordion.Properties) {
	w.Description = p.Description
	w.List = p.ListReference
	w.ListChoice = p.ListChoice
	w.SelectionMode = string(p.SelectionMode)
}

// GetMode returns the parsed display mode
func (w WidgetConfig) GetMode() accordion.Mode {
	return accordion.ParseMode(w.Mode)
}

// GetCORSOrigins returns the configured CORS origins, or nil if not configured
func (c *APIConfig) GetCORSOrigins() []string {
	if c == nil || c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10)
func (c *APIConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20)
func (c *APIConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 20
	}
	return c.RateLimit.Burst
}

// GetMaxTrackedIPs returns how many client IPs the rate limiter tracks (default: 10000)
func (c *APIConfig) GetMaxTrackedIPs() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.MaxTrackedIPs <= 0 {
		return 10000
	}
	return c.RateLimit.MaxTrackedIPs
}

// IsAuthEnabled returns true if API authentication is configured
func (c *APIConfig) IsAuthEnabled() bool {
	if c == nil || c.Auth == nil {
		return false
	}
	return c.Auth.GetAPIKey() != ""
}

// GetAPIKey returns the configured API key with environment variable expansion
func (c *AuthConfig) GetAPIKey() string {
	if c == nil || c.APIKey == "" {
		return ""
	}
	return os.ExpandEnv(c.APIKey)
}

// GetHeaderName returns the header name for authentication (default: "X-API-Key")
func (c *AuthConfig) GetHeaderName() string {
	if c == nil || c.HeaderName == "" {
		return "X-API-Key"
	}
	return c.HeaderName
}

// IsAPIEnabled returns whether the list API is served
func (c *Config) IsAPIEnabled() bool {
	return c.API != nil && c.API.Enabled
}

// Validate checks values that have no sensible default
func (c *Config) Validate() error {
	switch c.Store.GetType() {
	case "memory", "sqlite", "pg":
	case "rest":
		if c.Store.URL == "" {
			return fmt.Errorf("store: url is required for rest backend")
		}
	default:
		return fmt.Errorf("store: unsupported type %q", c.Store.Type)
	}

	switch c.Widget.SelectionMode {
	case "", string(accordion.SelectionCreate), string(accordion.SelectionSelect):
	default:
		return fmt.Errorf("widget: unsupported selection_mode %q", c.Widget.SelectionMode)
	}

	switch c.Widget.RichText {
	case "", "html", "markdown":
	default:
		return fmt.Errorf("widget: unsupported rich_text %q", c.Widget.RichText)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title: "Accordion",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Store: StoreConfig{
			Type: "sqlite",
		},
		Widget: WidgetConfig{
			SelectionMode: string(accordion.SelectionCreate),
			Mode:          string(accordion.ModeRead),
			RichText:      "html",
		},
	}
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// LoadFromDir looks for accordion.yaml in the given directory
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Package config provides configuration management for zaptv using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/zaptv/zaptv/pkg/duration"
)

// Default configuration values.
const (
	defaultServerPort      = 8089
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute
	defaultHTTPTimeout     = 45 * time.Second
	defaultMaxConcurrent   = 2
	defaultMinInterval     = 500 * time.Millisecond
	defaultRetryAttempts   = 3
	defaultRetryDelay      = time.Second
	defaultCacheTTL        = time.Hour
	defaultEPGRefreshCron  = "0 */6 * * *"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Provider ProviderConfig `mapstructure:"provider"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Cache    CacheConfig    `mapstructure:"cache"`
	EPG      EPGConfig      `mapstructure:"epg"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration for the cache store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// ProviderConfig describes the upstream IPTV provider.
//
// Mode "xtream" drives the player_api.php JSON API on URL with
// Username/Password. Mode "m3u" derives the whole catalog from a single
// playlist document; M3UURL overrides the URL-derived get.php endpoint.
type ProviderConfig struct {
	Mode         string `mapstructure:"mode"` // xtream, m3u
	URL          string `mapstructure:"url"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	M3UURL       string `mapstructure:"m3u_url"`
	EPGURL       string `mapstructure:"epg_url"`
	StreamFormat string `mapstructure:"stream_format"` // preferred live container extension
}

// FetchConfig holds upstream HTTP resilience configuration.
type FetchConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	MinInterval     time.Duration `mapstructure:"min_interval"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	RewriteProxyURL string        `mapstructure:"rewrite_proxy_url"`
	CORSProxies     []string      `mapstructure:"cors_proxies"`
}

// CacheConfig holds cache-aside configuration.
type CacheConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	Namespace string        `mapstructure:"namespace"`
}

// EPGConfig holds guide refresh configuration.
type EPGConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	RefreshCron string `mapstructure:"refresh_cron"` // 5-field cron expression
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with ZAPTV_ and use underscores for nesting.
// Example: ZAPTV_SERVER_PORT=8089.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/zaptv")
		v.AddConfigPath("$HOME/.zaptv")
	}

	v.SetEnvPrefix("ZAPTV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper unmarshals and validates configuration from an already
// primed viper instance. The CLI uses this with the global viper so that
// bound command flags take part in precedence.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// decodeHooks builds the mapstructure hook chain. Durations accept the
// extended format with day and week units ("30d", "2w") on top of the
// standard Go forms.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToDurationHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func stringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return duration.Parse(data.(string))
	}
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "zaptv.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Provider defaults
	v.SetDefault("provider.mode", "xtream")
	v.SetDefault("provider.url", "")
	v.SetDefault("provider.username", "")
	v.SetDefault("provider.password", "")
	v.SetDefault("provider.m3u_url", "")
	v.SetDefault("provider.epg_url", "")
	v.SetDefault("provider.stream_format", "ts")

	// Fetch defaults
	v.SetDefault("fetch.timeout", defaultHTTPTimeout)
	v.SetDefault("fetch.max_concurrent", defaultMaxConcurrent)
	v.SetDefault("fetch.min_interval", defaultMinInterval)
	v.SetDefault("fetch.retry_attempts", defaultRetryAttempts)
	v.SetDefault("fetch.retry_delay", defaultRetryDelay)
	v.SetDefault("fetch.rewrite_proxy_url", "")
	v.SetDefault("fetch.cors_proxies", []string{})

	// Cache defaults
	v.SetDefault("cache.ttl", defaultCacheTTL)
	v.SetDefault("cache.namespace", "zaptv")

	// EPG defaults
	v.SetDefault("epg.enabled", true)
	v.SetDefault("epg.refresh_cron", defaultEPGRefreshCron)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	validModes := map[string]bool{"xtream": true, "m3u": true}
	if !validModes[c.Provider.Mode] {
		return fmt.Errorf("provider.mode must be one of: xtream, m3u")
	}
	if c.Provider.URL != "" {
		if _, err := url.ParseRequestURI(c.Provider.URL); err != nil {
			return fmt.Errorf("provider.url is not a valid URL: %w", err)
		}
	}
	if c.Fetch.MaxConcurrent < 1 {
		return fmt.Errorf("fetch.max_concurrent must be at least 1")
	}
	if c.Fetch.RetryAttempts < 0 {
		return fmt.Errorf("fetch.retry_attempts must not be negative")
	}
	if c.Fetch.MinInterval < 0 {
		return fmt.Errorf("fetch.min_interval must not be negative")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.Namespace == "" {
		return fmt.Errorf("cache.namespace is required")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PlaylistURL returns the URL the raw playlist is fetched from. An explicit
// m3u_url wins; otherwise the Xtream get.php form is derived from the base URL.
func (c *ProviderConfig) PlaylistURL(format string) string {
	if c.M3UURL != "" {
		return c.M3UURL
	}
	base := strings.TrimRight(c.URL, "/")
	return fmt.Sprintf("%s/get.php?username=%s&password=%s&type=m3u_plus&output=%s",
		base, url.QueryEscape(c.Username), url.QueryEscape(c.Password), url.QueryEscape(format))
}

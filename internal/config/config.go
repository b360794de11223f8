package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return load("")
}

// NewFromFile creates a configuration instance from an explicit config file
func NewFromFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	// A .env file is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/url-verifier/")
		v.AddConfigPath("$HOME/.url-verifier")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	bindEnv(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvPrefix("URL_VERIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// The Safe Browsing key is commonly provisioned under its conventional name
	_ = v.BindEnv("threat_lookup.api_key", "URL_VERIFIER_THREAT_LOOKUP_API_KEY", "GOOGLE_SAFE_BROWSING_API_KEY")
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.frontend_type", "http")
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.max_url_length", 2048)
	v.SetDefault("server.request_timeout", "20s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.rps", 5.0)
	v.SetDefault("server.rate_limit.burst", 10)

	// Verifier defaults
	v.SetDefault("verifier.freshness", "12h")
	v.SetDefault("verifier.trusted_domains", []string{})
	v.SetDefault("verifier.blocked_domains", []string{})

	// Threat lookup defaults
	v.SetDefault("threat_lookup.enabled", true)
	v.SetDefault("threat_lookup.api_key", "")
	v.SetDefault("threat_lookup.endpoint", "")
	v.SetDefault("threat_lookup.client_id", "project-hub")
	v.SetDefault("threat_lookup.client_version", "1.0.0")
	v.SetDefault("threat_lookup.timeout", "5s")
	v.SetDefault("threat_lookup.fail_policy", "open")
	v.SetDefault("threat_lookup.rate_limit.rps", 10.0)
	v.SetDefault("threat_lookup.rate_limit.burst", 10)

	// Probe defaults
	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.user_agent", "ProjectHub-Verifier/1.0")
	v.SetDefault("probe.dns_resolver", "")
	v.SetDefault("probe.allow_private_networks", false)

	// Cache defaults
	v.SetDefault("cache.type", "sqlite")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.sqlite_path", "/data/url_verifications.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/url_verifier")
	v.SetDefault("cache.postgres_dsn", "host=localhost user=postgres dbname=url_verifier sslmode=disable")

	// Refresh defaults
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.interval", "6h")
	v.SetDefault("refresh.urls", []string{})

	// CLI defaults
	v.SetDefault("cli.json", false)
	v.SetDefault("cli.verbose", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Gateway   GatewayConfig
	Transport TransportConfig
	Snapshot  SnapshotConfig
	Batch     BatchConfig
	Log       LogConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	InputDir string // directory attachment files are read from
}

// GatewayConfig holds the gateway endpoint and credentials
type GatewayConfig struct {
	URL            string
	CompanyID      string
	SenderID       string
	SenderPassword string
	UserID         string
	UserPassword   string
	LocationID     string
	UseLocations   bool // open per-subsidiary sessions instead of top-level only
}

// TransportConfig holds HTTP and retry settings
type TransportConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

// SnapshotConfig holds reference snapshot reuse settings
type SnapshotConfig struct {
	Enabled bool
	Path    string
	MaxAge  time.Duration
}

// BatchConfig holds batching settings
type BatchConfig struct {
	MaxSize int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load reads configuration from config.toml and INTACCT_* environment
// variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/intacct-sync")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("INTACCT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			InputDir: v.GetString("app.input_dir"),
		},
		Gateway: GatewayConfig{
			URL:            v.GetString("gateway.url"),
			CompanyID:      v.GetString("gateway.company_id"),
			SenderID:       v.GetString("gateway.sender_id"),
			SenderPassword: v.GetString("gateway.sender_password"),
			UserID:         v.GetString("gateway.user_id"),
			UserPassword:   v.GetString("gateway.user_password"),
			LocationID:     v.GetString("gateway.location_id"),
			UseLocations:   v.GetBool("gateway.use_locations"),
		},
		Transport: TransportConfig{
			Timeout:     v.GetDuration("transport.timeout"),
			MaxAttempts: v.GetInt("transport.max_attempts"),
			BackoffBase: v.GetDuration("transport.backoff_base"),
		},
		Snapshot: SnapshotConfig{
			Enabled: v.GetBool("snapshot.enabled"),
			Path:    v.GetString("snapshot.path"),
			MaxAge:  v.GetDuration("snapshot.max_age"),
		},
		Batch: BatchConfig{
			MaxSize: v.GetInt("batch.max_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "intacct-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Gateway.URL == "" {
		cfg.Gateway.URL = "https://api.intacct.com/ia/xml/xmlgw.phtml"
	}
	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = 30 * time.Second
	}
	if cfg.Transport.MaxAttempts == 0 {
		cfg.Transport.MaxAttempts = 5
	}
	if cfg.Transport.BackoffBase == 0 {
		cfg.Transport.BackoffBase = time.Second
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "intacct-refdata.json"
	}
	if cfg.Snapshot.MaxAge == 0 {
		cfg.Snapshot.MaxAge = time.Hour
	}
	if cfg.Batch.MaxSize == 0 {
		cfg.Batch.MaxSize = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

// validate checks that required configuration is present
func (c *Config) validate() error {
	var missing []string
	if c.Gateway.CompanyID == "" {
		missing = append(missing, "gateway.company_id")
	}
	if c.Gateway.SenderID == "" {
		missing = append(missing, "gateway.sender_id")
	}
	if c.Gateway.SenderPassword == "" {
		missing = append(missing, "gateway.sender_password")
	}
	if c.Gateway.UserID == "" {
		missing = append(missing, "gateway.user_id")
	}
	if c.Gateway.UserPassword == "" {
		missing = append(missing, "gateway.user_password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.Batch.MaxSize < 1 {
		return fmt.Errorf("config: batch.max_size must be positive")
	}
	if c.Transport.MaxAttempts < 1 {
		return fmt.Errorf("config: transport.max_attempts must be positive")
	}
	return nil
}

package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"kite_ticker/internal/domain"
)

// Config holds every application setting.
// After LoadConfig reads the file, environment variables override secrets.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Kite struct {
		APIKey      string   `yaml:"api_key"`
		AccessToken string   `yaml:"access_token"`
		Root        string   `yaml:"root"`
		Reconnect   *bool    `yaml:"reconnect"`
		MaxRetry    int      `yaml:"max_retry"`
		MaxDelaySec int      `yaml:"max_delay_sec"`
		Mode        string   `yaml:"mode"`
		Tokens      []uint32 `yaml:"tokens"`
	} `yaml:"kite"`

	Storage struct {
		Path             string `yaml:"path"`
		FlushIntervalSec int    `yaml:"flush_interval_sec"`
	} `yaml:"storage"`

	Alerts []AlertRule `yaml:"alerts"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	Pprof struct {
		Addr string `yaml:"addr"`
	} `yaml:"pprof"`
}

// AlertRule is a price alert as written in the config file.
type AlertRule struct {
	Token      uint32          `yaml:"token"`
	Target     decimal.Decimal `yaml:"target"`
	Persistent bool            `yaml:"persistent"`
}

// LoadConfig reads and parses the config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domain.ConfigError{Field: path, Err: domain.ErrConfigNotFound}
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Secrets may come from the environment instead of the file.
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Kite.APIKey == "" {
		return &domain.ConfigError{Field: "kite.api_key", Err: domain.ErrMissingValue}
	}
	if c.Kite.AccessToken == "" {
		return &domain.ConfigError{Field: "kite.access_token", Err: domain.ErrMissingValue}
	}
	if c.Kite.Root != "" && !strings.HasPrefix(c.Kite.Root, "ws://") && !strings.HasPrefix(c.Kite.Root, "wss://") {
		return fmt.Errorf("invalid Kite root URL: %s", c.Kite.Root)
	}
	if c.Kite.Mode != "" && !domain.Mode(c.Kite.Mode).Valid() {
		return fmt.Errorf("invalid subscription mode: %s", c.Kite.Mode)
	}
	if c.Kite.MaxRetry < 0 || c.Kite.MaxDelaySec < 0 {
		return fmt.Errorf("reconnect limits must not be negative")
	}

	if c.Storage.FlushIntervalSec < 0 {
		return fmt.Errorf("flush interval must not be negative")
	}

	for i, a := range c.Alerts {
		if a.Token == 0 {
			return fmt.Errorf("alert %d: token is required", i)
		}
		if !a.Target.IsPositive() {
			return fmt.Errorf("alert %d: target must be positive", i)
		}
	}

	return nil
}

// ReconnectEnabled defaults to true when the key is absent.
func (c *Config) ReconnectEnabled() bool {
	return c.Kite.Reconnect == nil || *c.Kite.Reconnect
}

// overrideWithEnv replaces values with environment variables when set.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("KITE_API_KEY"); key != "" {
		cfg.Kite.APIKey = key
	}
	if token := os.Getenv("KITE_ACCESS_TOKEN"); token != "" {
		cfg.Kite.AccessToken = token
	}
	if root := os.Getenv("KITE_ROOT_URL"); root != "" {
		cfg.Kite.Root = root
	}
}

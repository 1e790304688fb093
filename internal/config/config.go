// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing harness configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Harness() HarnessConfig
	Fixtures() FixturesConfig

	// Harness Setters
	SetHarnessAssertTimeout(d time.Duration)
	SetHarnessPollInterval(d time.Duration)
	SetHarnessUnhandledPolicy(policy string)
	SetHarnessFetchTimeout(d time.Duration)

	// Fixtures Setters
	SetFixturesRoutesFile(path string)
}

// Config holds the entire harness configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	HarnessCfg  HarnessConfig  `mapstructure:"harness" yaml:"harness"`
	FixturesCfg FixturesConfig `mapstructure:"fixtures" yaml:"fixtures"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Harness() HarnessConfig   { return c.HarnessCfg }
func (c *Config) Fixtures() FixturesConfig { return c.FixturesCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetHarnessAssertTimeout(d time.Duration) { c.HarnessCfg.AssertTimeout = d }
func (c *Config) SetHarnessPollInterval(d time.Duration)  { c.HarnessCfg.PollInterval = d }
func (c *Config) SetHarnessUnhandledPolicy(policy string) {
	c.HarnessCfg.UnhandledPolicy = policy
}
func (c *Config) SetHarnessFetchTimeout(d time.Duration) { c.HarnessCfg.FetchTimeout = d }
func (c *Config) SetFixturesRoutesFile(path string)      { c.FixturesCfg.RoutesFile = path }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Unhandled request policies understood by the route interceptor.
const (
	UnhandledPolicyFail         = "fail"
	UnhandledPolicyNetworkError = "network_error"
)

// HarnessConfig tunes page behavior: assertion polling and interception policy.
type HarnessConfig struct {
	// AssertTimeout bounds every polling assertion.
	AssertTimeout time.Duration `mapstructure:"assert_timeout" yaml:"assert_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// UnhandledPolicy is one of "fail" or "network_error".
	UnhandledPolicy string        `mapstructure:"unhandled_policy" yaml:"unhandled_policy"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

// FixturesConfig points at optional fixture files.
type FixturesConfig struct {
	RoutesFile string `mapstructure:"routes_file" yaml:"routes_file"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "mockpage")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Harness --
	v.SetDefault("harness.assert_timeout", "5s")
	v.SetDefault("harness.poll_interval", "50ms")
	v.SetDefault("harness.unhandled_policy", UnhandledPolicyFail)
	v.SetDefault("harness.fetch_timeout", "10s")

	// -- Fixtures --
	v.SetDefault("fixtures.routes_file", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	return c.HarnessCfg.Validate()
}

// Validate checks the harness settings.
func (h *HarnessConfig) Validate() error {
	if h.AssertTimeout <= 0 {
		return fmt.Errorf("harness.assert_timeout must be a positive duration")
	}
	if h.PollInterval <= 0 {
		return fmt.Errorf("harness.poll_interval must be a positive duration")
	}
	if h.PollInterval > h.AssertTimeout {
		return fmt.Errorf("harness.poll_interval must not exceed harness.assert_timeout")
	}
	if h.FetchTimeout <= 0 {
		return fmt.Errorf("harness.fetch_timeout must be a positive duration")
	}
	switch strings.ToLower(h.UnhandledPolicy) {
	case UnhandledPolicyFail, UnhandledPolicyNetworkError:
	default:
		return fmt.Errorf("harness.unhandled_policy must be %q or %q, got %q",
			UnhandledPolicyFail, UnhandledPolicyNetworkError, h.UnhandledPolicy)
	}
	return nil
}

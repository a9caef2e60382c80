// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Login   LoginConfig   `mapstructure:"login" yaml:"login"`
	Popup   PopupConfig   `mapstructure:"popup" yaml:"popup"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser process.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	DisableCache      bool          `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Concurrency       int64         `mapstructure:"concurrency" yaml:"concurrency"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// LoginConfig tunes the login orchestrator.
type LoginConfig struct {
	// Username and Password come from the environment only
	// (PORTALAGENT_LOGIN_USERNAME / PORTALAGENT_LOGIN_PASSWORD) and are
	// never written back to disk.
	Username string `mapstructure:"username" yaml:"-"`
	Password string `mapstructure:"password" yaml:"-"`

	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SettleWait    time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
	PopupWait     time.Duration `mapstructure:"popup_wait" yaml:"popup_wait"`
	TwoFactorWait time.Duration `mapstructure:"two_factor_wait" yaml:"two_factor_wait"`
	ManualWait    time.Duration `mapstructure:"manual_wait" yaml:"manual_wait"`
	FillDelay     time.Duration `mapstructure:"fill_delay" yaml:"fill_delay"`
}

// PopupConfig tunes popup dismissal.
type PopupConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	DismissWait   time.Duration `mapstructure:"dismiss_wait" yaml:"dismiss_wait"`
	ClearTimeout  time.Duration `mapstructure:"clear_timeout" yaml:"clear_timeout"`
	CheckInterval time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
}

// CaptureConfig tunes scroll capture and multi-page visits.
type CaptureConfig struct {
	ScrollCount int           `mapstructure:"scroll_count" yaml:"scroll_count"`
	ScrollWait  time.Duration `mapstructure:"scroll_wait" yaml:"scroll_wait"`
	WaitForData time.Duration `mapstructure:"wait_for_data" yaml:"wait_for_data"`
	SettleWait  time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
	// NavigationsPerMinute paces target navigations. Zero disables pacing.
	NavigationsPerMinute float64 `mapstructure:"navigations_per_minute" yaml:"navigations_per_minute"`
}

// OutputConfig controls where run artifacts land.
type OutputConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	ResultsFile string `mapstructure:"results_file" yaml:"results_file"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "portalagent")
	v.SetDefault("logger.log_file", "portalagent.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.concurrency", 2)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.post_load_wait", "2s")
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")

	// -- Login --
	v.SetDefault("login.timeout", "600s")
	v.SetDefault("login.settle_wait", "5s")
	v.SetDefault("login.popup_wait", "2s")
	v.SetDefault("login.two_factor_wait", "10s")
	v.SetDefault("login.manual_wait", "10s")
	v.SetDefault("login.fill_delay", "500ms")

	// -- Popup --
	v.SetDefault("popup.max_attempts", 6)
	v.SetDefault("popup.dismiss_wait", "3s")
	v.SetDefault("popup.clear_timeout", "30s")
	v.SetDefault("popup.check_interval", "2s")

	// -- Capture --
	v.SetDefault("capture.scroll_count", 5)
	v.SetDefault("capture.scroll_wait", "2500ms")
	v.SetDefault("capture.wait_for_data", "45s")
	v.SetDefault("capture.settle_wait", "3s")
	v.SetDefault("capture.navigations_per_minute", 0)

	// -- Output --
	v.SetDefault("output.dir", "artifacts")
	v.SetDefault("output.results_file", "visits.json")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewFromViper creates a configuration instance from a viper object.
func NewFromViper(v *viper.Viper) (*Config, error) {
	// Credentials are sensitive and only ever come from the environment.
	v.BindEnv("login.username", "PORTALAGENT_LOGIN_USERNAME")
	v.BindEnv("login.password", "PORTALAGENT_LOGIN_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Browser.Concurrency <= 0 {
		return fmt.Errorf("browser.concurrency must be a positive integer")
	}
	if c.Login.Timeout <= 0 {
		return fmt.Errorf("login.timeout must be a positive duration")
	}
	if c.Popup.MaxAttempts <= 0 {
		return fmt.Errorf("popup.max_attempts must be a positive integer")
	}
	if c.Capture.ScrollCount < 0 {
		return fmt.Errorf("capture.scroll_count must not be negative")
	}
	if c.Capture.NavigationsPerMinute < 0 {
		return fmt.Errorf("capture.navigations_per_minute must not be negative")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}

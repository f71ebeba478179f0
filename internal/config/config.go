// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Finder() FinderConfig
	Playback() PlaybackConfig
	Recorder() RecorderConfig
	Browser() BrowserConfig

	// Playback Setters
	SetPlaybackHighlight(bool)
	SetPlaybackStopOnFailure(bool)
	SetPlaybackTargetTimeout(d time.Duration)
	SetPlaybackStepDelay(d time.Duration)

	// Browser Setters
	SetBrowserHeadless(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	FinderCfg   FinderConfig   `mapstructure:"finder" yaml:"finder"`
	PlaybackCfg PlaybackConfig `mapstructure:"playback" yaml:"playback"`
	RecorderCfg RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Finder() FinderConfig     { return c.FinderCfg }
func (c *Config) Playback() PlaybackConfig { return c.PlaybackCfg }
func (c *Config) Recorder() RecorderConfig { return c.RecorderCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }

// --- Interface Method Implementations (Setters) ---

// Playback Setters
func (c *Config) SetPlaybackHighlight(b bool)     { c.PlaybackCfg.Highlight = b }
func (c *Config) SetPlaybackStopOnFailure(b bool) { c.PlaybackCfg.StopOnFailure = b }
func (c *Config) SetPlaybackTargetTimeout(d time.Duration) {
	c.PlaybackCfg.TargetTimeout = d
}
func (c *Config) SetPlaybackStepDelay(d time.Duration) { c.PlaybackCfg.StepDelay = d }

// Browser Setters
func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }

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

// FinderConfig tunes element resolution.
type FinderConfig struct {
	CacheSize    int           `mapstructure:"cache_size" yaml:"cache_size"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// PlaybackConfig controls how a recorded sequence is replayed.
type PlaybackConfig struct {
	// TargetTimeout is how long to wait for a target to appear before acting. Zero disables waiting.
	TargetTimeout     time.Duration `mapstructure:"target_timeout" yaml:"target_timeout"`
	Highlight         bool          `mapstructure:"highlight" yaml:"highlight"`
	HighlightDuration time.Duration `mapstructure:"highlight_duration" yaml:"highlight_duration"`
	StepDelay         time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	StopOnFailure     bool          `mapstructure:"stop_on_failure" yaml:"stop_on_failure"`
}

// RecorderConfig controls action capture.
type RecorderConfig struct {
	// WaitThreshold is the idle gap that becomes an explicit wait action.
	WaitThreshold time.Duration `mapstructure:"wait_threshold" yaml:"wait_threshold"`
}

// BrowserConfig holds settings for capturing live pages.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleTime        time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
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
	v.SetDefault("logger.service_name", "scalpel-replay")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Finder --
	v.SetDefault("finder.cache_size", 500)
	v.SetDefault("finder.poll_interval", "100ms")

	// -- Playback --
	v.SetDefault("playback.target_timeout", "0s")
	v.SetDefault("playback.highlight", true)
	v.SetDefault("playback.highlight_duration", "1s")
	v.SetDefault("playback.step_delay", "0s")
	v.SetDefault("playback.stop_on_failure", false)

	// -- Recorder --
	v.SetDefault("recorder.wait_threshold", "1s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.settle_time", "500ms")
}

// EnvPrefix namespaces environment overrides, e.g. REPLAY_PLAYBACK_STEP_DELAY.
const EnvPrefix = "REPLAY"

// BindEnv lets environment variables override every key that has a default.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
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
	if c.FinderCfg.CacheSize <= 0 {
		return fmt.Errorf("finder.cache_size must be a positive integer")
	}
	if c.FinderCfg.PollInterval <= 0 {
		return fmt.Errorf("finder.poll_interval must be a positive duration")
	}
	if err := c.PlaybackCfg.Validate(); err != nil {
		return fmt.Errorf("playback configuration invalid: %w", err)
	}
	if c.RecorderCfg.WaitThreshold < 0 {
		return fmt.Errorf("recorder.wait_threshold must not be negative")
	}
	if c.BrowserCfg.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the PlaybackConfig settings.
func (p *PlaybackConfig) Validate() error {
	if p.TargetTimeout < 0 {
		return fmt.Errorf("target_timeout must not be negative")
	}
	if p.StepDelay < 0 {
		return fmt.Errorf("step_delay must not be negative")
	}
	if p.Highlight && p.HighlightDuration <= 0 {
		return fmt.Errorf("highlight_duration must be a positive duration when highlight is enabled")
	}
	return nil
}

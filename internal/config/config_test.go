// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "scalpel-replay", cfg.Logger().ServiceName)
	assert.Equal(t, 500, cfg.Finder().CacheSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Finder().PollInterval)
	assert.Zero(t, cfg.Playback().TargetTimeout)
	assert.True(t, cfg.Playback().Highlight)
	assert.Equal(t, time.Second, cfg.Playback().HighlightDuration)
	assert.False(t, cfg.Playback().StopOnFailure)
	assert.Equal(t, time.Second, cfg.Recorder().WaitThreshold)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser().NavigationTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Browser().SettleTime)

	assert.NoError(t, cfg.Validate(), "defaults must always validate")
}

func TestSetters(t *testing.T) {
	var cfg Interface = NewDefaultConfig()

	cfg.SetPlaybackHighlight(false)
	cfg.SetPlaybackStopOnFailure(true)
	cfg.SetPlaybackTargetTimeout(3 * time.Second)
	cfg.SetPlaybackStepDelay(250 * time.Millisecond)
	cfg.SetBrowserHeadless(false)

	assert.False(t, cfg.Playback().Highlight)
	assert.True(t, cfg.Playback().StopOnFailure)
	assert.Equal(t, 3*time.Second, cfg.Playback().TargetTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Playback().StepDelay)
	assert.False(t, cfg.Browser().Headless)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Zero Cache Size", func(c *Config) { c.FinderCfg.CacheSize = 0 }, "finder.cache_size must be a positive integer"},
		{"Zero Poll Interval", func(c *Config) { c.FinderCfg.PollInterval = 0 }, "finder.poll_interval must be a positive duration"},
		{"Negative Target Timeout", func(c *Config) { c.PlaybackCfg.TargetTimeout = -time.Second }, "target_timeout must not be negative"},
		{"Negative Step Delay", func(c *Config) { c.PlaybackCfg.StepDelay = -1 }, "step_delay must not be negative"},
		{"Highlight Without Duration", func(c *Config) { c.PlaybackCfg.HighlightDuration = 0 }, "highlight_duration must be a positive duration"},
		{"Negative Wait Threshold", func(c *Config) { c.RecorderCfg.WaitThreshold = -1 }, "recorder.wait_threshold must not be negative"},
		{"Zero Navigation Timeout", func(c *Config) { c.BrowserCfg.NavigationTimeout = 0 }, "browser.navigation_timeout must be a positive duration"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("Highlight Disabled Ignores Duration", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.PlaybackCfg.Highlight = false
		cfg.PlaybackCfg.HighlightDuration = 0
		assert.NoError(t, cfg.Validate())
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
finder:
  cache_size: 64
playback:
  target_timeout: 2s
  step_delay: 150ms
  stop_on_failure: true
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 64, cfg.Finder().CacheSize)
		assert.Equal(t, 2*time.Second, cfg.Playback().TargetTimeout)
		assert.Equal(t, 150*time.Millisecond, cfg.Playback().StepDelay)
		assert.True(t, cfg.Playback().StopOnFailure)
		// Defaults still apply to keys the file leaves out.
		assert.Equal(t, "info", cfg.Logger().Level)
		assert.Equal(t, 100*time.Millisecond, cfg.Finder().PollInterval)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("finder.cache_size", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "finder.cache_size must be a positive integer")
	})

	t.Run("Environment Variable Override", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		BindEnv(v)

		t.Setenv("REPLAY_PLAYBACK_STEP_DELAY", "2s")
		t.Setenv("REPLAY_LOGGER_LEVEL", "debug")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, cfg.Playback().StepDelay)
		assert.Equal(t, "debug", cfg.Logger().Level)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/replay.log
  colors:
    info: "32"
browser:
  args: ["--no-sandbox", "--disable-gpu"]
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/replay.log", cfg.Logger().LogFile)
	assert.Equal(t, "32", cfg.Logger().Colors.Info)
	assert.Equal(t, []string{"--no-sandbox", "--disable-gpu"}, cfg.Browser().Args)
}

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
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "mockpage", cfg.Logger().ServiceName)
	assert.Equal(t, 5*time.Second, cfg.Harness().AssertTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Harness().PollInterval)
	assert.Equal(t, UnhandledPolicyFail, cfg.Harness().UnhandledPolicy)
	assert.Equal(t, 10*time.Second, cfg.Harness().FetchTimeout)
	assert.Empty(t, cfg.Fixtures().RoutesFile)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Valid Defaults", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Invalid Assert Timeout", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetHarnessAssertTimeout(0)
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "harness.assert_timeout must be a positive duration")
	})

	t.Run("Poll Interval Exceeds Timeout", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetHarnessPollInterval(10 * time.Second)
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not exceed")
	})

	t.Run("Invalid Fetch Timeout", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetHarnessFetchTimeout(-time.Second)
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "harness.fetch_timeout")
	})

	t.Run("Unknown Unhandled Policy", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetHarnessUnhandledPolicy("passthrough")
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "passthrough")
	})

	t.Run("Network Error Policy Accepted", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetHarnessUnhandledPolicy(UnhandledPolicyNetworkError)
		assert.NoError(t, cfg.Validate())
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Overrides From YAML", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		yamlConfig := []byte(`
logger:
  level: debug
  format: json
harness:
  assert_timeout: 2s
  poll_interval: 10ms
  unhandled_policy: network_error
fixtures:
  routes_file: testdata/routes.yaml
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger().Level)
		assert.Equal(t, "json", cfg.Logger().Format)
		assert.Equal(t, 2*time.Second, cfg.Harness().AssertTimeout)
		assert.Equal(t, 10*time.Millisecond, cfg.Harness().PollInterval)
		assert.Equal(t, UnhandledPolicyNetworkError, cfg.Harness().UnhandledPolicy)
		// Unset keys keep their defaults.
		assert.Equal(t, 10*time.Second, cfg.Harness().FetchTimeout)
		assert.Equal(t, "testdata/routes.yaml", cfg.Fixtures().RoutesFile)
	})

	t.Run("Invalid Values Rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("harness.unhandled_policy", "ignore")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package fetchcache

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-fetchkit/config"
)

const cfgDefaultKeyPrefix = "fetchcache"

const (
	cfgKeyMaxAttempts = "maxAttempts"
	cfgKeyRetryDelay  = "retryDelay"
	cfgKeyRetryMode   = "retryMode"
)

var availableRetryModes = []string{RetryModeFreshAttempt.String(), RetryModeReuseAttempt.String()}

// Config represents a set of configuration parameters for the fetch cache.
// It may be loaded with config.Loader or decoded with json/yaml directly.
type Config struct {
	MaxAttempts int                 `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	RetryDelay  config.TimeDuration `mapstructure:"retryDelay" yaml:"retryDelay" json:"retryDelay"`
	RetryMode   RetryMode           `mapstructure:"retryMode" yaml:"retryMode" json:"retryMode"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.MaxAttempts = DefaultMaxAttempts
	cfg.RetryDelay = config.TimeDuration(DefaultRetryDelay)
	cfg.RetryMode = RetryModeFreshAttempt
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the fetch cache in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxAttempts, DefaultMaxAttempts)
	dp.SetDefault(cfgKeyRetryDelay, DefaultRetryDelay.String())
	dp.SetDefault(cfgKeyRetryMode, RetryModeFreshAttempt.String())
}

// Set sets fetch cache configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.MaxAttempts, err = dp.GetInt(cfgKeyMaxAttempts); err != nil {
		return err
	}
	if c.MaxAttempts < 1 {
		return dp.WrapKeyErr(cfgKeyMaxAttempts, fmt.Errorf("must be positive"))
	}

	var retryDelay time.Duration
	if retryDelay, err = dp.GetDuration(cfgKeyRetryDelay); err != nil {
		return err
	}
	if retryDelay < 0 {
		return dp.WrapKeyErr(cfgKeyRetryDelay, fmt.Errorf("must not be negative"))
	}
	c.RetryDelay = config.TimeDuration(retryDelay)

	var retryModeStr string
	if retryModeStr, err = dp.GetStringFromSet(cfgKeyRetryMode, availableRetryModes, true); err != nil {
		return err
	}
	if c.RetryMode, err = ParseRetryMode(retryModeStr); err != nil {
		return dp.WrapKeyErr(cfgKeyRetryMode, err)
	}

	return nil
}

// ParseRetryMode parses the retry mode from its configuration name ("fresh" or "reuse", case-insensitive).
func ParseRetryMode(s string) (RetryMode, error) {
	switch strings.ToLower(s) {
	case RetryModeFreshAttempt.String():
		return RetryModeFreshAttempt, nil
	case RetryModeReuseAttempt.String():
		return RetryModeReuseAttempt, nil
	}
	return 0, fmt.Errorf("unknown retry mode %q, should be one of %v", s, availableRetryModes)
}

// UnmarshalText allows decoding the retry mode from its configuration name in JSON and YAML.
func (m *RetryMode) UnmarshalText(text []byte) error {
	mode, err := ParseRetryMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// MarshalText encodes the retry mode as its configuration name.
func (m RetryMode) MarshalText() ([]byte, error) {
	if m != RetryModeFreshAttempt && m != RetryModeReuseAttempt {
		return nil, fmt.Errorf("unknown retry mode %d", int(m))
	}
	return []byte(m.String()), nil
}

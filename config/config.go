package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the configuration for the quill server.
type Config struct {
	LogLevel           string `hcl:"log_level,optional"`
	LogFormat          string `hcl:"log_format,optional"`
	LogFile            string `hcl:"log_file,optional"`
	LogRotationPeriod  int    `hcl:"log_rotation_period,optional"`
	LogRotateMegabytes int    `hcl:"log_rotate_megabytes,optional"`
	LogRotateMaxFiles  int    `hcl:"log_rotate_max_files,optional"`

	// BaseURL is the externally reachable address embedded into loader
	// bookmarklets and the report endpoint of generated scripts.
	BaseURL string `hcl:"base_url,optional"`

	Listeners []ListenerBlock `hcl:"listener,block"`
	Storage   *StorageBlock   `hcl:"storage,block"`
	Tokens    *TokensBlock    `hcl:"tokens,block"`
}

// TokensBlock configures the capability token store.
type TokensBlock struct {
	// TTL is the token lifetime, e.g. "24h".
	TTL string `hcl:"ttl,optional"`

	// DefaultMaxUsage applies when issuance does not specify a limit.
	DefaultMaxUsage int `hcl:"default_max_usage,optional"`

	// SweepInterval controls expired-record hygiene, e.g. "1h".
	// Empty disables the sweep.
	SweepInterval string `hcl:"sweep_interval,optional"`
}

// TTLDuration parses the configured TTL, defaulting to 24h.
func (t *TokensBlock) TTLDuration() (time.Duration, error) {
	if t == nil || t.TTL == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(t.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid tokens ttl %q: %w", t.TTL, err)
	}
	return d, nil
}

// SweepDuration parses the configured sweep interval. Zero means
// disabled.
func (t *TokensBlock) SweepDuration() (time.Duration, error) {
	if t == nil || t.SweepInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(t.SweepInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid tokens sweep_interval %q: %w", t.SweepInterval, err)
	}
	return d, nil
}

type StorageBlock struct {
	Type string `hcl:"type,label"` // "inmem" or "postgres"

	// PostgreSQL specific config
	ConnectionURL string `hcl:"connection_url,optional"`
	Table         string `hcl:"table,optional"`
}

type ListenerBlock struct {
	Name        string `hcl:"name,label"`
	Address     string `hcl:"address"`
	TLSCertFile string `hcl:"tls_cert_file,optional"`
	TLSKeyFile  string `hcl:"tls_key_file,optional"`
	TLSEnabled  bool   `hcl:"tls_enabled,optional"`
}

func LoadConfig(configFile string) (*Config, error) {
	var config Config

	err := hclsimple.DecodeFile(configFile, nil, &config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// GetListenerByName returns a listener by its name (label)
func (c *Config) GetListenerByName(name string) (*ListenerBlock, error) {
	for _, listener := range c.Listeners {
		if listener.Name == name {
			return &listener, nil
		}
	}
	return nil, fmt.Errorf("listener '%s' not found", name)
}

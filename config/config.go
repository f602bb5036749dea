// Package config loads optional worker settings from a YAML file. Values
// from the file sit beneath command-line flags: a flag that was set
// explicitly wins.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk settings format.
type File struct {
	// Queues lists the queues to poll, highest priority first.
	Queues []string `yaml:"queues,omitempty"`

	// Interval is the sleep between empty polls, in seconds.
	Interval *float64 `yaml:"interval,omitempty"`

	// Fork enables child-process isolation per job.
	Fork *bool `yaml:"fork,omitempty"`

	// Namespace is the Redis key prefix.
	Namespace string `yaml:"namespace,omitempty"`

	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	URI string `yaml:"uri,omitempty"`

	MaxConnections int `yaml:"max_connections,omitempty"`

	// TLS options
	UseTLS        bool   `yaml:"use_tls,omitempty"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify,omitempty"`
	TLSCertPath   string `yaml:"tls_cert_path,omitempty"`
}

// Load reads and parses a settings file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return &f, nil
}

// Package config loads the wayfinder.yaml configuration used by the CLI
// and the server modes.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "wayfinder.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Classifier backends.
const (
	ClassifierKeyword = "keyword"
	ClassifierOpenAI  = "openai"
)

// Config is the root of wayfinder.yaml.
type Config struct {
	// Graph is the path of the task graph file (json or yaml).
	Graph string `yaml:"graph"`

	// Listen is the address of the HTTP server.
	Listen string `yaml:"listen"`

	LogLevel string `yaml:"log_level"`

	Store      StoreConfig      `yaml:"store"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Fallback   FallbackConfig   `yaml:"fallback"`
}

// StoreConfig selects where sessions live.
type StoreConfig struct {
	Backend string        `yaml:"backend"`
	Dir     string        `yaml:"dir"`
	Redis   RedisConfig   `yaml:"redis"`
	LockTTL time.Duration `yaml:"lock_ttl"`

	Encryption EncryptionConfig `yaml:"encryption"`
}

// EnvEncryptionKey overrides store.encryption.key.
const EnvEncryptionKey = "WAYFINDER_ENCRYPTION_KEY"

// EncryptionConfig enables encryption at rest for stored sessions. Keys are
// base64 encoded 32 byte AES keys. Fallback keys are only used to decrypt.
type EncryptionConfig struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
}

// Enabled reports whether an active key is configured.
func (e EncryptionConfig) Enabled() bool {
	return e.Key != ""
}

// Keys decodes the active and fallback keys.
func (e EncryptionConfig) Keys() ([]byte, [][]byte, error) {
	active, err := base64.StdEncoding.DecodeString(e.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("store.encryption.key: %w", err)
	}
	var fallback [][]byte
	for i, k := range e.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, nil, fmt.Errorf("store.encryption.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

// RedisConfig configures the redis store and distributed locker.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// ClassifierConfig selects the intent classifier.
type ClassifierConfig struct {
	Backend   string       `yaml:"backend"`
	Threshold float64      `yaml:"threshold"`
	OpenAI    OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures the LLM classifier. The API key is read from
// OPENAI_API_KEY.
type OpenAIConfig struct {
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	Temperature *float32 `yaml:"temperature"`
	RPS         float64  `yaml:"rps"`
	Burst       int      `yaml:"burst"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// FallbackConfig overrides the resource and message used for unmatched turns.
type FallbackConfig struct {
	ResourceID   string `yaml:"resource_id"`
	ResourceName string `yaml:"resource_name"`
	Message      string `yaml:"message"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Graph:    "taskgraph.json",
		Listen:   ":8080",
		LogLevel: "info",
		Store: StoreConfig{
			Backend: StoreMemory,
			Dir:     ".wayfinder/sessions",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "wayfinder:session:",
				TTL:    24 * time.Hour,
			},
			LockTTL: 30 * time.Second,
		},
		Classifier: ClassifierConfig{
			Backend:   ClassifierKeyword,
			Threshold: 0.6,
			OpenAI: OpenAIConfig{
				RPS:   5,
				Burst: 5,
			},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path on top of the defaults. A missing file at DefaultPath is
// not an error; any other missing file is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data, cfg)
}

// FromEnv applies environment overrides.
func (c *Config) FromEnv() {
	if key := os.Getenv(EnvEncryptionKey); key != "" {
		c.Store.Encryption.Key = key
	}
}

// Parse decodes YAML over base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// Validate checks backend names and numeric ranges.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q (want memory, file or redis)", c.Store.Backend)
	}
	if c.Store.Backend == StoreRedis && c.Store.Redis.Addr == "" {
		return errors.New("store.redis.addr is required for the redis backend")
	}
	switch c.Classifier.Backend {
	case ClassifierKeyword, ClassifierOpenAI:
	default:
		return fmt.Errorf("unknown classifier backend %q (want keyword or openai)", c.Classifier.Backend)
	}
	if c.Classifier.Threshold < 0 || c.Classifier.Threshold > 1 {
		return fmt.Errorf("classifier.threshold must be within [0, 1], got %v", c.Classifier.Threshold)
	}
	if c.Store.Encryption.Enabled() {
		if _, _, err := c.Store.Encryption.Keys(); err != nil {
			return err
		}
	}
	if c.Classifier.OpenAI.RPS < 0 {
		return fmt.Errorf("classifier.openai.rps must not be negative, got %v", c.Classifier.OpenAI.RPS)
	}
	return nil
}

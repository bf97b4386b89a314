package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ftsync/internal/domain/searchable"
)

// Config holds the ftsync service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Index    IndexConfig    `yaml:"index"`
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Types    []TypeConfig   `yaml:"types"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// IndexConfig holds the index service endpoint.
type IndexConfig struct {
	Driver              string `yaml:"driver"` // redis, bleve (default: redis)
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	Node                string `yaml:"node"` // default: the environment name
	User                string `yaml:"user"`
	Password            string `yaml:"password"`
	Path                string `yaml:"path"`   // bleve only; empty keeps the index in memory
	Prefix              string `yaml:"prefix"` // redis key prefix (default: "<node>:")
	TimeoutSec          int    `yaml:"timeout_sec"`
	ReadinessTimeoutSec int    `yaml:"readiness_timeout_sec"`
	PageSize            int    `yaml:"page_size"`
}

// Timeout bounds a single index service call.
func (c IndexConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSec) * time.Second }

// ReadinessTimeout bounds the startup readiness wait.
func (c IndexConfig) ReadinessTimeout() time.Duration {
	return time.Duration(c.ReadinessTimeoutSec) * time.Second
}

// DatabaseConfig holds the record store connection settings.
type DatabaseConfig struct {
	Driver             string `yaml:"driver"` // postgres, sqlite (default: postgres)
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
}

// KafkaConfig holds the record event consumer settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	// RetryAttempts bounds how often a failing event is handled before the
	// consumer stops without committing it. Zero uses the consumer default.
	RetryAttempts    int `yaml:"retry_attempts"`
	RetryMaxDelaySec int `yaml:"retry_max_delay_sec"`
}

// TypeConfig registers one record type.
type TypeConfig struct {
	Name             string            `yaml:"name"`
	Parent           string            `yaml:"parent"`
	Searchable       bool              `yaml:"searchable"`
	SearchableFields []string          `yaml:"searchable_fields"`
	Attributes       []AttributeConfig `yaml:"attributes"`
	IfChanged        []string          `yaml:"if_changed"`
	Quiet            bool              `yaml:"quiet"`
	IgnoreTimestamps bool              `yaml:"ignore_timestamps"`
	Inheritance      bool              `yaml:"inheritance"`
	Table            string            `yaml:"table"`
	Columns          []string          `yaml:"columns"`
}

// AttributeConfig projects a record attribute into the index. An empty
// source reads the attribute named like the key.
type AttributeConfig struct {
	Key    string `yaml:"key"`
	Source string `yaml:"source"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env), env)
}

// LoadFile reads configuration from path. env fills defaults that depend on
// the environment.
func LoadFile(path, env string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if cfg.Index.Node == "" {
		cfg.Index.Node = env
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Index.Driver == "" {
		c.Index.Driver = "redis"
	}
	if c.Index.Port <= 0 {
		c.Index.Port = 6379
	}
	if c.Index.TimeoutSec <= 0 {
		c.Index.TimeoutSec = 10
	}
	if c.Index.ReadinessTimeoutSec <= 0 {
		c.Index.ReadinessTimeoutSec = 10
	}
	if c.Index.PageSize <= 0 {
		c.Index.PageSize = 500
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	for i := range c.Types {
		for j := range c.Types[i].Attributes {
			if c.Types[i].Attributes[j].Source == "" {
				c.Types[i].Attributes[j].Source = c.Types[i].Attributes[j].Key
			}
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Index.Driver {
	case "redis":
		if c.Index.Host == "" {
			return fmt.Errorf("index.host is required for the redis driver")
		}
	case "bleve":
	default:
		return fmt.Errorf("index.driver must be \"redis\" or \"bleve\", got %q", c.Index.Driver)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be \"postgres\" or \"sqlite\", got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" || c.Kafka.GroupID == "") {
		return fmt.Errorf("kafka.brokers, kafka.topic and kafka.group_id are required when kafka is enabled")
	}
	if len(c.Types) == 0 {
		return fmt.Errorf("at least one type must be registered")
	}
	if _, err := searchable.NewRegistry(c.Descriptors()...); err != nil {
		return fmt.Errorf("types: %w", err)
	}
	return nil
}

// Descriptors converts the type registrations.
func (c *Config) Descriptors() []searchable.Descriptor {
	out := make([]searchable.Descriptor, len(c.Types))
	for i, t := range c.Types {
		attrs := make([]searchable.Projection, len(t.Attributes))
		for j, a := range t.Attributes {
			attrs[j] = searchable.Projection{Key: a.Key, Source: a.Source}
		}
		out[i] = searchable.Descriptor{
			Name:             t.Name,
			Parent:           t.Parent,
			Searchable:       t.Searchable,
			SearchableFields: t.SearchableFields,
			Attributes:       attrs,
			IfChanged:        t.IfChanged,
			Quiet:            t.Quiet,
			IgnoreTimestamps: t.IgnoreTimestamps,
			Inheritance:      t.Inheritance,
			Columns:          t.Columns,
		}
	}
	return out
}

// Registry builds the type registry.
func (c *Config) Registry() (*searchable.Registry, error) {
	reg, err := searchable.NewRegistry(c.Descriptors()...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return reg, nil
}

// Tables returns the explicit table of every type that names one.
func (c *Config) Tables() map[string]string {
	out := make(map[string]string)
	for _, t := range c.Types {
		if t.Table != "" {
			out[t.Name] = t.Table
		}
	}
	return out
}

// findConfigPath looks for config/<env>.yaml in the working directory and
// each of its parents.
func findConfigPath(env string) string {
	rel := filepath.Join("config", env+".yaml")

	dir, err := os.Getwd()
	if err != nil {
		return rel
	}
	for {
		if path := filepath.Join(dir, rel); fileExists(path) {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return rel
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

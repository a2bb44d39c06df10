package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UserCredentials are the per-user secrets of the static credential source.
type UserCredentials struct {
	AuthToken string `yaml:"auth_token"`
	APIKey    string `yaml:"api_key"`
	BrokerKey string `yaml:"broker_api_key"`
}

type Config struct {
	Broker struct {
		Name       string `yaml:"name"`
		User       string `yaml:"user"`
		BaseURL    string `yaml:"base_url"`
		TimeoutSec int    `yaml:"timeout_seconds"`
		Stream     bool   `yaml:"stream"`
	} `yaml:"broker"`
	Credentials struct {
		Source string `yaml:"source"` // static or redis
		// Static values may be written as ${ENV_NAME}.
		Users map[string]UserCredentials `yaml:"users"`
	} `yaml:"credentials"`
	Instruments struct {
		CSV string `yaml:"csv"`
	} `yaml:"instruments"`
	Audit struct {
		Sink          string `yaml:"sink"` // file, postgres or none
		Dir           string `yaml:"dir"`
		DSN           string `yaml:"dsn"`
		QueueSize     int    `yaml:"queue_size"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"audit"`
	Events struct {
		Sinks         []string `yaml:"sinks"`
		ChannelPrefix string   `yaml:"channel_prefix"`
		QueueSize     int      `yaml:"queue_size"`
	} `yaml:"events"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Reconcile struct {
		Lock       string `yaml:"lock"` // local or redis
		LockTTLSec int    `yaml:"lock_ttl_seconds"`
		LockWaitMs int    `yaml:"lock_wait_ms"`
	} `yaml:"reconcile"`
	SquareOff struct {
		Strict bool `yaml:"strict"`
	} `yaml:"squareoff"`
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Broker.TimeoutSec) * time.Second
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Reconcile.LockTTLSec) * time.Second
}

func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Reconcile.LockWaitMs) * time.Millisecond
}

// UsesRedis reports whether any component is configured on Redis.
func (c *Config) UsesRedis() bool {
	if c.Credentials.Source == "redis" || c.Reconcile.Lock == "redis" {
		return true
	}
	for _, s := range c.Events.Sinks {
		if s == "redis" {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.Broker.Name == "" {
		return errors.New("broker.name cannot be empty")
	}
	if c.Broker.User == "" {
		return errors.New("broker.user cannot be empty")
	}
	switch c.Credentials.Source {
	case "static", "redis":
	default:
		return fmt.Errorf("credentials.source must be 'static' or 'redis', got '%s'", c.Credentials.Source)
	}
	switch c.Audit.Sink {
	case "file", "postgres", "none":
	default:
		return fmt.Errorf("audit.sink must be 'file', 'postgres' or 'none', got '%s'", c.Audit.Sink)
	}
	if c.Audit.Sink == "postgres" && c.Audit.DSN == "" {
		return errors.New("audit.dsn is required for the postgres sink")
	}
	for _, s := range c.Events.Sinks {
		if s != "log" && s != "redis" {
			return fmt.Errorf("events.sinks: unknown sink '%s'", s)
		}
	}
	if c.Reconcile.Lock != "local" && c.Reconcile.Lock != "redis" {
		return fmt.Errorf("reconcile.lock must be 'local' or 'redis', got '%s'", c.Reconcile.Lock)
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when a component uses redis")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML, expands ${ENV} references, applies defaults and
// validates.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	c.expandEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Broker.TimeoutSec == 0 {
		c.Broker.TimeoutSec = 10
	}
	if c.Credentials.Source == "" {
		c.Credentials.Source = "static"
	}
	if c.Audit.Sink == "" {
		c.Audit.Sink = "file"
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = "logs/audit"
	}
	if c.Audit.QueueSize == 0 {
		c.Audit.QueueSize = 256
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 30
	}
	if len(c.Events.Sinks) == 0 {
		c.Events.Sinks = []string{"log"}
	}
	if c.Events.ChannelPrefix == "" {
		c.Events.ChannelPrefix = "gateway"
	}
	if c.Events.QueueSize == 0 {
		c.Events.QueueSize = 256
	}
	if c.Reconcile.Lock == "" {
		c.Reconcile.Lock = "local"
	}
	if c.Reconcile.LockTTLSec == 0 {
		c.Reconcile.LockTTLSec = 30
	}
	if c.Reconcile.LockWaitMs == 0 {
		c.Reconcile.LockWaitMs = 5000
	}
}

func (c *Config) expandEnv() {
	c.Redis.Password = expand(c.Redis.Password)
	c.Audit.DSN = expand(c.Audit.DSN)
	for name, u := range c.Credentials.Users {
		u.AuthToken = expand(u.AuthToken)
		u.APIKey = expand(u.APIKey)
		u.BrokerKey = expand(u.BrokerKey)
		c.Credentials.Users[name] = u
	}
}

// expand resolves a value of the exact form ${NAME}; anything else is
// returned unchanged.
func expand(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}

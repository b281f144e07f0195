package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up when no config path is given.
const DefaultFile = "topicmesh.yaml"

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DataDir holds the Pebble ledger. Ignored when InMemory is set.
	DataDir  string `yaml:"data_dir"`
	InMemory bool   `yaml:"in_memory"`

	Log        LogConfig        `yaml:"log"`
	Connection ConnectionConfig `yaml:"connection"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Correlator CorrelatorConfig `yaml:"correlator"`

	// LargeContentThreshold is the payload size above which content is sent out-of-band.
	LargeContentThreshold int `yaml:"large_content_threshold"`
	// PoolSize bounds concurrently answered queries per agent.
	PoolSize int `yaml:"pool_size"`

	Agents []AgentConfig `yaml:"agents"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// ConnectionConfig tunes the connection manager.
type ConnectionConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	ConfirmAttempts int           `yaml:"confirm_attempts"`
	ConfirmInterval time.Duration `yaml:"confirm_interval"`
}

// MonitorConfig tunes message monitors.
type MonitorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// CorrelatorConfig tunes response correlation.
type CorrelatorConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

// AgentConfig describes one hosted agent.
type AgentConfig struct {
	Name      string `yaml:"name"`
	AccountID string `yaml:"account_id"`
	// InboundTopicID reuses an existing inbound topic; empty creates one.
	InboundTopicID string `yaml:"inbound_topic_id"`
	// Instructions may reference {{.name}} and {{.account_id}}.
	Instructions string      `yaml:"instructions"`
	Model        ModelConfig `yaml:"model"`
	// Connect lists inbound topics to connect to on start.
	Connect []string `yaml:"connect"`
}

// ModelConfig selects the answer backend.
type ModelConfig struct {
	Provider string `yaml:"provider"` // "mock", "openai", "anthropic" or empty for echo-only
	Name     string `yaml:"name"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir: "data",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Connection: ConnectionConfig{
			PollInterval:    3 * time.Second,
			ConfirmAttempts: 60,
			ConfirmInterval: 2 * time.Second,
		},
		Monitor: MonitorConfig{
			PollInterval: 3 * time.Second,
		},
		Correlator: CorrelatorConfig{
			MaxAttempts: 15,
			Delay:       2 * time.Second,
		},
		LargeContentThreshold: 1024,
		PoolSize:              8,
	}
}

// Load reads path over the defaults and applies the environment overlay. An
// empty path loads DefaultFile when it exists and defaults otherwise.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	FromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return errors.New("config: data_dir is required unless in_memory is set")
	}
	if c.Connection.PollInterval <= 0 || c.Monitor.PollInterval <= 0 {
		return errors.New("config: poll intervals must be positive")
	}
	if c.Correlator.MaxAttempts <= 0 {
		return errors.New("config: correlator.max_attempts must be positive")
	}
	if c.PoolSize <= 0 {
		return errors.New("config: pool_size must be positive")
	}

	seen := map[string]bool{}
	for i, a := range c.Agents {
		if a.Name == "" || a.AccountID == "" {
			return fmt.Errorf("config: agents[%d] needs name and account_id", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("config: duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
		switch a.Model.Provider {
		case "", "mock", "openai", "anthropic":
		default:
			return fmt.Errorf("config: agent %q has unknown model provider %q", a.Name, a.Model.Provider)
		}
	}

	return nil
}

// Agent returns the agent named name.
func (c Config) Agent(name string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentConfig{}, false
}

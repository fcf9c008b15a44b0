package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Collab   CollabConfig   `yaml:"collab"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Env          string        `yaml:"env"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Type string `yaml:"type"` // "sqlite" or "postgres"
	DSN  string `yaml:"dsn"`
}

// CollabConfig tunes the realtime collaboration subsystem
type CollabConfig struct {
	// DeliveryDelay is the simulated per-recipient network latency applied
	// to relayed events. Zero disables the delay (tests rely on that).
	DeliveryDelay time.Duration `yaml:"delivery_delay"`
	// SendBuffer is the per-connection outbound message buffer size
	SendBuffer int `yaml:"send_buffer"`
	// InvitationCap is the maximum stored invitations per recipient;
	// the oldest record is evicted once the cap is reached
	InvitationCap int `yaml:"invitation_cap"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a configuration with default values
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Env:          "development",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/studyhub.db?mode=rwc&cache=shared&timeout=5000",
		},
		Collab: CollabConfig{
			DeliveryDelay: 10 * time.Millisecond,
			SendBuffer:    64,
			InvitationCap: 50,
		},
	}
}

// getConfigPath returns the configuration file path
func getConfigPath() string {
	if path := os.Getenv("STUDYHUB_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}

// applyEnv overrides configuration with environment variables
func (c *Config) applyEnv() {
	if host := os.Getenv("STUDYHUB_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("STUDYHUB_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if env := os.Getenv("STUDYHUB_ENV"); env != "" {
		c.Server.Env = env
	}
	if readTimeout := os.Getenv("STUDYHUB_SERVER_READ_TIMEOUT"); readTimeout != "" {
		if d, err := time.ParseDuration(readTimeout); err == nil {
			c.Server.ReadTimeout = d
		}
	}
	if writeTimeout := os.Getenv("STUDYHUB_SERVER_WRITE_TIMEOUT"); writeTimeout != "" {
		if d, err := time.ParseDuration(writeTimeout); err == nil {
			c.Server.WriteTimeout = d
		}
	}

	if dbType := os.Getenv("STUDYHUB_DATABASE_TYPE"); dbType != "" {
		c.Database.Type = dbType
	}
	if dsn := os.Getenv("STUDYHUB_DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}

	if delay := os.Getenv("STUDYHUB_COLLAB_DELIVERY_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			c.Collab.DeliveryDelay = d
		}
	}
	if buf := os.Getenv("STUDYHUB_COLLAB_SEND_BUFFER"); buf != "" {
		if b, err := strconv.Atoi(buf); err == nil {
			c.Collab.SendBuffer = b
		}
	}
	if cap := os.Getenv("STUDYHUB_COLLAB_INVITATION_CAP"); cap != "" {
		if n, err := strconv.Atoi(cap); err == nil {
			c.Collab.InvitationCap = n
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("invalid database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Collab.DeliveryDelay < 0 {
		return fmt.Errorf("delivery delay cannot be negative")
	}
	if c.Collab.SendBuffer <= 0 {
		return fmt.Errorf("send buffer must be positive")
	}
	if c.Collab.InvitationCap <= 0 {
		return fmt.Errorf("invitation cap must be positive")
	}
	return nil
}

// Addr returns the host:port the server binds to
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

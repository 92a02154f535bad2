package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

// Environment variables that override the config file.
const (
	EnvGethRPCURL     = "GETH_RPC_URL"
	EnvCheckMemStrict = "CHECK_MEM_STRICT"
	EnvLogLevel       = "LOG_LEVEL"
)

// Config holds the application configuration
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Fork     ForkConfig     `toml:"fork"`
	Database DatabaseConfig `toml:"database"`
}

// GeneralConfig holds the node connection settings
type GeneralConfig struct {
	GethRPCURL        string  `toml:"geth_rpc_url"`
	CheckMemStrict    bool    `toml:"check_mem_strict"`
	LogLevel          string  `toml:"log_level"`
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 disables rate limiting
	RequestBurst      int     `toml:"request_burst"`
}

// ForkConfig is used by anvil_reset when replaying on a forked node
type ForkConfig struct {
	UpstreamRPCURL string `toml:"upstream_rpc_url"`
	BlockNumber    uint64 `toml:"block_number"`
}

// DatabaseConfig holds database paths
type DatabaseConfig struct {
	WitnessDBPath string `toml:"witness_db_path"`
}

// DefaultConfig returns the default configuration values
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			GethRPCURL:   "http://127.0.0.1:8545",
			LogLevel:     "info",
			RequestBurst: 1,
		},
		Database: DatabaseConfig{
			WitnessDBPath: "./data/witness_db",
		},
	}
}

// LoadConfig reads from config.toml and returns Config struct. Keys missing
// from the file keep their default value.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(file, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.General.GethRPCURL == "" {
		c.General.GethRPCURL = def.General.GethRPCURL
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = def.General.LogLevel
	}
	if c.General.RequestBurst == 0 {
		c.General.RequestBurst = def.General.RequestBurst
	}
	if c.Database.WitnessDBPath == "" {
		c.Database.WitnessDBPath = def.Database.WitnessDBPath
	}
}

// Save writes the config as TOML, creating the parent directory.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides the loaded values with GETH_RPC_URL, CHECK_MEM_STRICT
// and LOG_LEVEL when they are set.
func (c *Config) ApplyEnv() error {
	if url := os.Getenv(EnvGethRPCURL); url != "" {
		c.General.GethRPCURL = url
	}
	if v, ok := os.LookupEnv(EnvCheckMemStrict); ok && v != "" {
		strict, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCheckMemStrict, v, err)
		}
		c.General.CheckMemStrict = strict
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.General.LogLevel = level
	}
	return c.Validate()
}

// Validate reports values the client cannot run with.
func (c Config) Validate() error {
	if c.General.GethRPCURL == "" {
		return fmt.Errorf("general.geth_rpc_url is empty")
	}
	if c.General.RequestsPerSecond < 0 {
		return fmt.Errorf("general.requests_per_second must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses the configured log level, defaulting to info.
func (c Config) Level() (logrus.Level, error) {
	if c.General.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(c.General.LogLevel)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid general.log_level: %w", err)
	}
	return level, nil
}

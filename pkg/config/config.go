// Package config provides configuration handling for sockettrack.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/irctrakz/sockettrack/pkg/core"
	"github.com/irctrakz/sockettrack/pkg/factory"
	"github.com/irctrakz/sockettrack/pkg/logging"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration.
type Config struct {
	// Factory contains the connection factory configuration.
	Factory core.FactoryConfig `json:"factory" yaml:"factory"`

	// Tracker contains the connection tracker configuration.
	Tracker core.TrackerConfig `json:"tracker" yaml:"tracker"`

	// Logging contains the logging configuration.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig contains configuration for logging.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is the log line format (text, json).
	Format string `json:"format" yaml:"format"`

	// File is the log file path.
	File string `json:"file" yaml:"file"`

	// MaxSize is the maximum size of the log file in megabytes.
	MaxSize int `json:"maxSize" yaml:"maxSize"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups"`

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `json:"maxAge" yaml:"maxAge"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Factory: factory.DefaultConfig(),
		Tracker: core.TrackerConfig{
			MaxEntries:     0,
			ReportInterval: "",
			ReportFormat:   "text",
			PruneOnReport:  false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromFile loads configuration from a .json, .yaml or .yml file.
func LoadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	return nil
}

// LoadFromEnv loads configuration from SOCKETTRACK_* environment variables.
func LoadFromEnv(config *Config) {
	// Factory config
	if val := os.Getenv("SOCKETTRACK_NETWORK"); val != "" {
		config.Factory.Network = val
	}
	if val := os.Getenv("SOCKETTRACK_KEEPALIVE_SEC"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil {
			config.Factory.KeepAliveSec = sec
		}
	}
	if val := os.Getenv("SOCKETTRACK_REUSE_ADDR"); val != "" {
		config.Factory.ReuseAddr = truthy(val)
	}
	if val := os.Getenv("SOCKETTRACK_FALLBACK_UNWRAPPED"); val != "" {
		config.Factory.FallbackUnwrapped = truthy(val)
	}

	// Tracker config
	if val := os.Getenv("SOCKETTRACK_MAX_ENTRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Tracker.MaxEntries = n
		}
	}
	if val := os.Getenv("SOCKETTRACK_REPORT_INTERVAL"); val != "" {
		config.Tracker.ReportInterval = val
	}
	if val := os.Getenv("SOCKETTRACK_REPORT_FORMAT"); val != "" {
		config.Tracker.ReportFormat = val
	}
	if val := os.Getenv("SOCKETTRACK_PRUNE_ON_REPORT"); val != "" {
		config.Tracker.PruneOnReport = truthy(val)
	}

	// Logging config
	if val := os.Getenv("SOCKETTRACK_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("SOCKETTRACK_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("SOCKETTRACK_LOG_FILE"); val != "" {
		config.Logging.File = val
	}
	if val := os.Getenv("SOCKETTRACK_LOG_MAX_SIZE"); val != "" {
		if maxSize, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxSize = maxSize
		}
	}
	if val := os.Getenv("SOCKETTRACK_LOG_MAX_BACKUPS"); val != "" {
		if maxBackups, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxBackups = maxBackups
		}
	}
	if val := os.Getenv("SOCKETTRACK_LOG_MAX_AGE"); val != "" {
		if maxAge, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxAge = maxAge
		}
	}
}

func truthy(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate Factory config
	switch c.Factory.Network {
	case "tcp", "tcp4", "tcp6":
	default:
		return fmt.Errorf("invalid factory network: %s", c.Factory.Network)
	}

	// Validate Tracker config
	if c.Tracker.MaxEntries < 0 {
		return fmt.Errorf("invalid tracker max entries: %d", c.Tracker.MaxEntries)
	}
	if c.Tracker.ReportInterval != "" {
		d, err := time.ParseDuration(c.Tracker.ReportInterval)
		if err != nil {
			return fmt.Errorf("invalid report interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid report interval: %s", c.Tracker.ReportInterval)
		}
	}
	switch c.Tracker.ReportFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid report format: %s", c.Tracker.ReportFormat)
	}

	// Validate Logging config
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	return nil
}

// ApplyLogging applies the logging configuration.
func (c *Config) ApplyLogging() error {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	if c.Logging.Format == "json" {
		logging.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logging.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if c.Logging.File != "" {
		err := logging.EnableFileLogging(
			c.Logging.File,
			c.Logging.MaxSize,
			c.Logging.MaxBackups,
			c.Logging.MaxAge,
		)
		if err != nil {
			return fmt.Errorf("failed to enable file logging: %w", err)
		}
	}

	return nil
}

// SaveToFile saves the configuration to a .json, .yaml or .yml file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

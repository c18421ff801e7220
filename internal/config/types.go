package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nibzard/todos-go/internal/kv"
	"github.com/nibzard/todos-go/internal/logging"
	"github.com/nibzard/todos-go/internal/todo"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were applied, lowest priority first.
	Files []string
}

// Default values.
const (
	DefaultBackend   = kv.BackendFile
	DefaultHomeDir   = "~/.todos"
	DefaultDataFile  = DefaultHomeDir + "/storage.json"
	DefaultLogFile   = DefaultHomeDir + "/todos.log"
	DefaultIDScheme  = todo.IDSchemeTimestamp
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the full configuration for todos.
type Config struct {
	// Storage
	Backend  string `toml:"backend"`
	DataFile string `toml:"data_file"`
	DSN      string `toml:"dsn"`
	Table    string `toml:"table"`

	// Store behaviour
	IDScheme string `toml:"id_scheme"`
	Strict   bool   `toml:"strict"` // return storage errors instead of only logging them

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`
	LogFile       string `toml:"log_file"` // where the terminal UI writes logs
}

// StorageOptions returns the options for kv.Open.
func (c *Config) StorageOptions() kv.Options {
	return kv.Options{
		Backend: c.Backend,
		Path:    c.DataFile,
		DSN:     c.DSN,
		Table:   c.Table,
	}
}

// ErrorPolicy maps Strict to the store's storage failure policy.
func (c *Config) ErrorPolicy() todo.ErrorPolicy {
	if c.Strict {
		return todo.PolicyReturn
	}
	return todo.PolicyLog
}

// LogOptions returns the logger options described by the config.
func (c *Config) LogOptions() logging.Options {
	return logging.OptionsFromConfig(c.LogLevel, c.LogFormat, c.LogTimestamps, c.LogCaller)
}

// Validate checks enumerated values and backend requirements.
func (c *Config) Validate() error {
	var errs []error
	if !kv.IsValidBackend(c.Backend) {
		errs = append(errs, fmt.Errorf("backend %q must be one of: %s", c.Backend, strings.Join(kv.Backends(), ", ")))
	}
	switch c.Backend {
	case kv.BackendFile:
		if strings.TrimSpace(c.DataFile) == "" {
			errs = append(errs, fmt.Errorf("data_file is required for the file backend"))
		}
	case kv.BackendMySQL, kv.BackendPostgres:
		if strings.TrimSpace(c.DSN) == "" {
			errs = append(errs, fmt.Errorf("dsn is required for the %s backend", c.Backend))
		}
	}
	if _, err := todo.NewIDGenerator(c.IDScheme); err != nil {
		errs = append(errs, err)
	}
	if !logging.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error, fatal", c.LogLevel))
	}
	if !logging.ValidFormat(c.LogFormat) {
		errs = append(errs, fmt.Errorf("log_format %q must be one of: text, json, logfmt", c.LogFormat))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

package config

import (
	"flag"
)

// parseFlags defines the config flags on fs and parses args. Values are
// bound to locals and copied into cfg only for flags that were set, so an
// unset flag never masks a file or env value. If sources is non-nil, every
// flag that was set is marked SourceFlag.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("todos", flag.ContinueOnError)
	}

	// Storage
	backend := fs.String("backend", cfg.Backend, "Storage backend (memory, file, mysql, postgres)")
	dataFile := fs.String("data-file", cfg.DataFile, "Path to the JSON storage file (file backend)")
	dsn := fs.String("dsn", cfg.DSN, "Database DSN (mysql and postgres backends)")
	table := fs.String("table", cfg.Table, "Database table (mysql and postgres backends)")

	// Store behaviour
	idScheme := fs.String("id-scheme", cfg.IDScheme, "Task id scheme (timestamp, nanoid)")
	strict := fs.Bool("strict", cfg.Strict, "Fail commands when storage writes fail")

	// Logging
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	logTimestamps := fs.Bool("log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	logCaller := fs.Bool("log-caller", cfg.LogCaller, "Show caller location in logs")
	logFile := fs.String("log-file", cfg.LogFile, "Log file for the terminal UI")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Map flag names to config fields and the setter for each
	apply := map[string]struct {
		field string
		set   func()
	}{
		"backend":        {"backend", func() { cfg.Backend = *backend }},
		"data-file":      {"data_file", func() { cfg.DataFile = *dataFile }},
		"dsn":            {"dsn", func() { cfg.DSN = *dsn }},
		"table":          {"table", func() { cfg.Table = *table }},
		"id-scheme":      {"id_scheme", func() { cfg.IDScheme = *idScheme }},
		"strict":         {"strict", func() { cfg.Strict = *strict }},
		"log-level":      {"log_level", func() { cfg.LogLevel = *logLevel }},
		"log-format":     {"log_format", func() { cfg.LogFormat = *logFormat }},
		"log-timestamps": {"log_timestamps", func() { cfg.LogTimestamps = *logTimestamps }},
		"log-caller":     {"log_caller", func() { cfg.LogCaller = *logCaller }},
		"log-file":       {"log_file", func() { cfg.LogFile = *logFile }},
	}

	// Track which flags were set and apply to config
	fs.Visit(func(f *flag.Flag) {
		binding, ok := apply[f.Name]
		if !ok {
			return
		}
		binding.set()
		if sources != nil {
			sources[binding.field] = SourceFlag
		}
	})

	return nil
}

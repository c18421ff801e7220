package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable read by LoadWithSources.
const EnvPrefix = "TODOS_"

// loadFromEnv overrides config from environment variables. If sources is
// non-nil, every field that was set is marked SourceEnv.
// Every field name maps to TODOS_<FIELD>, e.g. data_file -> TODOS_DATA_FILE.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	mark := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}

	strs := map[string]*string{
		"backend":    &cfg.Backend,
		"data_file":  &cfg.DataFile,
		"dsn":        &cfg.DSN,
		"table":      &cfg.Table,
		"id_scheme":  &cfg.IDScheme,
		"log_level":  &cfg.LogLevel,
		"log_format": &cfg.LogFormat,
		"log_file":   &cfg.LogFile,
	}
	bools := map[string]*bool{
		"strict":         &cfg.Strict,
		"log_timestamps": &cfg.LogTimestamps,
		"log_caller":     &cfg.LogCaller,
	}

	for _, field := range configFields() {
		v, ok := os.LookupEnv(envName(field))
		if !ok || v == "" {
			continue
		}
		if target, ok := strs[field]; ok {
			*target = v
			mark(field)
			continue
		}
		if target, ok := bools[field]; ok {
			b, err := parseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", envName(field), err)
			}
			*target = b
			mark(field)
		}
	}
	return nil
}

func envName(field string) string {
	return EnvPrefix + strings.ToUpper(field)
}

// parseBool accepts the strconv forms plus yes/no and on/off.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return b, nil
}

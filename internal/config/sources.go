package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/nibzard/todos-go/internal/kv"
)

// Config file names, in lookup order.
var (
	projectConfigNames = []string{"todos.toml", ".todos.toml"}
	userConfigName     = "todos.toml"
)

// findProjectConfigFile looks for a config file in the current directory.
func findProjectConfigFile() string {
	return firstExisting(projectConfigNames...)
}

// findUserConfigFile looks for a user-level config file: ~/.todos/todos.toml
// first, then todos/todos.toml in the OS config directory.
func findUserConfigFile() string {
	return firstExisting(userConfigCandidates()...)
}

func userConfigCandidates() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".todos", userConfigName))
	}
	if dir := osUserConfigDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "todos", userConfigName))
	}
	return paths
}

// firstExisting returns the first path that names a regular file.
func firstExisting(paths ...string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

// osUserConfigDir returns the OS-specific user config directory.
// Returns empty string if the directory cannot be determined.
func osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return os.Getenv("APPDATA")
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".config")
		}
	}
	return ""
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	*cfg = Config{
		Backend:   DefaultBackend,
		DataFile:  DefaultDataFile,
		Table:     kv.DefaultTable,
		IDScheme:  DefaultIDScheme,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		LogFile:   DefaultLogFile,
	}
}

// GetConfigFile returns the highest-priority config file that was applied.
func (cws *ConfigWithSources) GetConfigFile() string {
	if len(cws.Files) == 0 {
		return ""
	}
	return cws.Files[len(cws.Files)-1]
}

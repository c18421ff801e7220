package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// windowsEnvRE matches %VAR% references.
var windowsEnvRE = regexp.MustCompile(`%([^%]+)%`)

// resolvePaths expands and absolutizes every path-valued field in place.
func resolvePaths(cfg *Config) error {
	for _, p := range []*string{&cfg.DataFile, &cfg.LogFile} {
		if *p == "" {
			continue
		}
		resolved, err := resolvePath(*p)
		if err != nil {
			return err
		}
		*p = resolved
	}
	return nil
}

// resolvePath expands p and makes it absolute relative to the working
// directory.
func resolvePath(p string) (string, error) {
	expanded := expandPath(p)
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	return abs, nil
}

// expandPath expands environment variables and a leading ~ in p. On Windows
// %VAR% references and a ~\ prefix are expanded too.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if runtime.GOOS == "windows" {
		expanded = expandWindowsEnv(expanded)
	}

	rest, ok := cutHome(expanded)
	if !ok {
		return expanded
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return expanded
	}
	if rest == "" {
		return home
	}
	return filepath.Join(home, rest)
}

// cutHome reports whether p starts with the home shorthand and returns the
// remainder.
func cutHome(p string) (string, bool) {
	if p == "~" {
		return "", true
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		return rest, true
	}
	if runtime.GOOS == "windows" {
		return strings.CutPrefix(p, `~\`)
	}
	return "", false
}

// expandWindowsEnv replaces %VAR% with its value. Unset variables are left
// as written.
func expandWindowsEnv(p string) string {
	return windowsEnvRE.ReplaceAllStringFunc(p, func(ref string) string {
		if val, ok := os.LookupEnv(ref[1 : len(ref)-1]); ok {
			return val
		}
		return ref
	})
}

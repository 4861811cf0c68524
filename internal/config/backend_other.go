//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "pfbot")
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "pfbot", "config.json")
}

func apiKeyHint(account string) string {
	return fmt.Sprintf(" or %s (service: %s, account: %s)", secretsFilePath(), keychainService, account)
}

// jsonSettings keeps every key in one flat JSON object and rewrites the file
// on each change. A missing or unreadable file yields empty settings.
type jsonSettings struct {
	path   string
	values map[string]any
}

func newPlatformSettings() Settings {
	s := &jsonSettings{path: configFilePath(), values: map[string]any{}}
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		slog.Warn("config file unreadable, using defaults", "path", s.path, "error", err)
	default:
		if err := json.Unmarshal(data, &s.values); err != nil {
			slog.Warn("config file is not valid JSON, using defaults", "path", s.path, "error", err)
			s.values = map[string]any{}
		}
	}
	return s
}

func (s *jsonSettings) String(key string) (string, bool, error) {
	v, ok := s.values[key]
	if !ok {
		return "", false, nil
	}
	if str, isStr := v.(string); isStr {
		return str, true, nil
	}
	return fmt.Sprint(v), true, nil
}

// Int accepts JSON numbers and numeric strings, since hand-edited files
// often quote them.
func (s *jsonSettings) Int(key string) (int, bool, error) {
	v, ok := s.values[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n > math.MaxInt {
			return 0, true, fmt.Errorf("%s: %v is not an integer", key, n)
		}
		return int(n), true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, true, fmt.Errorf("%s: %w", key, err)
		}
		return i, true, nil
	}
	return 0, true, fmt.Errorf("%s: unexpected %T", key, v)
}

func (s *jsonSettings) SetString(key, val string) error { return s.put(key, val) }
func (s *jsonSettings) SetInt(key string, val int) error { return s.put(key, val) }

func (s *jsonSettings) put(key string, val any) error {
	s.values[key] = val
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

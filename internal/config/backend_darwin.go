//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultsDomain is the UserDefaults domain holding pfbot settings, so
// `defaults read com.pfbot.app` shows them.
const defaultsDomain = "com.pfbot.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pfbot-data"
	}
	return filepath.Join(home, "Library", "Application Support", "pfbot")
}

func apiKeyHint(account string) string {
	return fmt.Sprintf(" or macOS Keychain (service: %s, account: %s)", keychainService, account)
}

type defaultsSettings struct{}

func newPlatformSettings() Settings { return defaultsSettings{} }

// String shells out to `defaults read`; exit status 1 means the key is unset.
func (defaultsSettings) String(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", defaultsDomain, key).CombinedOutput()
	val := strings.TrimSpace(string(out))
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, val)
	}
	return val, true, nil
}

func (d defaultsSettings) Int(key string) (int, bool, error) {
	val, ok, err := d.String(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return i, true, nil
}

func (defaultsSettings) SetString(key, val string) error {
	return writeDefault(key, "-string", val)
}

func (defaultsSettings) SetInt(key string, val int) error {
	return writeDefault(key, "-int", strconv.Itoa(val))
}

func writeDefault(key, kind, val string) error {
	if out, err := exec.Command("defaults", "write", defaultsDomain, key, kind, val).CombinedOutput(); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
)

// Settings is where non-secret keys persist between runs: the UserDefaults
// domain on macOS, a JSON file elsewhere. Values are keyed by dotted name
// (e.g. "server.port"). Lookups report ok=false for keys never written.
type Settings interface {
	String(key string) (val string, ok bool, err error)
	Int(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
}

// xdgDir resolves an XDG base directory, falling back to fallback under the
// home directory (or the working directory when there is no home).
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

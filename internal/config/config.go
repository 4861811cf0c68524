package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Generator backend names accepted by generator.backend.
const (
	BackendGemini     = "gemini"
	BackendOpenRouter = "openrouter"
	BackendOllama     = "ollama"
)

// keychainService is the service name under which secrets are stored.
const keychainService = "pfbot"

type Config struct {
	Server     ServerConfig
	Generator  GeneratorConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
	Storage    StorageConfig
	Log        LogConfig
	Composer   ComposerConfig
	Session    SessionConfig
}

type ServerConfig struct {
	Port int
}

type GeneratorConfig struct {
	Backend string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey string
	Model  string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names
// fall back to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type ComposerConfig struct {
	MaxContextTokens int
}

type SessionConfig struct {
	// MaxIdle is a Go duration string, e.g. "30m".
	MaxIdle string
}

// MaxIdleDuration parses MaxIdle, falling back to 30 minutes.
func (s SessionConfig) MaxIdleDuration() time.Duration {
	d, err := time.ParseDuration(s.MaxIdle)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Generator: GeneratorConfig{
			Backend: BackendGemini,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-001",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Composer: ComposerConfig{
			MaxContextTokens: 4000,
		},
		Session: SessionConfig{
			MaxIdle: "30m",
		},
	}
}

// Load reads configuration and verifies that the selected generator backend
// has credentials.
//
// Sources, lowest precedence first: built-in defaults, the platform backend
// (UserDefaults domain com.pfbot.app on macOS, $XDG_CONFIG_HOME/pfbot/config.json
// elsewhere), a .env file in the working directory, PFBOT_* environment
// variables, and finally the platform secret store for API keys.
func Load() (Config, error) {
	loadDotEnv()
	return loadWith(newPlatformSettings(), NewKeychain(), true)
}

// LoadLocal is Load without the credential check, for commands that never
// reach the generator (status, stop, config, interactions).
func LoadLocal() (Config, error) {
	loadDotEnv()
	return loadWith(newPlatformSettings(), NewKeychain(), false)
}

func loadDotEnv() {
	// godotenv never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse .env: %v\n", err)
	}
}

// Keychain abstracts the platform secret store.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

func loadWith(b Settings, kc Keychain, requireCredentials bool) (Config, error) {
	cfg := defaults()

	if err := applySettings(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecretFallbacks(&cfg, kc)

	cfg.Generator.Backend = strings.ToLower(strings.TrimSpace(cfg.Generator.Backend))
	switch cfg.Generator.Backend {
	case BackendGemini, BackendOpenRouter, BackendOllama:
	default:
		return Config{}, fmt.Errorf("unknown generator backend %q (want %s, %s or %s)",
			cfg.Generator.Backend, BackendGemini, BackendOpenRouter, BackendOllama)
	}

	if requireCredentials {
		if err := checkCredentials(cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// applySecretFallbacks fills empty API keys from the conventional Google
// variables and then from the platform secret store.
func applySecretFallbacks(cfg *Config, kc Keychain) {
	if cfg.Gemini.APIKey == "" {
		for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if v := os.Getenv(env); v != "" {
				cfg.Gemini.APIKey = v
				break
			}
		}
	}

	for _, s := range specs {
		if !s.secret || s.extract(*cfg).(string) != "" {
			continue
		}
		if v, err := kc.Get(keychainService, s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}

func checkCredentials(cfg Config) error {
	var env, account string
	switch cfg.Generator.Backend {
	case BackendGemini:
		if cfg.Gemini.APIKey != "" {
			return nil
		}
		env, account = "PFBOT_GEMINI_API_KEY (or GEMINI_API_KEY / GOOGLE_API_KEY)", "gemini_api_key"
	case BackendOpenRouter:
		if cfg.OpenRouter.APIKey != "" {
			return nil
		}
		env, account = "PFBOT_OPENROUTER_API_KEY", "openrouter_api_key"
	default:
		return nil
	}
	return fmt.Errorf("missing required config: %s API key. Set it via environment variable %s%s",
		cfg.Generator.Backend, env, apiKeyHint(account))
}

// keychainReader reads and writes the platform secret store.
type keychainReader struct{}

// NewKeychain returns the platform secret store.
func NewKeychain() Keychain {
	return keychainReader{}
}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (keychainReader) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// Package config loads the process configuration from .env files, an
// optional YAML file, KNOLCARDS_ environment variables and command-line
// flags, in that order of precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read into the config.
// A double underscore separates nested keys: KNOLCARDS_COMPLETION__MODEL.
const EnvPrefix = "KNOLCARDS_"

// Config is the full process configuration.
type Config struct {
	DB         string     `koanf:"db" validate:"required"`
	Server     Server     `koanf:"server"`
	Completion Completion `koanf:"completion"`
	Generate   Generate   `koanf:"generate"`
	Source     Source     `koanf:"source"`
	Log        Log        `koanf:"log"`
}

type Server struct {
	Addr         string   `koanf:"addr" validate:"required"`
	AllowOrigins []string `koanf:"allow_origins"`
}

type Completion struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

type Generate struct {
	Concurrency int           `koanf:"concurrency" validate:"min=1"`
	Attempts    int           `koanf:"attempts" validate:"min=1"`
	RetryDelay  time.Duration `koanf:"retry_delay" validate:"gte=0"`
}

type Source struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the configuration used for keys no source sets.
func Default() Config {
	return Config{
		DB: "knolcards.db",
		Server: Server{
			Addr:         ":8080",
			AllowOrigins: []string{"http://localhost:3000"},
		},
		Completion: Completion{
			BaseURL: "http://localhost:1234",
			APIKey:  "lm-studio",
			Model:   "qwen/qwen3-vl-8b",
			Timeout: 2 * time.Minute,
		},
		Generate: Generate{
			Concurrency: 4,
			Attempts:    1,
			RetryDelay:  time.Second,
		},
		Source: Source{ReposDir: "repos"},
		Log:    Log{Level: "info", Format: "text"},
	}
}

// flagKeys maps flag names to config keys. Flags not listed here are not
// configuration.
var flagKeys = map[string]string{
	"db":            "db",
	"addr":          "server.addr",
	"allow-origins": "server.allow_origins",
	"base-url":      "completion.base_url",
	"api-key":       "completion.api_key",
	"model":         "completion.model",
	"timeout":       "completion.timeout",
	"concurrency":   "generate.concurrency",
	"attempts":      "generate.attempts",
	"retry-delay":   "generate.retry_delay",
	"repos-dir":     "source.repos_dir",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// RegisterFlags adds the configuration flags to flags, with the defaults as
// flag defaults.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("config", "", "Path to a YAML config file")
	flags.StringSlice("env-file", nil, "Additional .env files to load")
	flags.String("db", d.DB, "Path to the SQLite database file")
	flags.String("addr", d.Server.Addr, "HTTP listen address")
	flags.StringSlice("allow-origins", d.Server.AllowOrigins, "CORS allowed origins")
	flags.String("base-url", d.Completion.BaseURL, "Base URL of the OpenAI-compatible completion service")
	flags.String("api-key", d.Completion.APIKey, "API key for the completion service")
	flags.String("model", d.Completion.Model, "Completion model")
	flags.Duration("timeout", d.Completion.Timeout, "Timeout of a single completion call (0 disables)")
	flags.Int("concurrency", d.Generate.Concurrency, "Notes processed concurrently during generation")
	flags.Int("attempts", d.Generate.Attempts, "Completion attempts per note")
	flags.Duration("retry-delay", d.Generate.RetryDelay, "Base delay between completion attempts")
	flags.String("repos-dir", d.Source.ReposDir, "Directory holding cloned note repositories")
	flags.String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	flags.String("log-format", d.Log.Format, "Log format: text or json")
}

// Load builds the configuration. flags may be nil; otherwise the flag set
// must have been populated by RegisterFlags and parsed.
func Load(flags *pflag.FlagSet) (*Config, error) {
	var (
		configFile string
		envFiles   []string
	)
	if flags != nil {
		configFile, _ = flags.GetString("config")
		envFiles, _ = flags.GetStringSlice("env-file")
	}

	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv loads .env from the working directory when present, then the
// given files, which must exist. Variables already set are kept.
func loadDotEnv(files []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// envKey turns KNOLCARDS_COMPLETION__BASE_URL into completion.base_url.
func envKey(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "server.allow_origins" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}

// NewLogger builds the process logger.
func NewLogger(cfg Log, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Package config loads deskview settings.
//
// Precedence (highest to lowest):
//  1. Environment variables with the DESK_ prefix (DESK_STORE_PATH -> store.path)
//  2. The YAML config file (desk.yaml in the working directory by default)
//  3. Built-in defaults
//
// A .env file in the working directory is loaded into the environment first,
// without overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/Makepad-fr/deskview/internal/logging"
)

const (
	DefaultFile = "desk.yaml"
	EnvPrefix   = "DESK_"
)

const defaults = `
store:
  path: data/items.json
watch:
  interval: 1s
chat:
  model: gpt-4o-mini
  base_url: ""
  temperature: 0.2
  timeout: 60s
  key_file: api_key.txt
  key_env: OPENAI_API_KEY
log:
  level: info
  format: console
  file: ""
ui:
  theme: classic
`

type Config struct {
	Store StoreConfig    `koanf:"store"`
	Watch WatchConfig    `koanf:"watch"`
	Chat  ChatConfig     `koanf:"chat"`
	Log   logging.Config `koanf:"log"`
	UI    UIConfig       `koanf:"ui"`
}

type StoreConfig struct {
	Path string `koanf:"path"`
}

type WatchConfig struct {
	Interval time.Duration `koanf:"interval"`
}

type ChatConfig struct {
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	KeyFile     string        `koanf:"key_file"`
	KeyEnv      string        `koanf:"key_env"`
}

type UIConfig struct {
	Theme string `koanf:"theme"`
}

// Options tell Load where to look. Zero values use the defaults.
type Options struct {
	// File is the YAML config. When set explicitly it must exist.
	File string
	// EnvFile is loaded with godotenv when present. Defaults to ".env".
	EnvFile string
}

// Load merges defaults, the config file and the environment.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path, explicit := opts.File, opts.File != ""
	if !explicit {
		path = DefaultFile
	}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps DESK_CHAT_KEY_FILE to chat.key_file: the first segment after
// the prefix is the section, the rest is the field name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// Validate checks ranges that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store.path is empty")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval)
	}
	if c.Chat.Timeout <= 0 {
		return fmt.Errorf("chat.timeout must be positive, got %s", c.Chat.Timeout)
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("chat.temperature must be between 0 and 2, got %g", c.Chat.Temperature)
	}
	return c.Log.Validate()
}

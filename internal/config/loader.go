package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"botd/internal/common/fsutil"
)

// Config holds runtime parameters for the daemon.
type Config struct {
	DBPath    string `json:"db_path" yaml:"db_path" toml:"db_path" env:"BOTD_DB_PATH"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" env:"BOTD_LOG_LEVEL"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" env:"BOTD_LOG_FORMAT"`
	// Streams opened once modules are started.
	Streams []string `json:"streams" yaml:"streams" toml:"streams" env:"BOTD_STREAMS" envSeparator:","`

	WebServer WebServer `json:"web_server" yaml:"web_server" toml:"web_server"`
	Twitch    Twitch    `json:"twitch" yaml:"twitch" toml:"twitch"`
	GG        GG        `json:"gg" yaml:"gg" toml:"gg"`
}

// WebServer holds web server defaults; persisted module settings win over
// URI and Port.
type WebServer struct {
	URI          string   `json:"uri" yaml:"uri" toml:"uri" env:"BOTD_WEB_URI"`
	Port         int      `json:"port" yaml:"port" toml:"port" env:"BOTD_WEB_PORT"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" env:"BOTD_CORS_ORIGINS" envSeparator:","`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"BOTD_MAX_BODY_BYTES"`
}

// Twitch holds application credentials and endpoint overrides.
type Twitch struct {
	ClientID     string `json:"client_id" yaml:"client_id" toml:"client_id" env:"TWITCH_CLIENT_ID"`
	ClientSecret string `json:"client_secret" yaml:"client_secret" toml:"client_secret" env:"TWITCH_CLIENT_SECRET"`
	Username     string `json:"username" yaml:"username" toml:"username" env:"TWITCH_USERNAME"`
	Channel      string `json:"channel" yaml:"channel" toml:"channel" env:"TWITCH_CHANNEL"`
	AuthURL      string `json:"auth_url" yaml:"auth_url" toml:"auth_url" env:"TWITCH_AUTH_URL"`
	TokenURL     string `json:"token_url" yaml:"token_url" toml:"token_url" env:"TWITCH_TOKEN_URL"`
	ValidateURL  string `json:"validate_url" yaml:"validate_url" toml:"validate_url" env:"TWITCH_VALIDATE_URL"`
	ChatURL      string `json:"chat_url" yaml:"chat_url" toml:"chat_url" env:"TWITCH_CHAT_URL"`
}

// GG configures the reward module.
type GG struct {
	Reward string `json:"reward" yaml:"reward" toml:"reward" env:"GG_REWARD"`
	Stream string `json:"stream" yaml:"stream" toml:"stream" env:"GG_STREAM"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:    "dao/db.sqlite",
		LogLevel:  "info",
		LogFormat: "json",
		Streams:   []string{"obs"},
		WebServer: WebServer{URI: "http://localhost", Port: 4000, MaxBodyBytes: 1 << 20},
		Twitch: Twitch{
			AuthURL:     "https://id.twitch.tv/oauth2/authorize",
			TokenURL:    "https://id.twitch.tv/oauth2/token",
			ValidateURL: "https://id.twitch.tv/oauth2/validate",
			ChatURL:     "wss://irc-ws.chat.twitch.tv:443",
		},
		GG: GG{Stream: "obs"},
	}
}

// Load reads a configuration file over the defaults based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Resolve builds the effective configuration: defaults, then the optional
// config file, then variables from the optional dotenv file, then the process
// environment. Variables already set in the environment win over the dotenv
// file.
func Resolve(path, dotenv string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	dbPath, err := fsutil.ExpandHome(cfg.DBPath)
	if err != nil {
		return cfg, err
	}
	cfg.DBPath = dbPath
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	KV        KVConfig        `yaml:"kv"`
	Feed      FeedConfig      `yaml:"feed"`
	Auth      AuthConfig      `yaml:"auth"`
	Autosave  AutosaveConfig  `yaml:"autosave"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TransportConfig selects how MCP is served: "http" (REST + MCP) or "stdio".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects the session/memo backend: "sqlite" or "firestore".
type StoreConfig struct {
	Backend         string `yaml:"backend"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// RedisConfig enables Redis when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// KVConfig configures the key-value store for quick memos and drafts:
// "file" or "redis".
type KVConfig struct {
	Backend  string        `yaml:"backend"`
	FilePath string        `yaml:"file_path"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type FeedConfig struct {
	Channel string `yaml:"channel"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
	// DevMode trusts X-User-Id without a token.
	DevMode bool `yaml:"dev_mode"`
}

type AutosaveConfig struct {
	Delay time.Duration `yaml:"delay"`
	Limit int           `yaml:"limit"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{Mode: "http"},
		DB: DBConfig{
			Path: "ggmemo.db",
		},
		Store: StoreConfig{Backend: "sqlite"},
		Redis: RedisConfig{PoolSize: 10},
		KV: KVConfig{
			Backend:  "file",
			FilePath: "ggmemo-kv.json",
			Prefix:   "ggmemo:",
		},
		Feed:     FeedConfig{Channel: "ggmemo:memos"},
		Autosave: AutosaveConfig{Delay: 500 * time.Millisecond, Limit: 5000},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, .env files
// and environment variables, in increasing priority.
func Load() (Config, error) {
	cfg := Default()

	// Already-set environment variables win over .env values.
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	if path := os.Getenv("GGMEMO_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Store.Backend {
	case "sqlite":
	case "firestore":
		if c.Store.ProjectID == "" {
			return fmt.Errorf("firestore backend requires GGMEMO_FIRESTORE_PROJECT")
		}
	default:
		return fmt.Errorf("invalid store backend %q", c.Store.Backend)
	}
	switch c.KV.Backend {
	case "file":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis kv backend requires GGMEMO_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("invalid kv backend %q", c.KV.Backend)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth enabled but GGMEMO_AUTH_SECRET is empty")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Host, "GGMEMO_SERVER_HOST")
	setString(&cfg.Transport.Mode, "GGMEMO_TRANSPORT")
	setString(&cfg.DB.Path, "GGMEMO_DB_PATH")
	setString(&cfg.Store.Backend, "GGMEMO_STORE_BACKEND")
	setString(&cfg.Store.ProjectID, "GGMEMO_FIRESTORE_PROJECT")
	setString(&cfg.Store.CredentialsFile, "GGMEMO_FIRESTORE_CREDENTIALS")
	setString(&cfg.Redis.Addr, "GGMEMO_REDIS_ADDR")
	setString(&cfg.Redis.Password, "GGMEMO_REDIS_PASSWORD")
	setString(&cfg.KV.Backend, "GGMEMO_KV_BACKEND")
	setString(&cfg.KV.FilePath, "GGMEMO_KV_PATH")
	setString(&cfg.KV.Prefix, "GGMEMO_KV_PREFIX")
	setString(&cfg.Feed.Channel, "GGMEMO_FEED_CHANNEL")
	setString(&cfg.Auth.Secret, "GGMEMO_AUTH_SECRET")
	setString(&cfg.Auth.Issuer, "GGMEMO_AUTH_ISSUER")
	setString(&cfg.Log.Level, "GGMEMO_LOG_LEVEL")
	setString(&cfg.Log.Path, "GGMEMO_LOG_PATH")

	if err := setInt(&cfg.Server.Port, "GGMEMO_SERVER_PORT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Redis.DB, "GGMEMO_REDIS_DB"); err != nil {
		return err
	}
	if err := setInt(&cfg.Redis.PoolSize, "GGMEMO_REDIS_POOL_SIZE"); err != nil {
		return err
	}
	if err := setInt(&cfg.Autosave.Limit, "GGMEMO_AUTOSAVE_LIMIT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.KV.TTL, "GGMEMO_KV_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Autosave.Delay, "GGMEMO_AUTOSAVE_DELAY"); err != nil {
		return err
	}
	if err := setBool(&cfg.Auth.Enabled, "GGMEMO_AUTH_ENABLED"); err != nil {
		return err
	}
	return setBool(&cfg.Auth.DevMode, "GGMEMO_AUTH_DEV_MODE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

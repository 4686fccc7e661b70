package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"go-passport-preview/images"
	log "go-passport-preview/logging"
	"go-passport-preview/mrz"
	redis "go-passport-preview/redis"
	"go-passport-preview/validation"

	"github.com/joho/godotenv"
)

const (
	defaultSessionTTLMinutes = 24 * 60
	defaultRememberTTLDays   = 31
	defaultMaxUploadBytes    = 16 << 20
	defaultUploadDir         = "./uploads"
	defaultStaticDir         = "../frontend/build"
)

type MrzConfig struct {
	ComputeCheckDigits bool `json:"compute_check_digits"`
}

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	StorageType         string                    `json:"storage_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
	PostgresDsn         string                    `json:"postgres_dsn,omitempty"`

	SessionSecret     string `json:"session_secret,omitempty"`
	SessionTTLMinutes int    `json:"session_ttl_minutes,omitempty"`
	RememberTTLDays   int    `json:"remember_ttl_days,omitempty"`

	UploadDir      string `json:"upload_dir,omitempty"`
	MaxUploadBytes int64  `json:"max_upload_bytes,omitempty"`
	StaticDir      string `json:"static_dir,omitempty"`

	Mrz MrzConfig `json:"mrz"`
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c Config) RememberTTL() time.Duration {
	return time.Duration(c.RememberTTLDays) * 24 * time.Hour
}

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	envPath := flag.String("env", ".env", "Path for an optional .env file with secrets")
	flag.Parse()

	if *configPath == "" {
		slog.Error("please provide a config path using the --config flag")
		os.Exit(1)
	}

	config, err := readConfigFile(*configPath)
	if err != nil {
		slog.Error("failed to read config file", "error", err)
		os.Exit(1)
	}

	if err := loadEnvFile(*envPath); err != nil {
		slog.Error("failed to load env file", "path", *envPath, "error", err)
		os.Exit(1)
	}
	applyEnvOverrides(&config)

	log.InitLogger(config.LogLevel, config.LogFormat)
	slog.Info("using config", "path", *configPath)
	slog.Info("hosting on", "host", config.ServerConfig.Host, "port", config.ServerConfig.Port)

	serverState, err := createServerState(&config)
	if err != nil {
		slog.Error("failed to set up server state", "error", err)
		os.Exit(1)
	}

	server, err := NewServer(serverState, config.ServerConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	err = server.ListenAndServe()
	if err != nil {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)

	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)

	if err != nil {
		return Config{}, err
	}

	applyDefaults(&config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.SessionTTLMinutes <= 0 {
		config.SessionTTLMinutes = defaultSessionTTLMinutes
	}
	if config.RememberTTLDays <= 0 {
		config.RememberTTLDays = defaultRememberTTLDays
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaultMaxUploadBytes
	}
	if config.UploadDir == "" {
		config.UploadDir = defaultUploadDir
	}
	if config.StaticDir == "" {
		config.StaticDir = defaultStaticDir
	}
}

// loadEnvFile loads secrets into the environment. A missing file is fine,
// variables already set in the environment win.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No env file found", "path", path)
		return nil
	}
	return err
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		config.SessionSecret = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.RedisConfig.Password = v
		config.RedisSentinelConfig.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		config.PostgresDsn = v
	}
}

func createServerState(config *Config) (*ServerState, error) {
	users, sessions, err := createStorage(config)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate storage: %w", err)
	}

	tokens, err := NewHmacSessionTokens(config.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate session tokens: %w", err)
	}

	validator, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate validator: %w", err)
	}

	return &ServerState{
		users:          users,
		sessions:       sessions,
		tokens:         tokens,
		validator:      validator,
		photos:         images.NewPhotoStore(config.UploadDir),
		mrzGenerator:   mrz.Generator{ComputeCheckDigits: config.Mrz.ComputeCheckDigits},
		sessionTTL:     config.SessionTTL(),
		rememberTTL:    config.RememberTTL(),
		maxUploadBytes: config.MaxUploadBytes,
		staticDir:      config.StaticDir,
		secureCookies:  config.ServerConfig.UseTls,
	}, nil
}

// createStorage picks the user and session backends. Postgres keeps users
// in the database and sessions in memory.
func createStorage(config *Config) (UserStorage, SessionStorage, error) {
	switch config.StorageType {
	case "redis":
		slog.Info("Using redis storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, nil, err
		}
		ns := config.RedisConfig.Namespace
		return NewRedisUserStorage(client, ns), NewRedisSessionStorage(client, ns), nil
	case "redis_sentinel":
		slog.Info("Using redis sentinel storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, nil, err
		}
		ns := config.RedisSentinelConfig.Namespace
		return NewRedisUserStorage(client, ns), NewRedisSessionStorage(client, ns), nil
	case "postgres":
		slog.Info("Using postgres user storage")
		users, err := NewPostgresUserStorage(config.PostgresDsn)
		if err != nil {
			return nil, nil, err
		}
		return users, NewInMemorySessionStorage(), nil
	case "memory":
		slog.Info("Using in memory storage")
		return NewInMemoryUserStorage(), NewInMemorySessionStorage(), nil
	}
	return nil, nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}

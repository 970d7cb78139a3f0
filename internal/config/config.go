// Package config loads service settings: built-in defaults, then an optional
// YAML file named by CONFIG_FILE, then environment variables. A .env file in
// the working directory is loaded into the environment first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		IdleTimeout     time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Store struct {
		// URL selects the backend by scheme, e.g. mongodb://, postgres://,
		// redis://, sqlite://, file://, memory://.
		URL      string `yaml:"url"`
		Database string `yaml:"database"`
	} `yaml:"store"`

	Logger struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Limits struct {
		MaxUploadBytes int64 `yaml:"max_upload_bytes"`
		MaxSignBytes   int64 `yaml:"max_sign_bytes"`
	} `yaml:"limits"`

	Sign struct {
		Locking bool   `yaml:"locking"`
		TempDir string `yaml:"temp_dir"`
	} `yaml:"sign"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.IdleTimeout = time.Minute
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Store.URL = "memory://"
	cfg.Store.Database = "fillandsign"
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 50
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 28
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.Limits.MaxUploadBytes = 25 * 1024 * 1024
	cfg.Limits.MaxSignBytes = 10 * 1024 * 1024
	cfg.Sign.Locking = true
	return cfg
}

// Load builds the configuration from defaults, CONFIG_FILE and the environment.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)

	// MONGO_URI is what older deployments set.
	cfg.Store.URL = getEnv("STORE_URL", getEnv("MONGO_URI", cfg.Store.URL))
	cfg.Store.Database = getEnv("STORE_DATABASE", cfg.Store.Database)

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.File = getEnv("LOG_FILE", cfg.Logger.File)
	cfg.Logger.MaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", cfg.Logger.MaxSizeMB)
	cfg.Logger.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", cfg.Logger.MaxBackups)
	cfg.Logger.MaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", cfg.Logger.MaxAgeDays)
	cfg.Logger.Compress = getEnvBool("LOG_COMPRESS", cfg.Logger.Compress)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}

	cfg.Limits.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.Limits.MaxUploadBytes)
	cfg.Limits.MaxSignBytes = getEnvInt64("MAX_SIGN_BYTES", cfg.Limits.MaxSignBytes)

	cfg.Sign.Locking = getEnvBool("SIGN_LOCKING", cfg.Sign.Locking)
	cfg.Sign.TempDir = getEnv("SIGN_TEMP_DIR", cfg.Sign.TempDir)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is read from environment variables, optionally layered over a YAML
// file named by CONFIG_FILE. Environment values always win.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Inference InferenceConfig `yaml:"inference"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`

	// CredentialsKey enables at-rest encryption of model credentials.
	// Secret: environment only.
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port int    `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"-" env:"DATABASE_URL"`
	MaxConns        int           `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"20"`
	MinConns        int           `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" env-default:"30m"`
	ConnectAttempts int           `yaml:"connect_attempts" env:"DB_CONNECT_ATTEMPTS" env-default:"5"`
}

type CORSConfig struct {
	AllowedOrigins []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3001"`
	MaxAge         time.Duration `yaml:"max_age" env:"CORS_MAX_AGE" env-default:"1h"`
}

// RateLimitConfig bounds requests per client. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"50"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"100"`
}

// InferenceConfig holds gateway retry policy and the generation defaults
// applied when a caller leaves a parameter unset.
type InferenceConfig struct {
	MaxRetries  int           `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"2"`
	Timeout     time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`
	MaxTokens   int           `yaml:"max_tokens" env:"LLM_DEFAULT_MAX_TOKENS" env-default:"2000"`
	Temperature float64       `yaml:"temperature" env:"LLM_DEFAULT_TEMPERATURE" env-default:"0.9"`
	TopP        float64       `yaml:"top_p" env:"LLM_DEFAULT_TOP_P" env-default:"0.1"`
}

type TokenizerConfig struct {
	Encoding string `yaml:"encoding" env:"TOKENIZER_ENCODING" env-default:"r50k_base"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return errors.New("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	if c.Inference.MaxRetries < 0 {
		return errors.New("LLM_MAX_RETRIES must not be negative")
	}
	return nil
}

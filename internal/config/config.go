package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the dispatch service. Everything the
// engine needs lands here at startup; nothing reads the environment
// mid-run.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Credential is one configured outbound account.
type Credential struct {
	Identity string `yaml:"identity"`
	Secret   string `yaml:"secret"`
}

// DispatchConfig holds the engine's run parameters and credential pool.
type DispatchConfig struct {
	Credentials       []Credential `yaml:"credentials"`
	BatchSize         int          `yaml:"batch_size"`
	BatchDelaySeconds int          `yaml:"batch_delay_seconds"`
	FromName          string       `yaml:"from_name"`
	DefaultSubject    string       `yaml:"default_subject"`
}

// BatchDelay returns the inter-batch pacing delay as a duration.
func (c DispatchConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelaySeconds) * time.Second
}

// TransportConfig selects and parameterizes the delivery transport.
type TransportConfig struct {
	Kind      string `yaml:"kind"` // "smtp" or "ses"
	SMTPHost  string `yaml:"smtp_host"`
	SMTPPort  int    `yaml:"smtp_port"`
	SESRegion string `yaml:"ses_region"`
	FromEmail string `yaml:"from_email"`
}

// AuthConfig holds the optional bearer token protecting the dispatch
// endpoint. Empty token disables the check.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// RedisConfig holds the optional shared throughput ceiling settings.
type RedisConfig struct {
	URL              string `yaml:"url"`
	CeilingPerMinute int    `yaml:"ceiling_per_minute"`
}

// Load reads and parses the configuration file, applying defaults.
// A missing file yields an all-defaults config so env-only deployments work.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Dispatch.BatchSize == 0 {
		cfg.Dispatch.BatchSize = 10
	}
	if cfg.Dispatch.BatchDelaySeconds == 0 {
		cfg.Dispatch.BatchDelaySeconds = 30
	}
	if cfg.Dispatch.FromName == "" {
		cfg.Dispatch.FromName = "Notifications"
	}
	if cfg.Dispatch.DefaultSubject == "" {
		cfg.Dispatch.DefaultSubject = "Notification"
	}
	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = "smtp"
	}
	if cfg.Transport.SMTPHost == "" {
		cfg.Transport.SMTPHost = "smtp.gmail.com"
	}
	if cfg.Transport.SMTPPort == 0 {
		cfg.Transport.SMTPPort = 587
	}
	if cfg.Transport.SESRegion == "" {
		cfg.Transport.SESRegion = "us-east-1"
	}
	if cfg.Redis.CeilingPerMinute == 0 {
		cfg.Redis.CeilingPerMinute = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars on the host.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Numbered credential pairs: DISPATCH_SMTP_USER_1/DISPATCH_SMTP_PASS_1,
	// _2, ... Env-provided credentials replace the yaml list entirely.
	if envCreds := credentialsFromEnv(); len(envCreds) > 0 {
		cfg.Dispatch.Credentials = envCreds
	}

	if v := os.Getenv("DISPATCH_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("DISPATCH_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dispatch.BatchSize = n
		}
	}
	if v := os.Getenv("DISPATCH_BATCH_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Dispatch.BatchDelaySeconds = n
		}
	}
	if v := os.Getenv("DISPATCH_FROM_NAME"); v != "" {
		cfg.Dispatch.FromName = v
	}
	if v := os.Getenv("DISPATCH_TRANSPORT"); v != "" {
		cfg.Transport.Kind = v
	}
	if v := os.Getenv("DISPATCH_SMTP_HOST"); v != "" {
		cfg.Transport.SMTPHost = v
	}
	if v := os.Getenv("DISPATCH_SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Transport.SMTPPort = n
		}
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Transport.SESRegion = v
	}
	if v := os.Getenv("DISPATCH_FROM_EMAIL"); v != "" {
		cfg.Transport.FromEmail = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}

	return cfg, nil
}

func credentialsFromEnv() []Credential {
	var creds []Credential
	for i := 1; ; i++ {
		user := os.Getenv(fmt.Sprintf("DISPATCH_SMTP_USER_%d", i))
		pass := os.Getenv(fmt.Sprintf("DISPATCH_SMTP_PASS_%d", i))
		if user == "" || pass == "" {
			break
		}
		creds = append(creds, Credential{Identity: user, Secret: pass})
	}
	return creds
}

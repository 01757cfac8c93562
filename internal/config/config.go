package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = ".env"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Session    SessionConfig    `mapstructure:"session"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Mail       MailConfig       `mapstructure:"mail"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	BasePath        string        `mapstructure:"base_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	DSN      string `mapstructure:"dsn"`
}

// ConnectionString returns the driver-specific DSN unless one was set explicitly.
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	case "sqlite":
		return d.Name
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	}
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type SessionConfig struct {
	Secret string `mapstructure:"secret"`
	MaxAge int    `mapstructure:"max_age"`
}

type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	JWTPublicKey string `mapstructure:"jwt_public_key"`
	Issuer       string `mapstructure:"issuer"`
}

type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

type MailConfig struct {
	Provider     string `mapstructure:"provider"`
	From         string `mapstructure:"from"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
}

type DispatcherConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for _, k := range v.AllKeys() {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "pmuser")
	v.SetDefault("database.password", "pmpassword")
	v.SetDefault("database.name", "project_management")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.dsn", "")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.secret", "default-secret-key-change-me")
	v.SetDefault("session.max_age", 86400*7)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_public_key", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("webhook.secret", "")

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from", "no-reply@example.com")
	v.SetDefault("mail.resend_api_key", "")
	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.smtp_user", "")
	v.SetDefault("mail.smtp_password", "")

	v.SetDefault("dispatcher.poll_interval", 5*time.Second)
	v.SetDefault("dispatcher.batch_size", 20)
	v.SetDefault("dispatcher.max_attempts", 5)
	v.SetDefault("dispatcher.retry_backoff", 30*time.Second)

	v.SetDefault("openai.api_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Validate checks the settings that cannot be defaulted safely.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Mail.Provider {
	case "resend", "smtp", "log":
	default:
		return fmt.Errorf("unsupported mail provider %q", c.Mail.Provider)
	}

	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
		return errors.New("auth.jwt_secret or auth.jwt_public_key must be set")
	}

	if c.Dispatcher.PollInterval <= 0 || c.Dispatcher.BatchSize <= 0 || c.Dispatcher.MaxAttempts <= 0 {
		return errors.New("dispatcher settings must be positive")
	}

	return nil
}

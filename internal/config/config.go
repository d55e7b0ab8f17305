package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/config.yaml"

var (
	ErrMissingSecret = errors.New("access and refresh secrets are required")
	ErrSameSecrets   = errors.New("access and refresh secrets must differ")
	ErrBadTTL        = errors.New("token ttl must be positive")
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Tokens     `yaml:"tokens"`
	Password   `yaml:"password"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	Email      `yaml:"email"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Tokens carries the signing material. Secrets have no defaults on purpose.
type Tokens struct {
	AccessSecret     string `yaml:"access_secret" env:"SECRET_KEY" env-required:"true"`
	RefreshSecret    string `yaml:"refresh_secret" env:"REFRESH_SECRET_KEY" env-required:"true"`
	Algorithm        string `yaml:"algorithm" env:"ALGORITHM" env-default:"HS256"`
	AccessTTLMinutes int    `yaml:"access_token_ttl_minutes" env:"ACCESS_TOKEN_EXPIRE_MINUTES" env-default:"60"`
	RefreshTTLDays   int    `yaml:"refresh_token_ttl_days" env:"REFRESH_TOKEN_EXPIRE_DAYS" env-default:"7"`
}

type Password struct {
	Algorithm string `yaml:"algorithm" env:"PASSWORD_ALGORITHM" env-default:"bcrypt"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"auth.events"`
}

type Email struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

func (t Tokens) AccessTTL() time.Duration {
	return time.Duration(t.AccessTTLMinutes) * time.Minute
}

func (t Tokens) RefreshTTL() time.Duration {
	return time.Duration(t.RefreshTTLDays) * 24 * time.Hour
}

func (t Tokens) Validate() error {
	if t.AccessSecret == "" || t.RefreshSecret == "" {
		return ErrMissingSecret
	}
	if t.AccessSecret == t.RefreshSecret {
		return ErrSameSecrets
	}
	if t.AccessTTLMinutes <= 0 || t.RefreshTTLDays <= 0 {
		return ErrBadTTL
	}

	return nil
}

// DSN builds a libpq-style connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	var cfg Config

	if err := read(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Tokens.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// MustLoad reads the file named by CONFIG_PATH, falling back to ./config/config.yaml.
func MustLoad() *Config {
	cfg, err := Load(path())
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}

func path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}

	return defaultConfigPath
}

func read(configPath string, cfg any) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	return cleanenv.ReadConfig(configPath, cfg)
}

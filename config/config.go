package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/clinidesk/frontdesk-api/internal/email"
	"github.com/clinidesk/frontdesk-api/internal/service/notification"
	"github.com/clinidesk/frontdesk-api/pkg/messaging/redis"
	"github.com/clinidesk/frontdesk-api/pkg/worker"
)

// Viper decodes through mapstructure, not yaml, so every multi-word
// key needs both tags or it silently falls back to its zero value.
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port" envconfig:"SERVER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" mapstructure:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" mapstructure:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" mapstructure:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
}

type RedisConfig struct {
	URL          string        `yaml:"url" mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" envconfig:"CACHE_TTL"`
}

type OutboxConfig struct {
	BatchSize     int           `yaml:"batch_size" mapstructure:"batch_size"`
	PollInterval  time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	RetryAttempts int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type MonitoringConfig struct {
	MetricsNamespace string `yaml:"metrics_namespace" mapstructure:"metrics_namespace"`
	MetricsSubsystem string `yaml:"metrics_subsystem" mapstructure:"metrics_subsystem"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host" envconfig:"SMTP_HOST"`
	Port     int    `yaml:"port" mapstructure:"port" envconfig:"SMTP_PORT"`
	Username string `yaml:"username" mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password string `yaml:"password" mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From     string `yaml:"from" mapstructure:"from" envconfig:"SMTP_FROM"`
}

type NotificationConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	ReminderRecipient string `yaml:"reminder_recipient" mapstructure:"reminder_recipient" envconfig:"REMINDER_RECIPIENT"`
	ClinicName        string `yaml:"clinic_name" mapstructure:"clinic_name"`
}

type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Database     DatabaseConfig     `yaml:"database" mapstructure:"database"`
	Redis        RedisConfig        `yaml:"redis" mapstructure:"redis"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Outbox       OutboxConfig       `yaml:"outbox" mapstructure:"outbox"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit" mapstructure:"rate_limit"`
	Security     SecurityConfig     `yaml:"security" mapstructure:"security"`
	Monitoring   MonitoringConfig   `yaml:"monitoring" mapstructure:"monitoring"`
	SMTP         SMTPConfig         `yaml:"smtp" mapstructure:"smtp"`
	Notification NotificationConfig `yaml:"notification" mapstructure:"notification"`
}

// LoadConfig reads config.yml from the usual locations, then lets
// FRONTDESK_* environment variables override individual values.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("frontdesk", &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &config, nil
}

func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *SMTPConfig) ToEmailConfig() email.SMTPConfig {
	return email.SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
	}
}

func (c *NotificationConfig) ToServiceConfig() notification.Config {
	return notification.Config{
		ReminderRecipient: c.ReminderRecipient,
		ClinicName:        c.ClinicName,
	}
}

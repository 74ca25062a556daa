package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Khalti   KhaltiConfig
	Stripe   StripeConfig
	SMS      SMSConfig
	SMTP     SMTPConfig
	Booking  BookingConfig
	// FrontendURL is where payment gateways send customers back to.
	FrontendURL    string
	GatewayTimeout time.Duration
	NotifyTimeout  time.Duration
	StatsCacheTTL  time.Duration
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QueueDB  int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
	// Trace logs every statement through the application logger.
	Trace bool
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type RabbitMQConfig struct {
	URL string
}

type KhaltiConfig struct {
	BaseURL   string
	SecretKey string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type SMSConfig struct {
	BaseURL    string
	APIKey     string
	SenderID   string
	RatePerSec float64
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type BookingConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// New reads configuration from the environment, after loading a local .env
// when one exists.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	for _, key := range []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB"} {
		if strings.TrimSpace(v.GetString(key)) == "" {
			return nil, fmt.Errorf("%s: missing %s", op, key)
		}
	}

	port := v.GetInt("SERVER_PORT")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%s: invalid SERVER_PORT %q", op, v.GetString("SERVER_PORT"))
	}

	return &Config{
		Env:      v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           port,
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Postgres: PostgresConfig{
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			Name:     v.GetString("POSTGRES_DB"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetInt("POSTGRES_PORT"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
			MaxConns: v.GetInt32("POSTGRES_MAX_CONNS"),
			Trace:    v.GetBool("POSTGRES_TRACE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			QueueDB:  v.GetInt("QUEUE_REDIS_DB"),
		},
		RabbitMQ: RabbitMQConfig{URL: v.GetString("RABBITMQ_URL")},
		Khalti: KhaltiConfig{
			BaseURL:   v.GetString("KHALTI_BASE_URL"),
			SecretKey: v.GetString("KHALTI_SECRET_KEY"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			Currency:      v.GetString("STRIPE_CURRENCY"),
		},
		SMS: SMSConfig{
			BaseURL:    v.GetString("SMS_BASE_URL"),
			APIKey:     v.GetString("SMS_API_KEY"),
			SenderID:   v.GetString("SMS_SENDER_ID"),
			RatePerSec: v.GetFloat64("SMS_RATE_PER_SEC"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Booking: BookingConfig{
			RateLimit:  v.GetInt("BOOKING_RATE_LIMIT"),
			RateWindow: v.GetDuration("BOOKING_RATE_WINDOW"),
		},
		FrontendURL:    strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		GatewayTimeout: v.GetDuration("GATEWAY_TIMEOUT"),
		NotifyTimeout:  v.GetDuration("NOTIFY_TIMEOUT"),
		StatsCacheTTL:  v.GetDuration("STATS_CACHE_TTL"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_HOST", "localhost")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("POSTGRES_USER", "")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_DB", "")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_MAX_CONNS", 10)
	v.SetDefault("POSTGRES_TRACE", false)

	v.SetDefault("REDIS_ADDR", "localhost:6380")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUEUE_REDIS_DB", 1)

	v.SetDefault("RABBITMQ_URL", "")

	v.SetDefault("KHALTI_BASE_URL", "https://dev.khalti.com/api/v2")
	v.SetDefault("KHALTI_SECRET_KEY", "")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("STRIPE_CURRENCY", "npr")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")

	v.SetDefault("SMS_BASE_URL", "https://sms.aakashsms.com/sms/v3/send")
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_SENDER_ID", "FSN_Alert")
	v.SetDefault("SMS_RATE_PER_SEC", 5)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")

	v.SetDefault("GATEWAY_TIMEOUT", "15s")
	v.SetDefault("NOTIFY_TIMEOUT", "10s")
	v.SetDefault("STATS_CACHE_TTL", "5m")
	v.SetDefault("BOOKING_RATE_LIMIT", 10)
	v.SetDefault("BOOKING_RATE_WINDOW", "1m")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DB        DBConfig
	Media     MediaConfig
	Tokens    TokensConfig
	Server    ServerConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Kafka     KafkaConfig
	Audit     AuditConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MediaConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicURL     string
	MaxImageBytes int64
}

type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

type TokensConfig struct {
	Access            TokenConfig
	Refresh           TokenConfig
	EmailVerification TokenConfig
}

type ServerConfig struct {
	Port        string
	FrontendURL string
	BodyLimitMB int
}

type MailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	ClientURL string
}

type RateLimitConfig struct {
	PerMinute int
	Burst     int
	RedisAddr string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type AuditConfig struct {
	QueueSize int
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "groupchat"),
			Password: getEnv("DB_PASSWORD", "groupchat_secret"),
			Name:     getEnv("DB_NAME", "groupchat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Media: MediaConfig{
			Endpoint:      getEnv("MEDIA_ENDPOINT", "localhost:9000"),
			AccessKey:     getEnv("MEDIA_ACCESS_KEY", "groupchat"),
			SecretKey:     getEnv("MEDIA_SECRET_KEY", "groupchat_secret"),
			Bucket:        getEnv("MEDIA_BUCKET", "groupchat"),
			UseSSL:        getEnvAsBool("MEDIA_USE_SSL", false),
			PublicURL:     getEnv("MEDIA_PUBLIC_URL", "http://localhost:9000"),
			MaxImageBytes: int64(getEnvAsInt("MEDIA_MAX_IMAGE_BYTES", 5*1024*1024)),
		},
		Tokens: TokensConfig{
			Access: TokenConfig{
				Secret: getEnv("ACCESS_TOKEN_SECRET", "change-me-access"),
				TTL:    getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			},
			Refresh: TokenConfig{
				Secret: getEnv("REFRESH_TOKEN_SECRET", "change-me-refresh"),
				TTL:    getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			},
			EmailVerification: TokenConfig{
				Secret: getEnv("EMAIL_VERIFICATION_SECRET", "change-me-email"),
				TTL:    getEnvAsDuration("EMAIL_VERIFICATION_TTL", 5*time.Minute),
			},
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8000"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
			BodyLimitMB: getEnvAsInt("SERVER_BODY_LIMIT_MB", 10),
		},
		Mail: MailConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			From:      getEnv("SMTP_FROM", "no-reply@groupchat.local"),
			ClientURL: getEnv("CLIENT_URL", getEnv("FRONTEND_URL", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
			Burst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
			RedisAddr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_AUDIT_TOPIC", "groupchat.audit"),
		},
		Audit: AuditConfig{
			QueueSize: getEnvAsInt("AUDIT_QUEUE_SIZE", 1000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

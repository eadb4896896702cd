package config

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Kafka     KafkaConfig
	WebSocket WebSocketConfig
	Log       LogConfig
}

var (
	ConfigInstance *Config
	configErr      error
	once           sync.Once
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver         string
	URL            string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnectRetries int
	RetryDelay     time.Duration
}

type RedisConfig struct {
	URL          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type WebSocketConfig struct {
	StoreTimeout     time.Duration
	SendBuffer       int
	MaxMessageSize   int64
	ChatRateLimit    int
	ChatRateWindow   time.Duration
	ConnectRateLimit int
}

type LogConfig struct {
	Level  string
	Format string
}

// ErrMissingJWTSecret is returned when no signing secret is configured
var ErrMissingJWTSecret = errors.New("SPACEHUB_JWT_SECRET must be set")

// LoadConfig reads the process environment once and caches the result
func LoadConfig() (*Config, error) {
	once.Do(func() {
		v := viper.New()
		SetDefaults(v)
		v.AutomaticEnv()
		ConfigInstance, configErr = FromViper(v)
	})

	return ConfigInstance, configErr
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("SPACEHUB_PORT", "3001")
	v.SetDefault("SPACEHUB_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SPACEHUB_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SPACEHUB_IDLE_TIMEOUT", 120*time.Second)
	v.SetDefault("SPACEHUB_JWT_EXPIRE", "24h")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=password dbname=spacehub port=5432 sslmode=disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 50)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_CONNECT_RETRIES", 5)
	v.SetDefault("DATABASE_RETRY_DELAY", 2*time.Second)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "spacehub.chat-messages")
	v.SetDefault("WS_STORE_TIMEOUT", 5*time.Second)
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 4096)
	v.SetDefault("WS_CHAT_RATE_LIMIT", 20)
	v.SetDefault("WS_CHAT_RATE_WINDOW", 10*time.Second)
	v.SetDefault("WS_CONNECT_RATE_LIMIT", 30)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SPACEHUB_HOST"),
			Port:           v.GetString("SPACEHUB_PORT"),
			ReadTimeout:    v.GetDuration("SPACEHUB_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("SPACEHUB_WRITE_TIMEOUT"),
			IdleTimeout:    v.GetDuration("SPACEHUB_IDLE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Driver:         v.GetString("DATABASE_DRIVER"),
			URL:            v.GetString("DATABASE_URL"),
			MaxOpenConns:   v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:   v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnectRetries: v.GetInt("DATABASE_CONNECT_RETRIES"),
			RetryDelay:     v.GetDuration("DATABASE_RETRY_DELAY"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("SPACEHUB_JWT_SECRET"),
			ExpirationTime: v.GetDuration("SPACEHUB_JWT_EXPIRE"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		WebSocket: WebSocketConfig{
			StoreTimeout:     v.GetDuration("WS_STORE_TIMEOUT"),
			SendBuffer:       v.GetInt("WS_SEND_BUFFER"),
			MaxMessageSize:   v.GetInt64("WS_MAX_MESSAGE_SIZE"),
			ChatRateLimit:    v.GetInt("WS_CHAT_RATE_LIMIT"),
			ChatRateWindow:   v.GetDuration("WS_CHAT_RATE_WINDOW"),
			ConnectRateLimit: v.GetInt("WS_CONNECT_RATE_LIMIT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, ErrMissingJWTSecret
	}
	return cfg, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

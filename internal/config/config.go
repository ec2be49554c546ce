package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; DATABASE_URL, AMQP_URL and JWT_SECRET
// are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Broker
	AMQPURL string

	// Maximum delivery attempts before a failing message is dead-lettered.
	MaxDeliveryAttempts int64

	// Delay applied between redeliveries of a failed message.
	RetryDelay time.Duration

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Live channel: inbound RPCs allowed per second per connection.
	SocketRPCRate int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	amqpURL := os.Getenv("AMQP_URL")
	if amqpURL == "" {
		return nil, fmt.Errorf("AMQP_URL is required")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		AllowedOrigins:  getList("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		AMQPURL:             amqpURL,
		MaxDeliveryAttempts: int64(getInt("MAX_DELIVERY_ATTEMPTS", 5)),
		RetryDelay:          getDuration("RETRY_DELAY", 10*time.Second),

		JWTSecret: jwtSecret,
		TokenTTL:  getDuration("TOKEN_TTL", 24*time.Hour),

		SocketRPCRate: getInt("SOCKET_RPC_RATE", 10),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getList(key, defaultVal string) []string {
	raw := getEnv(key, defaultVal)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

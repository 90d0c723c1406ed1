package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// RedisConfig configures the threshold cache connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the outbox relay and fraud-check consumer.
type KafkaConfig struct {
	Brokers         []string
	AuditTopic      string
	FraudCheckTopic string
	ConsumerGroup   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BENEFID_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("BENEFID_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("BENEFID_REDIS_URL"),
			PoolSize:     envInt("BENEFID_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BENEFID_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CacheTTL:     envDuration("BENEFID_THRESHOLD_CACHE_TTL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:         splitNonEmpty(os.Getenv("BENEFID_KAFKA_BROKERS")),
			AuditTopic:      envString("BENEFID_AUDIT_TOPIC", "benefid.audit"),
			FraudCheckTopic: envString("BENEFID_FRAUD_CHECK_TOPIC", "benefid.fraud-check"),
			ConsumerGroup:   envString("BENEFID_CONSUMER_GROUP", "benefid-fraud-check"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package config builds service configuration from environment variables so
// main stays lean. Every engine tunable has the documented default; nothing
// here reads files.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server    Server
	Log       LogConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
	Engine    EngineConfig
	Ingest    IngestConfig

	JWTSigningKey string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// LogConfig selects handler format and level for slog.
type LogConfig struct {
	Format string // "text" or "json"
	Level  string // "debug", "info", "warn", "error"
}

// PostgresConfig configures the primary database pool.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the optional presence snapshot cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SnapshotTTL  time.Duration
}

// KafkaConfig configures the audit event pipeline. An empty broker list
// disables publishing; events then stay in the outbox table.
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
}

// TelemetryConfig selects the trace exporter.
type TelemetryConfig struct {
	// Exporter is "none", "stdout", or "otlp".
	Exporter     string
	OTLPEndpoint string
	SampleRatio  float64
}

// EngineConfig carries the reconciliation and duplicate-detection tunables.
// Defaults match the documented engine behavior; override only with data to
// back the change.
type EngineConfig struct {
	// Duplicate score thresholds, (similar, identical], scores are capped at 1.0.
	DuplicateIdenticalThreshold float64
	DuplicateSimilarThreshold   float64

	// Gaps at least this long (days) produce an upload recommendation.
	GapRecommendationDays int

	// Default confidence per evidence source when the adapter supplies none.
	StampConfidence   float64
	BookingConfidence float64
	ManualConfidence  float64
}

// IngestConfig bounds adapter batch ingestion.
type IngestConfig struct {
	MaxBatchSize     int
	RatePerMinute    int
	RateBurstAllowed int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            getEnv("TRAVELCHECK_ADDR", ":8080"),
			ShutdownTimeout: getDuration("TRAVELCHECK_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Format: getEnv("LOG_FORMAT", "text"),
			Level:  getEnv("LOG_LEVEL", "info"),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			SnapshotTTL:  getDuration("TRAVELCHECK_SNAPSHOT_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "travelcheck-audit"),
		},
		Telemetry: TelemetryConfig{
			Exporter:     getEnv("OTEL_TRACES_EXPORTER", "none"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio:  getFloat("OTEL_TRACES_SAMPLER_RATIO", 1.0),
		},
		Engine: EngineConfig{
			DuplicateIdenticalThreshold: getFloat("TRAVELCHECK_DUP_IDENTICAL_THRESHOLD", 0.95),
			DuplicateSimilarThreshold:   getFloat("TRAVELCHECK_DUP_SIMILAR_THRESHOLD", 0.8),
			GapRecommendationDays:       getInt("TRAVELCHECK_GAP_RECOMMEND_DAYS", 3),
			StampConfidence:             getFloat("TRAVELCHECK_STAMP_CONFIDENCE", 0.85),
			BookingConfidence:           getFloat("TRAVELCHECK_BOOKING_CONFIDENCE", 0.75),
			ManualConfidence:            getFloat("TRAVELCHECK_MANUAL_CONFIDENCE", 1.0),
		},
		Ingest: IngestConfig{
			MaxBatchSize:     getInt("TRAVELCHECK_INGEST_MAX_BATCH", 500),
			RatePerMinute:    getInt("TRAVELCHECK_INGEST_RATE_PER_MINUTE", 120),
			RateBurstAllowed: getInt("TRAVELCHECK_INGEST_RATE_BURST", 20),
		},
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

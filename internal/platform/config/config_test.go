package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "text", cfg.Log.Format)

	// Engine tunables default to the documented thresholds.
	assert.Equal(t, 0.95, cfg.Engine.DuplicateIdenticalThreshold)
	assert.Equal(t, 0.8, cfg.Engine.DuplicateSimilarThreshold)
	assert.Equal(t, 3, cfg.Engine.GapRecommendationDays)
	assert.Equal(t, 0.85, cfg.Engine.StampConfidence)
	assert.Equal(t, 0.75, cfg.Engine.BookingConfidence)
	assert.Equal(t, 1.0, cfg.Engine.ManualConfidence)

	assert.Equal(t, 5*time.Minute, cfg.Redis.SnapshotTTL)
	assert.Empty(t, cfg.Kafka.Brokers, "kafka disabled without brokers")
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("TRAVELCHECK_ADDR", ":9999")
	t.Setenv("TRAVELCHECK_DUP_SIMILAR_THRESHOLD", "0.7")
	t.Setenv("TRAVELCHECK_GAP_RECOMMEND_DAYS", "5")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 0.7, cfg.Engine.DuplicateSimilarThreshold)
	assert.Equal(t, 5, cfg.Engine.GapRecommendationDays)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
}

func TestFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("TRAVELCHECK_GAP_RECOMMEND_DAYS", "soon")
	t.Setenv("TRAVELCHECK_DUP_IDENTICAL_THRESHOLD", "almost")
	t.Setenv("DATABASE_CONN_MAX_LIFETIME", "forever")

	cfg := FromEnv()

	assert.Equal(t, 3, cfg.Engine.GapRecommendationDays)
	assert.Equal(t, 0.95, cfg.Engine.DuplicateIdenticalThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.ConnMaxLifetime)
}

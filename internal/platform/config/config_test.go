package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 0.75, cfg.Attendance.LowAttendanceThreshold)
	assert.Equal(t, 0.6, cfg.Attendance.SimilarityThreshold)
	assert.Equal(t, 2*time.Second, cfg.Attendance.MatcherTimeout)
	assert.Equal(t, 10, cfg.RateLimit.MarkLimit)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("ROLLCALL_ADDR", ":9090")
	t.Setenv("ROLLCALL_ATTENDANCE_SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("ROLLCALL_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ROLLCALL_REDIS_POOL_SIZE", "25")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 0.8, cfg.Attendance.SimilarityThreshold)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Redis.PoolSize)
}

func TestParse_RejectsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("ROLLCALL_ATTENDANCE_LOW_ATTENDANCE_THRESHOLD", "1.5")
	_, err := Parse()
	require.Error(t, err)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8082", cfg.HTTPAddr)
	assert.Equal(t, "inventoryd", cfg.ServiceName)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("RESERVATION_TTL", "45m")
	t.Setenv("SWEEP_INTERVAL", "30s")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 45*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("RESERVATION_TTL", "soon")
	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.ReservationTTL)
}

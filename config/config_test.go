package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
http:
  address: ":8081"
database:
  host: db
  user: app
  password: secret
  name: flights
redis:
  addr: "redis:6379"
kafka:
  brokers: ["kafka:9092"]
  notifications_topic: notifications
booking:
  transaction_timeout_seconds: 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTP.Address)
	assert.Equal(t, ":9090", cfg.GRPC.Address)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=flights sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "booking_events", cfg.Kafka.BookingTopic)
	assert.Equal(t, "notifications", cfg.Kafka.NotificationsTopic)
	assert.Equal(t, 5*time.Second, cfg.Booking.TransactionTimeout())
	assert.Equal(t, 30*time.Second, cfg.Booking.LockTTL())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = LoadConfig(writeConfig(t, "http: [oops"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = LoadConfig(writeConfig(t, "database:\n  driver: oracle\n"))
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestLoadConfig_MemoryDriver(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "database:\n  driver: memory\n  seed_file: seed.yaml\n"))
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

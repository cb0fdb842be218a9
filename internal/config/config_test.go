package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "wisefido_asset", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "rfid/+/events", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.DevMode)
	assert.Empty(t, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "Storage", cfg.Tracking.StorageLocation)
	assert.Empty(t, cfg.Tracking.AtlasFile)

	assert.Equal(t, time.Hour, cfg.Alert.SweepInterval)
	assert.True(t, cfg.Alert.Dedup)
	assert.Equal(t, "asset:alerts:stream", cfg.Alert.Stream)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_HOST", "pg.hospital")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("STORAGE_LOCATION", "Central Supply")
	t.Setenv("ALERT_SWEEP_INTERVAL", "15m")
	t.Setenv("ALERT_DEDUP", "false")
	t.Setenv("JWT_TTL", "bogus")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://dashboard.hospital, ,https://ops.hospital")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "pg.hospital", cfg.Database.Host)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "Central Supply", cfg.Tracking.StorageLocation)
	assert.Equal(t, 15*time.Minute, cfg.Alert.SweepInterval)
	assert.False(t, cfg.Alert.Dedup)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL, "invalid duration falls back to default")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://dashboard.hospital", "https://ops.hospital"}, cfg.HTTP.AllowedOrigins)
}

func TestLoad_JWTSecretRequiredOutsideDevMode(t *testing.T) {
	os.Clearenv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("AUTH_DEV_MODE", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Auth.DevMode)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

func TestLoad_InvalidSweepInterval(t *testing.T) {
	os.Clearenv()
	t.Setenv("ALERT_SWEEP_INTERVAL", "-5m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_SWEEP_INTERVAL")
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "wisefido-asset/common/config"
)

// Config wisefido-asset（设备追踪服务）配置
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`

		// AllowedOrigins 允许连接告警 websocket 的跨域来源
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	DBEnabled bool                     `yaml:"db_enabled"`
	Database  commoncfg.DatabaseConfig `yaml:"database"`
	// RedisEnabled 为 false 时不启用状态缓存与告警流
	RedisEnabled bool                  `yaml:"redis_enabled"`
	Redis        commoncfg.RedisConfig `yaml:"redis"`
	MQTT         MQTTConfig            `yaml:"mqtt"`
	Auth         AuthConfig            `yaml:"auth"`
	Tracking     TrackingConfig        `yaml:"tracking"`
	Alert        AlertConfig           `yaml:"alert"`
	Log          struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// MQTTConfig RFID 读卡器 MQTT 接入配置
type MQTTConfig struct {
	commoncfg.MQTTConfig `yaml:",inline"`

	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"` // 如 "rfid/+/events"，+ 为读卡器位置
}

// AuthConfig 身份令牌配置
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	DevMode   bool          `yaml:"dev_mode"` // 仅本地开发：允许不配置 JWT_SECRET
}

// TrackingConfig 位置与知识库配置
type TrackingConfig struct {
	StorageLocation string `yaml:"storage_location"`
	AtlasFile       string `yaml:"atlas_file"` // 为空时使用内置分类表
}

// AlertConfig 告警引擎配置
type AlertConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"` // 0 表示关闭周期巡检
	Dedup         bool          `yaml:"dedup"`
	Stream        string        `yaml:"stream"`
	StatusTTL     time.Duration `yaml:"status_ttl"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")
	cfg.HTTP.AllowedOrigins = splitList(getEnv("HTTP_ALLOWED_ORIGINS", ""))

	// 数据库不可用时服务回退到内存存储
	cfg.DBEnabled = parseBool(getEnv("DB_ENABLED", "true"), true)
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "wisefido_asset",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = parseBool(getEnv("REDIS_ENABLED", "false"), false)
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Enabled = parseBool(getEnv("MQTT_ENABLED", "false"), false)
	cfg.MQTT.MQTTConfig = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "wisefido-asset-rfid",
		QoS:      1,
	}
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.Topic = getEnv("MQTT_RFID_TOPIC", "rfid/+/events")

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.Auth.TokenTTL = parseDuration(getEnv("JWT_TTL", "12h"), 12*time.Hour)
	cfg.Auth.DevMode = parseBool(getEnv("AUTH_DEV_MODE", "false"), false)

	cfg.Tracking.StorageLocation = getEnv("STORAGE_LOCATION", "Storage")
	cfg.Tracking.AtlasFile = getEnv("ATLAS_FILE", "")

	cfg.Alert.SweepInterval = parseDuration(getEnv("ALERT_SWEEP_INTERVAL", "1h"), time.Hour)
	cfg.Alert.Dedup = parseBool(getEnv("ALERT_DEDUP", "true"), true)
	cfg.Alert.Stream = getEnv("ALERT_STREAM", "asset:alerts:stream")
	cfg.Alert.StatusTTL = parseDuration(getEnv("ASSET_STATUS_TTL", "24h"), 24*time.Hour)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if c.Tracking.StorageLocation == "" {
		return fmt.Errorf("STORAGE_LOCATION must not be empty")
	}
	if c.Alert.SweepInterval < 0 {
		return fmt.Errorf("ALERT_SWEEP_INTERVAL must not be negative, got %s", c.Alert.SweepInterval)
	}
	if c.MQTT.Enabled && c.MQTT.Topic == "" {
		return fmt.Errorf("MQTT_RFID_TOPIC is required when MQTT_ENABLED=true")
	}
	if c.Auth.JWTSecret == "" && !c.Auth.DevMode {
		return fmt.Errorf("JWT_SECRET is required unless AUTH_DEV_MODE=true")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

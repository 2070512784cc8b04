package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Search   SearchConfig   `yaml:"search"`
}

type HTTPConfig struct {
	Address    string  `yaml:"address"`
	SwaggerDir string  `yaml:"swagger_dir"`
	RateLimit  float64 `yaml:"rate_limit"`
	RateBurst  int     `yaml:"rate_burst"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	SeedFile string `yaml:"seed_file"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig with an empty Addr disables the search cache and distributed locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers             []string `yaml:"brokers"`
	BookingTopic        string   `yaml:"booking_topic"`
	NotificationsTopic  string   `yaml:"notifications_topic"`
	ScheduleFeedTopic   string   `yaml:"schedule_feed_topic"`
	ScheduleEventsTopic string   `yaml:"schedule_events_topic"`
	GroupID             string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type BookingConfig struct {
	LockTTLSeconds            int `yaml:"lock_ttl_seconds"`
	TransactionTimeoutSeconds int `yaml:"transaction_timeout_seconds"`
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BookingConfig) TransactionTimeout() time.Duration {
	return time.Duration(b.TransactionTimeoutSeconds) * time.Second
}

type SearchConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

func (s SearchConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if cfg.Database.Driver != DriverPostgres && cfg.Database.Driver != DriverMemory {
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Kafka.BookingTopic == "" {
		c.Kafka.BookingTopic = "booking_events"
	}
	if c.Kafka.NotificationsTopic == "" {
		c.Kafka.NotificationsTopic = "notifications"
	}
	if c.Kafka.ScheduleFeedTopic == "" {
		c.Kafka.ScheduleFeedTopic = "schedule_feed"
	}
	if c.Kafka.ScheduleEventsTopic == "" {
		c.Kafka.ScheduleEventsTopic = "schedule_events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "flightengine-worker"
	}
	if c.Booking.LockTTLSeconds == 0 {
		c.Booking.LockTTLSeconds = 30
	}
	if c.Booking.TransactionTimeoutSeconds == 0 {
		c.Booking.TransactionTimeoutSeconds = 10
	}
}

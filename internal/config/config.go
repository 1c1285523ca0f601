package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Queue         QueueConfig         `yaml:"queue"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	Exports       ExportConfig        `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	// URL takes precedence over Address when both are set
	// (redis:// or rediss:// form, credentials included).
	URL             string `yaml:"url"`
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	PoolSize        int    `yaml:"pool_size"`
	ConnectTimeout  int    `yaml:"connect_timeout_seconds"`
	CommandTimeout  int    `yaml:"command_timeout_seconds"`
	ConnectAttempts int    `yaml:"connect_attempts"`
}

type QueueConfig struct {
	Name             string `yaml:"name"`
	HoldDelayMinutes int    `yaml:"hold_delay_minutes"`
	MaxAttempts      int    `yaml:"max_attempts"`
	BackoffType      string `yaml:"backoff_type"` // exponential or fixed
	BackoffSeconds   int    `yaml:"backoff_seconds"`
	LockSeconds      int    `yaml:"lock_seconds"`
	KeepCompleted    int    `yaml:"keep_completed_seconds"`
	KeepFailed       int    `yaml:"keep_failed_seconds"`
	DayPollMinutes   int    `yaml:"day_poll_minutes"`
	NightPollMinutes int    `yaml:"night_poll_minutes"`
	DayStartHour     int    `yaml:"day_start_hour"`
	DayEndHour       int    `yaml:"day_end_hour"`
}

type NotificationsConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment wins when present.
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Substitute ${VAR} references before parsing.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Redis.URL == "" && c.Redis.Address == "" {
		return errors.New("redis url or address is required")
	}
	if c.Queue.HoldDelayMinutes <= 0 {
		return errors.New("queue hold delay must be positive")
	}
	if c.Queue.BackoffType != "exponential" && c.Queue.BackoffType != "fixed" {
		return fmt.Errorf("unknown backoff type %q", c.Queue.BackoffType)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "travelone"
	}
	if c.Redis.ConnectTimeout == 0 {
		c.Redis.ConnectTimeout = 30
	}
	if c.Redis.CommandTimeout == 0 {
		c.Redis.CommandTimeout = 120
	}
	if c.Redis.ConnectAttempts == 0 {
		c.Redis.ConnectAttempts = 3
	}
	if c.Queue.Name == "" {
		c.Queue.Name = "cancellation"
	}
	if c.Queue.HoldDelayMinutes == 0 {
		c.Queue.HoldDelayMinutes = 15
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.BackoffType == "" {
		c.Queue.BackoffType = "exponential"
	}
	if c.Queue.BackoffSeconds == 0 {
		c.Queue.BackoffSeconds = 5
	}
	if c.Queue.LockSeconds == 0 {
		c.Queue.LockSeconds = 30
	}
	if c.Queue.KeepCompleted == 0 {
		c.Queue.KeepCompleted = 3600
	}
	if c.Queue.KeepFailed == 0 {
		c.Queue.KeepFailed = 7200
	}
	if c.Queue.DayPollMinutes == 0 {
		c.Queue.DayPollMinutes = 12
	}
	if c.Queue.NightPollMinutes == 0 {
		c.Queue.NightPollMinutes = 60
	}
	if c.Queue.DayStartHour == 0 {
		c.Queue.DayStartHour = 9
	}
	if c.Queue.DayEndHour == 0 {
		c.Queue.DayEndHour = 22
	}
	if c.Notifications.RatePerSecond == 0 {
		c.Notifications.RatePerSecond = 10
	}
	if c.Notifications.Burst == 0 {
		c.Notifications.Burst = 20
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

// HoldDelay is how long a customer-created booking may stay PENDING before
// auto-cancellation.
func (q QueueConfig) HoldDelay() time.Duration {
	return time.Duration(q.HoldDelayMinutes) * time.Minute
}

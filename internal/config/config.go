package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/apoyet/cl2pd/internal/timerange"
)

// EnvPrefix prefixes environment overrides, e.g. CL2PD_SERVER_PORT.
const EnvPrefix = "CL2PD"

// Config holds all configuration for the service
type Config struct {
	Server          ServerConfig   `mapstructure:"server"`
	LoggingService  RemoteConfig   `mapstructure:"logging_service"`
	SettingsService RemoteConfig   `mapstructure:"settings_service"`
	Database        DatabaseConfig `mapstructure:"database"`
	Storage         StorageConfig  `mapstructure:"storage"`
	Logging         LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port          int     `mapstructure:"port"`
	Host          string  `mapstructure:"host"`
	RateLimit     float64 `mapstructure:"rate_limit"`
	RateBurst     int     `mapstructure:"rate_burst"`
	CacheSize     int     `mapstructure:"cache_size"`
	MaxSplit      int     `mapstructure:"max_split"`
	MetricsPort   int     `mapstructure:"metrics_port"`
	ShutdownGrace int     `mapstructure:"shutdown_grace"`
}

// RemoteConfig points at an HTTP service. Timeout is in seconds.
type RemoteConfig struct {
	URL      string `mapstructure:"url"`
	Timeout  int    `mapstructure:"timeout"`
	TimeZone string `mapstructure:"time_zone"`
}

type DatabaseConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Name              string `mapstructure:"name"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	SSLMode           string `mapstructure:"ssl_mode"`
	MaxConnections    int    `mapstructure:"max_connections"`
	ConnectionTimeout int    `mapstructure:"connection_timeout"`
}

// StorageConfig confines local file reads to LocalRoot. Local reads are
// disabled when it is empty.
type StorageConfig struct {
	LocalRoot string   `mapstructure:"local_root"`
	S3        S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Round-trip through a map so that the file is valid YAML before expansion
	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw config: %w", err)
	}
	data, err = yaml.Marshal(rawConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("server.cache_size must not be negative, got %d", c.Server.CacheSize)
	}
	if c.Server.MaxSplit < 1 {
		return fmt.Errorf("server.max_split must be at least 1, got %d", c.Server.MaxSplit)
	}
	if !c.Database.Enabled && c.LoggingService.URL == "" {
		return fmt.Errorf("either database.enabled or logging_service.url must be set")
	}
	if _, err := time.LoadLocation(c.LoggingService.TimeZone); err != nil {
		return fmt.Errorf("logging_service.time_zone: %w", err)
	}
	if root := c.Storage.LocalRoot; root != "" {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("storage.local_root: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage.local_root: %s is not a directory", root)
		}
	}
	return nil
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.ConnectionTimeout)
}

// TimeoutDuration returns Timeout as a duration.
func (r RemoteConfig) TimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 50051)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.cache_size", 0)
	v.SetDefault("server.max_split", 64)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.shutdown_grace", 10)

	v.SetDefault("logging_service.timeout", 30)
	v.SetDefault("logging_service.time_zone", timerange.DefaultZone)
	v.SetDefault("settings_service.timeout", 30)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.connection_timeout", 5)

	v.SetDefault("storage.local_root", "")
	v.SetDefault("storage.s3.enabled", false)
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)
}

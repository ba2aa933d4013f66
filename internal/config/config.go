package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"auction-engine/internal/models"
)

const serviceName = "auction-engine"

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig selects the auction store
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // memory, sqlite or postgres
	DSN    string `mapstructure:"dsn"`
}

// LogConfig holds logger level and rotation settings
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// BiddingConfig holds the engine parameters. Amounts are decimal strings.
type BiddingConfig struct {
	MaxBidAmount          string        `mapstructure:"max_bid_amount"`
	MinProxyIncrement     string        `mapstructure:"min_proxy_increment"`
	ResolverMaxIterations int           `mapstructure:"resolver_max_iterations"`
	ConflictRetries       int           `mapstructure:"conflict_retries"`
	ConflictBackoff       time.Duration `mapstructure:"conflict_backoff"`
}

// SchedulerConfig holds the payment deadline sweeper settings
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	PaymentDeadline time.Duration `mapstructure:"payment_deadline"`
	WorkerPoolSize  int           `mapstructure:"worker_pool_size"`
}

// NotificationsConfig holds the dispatcher pool settings
type NotificationsConfig struct {
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	QueueSize      int `mapstructure:"queue_size"`
}

// NATSConfig holds the optional NATS event sink settings
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	ConnectionName string        `mapstructure:"connection_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
}

// Config is the full service configuration
type Config struct {
	Debug         bool                `mapstructure:"debug"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Bidding       BiddingConfig       `mapstructure:"bidding"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	NATS          NATSConfig          `mapstructure:"nats"`
}

// Load reads config.yaml (if any), .env overlays and AUCTION_ENGINE_* variables
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(configFile, envPath)

	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "memory")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("bidding.max_bid_amount", "100000000000")
	v.SetDefault("bidding.min_proxy_increment", "1")
	v.SetDefault("bidding.resolver_max_iterations", 50)
	v.SetDefault("bidding.conflict_retries", 5)
	v.SetDefault("bidding.conflict_backoff", "20ms")
	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.payment_deadline", "1h")
	v.SetDefault("scheduler.worker_pool_size", 4)
	v.SetDefault("notifications.worker_pool_size", 8)
	v.SetDefault("notifications.queue_size", 1024)
	v.SetDefault("nats.subject_prefix", "auction.events")
	v.SetDefault("nats.connection_name", serviceName)
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
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

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn is required for postgres")
	}
	if _, err := c.Bidding.MaxBid(); err != nil {
		return err
	}
	if _, err := c.Bidding.Increment(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	return nil
}

// MaxBid parses the hard bid ceiling
func (b BiddingConfig) MaxBid() (decimal.Decimal, error) {
	return positiveAmount("bidding.max_bid_amount", b.MaxBidAmount)
}

// Increment parses the minimum proxy step
func (b BiddingConfig) Increment() (decimal.Decimal, error) {
	return positiveAmount("bidding.min_proxy_increment", b.MinProxyIncrement)
}

func positiveAmount(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("config: %s: %w", key, err)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("config: %s must be positive, got %s", key, raw)
	}
	if !d.Equal(d.Truncate(models.AmountScale)) {
		return decimal.Decimal{}, fmt.Errorf("config: %s allows at most %d decimal places, got %s", key, models.AmountScale, raw)
	}
	return d, nil
}

func configureViper(configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("AUCTION_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars binds every key so env-only deployments unmarshal fully
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"server.host",
		"database.driver",
		"database.dsn",
		"log.level",
		"log.file",
		"log.max_size_mb",
		"log.max_backups",
		"log.max_age_days",
		"bidding.max_bid_amount",
		"bidding.min_proxy_increment",
		"bidding.resolver_max_iterations",
		"bidding.conflict_retries",
		"bidding.conflict_backoff",
		"scheduler.interval",
		"scheduler.payment_deadline",
		"scheduler.worker_pool_size",
		"notifications.worker_pool_size",
		"notifications.queue_size",
		"nats.url",
		"nats.subject_prefix",
		"nats.connection_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	// platforms commonly inject a bare PORT
	_ = v.BindEnv("server.port", "AUCTION_ENGINE_SERVER_PORT", "PORT")
}

func loadEnv(envPath string) {
	if envPath == "" {
		envPath = "config/"
	}
	for _, envFile := range []string{".env", ".env.local", ".env." + serviceName + ".local"} {
		_ = godotenv.Overload(filepath.Join(envPath, envFile))
	}
}

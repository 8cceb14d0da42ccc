// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and PUMPFEED_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pump-trade-feed/internal/labels"
	"pump-trade-feed/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. PUMPFEED_FEED_URL.
const EnvPrefix = "PUMPFEED"

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AccessLogFile   string        `mapstructure:"access_log_file"`
	AuthUsername    string        `mapstructure:"auth_username"`
	AuthPassword    string        `mapstructure:"auth_password"`
}

// FeedConfig controls the streaming client.
type FeedConfig struct {
	URL               string        `mapstructure:"url"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
}

// StoreConfig sizes the recent-trade store.
type StoreConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// QueryConfig controls the recent-trade query.
type QueryConfig struct {
	Limit int `mapstructure:"limit"`
}

// LabelsConfig selects the address book and its policy.
type LabelsConfig struct {
	File   string `mapstructure:"file"`
	Policy string `mapstructure:"policy"`
}

// OutputConfig controls record shaping.
type OutputConfig struct {
	IncludeOptional bool   `mapstructure:"include_optional"`
	Timezone        string `mapstructure:"timezone"`
}

// LogConfig mirrors logging.Options.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// HealthConfig controls /health.
type HealthConfig struct {
	MaxFrameAge time.Duration `mapstructure:"max_frame_age"`
}

// ArchiveConfig enables write-only trade sinks. Every sink is off when its
// address is empty.
type ArchiveConfig struct {
	Buffer        int           `mapstructure:"buffer"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`

	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
	Migrate       bool   `mapstructure:"migrate"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisChannel  string `mapstructure:"redis_channel"`

	KafkaBrokers  string `mapstructure:"kafka_brokers"`
	KafkaTopic    string `mapstructure:"kafka_topic"`
	KafkaProtocol string `mapstructure:"kafka_protocol"`
	KafkaUsername string `mapstructure:"kafka_username"`
	KafkaPassword string `mapstructure:"kafka_password"`
	KafkaCAPath   string `mapstructure:"kafka_ca_path"`
}

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Store   StoreConfig   `mapstructure:"store"`
	Query   QueryConfig   `mapstructure:"query"`
	Labels  LabelsConfig  `mapstructure:"labels"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
	Health  HealthConfig  `mapstructure:"health"`
	Archive ArchiveConfig `mapstructure:"archive"`

	v *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.access_log_file", "")
	v.SetDefault("server.auth_username", "")
	v.SetDefault("server.auth_password", "")

	v.SetDefault("feed.url", "wss://frontend-api-v2.pump.fun/socket.io/?EIO=4&transport=websocket")
	v.SetDefault("feed.reconnect_delay", 5*time.Second)
	v.SetDefault("feed.max_reconnect_delay", time.Duration(0))
	v.SetDefault("feed.handshake_timeout", 10*time.Second)
	v.SetDefault("feed.read_timeout", 60*time.Second)
	v.SetDefault("feed.write_timeout", 10*time.Second)
	v.SetDefault("feed.max_message_size", 1<<20)

	v.SetDefault("store.capacity", 50)
	v.SetDefault("query.limit", 20)

	v.SetDefault("labels.file", "")
	v.SetDefault("labels.policy", string(labels.PolicyStrict))

	v.SetDefault("output.include_optional", true)
	v.SetDefault("output.timezone", "Local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 500)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("health.max_frame_age", 2*time.Minute)

	v.SetDefault("archive.buffer", 1024)
	v.SetDefault("archive.batch_size", 100)
	v.SetDefault("archive.flush_interval", 2*time.Second)
	v.SetDefault("archive.write_timeout", 10*time.Second)
	v.SetDefault("archive.postgres_dsn", "")
	v.SetDefault("archive.clickhouse_dsn", "")
	v.SetDefault("archive.migrate", true)
	v.SetDefault("archive.redis_addr", "")
	v.SetDefault("archive.redis_password", "")
	v.SetDefault("archive.redis_db", 0)
	v.SetDefault("archive.redis_channel", "pump:trades")
	v.SetDefault("archive.kafka_brokers", "")
	v.SetDefault("archive.kafka_topic", "pump-trades")
	v.SetDefault("archive.kafka_protocol", "plaintext")
	v.SetDefault("archive.kafka_username", "")
	v.SetDefault("archive.kafka_password", "")
	v.SetDefault("archive.kafka_ca_path", "")
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment apply.
func Load(path string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// PORT is the platform convention; an explicit PUMPFEED_SERVER_ADDR wins.
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"_SERVER_ADDR") == "" {
		cfg.Server.Addr = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if c.Feed.URL == "" {
		errs = append(errs, errors.New("feed.url is required"))
	}
	if c.Feed.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("feed.reconnect_delay must be positive"))
	}
	if c.Store.Capacity <= 0 {
		errs = append(errs, errors.New("store.capacity must be positive"))
	}
	if c.Query.Limit <= 0 {
		errs = append(errs, errors.New("query.limit must be positive"))
	}
	if _, err := labels.ParsePolicy(c.Labels.Policy); err != nil {
		errs = append(errs, fmt.Errorf("labels.policy: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("output.timezone: %w", err))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Archive.Enabled() {
		if c.Archive.Buffer <= 0 {
			errs = append(errs, errors.New("archive.buffer must be positive"))
		}
		if c.Archive.BatchSize <= 0 {
			errs = append(errs, errors.New("archive.batch_size must be positive"))
		}
		if c.Archive.FlushInterval <= 0 {
			errs = append(errs, errors.New("archive.flush_interval must be positive"))
		}
	}

	return errors.Join(errs...)
}

// Location resolves output.timezone. "Local" and "" use the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Output.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Output.Timezone)
	}
}

// Logging converts the log section into logging options.
func (c *Config) Logging() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// Enabled reports whether any archive sink is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.PostgresDSN != "" || a.ClickHouseDSN != "" || a.RedisAddr != "" || a.KafkaBrokers != ""
}

// KafkaBrokerList returns the comma-separated broker list as given to librdkafka.
func (a ArchiveConfig) KafkaBrokerList() string {
	parts := strings.Split(a.KafkaBrokers, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// Watch reloads the config file on change and passes the result to fn.
// Only settings that are safe to change at runtime should be applied by fn.
// It is a no-op when no config file was loaded.
func (c *Config) Watch(fn func(next *Config, err error)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(decode(c.v))
	})
	c.v.WatchConfig()
}

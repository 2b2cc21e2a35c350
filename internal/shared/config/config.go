package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Enhance    EnhanceConfig    `mapstructure:"enhance"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HTTPClientConfig holds outbound HTTP client configuration.
type HTTPClientConfig struct {
	// Connection pool settings
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`

	// Timeout settings
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`

	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

// StorageConfig holds object storage configuration. Backend is "s3" or
// "memory".
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	// PublicURLTemplate builds public URLs from {origin} and {key}.
	PublicURLTemplate string `mapstructure:"public_url_template"`
}

// ProvidersConfig holds provider adapter configuration.
type ProvidersConfig struct {
	InProcess InProcessConfig `mapstructure:"inprocess"`
	RemoteJob RemoteJobConfig `mapstructure:"remote_job"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	// CatalogPath overrides the built-in model catalog.
	CatalogPath string `mapstructure:"catalog_path"`
}

// InProcessConfig configures the synchronous inference binding.
type InProcessConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// RemoteJobConfig configures the remote job API.
type RemoteJobConfig struct {
	Enabled                 bool          `mapstructure:"enabled"`
	BaseURL                 string        `mapstructure:"base_url"`
	Token                   string        `mapstructure:"token"`
	PollInterval            time.Duration `mapstructure:"poll_interval"`
	PollTimeout             time.Duration `mapstructure:"poll_timeout"`
	SyncUnsupportedPrefixes []string      `mapstructure:"sync_unsupported_prefixes"`
	MaxOutputBytes          int64         `mapstructure:"max_output_bytes"`
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	Interval         time.Duration `mapstructure:"interval"`
	CircuitTimeout   time.Duration `mapstructure:"circuit_timeout"`
}

// EnhanceConfig holds generation limits and thresholds.
type EnhanceConfig struct {
	MinOutputBytes      int           `mapstructure:"min_output_bytes"`
	MaxUploadBytes      int64         `mapstructure:"max_upload_bytes"`
	AllowedContentTypes []string      `mapstructure:"allowed_content_types"`
	GuestDailyLimit     int           `mapstructure:"guest_daily_limit"`
	UserDailyLimit      int           `mapstructure:"user_daily_limit"`
	GuestMonthlyLimit   float64       `mapstructure:"guest_monthly_limit"`
	UserMonthlyLimit    float64       `mapstructure:"user_monthly_limit"`
	MaxUpscale          int           `mapstructure:"max_upscale"`
	AllowFaceEnhance    bool          `mapstructure:"allow_face_enhance"`
	MaxPromptLength     int           `mapstructure:"max_prompt_length"`
	DispatchTimeout     time.Duration `mapstructure:"dispatch_timeout"`
}

// QuotaConfig selects the quota store. Schema is "legacy" or "rolling";
// Backend is "redis", "postgres" or "memory".
type QuotaConfig struct {
	Schema  string `mapstructure:"schema"`
	Backend string `mapstructure:"backend"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// Load loads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/enhancer")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	return build(v)
}

// Defaults returns the built-in configuration without reading files or the
// environment.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func build(v *viper.Viper) (*Config, error) {
	// Read from environment variables, e.g. ENHANCER_QUOTA_SCHEMA
	v.SetEnvPrefix("ENHANCER")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if password := os.Getenv("ENHANCER_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("ENHANCER_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("ENHANCER_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}
	if token := os.Getenv("ENHANCER_INFERENCE_TOKEN"); token != "" {
		cfg.Providers.InProcess.Token = token
	}
	if token := os.Getenv("ENHANCER_REMOTE_JOB_TOKEN"); token != "" {
		cfg.Providers.RemoteJob.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Quota.Schema {
	case "legacy", "rolling":
	default:
		return fmt.Errorf("invalid quota.schema %q", c.Quota.Schema)
	}
	switch c.Quota.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("invalid quota.backend %q", c.Quota.Backend)
	}
	switch c.Storage.Backend {
	case "s3", "memory":
	default:
		return fmt.Errorf("invalid storage.backend %q", c.Storage.Backend)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "enhancer")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 20)
	v.SetDefault("http_client.max_conns_per_host", 50)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 30*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 120*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)

	// Storage defaults
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.public_url_template", "{origin}/files/{key}")

	// Provider defaults
	v.SetDefault("providers.inprocess.enabled", true)
	v.SetDefault("providers.remote_job.enabled", true)
	v.SetDefault("providers.remote_job.base_url", "https://api.replicate.com")
	v.SetDefault("providers.remote_job.poll_interval", 600*time.Millisecond)
	v.SetDefault("providers.remote_job.poll_timeout", 60*time.Second)
	v.SetDefault("providers.remote_job.sync_unsupported_prefixes", []string{"sczhou/", "tencentarc/"})
	v.SetDefault("providers.remote_job.max_output_bytes", 40<<20)
	v.SetDefault("providers.breaker.failure_threshold", 5)
	v.SetDefault("providers.breaker.interval", 60*time.Second)
	v.SetDefault("providers.breaker.circuit_timeout", 30*time.Second)

	// Enhance defaults
	v.SetDefault("enhance.min_output_bytes", 15*1024)
	v.SetDefault("enhance.max_upload_bytes", 10<<20)
	v.SetDefault("enhance.allowed_content_types", []string{"image/png", "image/jpeg", "image/webp"})
	v.SetDefault("enhance.guest_daily_limit", 5)
	v.SetDefault("enhance.user_daily_limit", 20)
	v.SetDefault("enhance.guest_monthly_limit", -1)
	v.SetDefault("enhance.user_monthly_limit", -1)
	v.SetDefault("enhance.max_upscale", 4)
	v.SetDefault("enhance.allow_face_enhance", true)
	v.SetDefault("enhance.max_prompt_length", 1000)
	v.SetDefault("enhance.dispatch_timeout", 150*time.Second)

	// Quota defaults
	v.SetDefault("quota.schema", "legacy")
	v.SetDefault("quota.backend", "redis")

	// CORS defaults
	v.SetDefault("cors.allow_origins", []string{"*"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "enhancer")
	v.SetDefault("metrics.path", "/metrics")
}

var envKeyReplacer = strings.NewReplacer(".", "_")

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Queue      QueueConfig
	Downloader DownloaderConfig
	Session    SessionConfig
	Janitor    JanitorConfig
	Metrics    MetricsConfig
	Tracing    TracingConfig
	Logging    LoggingConfig
}

// ServerConfig holds the admin API HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration for the metadata cache
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

// StorageConfig holds object storage configuration for re-uploads
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	MaxFileSize     int64
}

// QueueConfig holds the lifecycle event bus configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// DownloaderConfig holds external download tool configuration
type DownloaderConfig struct {
	YtDlpPath    string
	DownloadsDir string
	FetchTimeout time.Duration
}

// SessionConfig holds selection session store configuration
type SessionConfig struct {
	MaxEntries    int
	TTL           time.Duration
	SweepInterval time.Duration
}

// JanitorConfig holds the downloads-dir sweep configuration. Files older
// than MaxAge are orphans from interrupted pipelines and get removed.
type JanitorConfig struct {
	Enabled  bool
	Interval time.Duration
	MaxAge   time.Duration
}

// MetricsConfig holds the metrics server configuration
type MetricsConfig struct {
	Port int
}

// TracingConfig holds tracer configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.rateLimitRPS", 10)
	viper.SetDefault("server.rateLimitBurst", 20)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "vidgrab")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cacheTTL", "15m")

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "media")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)
	viper.SetDefault("storage.maxFileSize", 2*1024*1024*1024) // 2GB upload ceiling

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Downloader defaults
	viper.SetDefault("downloader.ytDlpPath", "yt-dlp")
	viper.SetDefault("downloader.downloadsDir", "/tmp/vidgrab")
	viper.SetDefault("downloader.fetchTimeout", "60s")

	// Session defaults
	viper.SetDefault("session.maxEntries", 10000)
	viper.SetDefault("session.ttl", "30m")
	viper.SetDefault("session.sweepInterval", "1m")

	// Janitor defaults
	viper.SetDefault("janitor.enabled", true)
	viper.SetDefault("janitor.interval", "10m")
	viper.SetDefault("janitor.maxAge", "1h")

	// Metrics defaults
	viper.SetDefault("metrics.port", 9091)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "vidgrab")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

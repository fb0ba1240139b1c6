package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Engine   EngineConfig
	Analysis AnalysisConfig
	Renderer RendererConfig
	Pipeline PipelineConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Storage  StorageConfig
	Logging  LoggingConfig
	Tracing  TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// EngineConfig points at the video processing engine (upload, download,
// transcription, cropping).
type EngineConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// AnalysisConfig holds the LLM scoring endpoint configuration
type AnalysisConfig struct {
	Endpoint string
	APIKey   string
	Model    string
}

// RendererConfig points at the caption render service
type RendererConfig struct {
	BaseURL       string
	CompositionID string
	PollInterval  time.Duration
	MaxPolls      int
}

// PipelineConfig holds workflow tuning
type PipelineConfig struct {
	StageTimeout time.Duration
	Language     string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// TracingConfig holds the tracer collector endpoint
type TracingConfig struct {
	Enabled           bool
	CollectorEndpoint string
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

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.Engine.BaseURL == "" {
		return fmt.Errorf("engine.baseURL is required")
	}
	if c.Renderer.BaseURL == "" {
		return fmt.Errorf("renderer.baseURL is required")
	}
	if c.Analysis.APIKey == "" {
		return fmt.Errorf("analysis.apiKey is required")
	}
	if c.Renderer.MaxPolls <= 0 {
		return fmt.Errorf("renderer.maxPolls must be positive")
	}
	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.rateLimitRPS", 20)
	viper.SetDefault("server.rateLimitBurst", 40)

	// Engine defaults
	viper.SetDefault("engine.baseURL", "http://localhost:8000")
	viper.SetDefault("engine.requestTimeout", "10m")

	// Analysis defaults
	viper.SetDefault("analysis.endpoint", "https://openrouter.ai/api/v1")
	viper.SetDefault("analysis.model", "google/gemini-2.0-flash-001")

	// Renderer defaults
	viper.SetDefault("renderer.baseURL", "http://localhost:3123")
	viper.SetDefault("renderer.compositionID", "CaptionedVideo")
	viper.SetDefault("renderer.pollInterval", "2s")
	viper.SetDefault("renderer.maxPolls", 900)

	// Pipeline defaults
	viper.SetDefault("pipeline.stageTimeout", "15m")
	viper.SetDefault("pipeline.language", "")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "clips")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.collectorEndpoint", "http://localhost:14268/api/traces")
}

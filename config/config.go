package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Redis-backed cache, throttle markers and job queue
	Redis RedisConfig

	// External provider configurations
	AlphaVantage AlphaVantageConfig
	Finnhub      FinnhubConfig
	Alpaca       AlpacaConfig

	// Model artifact storage (S3-compatible)
	Storage StorageConfig

	// Prediction configuration
	Prediction PredictionConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Background worker configuration
	Worker WorkerConfig
}

// RedisConfig holds Redis connection configuration. The same instance backs
// the cache store, the throttle markers and the job queue.
type RedisConfig struct {
	URL string
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey string
}

// FinnhubConfig holds Finnhub API configuration
type FinnhubConfig struct {
	APIKey string
}

// AlpacaConfig holds Alpaca market-data API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// StorageConfig holds the S3-compatible bucket for trained model artifacts
type StorageConfig struct {
	Bucket   string
	Region   string
	Endpoint string
}

// PredictionConfig holds prediction engine configuration
type PredictionConfig struct {
	ModelVersion   string
	ThrottleWindow int // seconds
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               string
	CORSAllowedOrigins string
	TimeoutSeconds     int
	AdminAPIKey        string
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Concurrency int
	Queue       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		},
		Finnhub: FinnhubConfig{
			APIKey: os.Getenv("FINNHUB_API_KEY"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			BaseURL:   getEnvString("ALPACA_BASE_URL", "https://data.alpaca.markets"),
		},
		Storage: StorageConfig{
			Bucket:   os.Getenv("MODELS_BUCKET"),
			Region:   getEnvString("S3_REGION", "us-east-1"),
			Endpoint: os.Getenv("S3_ENDPOINT"),
		},
		Prediction: PredictionConfig{
			ModelVersion:   getEnvString("MODEL_VERSION", "v1"),
			ThrottleWindow: getEnvInt("THROTTLE_WINDOW_SECONDS", 5),
		},
		HTTP: HTTPConfig{
			Port:               getEnvString("PORT", "8000"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			TimeoutSeconds:     getEnvInt("HTTP_TIMEOUT_SECONDS", 60),
			AdminAPIKey:        os.Getenv("ADMIN_API_KEY"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 6),
			Queue:       getEnvString("WORKER_QUEUE", "default"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Prediction.ThrottleWindow <= 0 {
		return fmt.Errorf("THROTTLE_WINDOW_SECONDS must be positive, got %d", c.Prediction.ThrottleWindow)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Worker.Concurrency)
	}
	return nil
}

// HasRedis returns true if Redis configuration is available
func (c *Config) HasRedis() bool {
	return c.Redis.URL != ""
}

// HasAlphaVantage returns true if Alpha Vantage configuration is available
func (c *Config) HasAlphaVantage() bool {
	return c.AlphaVantage.APIKey != ""
}

// HasFinnhub returns true if Finnhub configuration is available
func (c *Config) HasFinnhub() bool {
	return c.Finnhub.APIKey != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasStorage returns true if a model artifact bucket is configured
func (c *Config) HasStorage() bool {
	return c.Storage.Bucket != ""
}

// HasAdminKey returns true if an admin key gates the precompute endpoint
func (c *Config) HasAdminKey() bool {
	return c.HTTP.AdminAPIKey != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			URL: "",
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey: "",
		},
		Finnhub: FinnhubConfig{
			APIKey: "",
		},
		Alpaca: AlpacaConfig{
			APIKey:    "",
			APISecret: "",
			BaseURL:   "https://data.alpaca.markets",
		},
		Storage: StorageConfig{
			Bucket: "",
			Region: "us-east-1",
		},
		Prediction: PredictionConfig{
			ModelVersion:   "v1",
			ThrottleWindow: 5,
		},
		HTTP: HTTPConfig{
			Port:               "8000",
			CORSAllowedOrigins: "*",
			TimeoutSeconds:     60,
		},
		Worker: WorkerConfig{
			Concurrency: 6,
			Queue:       "default",
		},
	}
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	SummaryCacheTTL        time.Duration
	EvalConcurrency        int
	EvalTimeout            time.Duration
	EvalStartPerMinute     int
	MaxScanSizeMB          int
	AIProvider             string
	AIModel                string
	OpenAIAPIKey           string
	AnthropicAPIKey        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HWEVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "HWEval API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "hweval/scans")
	v.SetDefault("summary.cache_ttl", "10m")
	v.SetDefault("eval.concurrency", 6)
	v.SetDefault("eval.timeout_ms", 20000)
	v.SetDefault("eval.start_per_minute", 5)
	v.SetDefault("max_scan_size_mb", 10)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")

	ttlString := v.GetString("summary.cache_ttl")
	if ttlString == "" {
		ttlString = "10m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid summary cache ttl: %w", err)
	}

	timeoutMs := v.GetInt("eval.timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 20000
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		SummaryCacheTTL:        ttl,
		EvalConcurrency:        v.GetInt("eval.concurrency"),
		EvalTimeout:            time.Duration(timeoutMs) * time.Millisecond,
		EvalStartPerMinute:     v.GetInt("eval.start_per_minute"),
		MaxScanSizeMB:          v.GetInt("max_scan_size_mb"),
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		AIModel:                v.GetString("ai.model"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		AnthropicAPIKey:        v.GetString("anthropic_api_key"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.EvalConcurrency <= 0 {
		cfg.EvalConcurrency = 6
	}

	if cfg.EvalStartPerMinute <= 0 {
		cfg.EvalStartPerMinute = 5
	}

	if cfg.MaxScanSizeMB <= 0 {
		cfg.MaxScanSizeMB = 10
	}

	return cfg, nil
}

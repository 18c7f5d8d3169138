package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers understood by the file store factory.
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	CORSOrigins string

	RosterImportEnabled bool
	RosterImportToken   string

	NATSURL     string
	NATSSubject string

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAIExtractModel string

	StorageDriver string
	StorageRoot   string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3Region      string
	S3UseSSL      bool

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	GradingPolicy    string
	WorkerErrorPause time.Duration
	UploadRateLimit  int
	UploadRateWindow time.Duration
	MaxUploadBytes   int
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
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Grader")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("nats.subject", "gema.grading.events")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.extract_model", "gpt-4o-mini")
	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.root", "./data")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("cloudinary.folder", "gema/homework")
	v.SetDefault("grading.policy", "simple")
	v.SetDefault("worker.error_pause", "5s")
	v.SetDefault("upload.rate_limit", 5)
	v.SetDefault("upload.rate_window", "1m")
	v.SetDefault("upload.max_bytes", 20*1024*1024)

	pause, err := parseDuration(v.GetString("worker.error_pause"), 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid worker error pause: %w", err)
	}

	window, err := parseDuration(v.GetString("upload.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid upload rate window: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CORSOrigins:            v.GetString("cors.allow_origins"),
		RosterImportEnabled:    v.GetBool("roster.enabled"),
		RosterImportToken:      v.GetString("roster.token"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		OpenAIAPIKey:           v.GetString("openai.api_key"),
		OpenAIBaseURL:          v.GetString("openai.base_url"),
		OpenAIModel:            v.GetString("openai.model"),
		OpenAIExtractModel:     v.GetString("openai.extract_model"),
		StorageDriver:          strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		StorageRoot:            v.GetString("storage.root"),
		S3Endpoint:             v.GetString("s3.endpoint"),
		S3AccessKey:            v.GetString("s3.access_key"),
		S3SecretKey:            v.GetString("s3.secret_key"),
		S3Bucket:               v.GetString("s3.bucket"),
		S3Region:               v.GetString("s3.region"),
		S3UseSSL:               v.GetBool("s3.use_ssl"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		GradingPolicy:          strings.ToLower(strings.TrimSpace(v.GetString("grading.policy"))),
		WorkerErrorPause:       pause,
		UploadRateLimit:        v.GetInt("upload.rate_limit"),
		UploadRateWindow:       window,
		MaxUploadBytes:         v.GetInt("upload.max_bytes"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StorageDriver {
	case StorageDriverLocal:
	case StorageDriverS3:
		if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
			return Config{}, fmt.Errorf("s3 storage requires endpoint and bucket")
		}
	default:
		return Config{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if cfg.UploadRateLimit <= 0 {
		cfg.UploadRateLimit = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 * 1024 * 1024
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

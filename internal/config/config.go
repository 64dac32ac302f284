package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	CORS       CORSConfig
	Inbound    InboundConfig
	Extraction ExtractionConfig
	Plans      PlansConfig
	Email      EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// InboundConfig holds settings for the inbound email webhook and the
// forwarding-address scheme.
type InboundConfig struct {
	WebhookSecret  string `mapstructure:"webhook_secret"`
	EmailDomain    string `mapstructure:"email_domain"`
	MaxAttachments int    `mapstructure:"max_attachments"`
	MaxFileSizeMB  int64  `mapstructure:"max_file_size_mb"`
	BotSecret      string `mapstructure:"bot_secret"`
}

// MaxFileSizeBytes returns the per-file upload ceiling in bytes.
func (i *InboundConfig) MaxFileSizeBytes() int64 {
	return i.MaxFileSizeMB * 1024 * 1024
}

// StructuredExtractorConfig holds settings for the structured OCR engine.
type StructuredExtractorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
}

// GenerativeExtractorConfig holds settings for the generative LLM engine.
type GenerativeExtractorConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// ExtractionConfig holds settings for the two-engine extraction pipeline.
type ExtractionConfig struct {
	Structured StructuredExtractorConfig `mapstructure:"structured"`
	Generative GenerativeExtractorConfig `mapstructure:"generative"`
}

// PlansConfig holds per-plan monthly receipt caps.
type PlansConfig struct {
	FreeMonthlyLimit int `mapstructure:"free_monthly_limit"`
	ProMonthlyLimit  int `mapstructure:"pro_monthly_limit"`
}

// EmailConfig holds outbound email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	FrontendURL string `mapstructure:"frontend_url"`
}

// Load reads configuration from environment variables with the RECIVO_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECIVO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "recivo")
	v.SetDefault("db.password", "recivo_secret")
	v.SetDefault("db.name", "recivo_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "recivo-receipts")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Inbound defaults
	v.SetDefault("inbound.webhook_secret", "")
	v.SetDefault("inbound.email_domain", "in.recivo.app")
	v.SetDefault("inbound.max_attachments", 6)
	v.SetDefault("inbound.max_file_size_mb", 10)
	v.SetDefault("inbound.bot_secret", "")

	// Extraction defaults
	v.SetDefault("extraction.structured.enabled", true)
	v.SetDefault("extraction.structured.region", "us-east-1")
	v.SetDefault("extraction.generative.api_key", "")
	v.SetDefault("extraction.generative.model", "claude-sonnet-4-20250514")
	v.SetDefault("extraction.generative.timeout_secs", 120)

	// Plan defaults
	v.SetDefault("plans.free_monthly_limit", 25)
	v.SetDefault("plans.pro_monthly_limit", 1000)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@recivo.app")
	v.SetDefault("email.from_name", "Recivo")
	v.SetDefault("email.frontend_url", "http://localhost:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                        "RECIVO_SERVER_PORT",
		"server.read_timeout":                "RECIVO_SERVER_READ_TIMEOUT",
		"server.write_timeout":               "RECIVO_SERVER_WRITE_TIMEOUT",
		"server.environment":                 "RECIVO_SERVER_ENVIRONMENT",
		"db.host":                            "RECIVO_DB_HOST",
		"db.port":                            "RECIVO_DB_PORT",
		"db.user":                            "RECIVO_DB_USER",
		"db.password":                        "RECIVO_DB_PASSWORD",
		"db.name":                            "RECIVO_DB_NAME",
		"db.sslmode":                         "RECIVO_DB_SSLMODE",
		"db.max_open":                        "RECIVO_DB_MAX_OPEN",
		"db.max_idle":                        "RECIVO_DB_MAX_IDLE",
		"s3.region":                          "RECIVO_S3_REGION",
		"s3.bucket":                          "RECIVO_S3_BUCKET",
		"s3.endpoint":                        "RECIVO_S3_ENDPOINT",
		"s3.access_key":                      "RECIVO_S3_ACCESS_KEY",
		"s3.secret_key":                      "RECIVO_S3_SECRET_KEY",
		"s3.presign_expiry":                  "RECIVO_S3_PRESIGN_EXPIRY",
		"log.level":                          "RECIVO_LOG_LEVEL",
		"log.format":                         "RECIVO_LOG_FORMAT",
		"cors.allowed_origins":               "RECIVO_CORS_ALLOWED_ORIGINS",
		"inbound.webhook_secret":             "RECIVO_INBOUND_WEBHOOK_SECRET",
		"inbound.email_domain":               "RECIVO_INBOUND_EMAIL_DOMAIN",
		"inbound.max_attachments":            "RECIVO_INBOUND_MAX_ATTACHMENTS",
		"inbound.max_file_size_mb":           "RECIVO_INBOUND_MAX_FILE_SIZE_MB",
		"inbound.bot_secret":                 "RECIVO_INBOUND_BOT_SECRET",
		"extraction.structured.enabled":      "RECIVO_EXTRACTION_STRUCTURED_ENABLED",
		"extraction.structured.region":       "RECIVO_EXTRACTION_STRUCTURED_REGION",
		"extraction.generative.api_key":      "RECIVO_EXTRACTION_GENERATIVE_API_KEY",
		"extraction.generative.model":        "RECIVO_EXTRACTION_GENERATIVE_MODEL",
		"extraction.generative.timeout_secs": "RECIVO_EXTRACTION_GENERATIVE_TIMEOUT_SECS",
		"plans.free_monthly_limit":           "RECIVO_PLANS_FREE_MONTHLY_LIMIT",
		"plans.pro_monthly_limit":            "RECIVO_PLANS_PRO_MONTHLY_LIMIT",
		"email.provider":                     "RECIVO_EMAIL_PROVIDER",
		"email.region":                       "RECIVO_EMAIL_REGION",
		"email.from_address":                 "RECIVO_EMAIL_FROM_ADDRESS",
		"email.from_name":                    "RECIVO_EMAIL_FROM_NAME",
		"email.frontend_url":                 "RECIVO_EMAIL_FRONTEND_URL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if RECIVO_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("RECIVO_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Inbound = InboundConfig{
		WebhookSecret:  v.GetString("inbound.webhook_secret"),
		EmailDomain:    v.GetString("inbound.email_domain"),
		MaxAttachments: v.GetInt("inbound.max_attachments"),
		MaxFileSizeMB:  v.GetInt64("inbound.max_file_size_mb"),
		BotSecret:      v.GetString("inbound.bot_secret"),
	}

	cfg.Extraction = ExtractionConfig{
		Structured: StructuredExtractorConfig{
			Enabled: v.GetBool("extraction.structured.enabled"),
			Region:  v.GetString("extraction.structured.region"),
		},
		Generative: GenerativeExtractorConfig{
			APIKey:      v.GetString("extraction.generative.api_key"),
			Model:       v.GetString("extraction.generative.model"),
			TimeoutSecs: v.GetInt("extraction.generative.timeout_secs"),
		},
	}

	cfg.Plans = PlansConfig{
		FreeMonthlyLimit: v.GetInt("plans.free_monthly_limit"),
		ProMonthlyLimit:  v.GetInt("plans.pro_monthly_limit"),
	}

	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		FrontendURL: v.GetString("email.frontend_url"),
	}

	return cfg, nil
}

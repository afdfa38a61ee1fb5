package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	DefaultTenant string   `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	RateLimitRPS       float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int     `mapstructure:"RATE_LIMIT_BURST"`
	BookingCreateRPS   float64 `mapstructure:"BOOKING_CREATE_RPS"`
	BookingCreateBurst int     `mapstructure:"BOOKING_CREATE_BURST"`

	AcuityBaseURL       string        `mapstructure:"ACUITY_BASE_URL"`
	AcuityUserID        string        `mapstructure:"ACUITY_USER_ID"`
	AcuityAPIKey        string        `mapstructure:"ACUITY_API_KEY"`
	AcuityMinInterval   time.Duration `mapstructure:"ACUITY_MIN_INTERVAL"`
	AcuityMaxRetries    uint64        `mapstructure:"ACUITY_MAX_RETRIES"`
	AcuityWebhookSecret string        `mapstructure:"ACUITY_WEBHOOK_SECRET"`
	AcuityApptTypeID    int64         `mapstructure:"ACUITY_APPOINTMENT_TYPE_ID"`

	DocumentDir    string `mapstructure:"DOCUMENT_DIR"`
	MaxUploadBytes int64  `mapstructure:"MAX_UPLOAD_BYTES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BOOKING_CREATE_RPS", 1)
	v.SetDefault("BOOKING_CREATE_BURST", 5)
	v.SetDefault("ACUITY_BASE_URL", "https://acuityscheduling.com/api/v1")
	v.SetDefault("ACUITY_MIN_INTERVAL", "200ms")
	v.SetDefault("ACUITY_MAX_RETRIES", 3)
	v.SetDefault("DOCUMENT_DIR", "./data/documents")
	v.SetDefault("MAX_UPLOAD_BYTES", 25<<20)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DEFAULT_TENANT", "CORS_ORIGINS",
		"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"BOOKING_CREATE_RPS", "BOOKING_CREATE_BURST",
		"ACUITY_BASE_URL", "ACUITY_USER_ID", "ACUITY_API_KEY",
		"ACUITY_MIN_INTERVAL", "ACUITY_MAX_RETRIES",
		"ACUITY_WEBHOOK_SECRET", "ACUITY_APPOINTMENT_TYPE_ID",
		"DOCUMENT_DIR", "MAX_UPLOAD_BYTES",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode; all requests get admin access")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production the
// JWT issuer must be set so real authentication is enforced, and outbound
// scheduling credentials must be either fully configured or fully absent.
func (c *Config) Validate() error {
	if c.IsProduction() && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_ISSUER is required in production; refusing to start without authentication")
	}

	if (c.AcuityUserID == "") != (c.AcuityAPIKey == "") {
		return fmt.Errorf("ACUITY_USER_ID and ACUITY_API_KEY must be set together")
	}

	if c.AcuityMinInterval < 0 {
		return fmt.Errorf("ACUITY_MIN_INTERVAL must not be negative")
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	return nil
}

// AcuityEnabled reports whether outbound scheduling-provider calls are
// configured. Webhook ingestion works either way.
func (c *Config) AcuityEnabled() bool {
	return c.AcuityUserID != "" && c.AcuityAPIKey != ""
}

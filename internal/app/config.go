package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the LifeLoop backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Email      EmailConfig      `mapstructure:"email"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Voice      VoiceConfig      `mapstructure:"voice"`
	App        PublicAppConfig  `mapstructure:"app"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
	Consent    ConsentConfig    `mapstructure:"consent"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	LogLevel        string          `mapstructure:"log_level"`
	LogFormat       string          `mapstructure:"log_format"`
	CORSOrigins     []string        `mapstructure:"cors_origins"`
	MaxUploadBytes  int64           `mapstructure:"max_upload_bytes"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client and route.
type RateLimitConfig struct {
	Requests        int           `mapstructure:"requests"`
	Window          time.Duration `mapstructure:"window"`
	ConfirmRequests int           `mapstructure:"confirm_requests"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AuthConfig selects how access tokens from the identity provider are verified.
type AuthConfig struct {
	JWT        JWTSettings  `mapstructure:"jwt"`
	OIDC       OIDCSettings `mapstructure:"oidc"`
	CookieName string       `mapstructure:"cookie_name"`
}

// JWTSettings configures HS256 verification with the provider's shared secret.
type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"token_ttl"`
}

// OIDCSettings configures discovery based verification.
type OIDCSettings struct {
	IssuerURL string `mapstructure:"issuer_url"`
	Audience  string `mapstructure:"audience"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Mailgun MailgunConfig `mapstructure:"mailgun"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
}

// MailgunConfig configures the Mailgun messages API.
type MailgunConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Domain  string        `mapstructure:"domain"`
	From    string        `mapstructure:"from"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig points at the S3 compatible bucket holding voice samples.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// VoiceConfig configures voice clone registration.
type VoiceConfig struct {
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
}

// ElevenLabsConfig holds ElevenLabs API settings.
type ElevenLabsConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PublicAppConfig holds the externally reachable application URL.
type PublicAppConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// BackendConfig points at the ingestion backend.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DashboardConfig controls the gallery.
type DashboardConfig struct {
	UseMock      bool   `mapstructure:"use_mock"`
	MediaBaseURL string `mapstructure:"media_base_url"`
	GalleryLimit int    `mapstructure:"gallery_limit"`
}

// ConsentConfig controls confirmation links and their cleanup.
type ConsentConfig struct {
	Expiry  time.Duration `mapstructure:"expiry"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
}

// CleanupConfig schedules the maintenance sweep.
type CleanupConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Schedule       string        `mapstructure:"schedule"`
	Retention      time.Duration `mapstructure:"retention"`
	AuditRetention time.Duration `mapstructure:"audit_retention"`
}

// legacyEnv maps config keys to the variable names used by existing deployments.
var legacyEnv = map[string][]string{
	"storage.endpoint":          {"R2_ENDPOINT_URL"},
	"storage.access_key_id":     {"AWS_ACCESS_KEY_ID"},
	"storage.secret_access_key": {"AWS_SECRET_ACCESS_KEY"},
	"storage.bucket":            {"R2_BUCKET_NAME"},
	"storage.public_base_url":   {"R2_PUBLIC_BASE_URL", "NEXT_PUBLIC_R2_PUBLIC_BASE_URL"},
	"voice.elevenlabs.api_key":  {"ELEVENLABS_API_KEY"},
	"email.mailgun.api_key":     {"MAILGUN_API_KEY"},
	"email.mailgun.domain":      {"MAILGUN_DOMAIN"},
	"email.mailgun.from":        {"MAILGUN_FROM_EMAIL"},
	"app.base_url":              {"APP_BASE_URL"},
	"backend.base_url":          {"BACKEND_API_BASE_URL", "NEXT_PUBLIC_BACKEND_API_BASE_URL"},
	"dashboard.use_mock":        {"USE_MOCK_DASHBOARD", "NEXT_PUBLIC_USE_MOCK_DASHBOARD"},
	"dashboard.media_base_url":  {"NEXT_PUBLIC_MEDIA_BASE_URL"},
	"auth.jwt.secret":           {"SUPABASE_JWT_SECRET"},
	"database.dsn":              {"DATABASE_URL"},
	"cache.redis.address":       {"REDIS_ADDR"},
	"server.port":               {"PORT"},
}

const (
	envPrefix            = "LIFELOOP"
	defaultConsentExpiry = 72 * time.Hour
)

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// bindLegacyEnv keeps LIFELOOP_* names first so they win over legacy names.
func bindLegacyEnv(v *viper.Viper) error {
	replacer := strings.NewReplacer(".", "_")
	for key, names := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		args := append([]string{key, prefixed}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.rate_limit.confirm_requests", 20)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/lifeloop.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("auth.jwt.token_ttl", "1h")
	v.SetDefault("auth.cookie_name", "sb-access-token")

	v.SetDefault("email.mailgun.base_url", "https://api.mailgun.net")
	v.SetDefault("email.mailgun.timeout", "15s")
	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("storage.region", "auto")

	v.SetDefault("voice.elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("voice.elevenlabs.timeout", "60s")

	v.SetDefault("backend.timeout", "2m")

	v.SetDefault("dashboard.use_mock", true)
	v.SetDefault("dashboard.gallery_limit", 24)

	v.SetDefault("consent.expiry", defaultConsentExpiry.String())
	v.SetDefault("consent.cleanup.enabled", true)
	v.SetDefault("consent.cleanup.schedule", "@hourly")
	v.SetDefault("consent.cleanup.retention", "720h") // 30 days past expiry
	v.SetDefault("consent.cleanup.audit_retention", "0s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

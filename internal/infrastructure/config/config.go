package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override config.toml
const EnvPrefix = "CATALOG"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Storage   StorageConfig
	Media     MediaConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsDevelopment reports whether the app runs in a local development environment
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development" || a.Env == "local"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int  // in minutes
	ConnMaxIdleTime int  // in minutes
	AutoMigrate     bool // apply embedded migrations at server start
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	EventStream string // stream receiving every media event, empty disables
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
}

// TierStorageConfig holds the connection settings of one storage tier.
// Credentials are not checked at load time; a tier is validated the first
// time it is used so an unconfigured tier never blocks startup.
type TierStorageConfig struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UsePathStyle  bool
	PublicBaseURL string
}

// StorageConfig holds object storage settings for both tiers
type StorageConfig struct {
	Backend       string // s3, memory
	Public        TierStorageConfig
	Restricted    TierStorageConfig
	SignedURLTTL  time.Duration
	LegacyBuckets []string // bucket names that appear in historical URLs
}

// MediaConfig holds upload pipeline settings
type MediaConfig struct {
	MaxUploadSize        int64
	AllowedMimeTypes     []string
	DefaultTier          string
	DevProxy             bool   // rewrite viewable URLs to the same-origin image proxy
	ProxyPrefix          string // path served by the image proxy
	ProxyRedirect        bool   // proxy answers with a redirect to a signed URL instead of streaming
	IdempotencyTTL       time.Duration
	OrphanReportEnabled  bool
	OrphanReportSchedule string // cron expression
	UploadRateLimit      int    // uploads per client and minute, 0 disables
}

// Load loads configuration from .env files, config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with CATALOG_ prefix (e.g., CATALOG_STORAGE_PUBLIC_BUCKET)
// 2. .env.local, then .env (never override variables already set)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/catalog")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:     v.GetBool("redis.enabled"),
			Host:        v.GetString("redis.host"),
			Port:        v.GetInt("redis.port"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			EventStream: v.GetString("redis.event_stream"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("storage.backend"),
			Public:        loadTier(v, "storage.public"),
			Restricted:    loadTier(v, "storage.restricted"),
			SignedURLTTL:  v.GetDuration("storage.signed_url_ttl"),
			LegacyBuckets: v.GetStringSlice("storage.legacy_buckets"),
		},
		Media: MediaConfig{
			MaxUploadSize:        v.GetInt64("media.max_upload_size"),
			AllowedMimeTypes:     v.GetStringSlice("media.allowed_mime_types"),
			DefaultTier:          v.GetString("media.default_tier"),
			DevProxy:             v.GetBool("media.dev_proxy"),
			ProxyPrefix:          v.GetString("media.proxy_prefix"),
			ProxyRedirect:        v.GetBool("media.proxy_redirect"),
			IdempotencyTTL:       v.GetDuration("media.idempotency_ttl"),
			OrphanReportEnabled:  v.GetBool("media.orphan_report_enabled"),
			OrphanReportSchedule: v.GetString("media.orphan_report_schedule"),
			UploadRateLimit:      v.GetInt("media.upload_rate_limit"),
		},
	}

	applyDefaults(cfg)

	// Env has its default only after applyDefaults.
	if !v.IsSet("media.dev_proxy") {
		cfg.Media.DevProxy = cfg.App.IsDevelopment()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv loads local env files. Missing files are ignored and variables
// that are already set are left untouched.
func loadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(name)
	}
}

func loadTier(v *viper.Viper, prefix string) TierStorageConfig {
	return TierStorageConfig{
		Endpoint:      v.GetString(prefix + ".endpoint"),
		Region:        v.GetString(prefix + ".region"),
		AccessKey:     v.GetString(prefix + ".access_key"),
		SecretKey:     v.GetString(prefix + ".secret_key"),
		Bucket:        v.GetString(prefix + ".bucket"),
		UsePathStyle:  !v.IsSet(prefix+".use_path_style") || v.GetBool(prefix+".use_path_style"),
		PublicBaseURL: strings.TrimRight(v.GetString(prefix+".public_base_url"), "/"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "catalog-media"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "catalog"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "catalog.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	// Empty CORS origins means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "s3"
	}
	applyTierDefaults(&cfg.Storage.Public)
	applyTierDefaults(&cfg.Storage.Restricted)
	if cfg.Storage.SignedURLTTL == 0 {
		cfg.Storage.SignedURLTTL = time.Hour
	}
	if cfg.Media.MaxUploadSize == 0 {
		cfg.Media.MaxUploadSize = 20 << 20
	}
	if len(cfg.Media.AllowedMimeTypes) == 0 {
		cfg.Media.AllowedMimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	}
	if cfg.Media.DefaultTier == "" {
		cfg.Media.DefaultTier = "public"
	}
	if cfg.Media.ProxyPrefix == "" {
		cfg.Media.ProxyPrefix = "/api/images/"
	}
	if !strings.HasSuffix(cfg.Media.ProxyPrefix, "/") {
		cfg.Media.ProxyPrefix += "/"
	}
	if cfg.Media.IdempotencyTTL == 0 {
		cfg.Media.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Media.OrphanReportSchedule == "" {
		cfg.Media.OrphanReportSchedule = "0 3 * * *"
	}
}

func applyTierDefaults(t *TierStorageConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "http://localhost:9000"
	}
	if t.Region == "" {
		t.Region = "us-east-1"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	switch c.Storage.Backend {
	case "s3", "memory":
	default:
		return fmt.Errorf("storage.backend must be s3 or memory, got %q", c.Storage.Backend)
	}
	if c.Storage.SignedURLTTL < time.Second || c.Storage.SignedURLTTL > 7*24*time.Hour {
		return fmt.Errorf("storage.signed_url_ttl must be between 1s and 7 days, got %s", c.Storage.SignedURLTTL)
	}
	for name, tier := range map[string]TierStorageConfig{"public": c.Storage.Public, "restricted": c.Storage.Restricted} {
		if tier.PublicBaseURL == "" {
			continue
		}
		if u, err := url.Parse(tier.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("storage.%s.public_base_url must be an absolute URL, got %q", name, tier.PublicBaseURL)
		}
	}

	if c.Media.MaxUploadSize <= 0 {
		return fmt.Errorf("media.max_upload_size must be positive")
	}
	if c.Media.DefaultTier != "public" && c.Media.DefaultTier != "restricted" {
		return fmt.Errorf("media.default_tier must be public or restricted, got %q", c.Media.DefaultTier)
	}
	if c.Media.UploadRateLimit < 0 {
		return fmt.Errorf("media.upload_rate_limit cannot be negative")
	}
	if !strings.HasPrefix(c.Media.ProxyPrefix, "/") {
		return fmt.Errorf("media.proxy_prefix must start with /, got %q", c.Media.ProxyPrefix)
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Storage.Backend == "memory" {
			return fmt.Errorf("storage.backend cannot be memory in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

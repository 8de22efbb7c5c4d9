package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Countries CountriesConfig
	Orders    OrdersConfig
	Storage   StorageConfig
	Redis     RedisConfig
	PubSub    PubSubConfig
	Scheduler SchedulerConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
	Log       LogConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// RateLimitRPS is the sustained request rate per country and client IP;
	// zero disables rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// DatabaseConfig holds database connection settings.
// All countries share one database; each country has its own schema.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// CountriesConfig lists the countries served and how a request selects one
type CountriesConfig struct {
	Codes          []string // upper-case country codes, e.g. CO, MX
	Default        string   // used when a request carries no country
	Header         string   // request header carrying the country
	EnsureSchemas  bool     // create missing schemas at startup
	MigrationsPath string
}

// OrdersConfig configures the orders service reached through the gateway
type OrdersConfig struct {
	BaseURL string
	Path    string
	Timeout time.Duration
}

// StorageConfig configures the visit photo store.
// Photos go to one bucket per country named "{BucketPrefix}-{country}".
type StorageConfig struct {
	Provider      string // gcs, s3, memory
	BucketPrefix  string
	UploadTimeout time.Duration

	// GCS
	ProjectID       string
	CredentialsFile string
	EmulatorHost    string

	// S3 compatible
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// PubSubConfig controls how push deliveries are acknowledged
type PubSubConfig struct {
	DedupEnabled bool
	DedupTTL     time.Duration
	// RetryTransient answers 503 on upstream failures so the transport
	// redelivers, up to MaxDeliveryAttempts. Off keeps every delivery acked.
	RetryTransient      bool
	MaxDeliveryAttempts int
	// MaxRetryAge bounds redelivery by message age when the transport does
	// not report a delivery attempt (no dead-letter policy on the subscription)
	MaxRetryAge time.Duration
}

// SchedulerConfig holds the daily recalculation scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	RunHour           int
	RunMinute         int
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// AuthConfig enables bearer token verification of gateway-issued tokens
type AuthConfig struct {
	Enabled bool
	Secret  string
	Issuer  string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	Profiling         ProfilingConfig
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled              bool
	ServerAddress        string // e.g. "http://pyroscope:4040"
	ApplicationName      string // defaults to the telemetry service name
	BasicAuthUser        string
	BasicAuthPassword    string
	ProfileTypes         []string // empty collects cpu plus heap profiles
	MutexProfileFraction int
	BlockProfileRate     int
	// SpanProfiles links CPU samples to trace spans; needs tracing enabled
	SpanProfiles bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with VENTAS_ prefix (e.g., VENTAS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("VENTAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Values whose zero is meaningful get their defaults here instead of applyDefaults
	v.SetDefault("countries.ensure_schemas", true)
	v.SetDefault("pubsub.dedup_enabled", true)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("scheduler.run_hour", 23)
	v.SetDefault("scheduler.run_minute", 30)

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			RateLimitRPS:     v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Countries: CountriesConfig{
			Codes:          v.GetStringSlice("countries.codes"),
			Default:        v.GetString("countries.default"),
			Header:         v.GetString("countries.header"),
			EnsureSchemas:  v.GetBool("countries.ensure_schemas"),
			MigrationsPath: v.GetString("countries.migrations_path"),
		},
		Orders: OrdersConfig{
			BaseURL: v.GetString("orders.base_url"),
			Path:    v.GetString("orders.path"),
			Timeout: v.GetDuration("orders.timeout"),
		},
		Storage: StorageConfig{
			Provider:        v.GetString("storage.provider"),
			BucketPrefix:    v.GetString("storage.bucket_prefix"),
			UploadTimeout:   v.GetDuration("storage.upload_timeout"),
			ProjectID:       v.GetString("storage.project_id"),
			CredentialsFile: v.GetString("storage.credentials_file"),
			EmulatorHost:    v.GetString("storage.emulator_host"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			AccessKey:       v.GetString("storage.access_key"),
			SecretKey:       v.GetString("storage.secret_key"),
			UseSSL:          v.GetBool("storage.use_ssl"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		PubSub: PubSubConfig{
			DedupEnabled:        v.GetBool("pubsub.dedup_enabled"),
			DedupTTL:            v.GetDuration("pubsub.dedup_ttl"),
			RetryTransient:      v.GetBool("pubsub.retry_transient"),
			MaxDeliveryAttempts: v.GetInt("pubsub.max_delivery_attempts"),
			MaxRetryAge:         v.GetDuration("pubsub.max_retry_age"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			RunHour:           v.GetInt("scheduler.run_hour"),
			RunMinute:         v.GetInt("scheduler.run_minute"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
		},
		Auth: AuthConfig{
			Enabled: v.GetBool("auth.enabled"),
			Secret:  v.GetString("auth.secret"),
			Issuer:  v.GetString("auth.issuer"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			Profiling: ProfilingConfig{
				Enabled:              v.GetBool("telemetry.profiling.enabled"),
				ServerAddress:        v.GetString("telemetry.profiling.server_address"),
				ApplicationName:      v.GetString("telemetry.profiling.application_name"),
				BasicAuthUser:        v.GetString("telemetry.profiling.basic_auth_user"),
				BasicAuthPassword:    v.GetString("telemetry.profiling.basic_auth_password"),
				ProfileTypes:         v.GetStringSlice("telemetry.profiling.profile_types"),
				MutexProfileFraction: v.GetInt("telemetry.profiling.mutex_profile_fraction"),
				BlockProfileRate:     v.GetInt("telemetry.profiling.block_profile_rate"),
				SpanProfiles:         v.GetBool("telemetry.profiling.span_profiles"),
			},
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ventas-service"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "0.1.0"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Must outlive the orders call made by a synchronous recalculation
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB, photos included
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Country"}
	}
	if cfg.HTTP.RateLimitRPS > 0 && cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = int(cfg.HTTP.RateLimitRPS * 2)
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
		cfg.Database.DBName = "ventas"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
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

	if len(cfg.Countries.Codes) == 0 {
		cfg.Countries.Codes = []string{"CO", "MX", "EC", "PE"}
	}
	cfg.Countries.Codes = normalizeCodes(cfg.Countries.Codes)
	if cfg.Countries.Default == "" {
		cfg.Countries.Default = "CO"
	}
	cfg.Countries.Default = strings.ToUpper(strings.TrimSpace(cfg.Countries.Default))
	if cfg.Countries.Header == "" {
		cfg.Countries.Header = "X-Country"
	}
	if cfg.Countries.MigrationsPath == "" {
		cfg.Countries.MigrationsPath = "migrations"
	}

	if cfg.Orders.BaseURL == "" {
		cfg.Orders.BaseURL = "http://localhost:8000"
	}
	if cfg.Orders.Path == "" {
		cfg.Orders.Path = "/v1/pedidos"
	}
	if cfg.Orders.Timeout == 0 {
		cfg.Orders.Timeout = 30 * time.Second
	}

	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = "gcs"
	}
	cfg.Storage.Provider = strings.ToLower(cfg.Storage.Provider)
	if cfg.Storage.BucketPrefix == "" {
		cfg.Storage.BucketPrefix = "ventas-visitas"
	}
	if cfg.Storage.UploadTimeout == 0 {
		cfg.Storage.UploadTimeout = 2 * time.Minute
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.PubSub.DedupTTL == 0 {
		cfg.PubSub.DedupTTL = 24 * time.Hour
	}
	if cfg.PubSub.MaxDeliveryAttempts == 0 {
		cfg.PubSub.MaxDeliveryAttempts = 5
	}
	if cfg.PubSub.MaxRetryAge == 0 {
		cfg.PubSub.MaxRetryAge = 10 * time.Minute
	}

	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 2
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = time.Minute
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "api-gateway"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.Profiling.ApplicationName == "" {
		cfg.Telemetry.Profiling.ApplicationName = cfg.Telemetry.ServiceName
	}
	cfg.Telemetry.Profiling.ProfileTypes = splitList(cfg.Telemetry.Profiling.ProfileTypes)

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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

	if !c.Countries.IsSupported(c.Countries.Default) {
		return fmt.Errorf("countries.default %q is not listed in countries.codes %v",
			c.Countries.Default, c.Countries.Codes)
	}

	if _, err := url.ParseRequestURI(c.Orders.BaseURL); err != nil {
		return fmt.Errorf("orders.base_url is not a valid URL: %w", err)
	}

	switch c.Storage.Provider {
	case "gcs", "memory":
	case "s3":
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage.access_key and storage.secret_key are required for the s3 provider")
		}
	default:
		return fmt.Errorf("storage.provider must be gcs, s3 or memory, got %q", c.Storage.Provider)
	}

	if c.PubSub.MaxDeliveryAttempts < 1 {
		return fmt.Errorf("pubsub.max_delivery_attempts must be at least 1")
	}

	if c.Scheduler.RunHour < 0 || c.Scheduler.RunHour > 23 || c.Scheduler.RunMinute < 0 || c.Scheduler.RunMinute > 59 {
		return fmt.Errorf("scheduler run time %02d:%02d is invalid", c.Scheduler.RunHour, c.Scheduler.RunMinute)
	}

	if c.Auth.Enabled && len(c.Auth.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 characters when auth is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Storage.Provider == "memory" {
			return fmt.Errorf("storage.provider cannot be 'memory' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.Telemetry.Profiling.Enabled && c.Telemetry.Profiling.ServerAddress == "" {
		return fmt.Errorf("telemetry.profiling.server_address is required when profiling is enabled")
	}

	return nil
}

// normalizeCodes upper-cases codes and splits comma separated entries,
// which is how a list arrives from a single environment variable
func normalizeCodes(codes []string) []string {
	out := splitList(codes)
	for i, c := range out {
		out[i] = strings.ToUpper(c)
	}
	return out
}

// splitList splits comma separated entries and drops blanks
func splitList(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		for _, e := range strings.Split(entry, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}

// IsSupported reports whether code (any case) is a configured country
func (c *CountriesConfig) IsSupported(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, cc := range c.Codes {
		if cc == code {
			return true
		}
	}
	return false
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

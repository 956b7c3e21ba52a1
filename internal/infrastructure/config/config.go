package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the order sync service
type Config struct {
	App       AppConfig
	Linx      LinxConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Sink      SinkConfig
	Import    ImportConfig
	Queue     QueueConfig
	Scheduler SchedulerConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Swagger   SwaggerConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
	Storage   StorageConfig
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

// LinxConfig holds the source API credentials and client tuning.
type LinxConfig struct {
	BaseURL           string
	Username          string
	Password          string
	TimeoutSeconds    int
	RequestsPerSecond float64 // 0 disables client-side rate limiting
	Burst             int
	Timezone          string // IANA zone used to render vendor dates
}

// DatabaseConfig holds database connection settings
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

// RedisConfig holds Redis connection settings for the known-order cache
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// SinkConfig holds analytic table settings
type SinkConfig struct {
	Table string
}

// ImportConfig controls the cursor-paginated importer
type ImportConfig struct {
	PageSize      int
	PagePause     time.Duration
	MaxOrders     int // 0 means unlimited
	TestMaxOrders int // default for POST /import-test
	Interval      time.Duration
	Periodic      bool
}

// QueueConfig controls the queue consumer
type QueueConfig struct {
	QueueID      int
	PageSize     int
	PollInterval time.Duration
	SkipExisting bool
	Periodic     bool
}

// SchedulerConfig holds sync job runner settings
type SchedulerConfig struct {
	Enabled     bool // master switch for the periodic trigger
	JobTimeout  time.Duration
	HistorySize int
	QueueSize   int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// SwaggerConfig controls the /swagger API documentation endpoint
type SwaggerConfig struct {
	Enabled bool
	// RequireAuth keeps the docs behind the bearer token check
	RequireAuth bool
}

// AuthConfig holds bearer token settings for the HTTP trigger
type AuthConfig struct {
	Enabled  bool
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable tracing
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled bool
	DBLogFullSQL   bool
	// Continuous profiling
	ProfilingEnabled  bool
	PyroscopeAddress  string
	SpanProfiles      bool
	DBSlowQueryThresh time.Duration
}

// StorageConfig holds S3-compatible run report archive settings
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	Prefix       string
}

// Configuration errors
var (
	ErrLinxBaseURLRequired  = errors.New("linx.base_url is required")
	ErrLinxCredentials      = errors.New("linx.username and linx.password are required")
	ErrInvalidTimezone      = errors.New("linx.timezone is not a valid IANA zone")
	ErrAuthSecretRequired   = errors.New("auth.secret is required when auth is enabled")
	ErrStorageBucketMissing = errors.New("storage.bucket is required when storage is enabled")
)

// Load reads configuration from a config file and environment variables.
// Priority (highest to lowest):
// 1. PORT (Cloud Run) for app.port
// 2. Environment variables with ORDERSYNC_ prefix (e.g., ORDERSYNC_LINX_PASSWORD)
// 3. config file (configFile, or config.{yaml,toml} in ., ./config, /app)
// 4. Built-in defaults
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ORDERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Linx: LinxConfig{
			BaseURL:           v.GetString("linx.base_url"),
			Username:          v.GetString("linx.username"),
			Password:          v.GetString("linx.password"),
			TimeoutSeconds:    v.GetInt("linx.timeout_seconds"),
			RequestsPerSecond: v.GetFloat64("linx.requests_per_second"),
			Burst:             v.GetInt("linx.burst"),
			Timezone:          v.GetString("linx.timezone"),
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
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
			TTL:       v.GetDuration("redis.ttl"),
		},
		Sink: SinkConfig{
			Table: v.GetString("sink.table"),
		},
		Import: ImportConfig{
			PageSize:      v.GetInt("import.page_size"),
			PagePause:     v.GetDuration("import.page_pause"),
			MaxOrders:     v.GetInt("import.max_orders"),
			TestMaxOrders: v.GetInt("import.test_max_orders"),
			Interval:      v.GetDuration("import.interval"),
			Periodic:      v.GetBool("import.periodic"),
		},
		Queue: QueueConfig{
			QueueID:      v.GetInt("queue.queue_id"),
			PageSize:     v.GetInt("queue.page_size"),
			PollInterval: v.GetDuration("queue.poll_interval"),
			SkipExisting: v.GetBool("queue.skip_existing"),
			Periodic:     v.GetBool("queue.periodic"),
		},
		Scheduler: SchedulerConfig{
			Enabled:     v.GetBool("scheduler.enabled"),
			JobTimeout:  v.GetDuration("scheduler.job_timeout"),
			HistorySize: v.GetInt("scheduler.history_size"),
			QueueSize:   v.GetInt("scheduler.queue_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
		},
		Auth: AuthConfig{
			Enabled:  v.GetBool("auth.enabled"),
			Secret:   v.GetString("auth.secret"),
			Issuer:   v.GetString("auth.issuer"),
			TokenTTL: v.GetDuration("auth.token_ttl"),
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
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
			SpanProfiles:      v.GetBool("telemetry.span_profiles"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			Prefix:       v.GetString("storage.prefix"),
		},
	}

	// Cloud Run injects a bare PORT
	if port := os.Getenv("PORT"); port != "" {
		cfg.App.Port = port
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
		cfg.App.Name = "linx-orders-importer"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.Linx.TimeoutSeconds == 0 {
		cfg.Linx.TimeoutSeconds = 60
	}
	if cfg.Linx.Burst == 0 {
		cfg.Linx.Burst = 1
	}
	if cfg.Linx.Timezone == "" {
		cfg.Linx.Timezone = "America/Sao_Paulo"
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
		cfg.Database.DBName = "analytics"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
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
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "linx:orders:known:"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 72 * time.Hour
	}
	if cfg.Sink.Table == "" {
		cfg.Sink.Table = "linx_orders"
	}
	if cfg.Import.PageSize == 0 {
		cfg.Import.PageSize = 100
	}
	if cfg.Import.PagePause == 0 {
		cfg.Import.PagePause = time.Second
	}
	if cfg.Import.TestMaxOrders == 0 {
		cfg.Import.TestMaxOrders = 5
	}
	if cfg.Import.Interval == 0 {
		cfg.Import.Interval = time.Hour
	}
	if cfg.Queue.QueueID == 0 {
		cfg.Queue.QueueID = 31
	}
	if cfg.Queue.PageSize == 0 {
		cfg.Queue.PageSize = 10
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = 30 * time.Second
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.HistorySize == 0 {
		cfg.Scheduler.HistorySize = 50
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 16
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// import runs answer synchronously
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "linx-orders"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
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
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "runs"
	}
}

// validate performs validation on the configuration. Source credentials are
// checked by the commands that talk to LINX, not here.
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
	if c.Import.PageSize < 1 {
		return fmt.Errorf("import.page_size must be positive, got %d", c.Import.PageSize)
	}
	if c.Import.MaxOrders < 0 {
		return fmt.Errorf("import.max_orders cannot be negative")
	}
	if c.Queue.PageSize < 1 {
		return fmt.Errorf("queue.page_size must be positive, got %d", c.Queue.PageSize)
	}
	if !validTableName(c.Sink.Table) {
		return fmt.Errorf("sink.table %q is not a valid identifier", c.Sink.Table)
	}
	if _, err := time.LoadLocation(c.Linx.Timezone); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimezone, c.Linx.Timezone)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return ErrAuthSecretRequired
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return ErrStorageBucketMissing
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Auth.Enabled && len(c.Auth.Secret) < 32 {
			return fmt.Errorf("auth.secret must be at least 32 characters in production")
		}
		// Swagger must be disabled or behind the bearer token in production
		if c.Swagger.Enabled && !(c.Swagger.RequireAuth && c.Auth.Enabled) {
			return fmt.Errorf("swagger endpoint must be disabled or require authentication in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// ValidateSource checks that LINX credentials are present.
func (c *Config) ValidateSource() error {
	if c.Linx.BaseURL == "" {
		return ErrLinxBaseURLRequired
	}
	if c.Linx.Username == "" || c.Linx.Password == "" {
		return ErrLinxCredentials
	}
	return nil
}

// Location returns the configured vendor time zone.
func (l *LinxConfig) Location() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Address returns host:port for the Redis client.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
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

func validTableName(name string) bool {
	if name == "" || len(name) > 63 {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"

	MailProviderSendGrid = "sendgrid"
	MailProviderLog      = "log"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	AppName   string
	PublicURL string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Storage       StorageConfig
	Calendar      CalendarConfig
	Mail          MailConfig
	Payout        PayoutConfig
	Ambassador    AmbassadorConfig
	Realtime      RealtimeConfig
	Tracing       TracingConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Scheduler     SchedulerConfig
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects the object store used for uploads and presigned URLs.
type StorageConfig struct {
	Provider        string
	Bucket          string
	PublicBaseURL   string
	CredentialsFile string
	SignerEmail     string
	LocalDir        string
	SignedURLSecret string
	PresignExpiry   time.Duration
}

// CalendarConfig enables Google Calendar sync for live sessions.
type CalendarConfig struct {
	Enabled         bool
	CredentialsFile string
	CalendarID      string
	TimeZone        string
}

// MailConfig configures transactional email delivery.
type MailConfig struct {
	Provider  string
	APIKey    string
	FromEmail string
	FromName  string
}

// PayoutConfig configures the payout gateway and the point conversion rate.
type PayoutConfig struct {
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
	PointValue int64
	MinPoints  int
	Currency   string
}

// AmbassadorConfig governs referral rewards.
type AmbassadorConfig struct {
	PointsPerReferral int
}

// RealtimeConfig configures the live-session relay.
type RealtimeConfig struct {
	UseRedis       bool
	Channel        string
	AllowedOrigins []string
	ClientBuffer   int
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	ServiceName string
}

// CacheConfig governs response caching for public listings.
type CacheConfig struct {
	Enabled bool
	JobsTTL time.Duration
}

// RateLimitConfig governs the fixed-window limiter on auth endpoints.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// SchedulerConfig toggles periodic maintenance sweeps.
type SchedulerConfig struct {
	Enabled      bool
	JobSweepSpec string
	ReminderSpec string
}

// NotificationsConfig tunes the email dispatch queue.
type NotificationsConfig struct {
	EmailEnabled      bool
	WorkerConcurrency int
	WorkerRetries     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.AppName = v.GetString("APP_NAME")
	cfg.PublicURL = strings.TrimRight(v.GetString("PUBLIC_URL"), "/")

	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		URL:      v.GetString("REDIS_URL"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Provider:        strings.ToLower(v.GetString("STORAGE_PROVIDER")),
		Bucket:          v.GetString("STORAGE_BUCKET"),
		PublicBaseURL:   strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		SignerEmail:     v.GetString("STORAGE_SIGNER_EMAIL"),
		LocalDir:        v.GetString("STORAGE_LOCAL_DIR"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		PresignExpiry:   parseDuration(v.GetString("STORAGE_PRESIGN_EXPIRY"), time.Hour),
	}

	cfg.Calendar = CalendarConfig{
		Enabled:         v.GetBool("ENABLE_CALENDAR_SYNC"),
		CredentialsFile: v.GetString("CALENDAR_CREDENTIALS_FILE"),
		CalendarID:      v.GetString("CALENDAR_ID"),
		TimeZone:        v.GetString("CALENDAR_TIME_ZONE"),
	}

	cfg.Mail = MailConfig{
		Provider:  strings.ToLower(v.GetString("MAIL_PROVIDER")),
		APIKey:    v.GetString("SENDGRID_API_KEY"),
		FromEmail: v.GetString("MAIL_FROM_EMAIL"),
		FromName:  v.GetString("MAIL_FROM_NAME"),
	}

	cfg.Payout = PayoutConfig{
		GatewayURL: strings.TrimRight(v.GetString("PAYOUT_GATEWAY_URL"), "/"),
		APIKey:     v.GetString("PAYOUT_GATEWAY_API_KEY"),
		Timeout:    parseDuration(v.GetString("PAYOUT_GATEWAY_TIMEOUT"), 15*time.Second),
		PointValue: v.GetInt64("PAYOUT_POINT_VALUE"),
		MinPoints:  v.GetInt("PAYOUT_MIN_POINTS"),
		Currency:   v.GetString("PAYOUT_CURRENCY"),
	}

	cfg.Ambassador = AmbassadorConfig{
		PointsPerReferral: v.GetInt("AMBASSADOR_POINTS_PER_REFERRAL"),
	}

	cfg.Realtime = RealtimeConfig{
		UseRedis:       v.GetBool("REALTIME_USE_REDIS"),
		Channel:        v.GetString("REALTIME_REDIS_CHANNEL"),
		AllowedOrigins: splitAndTrim(v.GetString("WS_ALLOWED_ORIGINS")),
		ClientBuffer:   v.GetInt("REALTIME_CLIENT_BUFFER"),
	}

	ratio := v.GetFloat64("OTEL_SAMPLER_RATIO")
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}
	cfg.Tracing = TracingConfig{
		Enabled:     v.GetBool("OTEL_ENABLED"),
		Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		SampleRatio: ratio,
		ServiceName: v.GetString("OTEL_SERVICE_NAME"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		JobsTTL: parseDuration(v.GetString("JOBS_CACHE_TTL"), 2*time.Minute),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:  v.GetBool("ENABLE_RATE_LIMIT"),
		Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
		Window:   parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:      v.GetBool("ENABLE_SCHEDULER"),
		JobSweepSpec: v.GetString("SCHEDULER_JOB_SWEEP_SPEC"),
		ReminderSpec: v.GetString("SCHEDULER_REMINDER_SPEC"),
	}

	cfg.Notifications = NotificationsConfig{
		EmailEnabled:      v.GetBool("ENABLE_EMAIL_NOTIFICATIONS"),
		WorkerConcurrency: v.GetInt("NOTIFICATIONS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("NOTIFICATIONS_WORKER_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("APP_NAME", "Campus Connect")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_connect")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "campus-connect-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_PROVIDER", StorageProviderLocal)
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "")
	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	v.SetDefault("STORAGE_SIGNER_EMAIL", "")
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_PRESIGN_EXPIRY", "1h")

	v.SetDefault("ENABLE_CALENDAR_SYNC", false)
	v.SetDefault("CALENDAR_CREDENTIALS_FILE", "")
	v.SetDefault("CALENDAR_ID", "primary")
	v.SetDefault("CALENDAR_TIME_ZONE", "Asia/Kolkata")

	v.SetDefault("MAIL_PROVIDER", MailProviderLog)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_EMAIL", "no-reply@campusconnect.local")
	v.SetDefault("MAIL_FROM_NAME", "Campus Connect")

	v.SetDefault("PAYOUT_GATEWAY_URL", "")
	v.SetDefault("PAYOUT_GATEWAY_API_KEY", "")
	v.SetDefault("PAYOUT_GATEWAY_TIMEOUT", "15s")
	v.SetDefault("PAYOUT_POINT_VALUE", 100)
	v.SetDefault("PAYOUT_MIN_POINTS", 500)
	v.SetDefault("PAYOUT_CURRENCY", "INR")

	v.SetDefault("AMBASSADOR_POINTS_PER_REFERRAL", 100)

	v.SetDefault("REALTIME_USE_REDIS", false)
	v.SetDefault("REALTIME_REDIS_CHANNEL", "live-sessions")
	v.SetDefault("WS_ALLOWED_ORIGINS", "")
	v.SetDefault("REALTIME_CLIENT_BUFFER", 64)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SAMPLER_RATIO", 0.1)
	v.SetDefault("OTEL_SERVICE_NAME", "campus-connect-api")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("JOBS_CACHE_TTL", "2m")

	v.SetDefault("ENABLE_RATE_LIMIT", true)
	v.SetDefault("RATE_LIMIT_REQUESTS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_JOB_SWEEP_SPEC", "@every 15m")
	v.SetDefault("SCHEDULER_REMINDER_SPEC", "@every 5m")

	v.SetDefault("ENABLE_EMAIL_NOTIFICATIONS", false)
	v.SetDefault("NOTIFICATIONS_WORKER_CONCURRENCY", 2)
	v.SetDefault("NOTIFICATIONS_WORKER_RETRIES", 3)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

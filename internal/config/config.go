package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Logger   LoggerConfig   `yaml:"logger"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`
	AI       AIConfig       `yaml:"ai"`
	Payment  PaymentConfig  `yaml:"payment"`
	Upload   UploadConfig   `yaml:"upload"`
	CORS     CORSConfig     `yaml:"cors"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `yaml:"name"`
	Env                   string `yaml:"env"`
	Host                  string `yaml:"host"`
	Port                  string `yaml:"port"`
	Version               string `yaml:"version"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	BodyLimitMB           int    `yaml:"body_limit_mb"`
	RateLimitPerMinute    int    `yaml:"rate_limit_per_minute"`
	TimeZone              string `yaml:"time_zone"`
}

// MongoConfig holds the document store connection values.
type MongoConfig struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	EnsureIndexes  bool   `yaml:"ensure_indexes"`
}

// PostgresConfig holds DB connection values for the billing ledger.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConns       int32  `yaml:"max_conns"`
	MinConns       int32  `yaml:"min_conns"`
	RunMigrations  bool   `yaml:"run_migrations"`
	MigrationsDir  string `yaml:"migrations_dir"`
	ConnMaxIdleSec int32  `yaml:"conn_max_idle_seconds"`
	ConnMaxLifeSec int32  `yaml:"conn_max_life_seconds"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `yaml:"jwt_secret"`
	AccessTokenTTLMinutes int    `yaml:"access_token_ttl_minutes"`
	ResetTokenTTLMinutes  int    `yaml:"reset_token_ttl_minutes"`
	ResetPasswordURL      string `yaml:"reset_password_url"`
	BcryptCost            int    `yaml:"bcrypt_cost"`
}

// MailConfig holds SMTP settings. An empty Host selects the logging sender.
type MailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	From        string `yaml:"from"`
	SiteName    string `yaml:"site_name"`
	FrontendURL string `yaml:"frontend_url"`
	BackendURL  string `yaml:"backend_url"`
}

// AIConfig configures the generative model client.
type AIConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// PaymentConfig configures the payment gateway and subscription credentials.
type PaymentConfig struct {
	APIURL               string `yaml:"api_url"`
	APIKey               string `yaml:"api_key"`
	SecretKey            string `yaml:"secret_key"`
	ClientID             string `yaml:"client_id"`
	CallbackURL          string `yaml:"callback_url"`
	SubscriptionClientID string `yaml:"subscription_client_id"`
	SubscriptionSecretID string `yaml:"subscription_secret_id"`
}

// UploadConfig controls where multipart files land.
type UploadConfig struct {
	Dir      string `yaml:"dir"`
	MaxFiles int    `yaml:"max_files"`
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WorkerConfig controls the in-process reminder worker.
type WorkerConfig struct {
	RemindersEnabled        bool `yaml:"reminders_enabled"`
	ReminderIntervalMinutes int  `yaml:"reminder_interval_minutes"`
	ReminderWindowHours     int  `yaml:"reminder_window_hours"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:                  "maintenance-service",
			Env:                   "development",
			Host:                  "0.0.0.0",
			Port:                  "5000",
			Version:               "dev",
			RequestTimeoutSeconds: 30,
			BodyLimitMB:           20,
			RateLimitPerMinute:    300,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://127.0.0.1:27017",
			Database:       "mms",
			TimeoutSeconds: 10,
			EnsureIndexes:  true,
		},
		Postgres: PostgresConfig{
			MaxConns:       10,
			MinConns:       2,
			RunMigrations:  true,
			MigrationsDir:  "migrations",
			ConnMaxIdleSec: 30,
			ConnMaxLifeSec: 300,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			JWTSecret:             "dev-secret",
			AccessTokenTTLMinutes: 24 * 60,
			ResetTokenTTLMinutes:  60,
			ResetPasswordURL:      "http://localhost:5173/reset-password",
			BcryptCost:            10,
		},
		Mail: MailConfig{
			Port:        587,
			From:        "noreply@example.com",
			SiteName:    "MMS",
			FrontendURL: "http://localhost:5173",
			BackendURL:  "http://localhost:5000",
		},
		AI: AIConfig{
			Model:           "gemini-2.0-flash",
			BaseURL:         "https://generativelanguage.googleapis.com",
			CacheTTLSeconds: 300,
			TimeoutSeconds:  30,
		},
		Payment: PaymentConfig{
			APIURL: "https://payments.paypack.rw/api",
		},
		Upload: UploadConfig{
			Dir:      "uploads",
			MaxFiles: 10,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
		},
		Worker: WorkerConfig{
			ReminderIntervalMinutes: 60,
			ReminderWindowHours:     24,
		},
	}
}

// Load reads configuration from an optional YAML file named by CONFIG_FILE,
// then applies environment variables on top.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", strconv.Itoa(c.Redis.DB)))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", getEnv("NODE_ENV", c.App.Env))
	c.App.Host = getEnv("APP_HOST", c.App.Host)
	c.App.Port = getEnv("APP_PORT", getEnv("PORT", c.App.Port))
	c.App.Version = getEnv("APP_VERSION", c.App.Version)
	c.App.RequestTimeoutSeconds = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", c.App.RequestTimeoutSeconds)
	c.App.BodyLimitMB = getEnvAsInt("HTTP_BODY_LIMIT_MB", c.App.BodyLimitMB)
	c.App.RateLimitPerMinute = getEnvAsInt("HTTP_RATE_LIMIT_PER_MINUTE", c.App.RateLimitPerMinute)
	c.App.TimeZone = getEnv("TZ", c.App.TimeZone)

	c.Mongo.URI = getEnv("MONGO_URI", getEnv("DATABASE_URL", c.Mongo.URI))
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)
	c.Mongo.TimeoutSeconds = getEnvAsInt("MONGO_TIMEOUT_SECONDS", c.Mongo.TimeoutSeconds)
	c.Mongo.EnsureIndexes = getEnvAsBool("MONGO_ENSURE_INDEXES", c.Mongo.EnsureIndexes)

	c.Postgres.DSN = getEnv("POSTGRES_DSN", c.Postgres.DSN)
	c.Postgres.MaxConns = int32(getEnvAsInt("POSTGRES_MAX_CONNS", int(c.Postgres.MaxConns)))
	c.Postgres.MinConns = int32(getEnvAsInt("POSTGRES_MIN_CONNS", int(c.Postgres.MinConns)))
	c.Postgres.RunMigrations = getEnvAsBool("POSTGRES_RUN_MIGRATIONS", c.Postgres.RunMigrations)
	c.Postgres.MigrationsDir = getEnv("POSTGRES_MIGRATIONS_DIR", c.Postgres.MigrationsDir)
	c.Postgres.ConnMaxIdleSec = int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", int(c.Postgres.ConnMaxIdleSec)))
	c.Postgres.ConnMaxLifeSec = int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", int(c.Postgres.ConnMaxLifeSec)))

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = redisDB

	c.Logger.Level = getEnv("LOG_LEVEL", c.Logger.Level)

	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", getEnv("JWT_SECRET", c.Auth.JWTSecret))
	c.Auth.AccessTokenTTLMinutes = getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", c.Auth.AccessTokenTTLMinutes)
	c.Auth.ResetTokenTTLMinutes = getEnvAsInt("AUTH_RESET_TOKEN_TTL_MINUTES", c.Auth.ResetTokenTTLMinutes)
	c.Auth.ResetPasswordURL = getEnv("RESET_PASSWORD_URL", c.Auth.ResetPasswordURL)
	c.Auth.BcryptCost = getEnvAsInt("AUTH_BCRYPT_COST", c.Auth.BcryptCost)

	c.Mail.Host = getEnv("SMTP_HOST", c.Mail.Host)
	c.Mail.Port = getEnvAsInt("SMTP_PORT", c.Mail.Port)
	c.Mail.Username = getEnv("EMAIL_USER", c.Mail.Username)
	c.Mail.Password = getEnv("EMAIL_PASS", c.Mail.Password)
	c.Mail.From = getEnv("EMAIL_FROM", getEnv("EMAIL_USER", c.Mail.From))
	c.Mail.SiteName = getEnv("SITE_NAME", c.Mail.SiteName)
	c.Mail.FrontendURL = getEnv("FRONTEND_URL", c.Mail.FrontendURL)
	c.Mail.BackendURL = getEnv("BACKEND_URL", c.Mail.BackendURL)

	c.AI.APIKey = getEnv("GEMINI_API_KEY", c.AI.APIKey)
	c.AI.Model = getEnv("GEMINI_MODEL", c.AI.Model)
	c.AI.BaseURL = getEnv("GEMINI_BASE_URL", c.AI.BaseURL)
	c.AI.CacheTTLSeconds = getEnvAsInt("AI_CACHE_TTL_SECONDS", c.AI.CacheTTLSeconds)
	c.AI.TimeoutSeconds = getEnvAsInt("AI_TIMEOUT_SECONDS", c.AI.TimeoutSeconds)

	c.Payment.APIURL = strings.TrimRight(getEnv("PAYPACK_API_URL", getEnv("PAYPACK_BASE_URL", c.Payment.APIURL)), "/")
	c.Payment.APIKey = getEnv("PAYPACK_API_KEY", c.Payment.APIKey)
	c.Payment.SecretKey = getEnv("PAYPACK_SECRET_KEY", c.Payment.SecretKey)
	c.Payment.ClientID = getEnv("PAYPACK_CLIENT_ID", c.Payment.ClientID)
	c.Payment.CallbackURL = getEnv("PAYPACK_CALLBACK_URL", c.Payment.CallbackURL)
	c.Payment.SubscriptionClientID = getEnv("SUBSCRIPTION_CLIENT_ID", c.Payment.SubscriptionClientID)
	c.Payment.SubscriptionSecretID = getEnv("SUBSCRIPTION_SECRET_ID", c.Payment.SubscriptionSecretID)

	c.Upload.Dir = getEnv("UPLOAD_DIR", c.Upload.Dir)
	c.Upload.MaxFiles = getEnvAsInt("UPLOAD_MAX_FILES", c.Upload.MaxFiles)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORS.AllowedOrigins = splitList(origins)
	}
	if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
		c.CORS.AllowedOrigins = appendUnique(c.CORS.AllowedOrigins, frontend)
	}

	c.Worker.RemindersEnabled = getEnvAsBool("WORKER_REMINDERS_ENABLED", c.Worker.RemindersEnabled)
	c.Worker.ReminderIntervalMinutes = getEnvAsInt("WORKER_REMINDER_INTERVAL_MINUTES", c.Worker.ReminderIntervalMinutes)
	c.Worker.ReminderWindowHours = getEnvAsInt("WORKER_REMINDER_WINDOW_HOURS", c.Worker.ReminderWindowHours)
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves TimeZone for schedule dates, falling back to the
// process local zone.
func (a AppConfig) Location() *time.Location {
	if a.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsProduction reports whether the service runs with production settings.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// Timeout returns the connect/operation timeout for Mongo.
func (m MongoConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long AI responses stay cached.
func (a AIConfig) CacheTTL() time.Duration {
	if a.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.CacheTTLSeconds) * time.Second
}

// ReminderInterval returns the worker tick.
func (w WorkerConfig) ReminderInterval() time.Duration {
	if w.ReminderIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(w.ReminderIntervalMinutes) * time.Minute
}

// ReminderWindow returns how far ahead reminders look.
func (w WorkerConfig) ReminderWindow() time.Duration {
	if w.ReminderWindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(w.ReminderWindowHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendUnique(list []string, val string) []string {
	for _, existing := range list {
		if existing == val {
			return list
		}
	}
	return append(list, val)
}

// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Session   SessionConfig   `koanf:"session"`
	Verify    VerifyConfig    `koanf:"verify"`
	Content   ContentConfig   `koanf:"content"`
	Purchase  PurchaseConfig  `koanf:"purchase"`
	Mail      MailConfig      `koanf:"mail"`
	Admin     AdminConfig     `koanf:"admin"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	// PublicURL is the externally visible origin used in mailed links and
	// checkout redirects.
	PublicURL string `koanf:"public_url"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig is optional. An empty URL disables the purchase ledger.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// RedisConfig is optional. Without it rate limiting falls back to
// in-process limiters and webhook replays rely on grant idempotency alone.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
}

type SessionConfig struct {
	Secret     string        `koanf:"secret"`
	CookieName string        `koanf:"cookie_name"`
	Lifetime   time.Duration `koanf:"lifetime"`
	Issuer     string        `koanf:"issuer"`
}

type VerifyConfig struct {
	ConfirmSecret string        `koanf:"confirm_secret"`
	ConfirmExpire time.Duration `koanf:"confirm_expire"`
	DeleteSecret  string        `koanf:"delete_secret"`
	DeleteExpire  time.Duration `koanf:"delete_expire"`
}

type ContentConfig struct {
	Root       string   `koanf:"root"`
	Extensions []string `koanf:"extensions"`
	Watch      bool     `koanf:"watch"`
}

type PurchaseConfig struct {
	APIKey             string        `koanf:"api_key"`
	APIBaseURL         string        `koanf:"api_base_url"`
	WebhookSecret      string        `koanf:"webhook_secret"`
	SignatureTolerance time.Duration `koanf:"signature_tolerance"`
	ReplayTTL          time.Duration `koanf:"replay_ttl"`
}

type MailConfig struct {
	Driver string `koanf:"driver"`
	From   string `koanf:"from"`
	Region string `koanf:"region"`
}

type AdminConfig struct {
	Email    string `koanf:"email"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Paywall Blog",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.public_url":  "http://localhost:8080",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,
		"redis.dial_timeout":   "5s",

		"session.cookie_name": "session",
		"session.lifetime":    "168h",
		"session.issuer":      "paywall-blog",

		"verify.confirm_expire": "24h",
		"verify.delete_expire":  "15m",

		"content.root":       "content",
		"content.extensions": []string{".html"},
		"content.watch":      false,

		"purchase.api_base_url":        "https://api.stripe.com",
		"purchase.signature_tolerance": "5m",
		"purchase.replay_ttl":          "72h",

		"mail.driver": "log",
		"mail.from":   "noreply@localhost",
		"mail.region": "eu-central-1",

		"admin.username": "admin",

		"rate_limit.requests": 120,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    30,

		"cors.allowed_origins": []string{"http://localhost:8080"},
		"cors.allowed_methods": []string{"GET", "POST", "OPTIONS"},
		"cors.allowed_headers": []string{
			"Accept",
			"Content-Type",
			"If-None-Match",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "paywall-blog",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"PUBLIC_URL":                  "app.public_url",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"SESSION_SECRET":              "session.secret",
	"SESSION_LIFETIME":            "session.lifetime",
	"CONFIRM_SECRET":              "verify.confirm_secret",
	"CONFIRM_EXPIRE":              "verify.confirm_expire",
	"DELETE_SECRET":               "verify.delete_secret",
	"DELETE_EXPIRE":               "verify.delete_expire",
	"CONTENT_ROOT":                "content.root",
	"CONTENT_WATCH":               "content.watch",
	"PAYMENT_API_KEY":             "purchase.api_key",
	"PAYMENT_API_BASE_URL":        "purchase.api_base_url",
	"PAYMENT_WEBHOOK_SECRET":      "purchase.webhook_secret",
	"MAIL_DRIVER":                 "mail.driver",
	"MAIL_FROM":                   "mail.from",
	"AWS_REGION":                  "mail.region",
	"ADMIN_EMAIL":                 "admin.email",
	"ADMIN_USERNAME":              "admin.username",
	"ADMIN_PASSWORD":              "admin.password",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"METRICS_ENABLED":             "metrics.enabled",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

//nolint:gocyclo // flat list of independent checks
func validate(c *Config) error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if c.Verify.ConfirmSecret == "" {
		return fmt.Errorf("CONFIRM_SECRET is required")
	}

	if c.Verify.DeleteSecret == "" {
		return fmt.Errorf("DELETE_SECRET is required")
	}

	if c.Verify.ConfirmSecret == c.Verify.DeleteSecret ||
		c.Verify.ConfirmSecret == c.Session.Secret ||
		c.Verify.DeleteSecret == c.Session.Secret {
		return fmt.Errorf("session, confirm and delete secrets must differ")
	}

	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session.lifetime must be positive")
	}

	if c.Verify.ConfirmExpire <= 0 || c.Verify.DeleteExpire <= 0 {
		return fmt.Errorf("verify token expiries must be positive")
	}

	if c.Content.Root == "" {
		return fmt.Errorf("CONTENT_ROOT is required")
	}

	if len(c.Content.Extensions) == 0 {
		return fmt.Errorf("content.extensions must not be empty")
	}

	switch c.Mail.Driver {
	case "log", "ses":
	default:
		return fmt.Errorf("mail.driver must be one of log, ses")
	}

	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.Purchase.WebhookSecret == "" {
			return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

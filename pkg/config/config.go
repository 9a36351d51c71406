package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Enrollment   EnrollmentConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CODIGO_APP_ENV" required:"true"`
	Port         string `envconfig:"CODIGO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CODIGO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CODIGO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CODIGO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CODIGO_DB_DSN"`
	Driver string `envconfig:"CODIGO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CODIGO_DB_HOST"`
	LegacyPort     int    `envconfig:"CODIGO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CODIGO_DB_USER"`
	LegacyPassword string `envconfig:"CODIGO_DB_PASSWORD"`
	LegacyName     string `envconfig:"CODIGO_DB_NAME"`
	LegacySSLMode  string `envconfig:"CODIGO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CODIGO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CODIGO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CODIGO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CODIGO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CODIGO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CODIGO_REDIS_ADDR"`
	Password     string        `envconfig:"CODIGO_REDIS_PASSWORD"`
	DB           int           `envconfig:"CODIGO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CODIGO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CODIGO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CODIGO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CODIGO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CODIGO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CODIGO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CODIGO_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"CODIGO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CODIGO_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CODIGO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CODIGO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EnrollmentTopic          string `envconfig:"CODIGO_PUBSUB_ENROLLMENT_TOPIC" required:"true"`
	EnrollmentSubscription   string `envconfig:"CODIGO_PUBSUB_ENROLLMENT_SUBSCRIPTION" required:"true"`
	PaymentTopic             string `envconfig:"CODIGO_PUBSUB_PAYMENT_TOPIC" required:"true"`
	PaymentSubscription      string `envconfig:"CODIGO_PUBSUB_PAYMENT_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"CODIGO_PUBSUB_NOTIFICATION_TOPIC" default:"lms-notification-events"`
	NotificationSubscription string `envconfig:"CODIGO_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"CODIGO_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"CODIGO_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"CODIGO_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CODIGO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CODIGO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CODIGO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	LockTTL                 time.Duration `envconfig:"CODIGO_CRON_LOCK_TTL" default:"5m"`
	PaymentReconcileEvery   time.Duration `envconfig:"CODIGO_CRON_PAYMENT_RECONCILE_EVERY" default:"10m"`
	EntitlementExpiryEvery  time.Duration `envconfig:"CODIGO_CRON_ENTITLEMENT_EXPIRY_EVERY" default:"1h"`
	EnrollmentWindowSweepOn time.Duration `envconfig:"CODIGO_CRON_ENROLLMENT_WINDOW_SWEEP_EVERY" default:"1h"`
}

type EnrollmentConfig struct {
	PendingPaymentTTL time.Duration `envconfig:"CODIGO_ENROLLMENT_PENDING_PAYMENT_TTL" default:"30m"`
	BulkMaxUsers      int           `envconfig:"CODIGO_ENROLLMENT_BULK_MAX_USERS" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

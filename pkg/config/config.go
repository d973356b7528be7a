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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Payments     PaymentsConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"GASLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"GASLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GASLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GASLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GASLINK_DB_DSN"`
	Driver string `envconfig:"GASLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GASLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"GASLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GASLINK_DB_USER"`
	LegacyPassword string `envconfig:"GASLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"GASLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"GASLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GASLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GASLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GASLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GASLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GASLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GASLINK_REDIS_ADDR"`
	Password     string        `envconfig:"GASLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"GASLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GASLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GASLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GASLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GASLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GASLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GASLINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GASLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GASLINK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PaymentsConfig tunes the simulated mobile-money verification flow.
type PaymentsConfig struct {
	CodeExpiry     time.Duration `envconfig:"GASLINK_PAYMENT_CODE_EXPIRY" default:"10m"`
	MaxAttempts    int           `envconfig:"GASLINK_PAYMENT_MAX_ATTEMPTS" default:"5"`
	IdempotencyTTL time.Duration `envconfig:"GASLINK_PAYMENT_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GASLINK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GASLINK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GASLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GASLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"GASLINK_PUBSUB_NOTIFICATION_TOPIC" default:"gl-notification-events"`
	NotificationSubscription string `envconfig:"GASLINK_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GASLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GASLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GASLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
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

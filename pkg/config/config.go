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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Razorpay     RazorpayConfig
	Refunds      RefundsConfig
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
	Env          string `envconfig:"THREADCART_APP_ENV" required:"true"`
	Port         string `envconfig:"THREADCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THREADCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THREADCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"THREADCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"THREADCART_DB_DSN"`

	LegacyHost     string `envconfig:"THREADCART_DB_HOST"`
	LegacyPort     int    `envconfig:"THREADCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THREADCART_DB_USER"`
	LegacyPassword string `envconfig:"THREADCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"THREADCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"THREADCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THREADCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THREADCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THREADCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THREADCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THREADCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THREADCART_REDIS_ADDR"`
	Password     string        `envconfig:"THREADCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"THREADCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THREADCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THREADCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THREADCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THREADCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THREADCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"THREADCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"THREADCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"THREADCART_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"THREADCART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"THREADCART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"THREADCART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"THREADCART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"THREADCART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"THREADCART_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"THREADCART_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	WalletTopic        string `envconfig:"THREADCART_PUBSUB_WALLET_TOPIC" default:"tc-wallet-events"`
	WalletSubscription string `envconfig:"THREADCART_PUBSUB_WALLET_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"THREADCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"THREADCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"THREADCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"THREADCART_RAZORPAY_KEY_ID"`
	KeySecret string        `envconfig:"THREADCART_RAZORPAY_KEY_SECRET"`
	Timeout   time.Duration `envconfig:"THREADCART_RAZORPAY_TIMEOUT" default:"15s"`
}

type RefundsConfig struct {
	GatewayTimeout time.Duration `envconfig:"THREADCART_REFUND_GATEWAY_TIMEOUT" default:"20s"`
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

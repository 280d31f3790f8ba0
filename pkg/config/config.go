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
	Allocation   AllocationConfig
	Ledger       LedgerConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
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
	Env          string `envconfig:"MANDIHOUSE_APP_ENV" required:"true"`
	Port         string `envconfig:"MANDIHOUSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MANDIHOUSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MANDIHOUSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MANDIHOUSE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MANDIHOUSE_DB_DSN"`
	Driver string `envconfig:"MANDIHOUSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MANDIHOUSE_DB_HOST"`
	LegacyPort     int    `envconfig:"MANDIHOUSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MANDIHOUSE_DB_USER"`
	LegacyPassword string `envconfig:"MANDIHOUSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MANDIHOUSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MANDIHOUSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MANDIHOUSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MANDIHOUSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MANDIHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MANDIHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MANDIHOUSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MANDIHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"MANDIHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MANDIHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MANDIHOUSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MANDIHOUSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MANDIHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MANDIHOUSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MANDIHOUSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AllocationConfig governs seller response windows and re-allocation.
type AllocationConfig struct {
	ResponseWindow   time.Duration `envconfig:"MANDIHOUSE_ALLOC_RESPONSE_WINDOW" default:"24h"`
	MaxReallocRounds int           `envconfig:"MANDIHOUSE_ALLOC_MAX_REALLOC_ROUNDS" default:"3"`
	TimeoutSweep     time.Duration `envconfig:"MANDIHOUSE_ALLOC_TIMEOUT_SWEEP_INTERVAL" default:"5m"`
}

type LedgerConfig struct {
	ConflictRetries int `envconfig:"MANDIHOUSE_LEDGER_CONFLICT_RETRIES" default:"3"`
}

type CronConfig struct {
	TickInterval time.Duration `envconfig:"MANDIHOUSE_CRON_TICK_INTERVAL" default:"1m"`
	LockTTL      time.Duration `envconfig:"MANDIHOUSE_CRON_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MANDIHOUSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MANDIHOUSE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"MANDIHOUSE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MANDIHOUSE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MANDIHOUSE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MANDIHOUSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"MANDIHOUSE_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"MANDIHOUSE_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	AllocationTopic          string `envconfig:"MANDIHOUSE_PUBSUB_ALLOCATION_TOPIC" required:"true"`
	AllocationSubscription   string `envconfig:"MANDIHOUSE_PUBSUB_ALLOCATION_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"MANDIHOUSE_PUBSUB_NOTIFICATION_TOPIC" default:"mh-notification-events"`
	NotificationSubscription string `envconfig:"MANDIHOUSE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MANDIHOUSE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MANDIHOUSE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MANDIHOUSE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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

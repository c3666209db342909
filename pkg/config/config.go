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
	APIKey       APIKeyConfig
	Experiments  ExperimentsConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Square       SquareConfig
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
	Env          string `envconfig:"PREPJOURNEY_APP_ENV" required:"true"`
	Port         string `envconfig:"PREPJOURNEY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PREPJOURNEY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PREPJOURNEY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PREPJOURNEY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PREPJOURNEY_DB_DSN"`
	Driver string `envconfig:"PREPJOURNEY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PREPJOURNEY_DB_HOST"`
	LegacyPort     int    `envconfig:"PREPJOURNEY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PREPJOURNEY_DB_USER"`
	LegacyPassword string `envconfig:"PREPJOURNEY_DB_PASSWORD"`
	LegacyName     string `envconfig:"PREPJOURNEY_DB_NAME"`
	LegacySSLMode  string `envconfig:"PREPJOURNEY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PREPJOURNEY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PREPJOURNEY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PREPJOURNEY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PREPJOURNEY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PREPJOURNEY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PREPJOURNEY_REDIS_ADDR"`
	Password     string        `envconfig:"PREPJOURNEY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PREPJOURNEY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PREPJOURNEY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PREPJOURNEY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PREPJOURNEY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PREPJOURNEY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PREPJOURNEY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PREPJOURNEY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PREPJOURNEY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PREPJOURNEY_JWT_EXPIRATION_MINUTES" required:"true"`
}

type APIKeyConfig struct {
	// ServiceKeyHash is the Argon2id hash of the server-to-server API key.
	// When empty the visitor endpoints accept unauthenticated traffic.
	ServiceKeyHash   string `envconfig:"PREPJOURNEY_SERVICE_API_KEY_HASH"`
	ArgonMemoryKB    int    `envconfig:"PREPJOURNEY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"PREPJOURNEY_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"PREPJOURNEY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int    `envconfig:"PREPJOURNEY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int    `envconfig:"PREPJOURNEY_ARGON_KEY_LEN" default:"32"`
}

// ExperimentsConfig tunes the sticky assignment store.
type ExperimentsConfig struct {
	// CacheTTL bounds how long a cached assignment may serve the fast path.
	// Zero means no expiry.
	CacheTTL time.Duration `envconfig:"PREPJOURNEY_EXPERIMENTS_CACHE_TTL" default:"720h"`
	// RemoteTimeout caps remote-store lookups on the unified path; on expiry
	// the caller falls back to computing the assignment locally.
	RemoteTimeout time.Duration `envconfig:"PREPJOURNEY_EXPERIMENTS_REMOTE_TIMEOUT" default:"800ms"`
	// SyncTimeout caps the background best-effort upsert to the remote store.
	SyncTimeout time.Duration `envconfig:"PREPJOURNEY_EXPERIMENTS_SYNC_TIMEOUT" default:"3s"`
	// WebhookIdempotencyTTL bounds the dedupe window for payment webhooks.
	WebhookIdempotencyTTL time.Duration `envconfig:"PREPJOURNEY_EXPERIMENTS_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PREPJOURNEY_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PREPJOURNEY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PREPJOURNEY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PREPJOURNEY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ExperimentTopic        string `envconfig:"PREPJOURNEY_PUBSUB_EXPERIMENT_TOPIC" default:"pj-experiment-events"`
	ExperimentSubscription string `envconfig:"PREPJOURNEY_PUBSUB_EXPERIMENT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PREPJOURNEY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PREPJOURNEY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PREPJOURNEY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"PREPJOURNEY_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"PREPJOURNEY_SQUARE_WEBHOOK_SECRET"`
	Env           string `envconfig:"PREPJOURNEY_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
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

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
	Reconciler   ReconcilerConfig
	Transition   TransitionConfig
	Ledger       LedgerConfig
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
	Env          string `envconfig:"PERKSPOINT_APP_ENV" required:"true"`
	Port         string `envconfig:"PERKSPOINT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PERKSPOINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PERKSPOINT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PERKSPOINT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PERKSPOINT_DB_DSN"`
	Driver string `envconfig:"PERKSPOINT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PERKSPOINT_DB_HOST"`
	LegacyPort     int    `envconfig:"PERKSPOINT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PERKSPOINT_DB_USER"`
	LegacyPassword string `envconfig:"PERKSPOINT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PERKSPOINT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PERKSPOINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PERKSPOINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PERKSPOINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PERKSPOINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PERKSPOINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PERKSPOINT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PERKSPOINT_REDIS_ADDR"`
	Password     string        `envconfig:"PERKSPOINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PERKSPOINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PERKSPOINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PERKSPOINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PERKSPOINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PERKSPOINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PERKSPOINT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PERKSPOINT_AUTO_MIGRATE" default:"false"`
}

// ReconcilerConfig tunes the stuck-event reconcile worker.
type ReconcilerConfig struct {
	Interval     time.Duration `envconfig:"PERKSPOINT_RECONCILE_INTERVAL" default:"15m"`
	AgeThreshold time.Duration `envconfig:"PERKSPOINT_RECONCILE_AGE_THRESHOLD" default:"10m"`
	BatchLimit   int           `envconfig:"PERKSPOINT_RECONCILE_BATCH_LIMIT" default:"250"`
	DryRun       bool          `envconfig:"PERKSPOINT_RECONCILE_DRY_RUN" default:"false"`
}

// TransitionConfig supplies the default retry policy for status transitions.
// Callers may still pass their own policy per call.
type TransitionConfig struct {
	RetryMaxAttempts  int           `envconfig:"PERKSPOINT_TRANSITION_RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialDelay time.Duration `envconfig:"PERKSPOINT_TRANSITION_RETRY_INITIAL_DELAY" default:"100ms"`
	RetryMaxDelay     time.Duration `envconfig:"PERKSPOINT_TRANSITION_RETRY_MAX_DELAY" default:"5s"`
	RetryMultiplier   float64       `envconfig:"PERKSPOINT_TRANSITION_RETRY_MULTIPLIER" default:"2"`
}

// LedgerConfig tunes the balance verification step.
type LedgerConfig struct {
	VerifyEpsilon string `envconfig:"PERKSPOINT_LEDGER_VERIFY_EPSILON" default:"0.01"`
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

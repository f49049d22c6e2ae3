package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "VENTIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VENTIA_DB_DSN"
	EnvDBHost = "VENTIA_DB_HOST"
	EnvDBUser = "VENTIA_DB_USER"
	EnvDBName = "VENTIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Identity     IdentityConfig
	Wompi        WompiConfig
	Mail         MailConfig
	Jobs         JobsConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"VENTIA_APP_ENV" required:"true"`
	Port         string `envconfig:"VENTIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENTIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENTIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENTIA_DB_DSN"`
	Driver string `envconfig:"VENTIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENTIA_DB_HOST"`
	LegacyPort     int    `envconfig:"VENTIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENTIA_DB_USER"`
	LegacyPassword string `envconfig:"VENTIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENTIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENTIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENTIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENTIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENTIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENTIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENTIA_REDIS_URL"`
	Address      string        `envconfig:"VENTIA_REDIS_ADDR"`
	Password     string        `envconfig:"VENTIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENTIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENTIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENTIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENTIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENTIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENTIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all. The tenant
// cache falls back to an in-process store when it is not.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// IdentityConfig covers the external identity provider integration: token
// verification, profile lookups, and the provisioning defaults applied on
// first login.
type IdentityConfig struct {
	TokenSecret     string        `envconfig:"VENTIA_IDENTITY_TOKEN_SECRET" required:"true"`
	Issuer          string        `envconfig:"VENTIA_IDENTITY_ISSUER"`
	ProfileURL      string        `envconfig:"VENTIA_IDENTITY_PROFILE_URL"`
	ProfileTimeout  time.Duration `envconfig:"VENTIA_IDENTITY_PROFILE_TIMEOUT" default:"4s"`
	SuperadminEmail string        `envconfig:"VENTIA_SUPERADMIN_EMAIL"`
	TrialDays       int           `envconfig:"VENTIA_TRIAL_DAYS" default:"15"`
	TenantCacheTTL  time.Duration `envconfig:"VENTIA_TENANT_CACHE_TTL" default:"1h"`
}

type WompiConfig struct {
	PublicKey      string        `envconfig:"VENTIA_WOMPI_PUBLIC_KEY"`
	PrivateKey     string        `envconfig:"VENTIA_WOMPI_PRIVATE_KEY"`
	EventsSecret   string        `envconfig:"VENTIA_WOMPI_EVENTS_SECRET" required:"true"`
	BaseURL        string        `envconfig:"VENTIA_WOMPI_BASE_URL" default:"https://production.wompi.co"`
	ConfirmTimeout time.Duration `envconfig:"VENTIA_WOMPI_CONFIRM_TIMEOUT" default:"5s"`
}

type MailConfig struct {
	Host     string `envconfig:"VENTIA_SMTP_HOST"`
	Port     int    `envconfig:"VENTIA_SMTP_PORT" default:"587"`
	Username string `envconfig:"VENTIA_SMTP_USERNAME"`
	Password string `envconfig:"VENTIA_SMTP_PASSWORD"`
	From     string `envconfig:"VENTIA_SMTP_FROM"`
}

// Enabled reports whether outbound mail is configured. Email jobs become
// dry-runs when it is not.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.From != ""
}

type JobsConfig struct {
	Concurrency       int `envconfig:"VENTIA_JOBS_CONCURRENCY" default:"4"`
	AbandonedCartMins int `envconfig:"VENTIA_JOBS_ABANDONED_CART_MINUTES" default:"120"`
	ReminderDays      int `envconfig:"VENTIA_JOBS_REMINDER_DAYS" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENTIA_AUTO_MIGRATE" default:"false"`
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

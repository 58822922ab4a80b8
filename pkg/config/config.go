package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable this service reads.
const EnvPrefix = "stockroom"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Inventory    InventoryConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"STOCKROOM_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKROOM_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOCKROOM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKROOM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKROOM_DB_DSN"`
	Driver string `envconfig:"STOCKROOM_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOCKROOM_DB_HOST"`
	Port     int    `envconfig:"STOCKROOM_DB_PORT" default:"5432"`
	User     string `envconfig:"STOCKROOM_DB_USER"`
	Password string `envconfig:"STOCKROOM_DB_PASSWORD"`
	Name     string `envconfig:"STOCKROOM_DB_NAME"`
	SSLMode  string `envconfig:"STOCKROOM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKROOM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKROOM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKROOM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKROOM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKROOM_REDIS_URL"`
	Address      string        `envconfig:"STOCKROOM_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKROOM_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKROOM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKROOM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKROOM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKROOM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKROOM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKROOM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"STOCKROOM_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOCKROOM_JWT_ISSUER" required:"true"`
}

// InventoryConfig carries the stock policy knobs. Per-warehouse overrides
// live on the warehouse row; these are the defaults applied at create time.
type InventoryConfig struct {
	DefaultLowStockThreshold int  `envconfig:"STOCKROOM_DEFAULT_LOW_STOCK_THRESHOLD" default:"10"`
	AllowNegativeDefault     bool `envconfig:"STOCKROOM_ALLOW_NEGATIVE_DEFAULT" default:"false"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"STOCKROOM_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"STOCKROOM_CRON_LOCK_TTL" default:"20m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOCKROOM_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOCKROOM_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOCKROOM_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOCKROOM_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	StockTopic string `envconfig:"STOCKROOM_PUBSUB_STOCK_TOPIC" default:"stockroom-stock-events"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOCKROOM_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOCKROOM_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.Driver == "sqlite" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"STOCKROOM_DB_HOST": db.Host,
		"STOCKROOM_DB_USER": db.User,
		"STOCKROOM_DB_NAME": db.Name,
	}
	for _, key := range []string{"STOCKROOM_DB_HOST", "STOCKROOM_DB_USER", "STOCKROOM_DB_NAME"} {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either STOCKROOM_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

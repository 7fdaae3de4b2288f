package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Storage       StorageConfig
	Redis         RedisConfig
	DB            DBConfig
	API           APIConfig
	Notifications NotificationsConfig
	History       HistoryConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == StorageBackendRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required for the redis storage backend", EnvRedisURL, EnvRedisAddr)
	}
	if cfg.Storage.Backend == StorageBackendSQL {
		if err := cfg.DB.EnsureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"3000"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists the UI origins allowed to call the app shell.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects the durable key-value storage used by the client-side stores.
type StorageConfig struct {
	Backend    string `envconfig:"STOREFRONT_STORAGE_BACKEND" default:"sql"`
	Namespace  string `envconfig:"STOREFRONT_STORAGE_NAMESPACE" default:"storefront"`
	QuotaBytes int    `envconfig:"STOREFRONT_STORAGE_QUOTA_BYTES" default:"5242880"`
	// Secret enables sealing of every stored value when set.
	Secret string `envconfig:"STOREFRONT_STORAGE_SECRET"`
	Salt   string `envconfig:"STOREFRONT_STORAGE_SALT" default:"storefront-local-storage"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StorageBackendMemory, StorageBackendRedis, StorageBackendSQL:
		return nil
	}
	return fmt.Errorf("%s must be one of %s|%s|%s, got %q", EnvStorageBackend, StorageBackendMemory, StorageBackendRedis, StorageBackendSQL, s.Backend)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type DBConfig struct {
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Path   string `envconfig:"STOREFRONT_DB_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

// EnsureDSN derives the sqlite DSN from the path when none is set.
func (db *DBConfig) EnsureDSN() error {
	switch strings.ToLower(db.Driver) {
	case DBDriverSQLite:
		if db.DSN == "" {
			if db.Path == "" {
				return fmt.Errorf("either %s or %s is required for sqlite", EnvDBDSN, EnvDBPath)
			}
			db.DSN = fmt.Sprintf("file:%s?_busy_timeout=5000", db.Path)
		}
		return nil
	case DBDriverPostgres:
		if db.DSN == "" {
			return fmt.Errorf("%s is required for postgres", EnvDBDSN)
		}
		return nil
	}
	return fmt.Errorf("%s must be %s or %s, got %q", EnvDBDriver, DBDriverSQLite, DBDriverPostgres, db.Driver)
}

// APIConfig describes the remote storefront REST API.
type APIConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_API_BASE_URL" default:"http://localhost:8000/api"`
	Timeout time.Duration `envconfig:"STOREFRONT_API_TIMEOUT" default:"10s"`

	BreakerMaxRequests  uint32        `envconfig:"STOREFRONT_API_BREAKER_MAX_REQUESTS" default:"5"`
	BreakerInterval     time.Duration `envconfig:"STOREFRONT_API_BREAKER_INTERVAL" default:"10s"`
	BreakerTimeout      time.Duration `envconfig:"STOREFRONT_API_BREAKER_TIMEOUT" default:"30s"`
	BreakerMinRequests  uint32        `envconfig:"STOREFRONT_API_BREAKER_MIN_REQUESTS" default:"5"`
	BreakerFailureRatio float64       `envconfig:"STOREFRONT_API_BREAKER_FAILURE_RATIO" default:"0.5"`
}

type NotificationsConfig struct {
	PollInterval time.Duration `envconfig:"STOREFRONT_NOTIFICATIONS_POLL_INTERVAL" default:"30s"`
}

type HistoryConfig struct {
	MaxEntries  int `envconfig:"STOREFRONT_HISTORY_MAX_ENTRIES" default:"20"`
	RecentLimit int `envconfig:"STOREFRONT_HISTORY_RECENT_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"true"`
}

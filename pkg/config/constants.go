package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageBackendMemory = "memory"
	StorageBackendRedis  = "redis"
	StorageBackendSQL    = "sql"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"

	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvStorageBackend = "STOREFRONT_STORAGE_BACKEND"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvRedisAddr      = "STOREFRONT_REDIS_ADDR"
	EnvDBDriver       = "STOREFRONT_DB_DRIVER"
	EnvDBDSN          = "STOREFRONT_DB_DSN"
	EnvDBPath         = "STOREFRONT_DB_PATH"
	EnvAPIBaseURL     = "STOREFRONT_API_BASE_URL"
	EnvPollInterval   = "STOREFRONT_NOTIFICATIONS_POLL_INTERVAL"
)

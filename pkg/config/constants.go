package config

// EnvPrefix scopes every environment variable this service reads.
const EnvPrefix = "PERKSPOINT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "PERKSPOINT_APP_ENV"
	EnvPort     = "PERKSPOINT_APP_PORT"
	EnvDBDSN    = "PERKSPOINT_DB_DSN"
	EnvDBHost   = "PERKSPOINT_DB_HOST"
	EnvDBUser   = "PERKSPOINT_DB_USER"
	EnvDBName   = "PERKSPOINT_DB_NAME"
	EnvRedisURL = "PERKSPOINT_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

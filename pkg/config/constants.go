package config

// EnvPrefix scopes every environment variable this service reads.
const EnvPrefix = "PREPJOURNEY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical environment variable names, shared with tests and tooling.
const (
	EnvAppEnv     = "PREPJOURNEY_APP_ENV"
	EnvPort       = "PREPJOURNEY_APP_PORT"
	EnvDBDSN      = "PREPJOURNEY_DB_DSN"
	EnvDBHost     = "PREPJOURNEY_DB_HOST"
	EnvDBUser     = "PREPJOURNEY_DB_USER"
	EnvDBName     = "PREPJOURNEY_DB_NAME"
	EnvRedisURL   = "PREPJOURNEY_REDIS_URL"
	EnvJWTSecret  = "PREPJOURNEY_JWT_SECRET"
	EnvJWTIssuer  = "PREPJOURNEY_JWT_ISSUER"
	EnvJWTExpMins = "PREPJOURNEY_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

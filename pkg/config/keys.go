package config

// EnvPrefix is passed to envconfig; individual fields pin their full names
// via envconfig tags, so the prefix mostly matters for error messages.
const EnvPrefix = "THREADCART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "THREADCART_APP_ENV"
	EnvAppPort   = "THREADCART_APP_PORT"
	EnvDBDSN     = "THREADCART_DB_DSN"
	EnvDBHost    = "THREADCART_DB_HOST"
	EnvDBPort    = "THREADCART_DB_PORT"
	EnvDBUser    = "THREADCART_DB_USER"
	EnvDBPass    = "THREADCART_DB_PASSWORD"
	EnvDBName    = "THREADCART_DB_NAME"
	EnvRedisURL  = "THREADCART_REDIS_URL"
	EnvJWTSecret = "THREADCART_JWT_SECRET"
	EnvJWTIssuer = "THREADCART_JWT_ISSUER"
	EnvJWTExpiry = "THREADCART_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

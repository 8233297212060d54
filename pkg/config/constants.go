package config

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "BAKESHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv = "BAKESHOP_APP_ENV"
	EnvDBDSN  = "BAKESHOP_DB_DSN"
	EnvDBHost = "BAKESHOP_DB_HOST"
	EnvDBUser = "BAKESHOP_DB_USER"
	EnvDBName = "BAKESHOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

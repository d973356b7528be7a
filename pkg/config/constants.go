package config

const (
	EnvPrefix = "GASLINK"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "GASLINK_DB_DSN"
	EnvDBHost = "GASLINK_DB_HOST"
	EnvDBUser = "GASLINK_DB_USER"
	EnvDBName = "GASLINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

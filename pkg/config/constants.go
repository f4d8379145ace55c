package config

const EnvPrefix = "BAZAAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                = "BAZAAR_APP_ENV"
	EnvPort                  = "BAZAAR_APP_PORT"
	EnvDBDSN                 = "BAZAAR_DB_DSN"
	EnvDBDriver              = "BAZAAR_DB_DRIVER"
	EnvDBHost                = "BAZAAR_DB_HOST"
	EnvDBUser                = "BAZAAR_DB_USER"
	EnvDBName                = "BAZAAR_DB_NAME"
	EnvRedisURL              = "BAZAAR_REDIS_URL"
	EnvJWTSecret             = "BAZAAR_JWT_SECRET"
	EnvOrderNumberPrefix     = "BAZAAR_ORDER_NUMBER_PREFIX"
	EnvTaxRate               = "BAZAAR_TAX_RATE"
	EnvMaxQuantityPerProduct = "BAZAAR_MAX_QUANTITY_PER_PRODUCT"
)

var dsnPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

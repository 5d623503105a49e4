package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "BLANES"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "BLANES_APP_ENV"
	EnvPort     = "BLANES_APP_PORT"
	EnvDBDSN    = "BLANES_DB_DSN"
	EnvDBHost   = "BLANES_DB_HOST"
	EnvDBUser   = "BLANES_DB_USER"
	EnvDBName   = "BLANES_DB_NAME"
	EnvRedisURL = "BLANES_REDIS_URL"

	EnvJWTSecret  = "BLANES_JWT_SECRET"
	EnvJWTIssuer  = "BLANES_JWT_ISSUER"
	EnvJWTExpMins = "BLANES_JWT_EXPIRATION_MINUTES"

	EnvGatewayClientID = "BLANES_GATEWAY_CLIENT_ID"
	EnvGatewayStoreKey = "BLANES_GATEWAY_STORE_KEY"
	EnvGatewayOkURL    = "BLANES_GATEWAY_OK_URL"
	EnvGatewayFailURL  = "BLANES_GATEWAY_FAIL_URL"
	EnvGatewayCbURL    = "BLANES_GATEWAY_CALLBACK_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

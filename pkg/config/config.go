package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Booking      BookingConfig
	Cancellation CancellationConfig
	Cron         CronConfig
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
	Env          string `envconfig:"BLANES_APP_ENV" required:"true"`
	Port         string `envconfig:"BLANES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BLANES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLANES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BLANES_DB_DSN"`
	Driver string `envconfig:"BLANES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLANES_DB_HOST"`
	LegacyPort     int    `envconfig:"BLANES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLANES_DB_USER"`
	LegacyPassword string `envconfig:"BLANES_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLANES_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLANES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLANES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLANES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLANES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLANES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLANES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLANES_REDIS_ADDR"`
	Password     string        `envconfig:"BLANES_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLANES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLANES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLANES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLANES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLANES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLANES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BLANES_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BLANES_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BLANES_JWT_EXPIRATION_MINUTES" required:"true"`
}

// GatewayConfig carries the merchant credentials and redirect endpoints for the
// hosted payment page handshake.
type GatewayConfig struct {
	ClientID    string `envconfig:"BLANES_GATEWAY_CLIENT_ID" required:"true"`
	StoreKey    string `envconfig:"BLANES_GATEWAY_STORE_KEY" required:"true"`
	StoreType   string `envconfig:"BLANES_GATEWAY_STORE_TYPE" default:"3D_PAY_HOSTING"`
	TranType    string `envconfig:"BLANES_GATEWAY_TRAN_TYPE" default:"PreAuth"`
	Currency    string `envconfig:"BLANES_GATEWAY_CURRENCY" default:"504"`
	Language    string `envconfig:"BLANES_GATEWAY_LANG" default:"fr"`
	OkURL       string `envconfig:"BLANES_GATEWAY_OK_URL" required:"true"`
	FailURL     string `envconfig:"BLANES_GATEWAY_FAIL_URL" required:"true"`
	CallbackURL string `envconfig:"BLANES_GATEWAY_CALLBACK_URL" required:"true"`
}

// BookingConfig tunes the admission engine.
type BookingConfig struct {
	// PriceRate is the global multiplier applied to every computed total.
	PriceRate       float64       `envconfig:"BLANES_BOOKING_PRICE_RATE" default:"1.0"`
	Timezone        string        `envconfig:"BLANES_BOOKING_TIMEZONE" default:"Africa/Casablanca"`
	CodeMaxAttempts int           `envconfig:"BLANES_BOOKING_CODE_MAX_ATTEMPTS" default:"50"`
	PendingTTL      time.Duration `envconfig:"BLANES_BOOKING_PENDING_TTL" default:"24h"`
}

// CancellationConfig holds the two independent expiry windows for self-service
// cancellation tokens.
type CancellationConfig struct {
	TokenLifetime time.Duration `envconfig:"BLANES_CANCEL_TOKEN_LIFETIME" default:"1h"`
	ReplayWindow  time.Duration `envconfig:"BLANES_CANCEL_REPLAY_WINDOW" default:"15m"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BLANES_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"BLANES_CRON_LOCK_TTL" default:"55m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BLANES_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

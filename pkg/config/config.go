package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Commerce     CommerceConfig
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
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BAZAAR_APP_ENV" required:"true"`
	Port         string   `envconfig:"BAZAAR_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"BAZAAR_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"BAZAAR_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"BAZAAR_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BAZAAR_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAAR_DB_DSN"`
	Driver string `envconfig:"BAZAAR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BAZAAR_DB_HOST"`
	Port     int    `envconfig:"BAZAAR_DB_PORT" default:"5432"`
	User     string `envconfig:"BAZAAR_DB_USER"`
	Password string `envconfig:"BAZAAR_DB_PASSWORD"`
	Name     string `envconfig:"BAZAAR_DB_NAME"`
	SSLMode  string `envconfig:"BAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL            string        `envconfig:"BAZAAR_REDIS_URL"`
	Address        string        `envconfig:"BAZAAR_REDIS_ADDR"`
	Password       string        `envconfig:"BAZAAR_REDIS_PASSWORD"`
	DB             int           `envconfig:"BAZAAR_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"BAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"BAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"BAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"BAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"BAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"BAZAAR_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAAR_JWT_ISSUER" default:"bazaar"`
	ExpirationMinutes int    `envconfig:"BAZAAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BAZAAR_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BAZAAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BAZAAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string        `envconfig:"BAZAAR_PUBSUB_NOTIFICATION_TOPIC" default:"bazaar-order-notifications"`
	PublishTimeout    time.Duration `envconfig:"BAZAAR_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

// CommerceConfig holds the pricing and cart policy. Amounts are minor units.
type CommerceConfig struct {
	OrderNumberPrefix        string `envconfig:"BAZAAR_ORDER_NUMBER_PREFIX" default:"AC"`
	MaxQuantityPerProduct    int    `envconfig:"BAZAAR_MAX_QUANTITY_PER_PRODUCT" default:"10"`
	LowStockThreshold        int    `envconfig:"BAZAAR_LOW_STOCK_THRESHOLD" default:"5"`
	MinimumOrderCents        int64  `envconfig:"BAZAAR_MINIMUM_ORDER_CENTS" default:"100"`
	FreeShippingThreshold    int64  `envconfig:"BAZAAR_FREE_SHIPPING_THRESHOLD_CENTS" default:"5000"`
	FlatShippingCents        int64  `envconfig:"BAZAAR_FLAT_SHIPPING_CENTS" default:"1000"`
	TaxRate                  string `envconfig:"BAZAAR_TAX_RATE" default:"0.08"`
	ReturnWindowDays         int    `envconfig:"BAZAAR_RETURN_WINDOW_DAYS" default:"30"`
	OrderNumberRetryAttempts int    `envconfig:"BAZAAR_ORDER_NUMBER_RETRY_ATTEMPTS" default:"3"`
}

func (c CommerceConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (c CommerceConfig) ReturnWindow() time.Duration {
	return time.Duration(c.ReturnWindowDays) * 24 * time.Hour
}

func (c CommerceConfig) validate() error {
	if len(c.OrderNumberPrefix) != 2 {
		return fmt.Errorf("%s must be exactly 2 characters", EnvOrderNumberPrefix)
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate)); err != nil {
		return fmt.Errorf("%s: %w", EnvTaxRate, err)
	}
	if c.MaxQuantityPerProduct <= 0 {
		return fmt.Errorf("%s must be positive", EnvMaxQuantityPerProduct)
	}
	return nil
}

type CronConfig struct {
	PendingOrderTTL time.Duration `envconfig:"BAZAAR_CRON_PENDING_ORDER_TTL" default:"72h"`
	LockTTL         time.Duration `envconfig:"BAZAAR_CRON_LOCK_TTL" default:"5m"`
	Interval        time.Duration `envconfig:"BAZAAR_CRON_INTERVAL" default:"15m"`
	BatchSize       int           `envconfig:"BAZAAR_CRON_BATCH_SIZE" default:"200"`

	// read notifications older than this are purged
	NotificationRetention time.Duration `envconfig:"BAZAAR_CRON_NOTIFICATION_RETENTION" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAZAAR_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	partValues := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dsnPartEnvVars {
		if partValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

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
	PayMongo     PayMongoConfig
	Checkout     CheckoutConfig
	Reaper       ReaperConfig
	Kafka        KafkaConfig
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
	Env          string `envconfig:"BAKESHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"BAKESHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAKESHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAKESHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BAKESHOP_DB_DSN"`
	Driver string `envconfig:"BAKESHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAKESHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"BAKESHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAKESHOP_DB_USER"`
	LegacyPassword string `envconfig:"BAKESHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAKESHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAKESHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAKESHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAKESHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAKESHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAKESHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAKESHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAKESHOP_REDIS_ADDR"`
	Password     string        `envconfig:"BAKESHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAKESHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAKESHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAKESHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAKESHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAKESHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAKESHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAKESHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAKESHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAKESHOP_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PayMongoConfig struct {
	SecretKey          string        `envconfig:"BAKESHOP_PAYMONGO_SECRET_KEY"`
	WebhookSecret      string        `envconfig:"BAKESHOP_PAYMONGO_WEBHOOK_SECRET"`
	BaseURL            string        `envconfig:"BAKESHOP_PAYMONGO_BASE_URL"`
	SuccessRedirectURL string        `envconfig:"BAKESHOP_PAYMONGO_SUCCESS_URL" default:"https://shop.delacruzbakes.ph/checkout/success"`
	FailedRedirectURL  string        `envconfig:"BAKESHOP_PAYMONGO_FAILED_URL" default:"https://shop.delacruzbakes.ph/checkout/failed"`
	RequestTimeout     time.Duration `envconfig:"BAKESHOP_PAYMONGO_REQUEST_TIMEOUT" default:"10s"`
	VerifyAttempts     int           `envconfig:"BAKESHOP_PAYMONGO_VERIFY_ATTEMPTS" default:"3"`
	VerifyBackoff      time.Duration `envconfig:"BAKESHOP_PAYMONGO_VERIFY_BACKOFF" default:"2s"`
}

type CheckoutConfig struct {
	TokenTTL time.Duration `envconfig:"BAKESHOP_CHECKOUT_TOKEN_TTL" default:"35m"`
}

type ReaperConfig struct {
	Interval           time.Duration `envconfig:"BAKESHOP_REAPER_INTERVAL" default:"1m"`
	AbandonmentTimeout time.Duration `envconfig:"BAKESHOP_REAPER_ABANDONMENT_TIMEOUT" default:"30m"`
	LockTTL            time.Duration `envconfig:"BAKESHOP_REAPER_LOCK_TTL" default:"5m"`
	MetricsPort        string        `envconfig:"BAKESHOP_REAPER_METRICS_PORT" default:"9090"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"BAKESHOP_KAFKA_BROKERS"`
	EventsTopic  string        `envconfig:"BAKESHOP_KAFKA_EVENTS_TOPIC" default:"bakeshop-order-events"`
	WriteTimeout time.Duration `envconfig:"BAKESHOP_KAFKA_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAKESHOP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAKESHOP_AUTO_MIGRATE" default:"false"`
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

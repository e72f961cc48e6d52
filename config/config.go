// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Port      string `env:"PORT,default=8080"`
	Env       string `env:"ENV,default=development"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	DBDriver     string `env:"DB_DRIVER,default=sqlite3"`
	DatabasePath string `env:"DATABASE_PATH,default=./data/loanmanager.db"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DBHost       string `env:"DB_HOST,default=localhost"`
	DBPort       string `env:"DB_PORT,default=5432"`
	DBUser       string `env:"DB_USER,default=postgres"`
	DBPassword   string `env:"DB_PASSWORD"`
	DBName       string `env:"DB_NAME,default=loanmanager"`
	DBSSLMode    string `env:"DB_SSLMODE,default=disable"`
	MongoURI     string `env:"MONGODB_URI,default=mongodb://localhost:27017"`
	MongoDB      string `env:"MONGODB_DB,default=loanmanager"`

	PrivateKey    string `env:"PRIVATE_KEY"`
	OTPPepper     string `env:"OTP_PEPPER"`
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`
	MailFromName string `env:"MAIL_FROM_NAME,default=Loan Manager"`
	ClientURL    string `env:"CLIENT_URL,default=http://localhost:3000"`

	FirebaseProjectID         string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON   string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseCredentialsBase64 string `env:"FIREBASE_SERVICE_ACCOUNT_BASE64"`
	FirebaseCredentialsRaw    string `env:"FIREBASE_SERVICE_ACCOUNT"`
	FCMIconURL                string `env:"FCM_ICON_URL"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
	AdminEmail         string `env:"ADMIN_EMAIL"`
	AuthRateLimit      int    `env:"AUTH_RATE_LIMIT,default=10"`
	AuthRateBurst      int    `env:"AUTH_RATE_BURST,default=5"`
}

// Load reads .env when present and decodes the environment.
func Load(log logrus.FieldLogger) (*Config, error) {
	switch err := godotenv.Load(); {
	case err == nil:
		log.Info("Loaded environment from .env")
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every deployment needs.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.PrivateKey == "" {
		return errors.New("PRIVATE_KEY must be set")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// SealKey is the push-token encryption key, falling back to the signing key.
func (c *Config) SealKey() string {
	if c.EncryptionKey != "" {
		return c.EncryptionKey
	}
	return c.PrivateKey
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

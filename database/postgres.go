package database

import (
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresConfig holds database connection parameters. URL, when set, takes
// precedence over the individual fields.
type PostgresConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnectionString builds a PostgreSQL connection URL.
func (cfg PostgresConfig) ConnectionString() string {
	if cfg.URL != "" {
		return cfg.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.DBName,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// OpenPostgres connects to PostgreSQL and verifies the connection.
func OpenPostgres(cfg PostgresConfig, log logrus.FieldLogger) (*sqlx.DB, error) {
	connectionString := cfg.ConnectionString()
	log.WithField("dsn", MaskPassword(connectionString)).Info("Connecting to PostgreSQL")

	db, err := sqlx.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	log.Info("Successfully connected to PostgreSQL")
	return db, nil
}

// MaskPassword hides the password of a URL-style connection string.
// Strings that do not parse as URLs are masked entirely.
func MaskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	return u.Redacted()
}

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"loanmanager/config"
	"loanmanager/database"
	"loanmanager/migrations"
)

func main() {
	list := flag.Bool("list", false, "List applied migrations after running")
	flag.Parse()

	log := logrus.New()
	cfg, err := config.Load(log)
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log = cfg.NewLogger()

	var db *sqlx.DB
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err = database.OpenPostgres(database.PostgresConfig{
			URL:      cfg.DatabaseURL,
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}, log)
	case config.DriverSQLite:
		db, err = database.OpenSQLite(cfg.DatabasePath)
	default:
		log.WithField("driver", cfg.DBDriver).Fatal("Migrations only apply to SQL stores")
	}
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	if err := migrations.RunMigrations(db, log); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	if cfg.AdminEmail != "" {
		if _, err := migrations.SeedAdmin(context.Background(), db, cfg.AdminEmail); err != nil {
			log.WithError(err).Fatal("Failed to seed admin")
		}
	}

	if *list {
		names, err := migrations.Applied(db)
		if err != nil {
			log.WithError(err).Fatal("Failed to list migrations")
		}
		for _, name := range names {
			fmt.Println(name)
		}
	}

	fmt.Println("Migrations completed successfully!")
}

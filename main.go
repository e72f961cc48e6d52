package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"loanmanager/api"
	"loanmanager/config"
	"loanmanager/database"
	"loanmanager/metrics"
	"loanmanager/middleware"
	"loanmanager/migrations"
	"loanmanager/notifications"
	"loanmanager/scheduler"
	"loanmanager/security"
	"loanmanager/services"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "Prepare the database and exit")
	flag.Parse()

	boot := logrus.New()
	cfg, err := config.Load(boot)
	if err != nil {
		boot.WithError(err).Fatal("Invalid configuration")
	}
	log := cfg.NewLogger()
	log.WithFields(logrus.Fields{"env": cfg.Env, "driver": cfg.DBDriver}).Info("Starting loan manager")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	if *migrateOnly {
		log.Info("Database prepared. Exiting.")
		return
	}

	if err := run(ctx, cfg, store, log); err != nil {
		log.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, store database.Store, log *logrus.Logger) error {
	m := metrics.New()

	tokens, err := security.NewTokenIssuer(cfg.PrivateKey)
	if err != nil {
		return err
	}
	sealer, err := security.NewCipher(cfg.SealKey())
	if err != nil {
		return err
	}

	deps := services.Deps{
		Store:    store,
		OTP:      security.NewOTP(cfg.OTPPepper),
		Tokens:   tokens,
		Notifier: notifications.NewDispatcher(newMailer(cfg, log), newPusher(ctx, cfg, log), cfg.ClientURL, m, log),
		Sealer:   sealer,
		Metrics:  m,
		Log:      log,
		Now:      time.Now,
	}
	admins := services.NewAdminService(deps)
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, log)

	server := api.NewServer(api.Options{
		Auth:           services.NewAuthService(deps),
		Admins:         admins,
		Loans:          services.NewLoanService(deps, admins),
		Metrics:        m,
		Limiter:        limiter,
		AllowedOrigins: cfg.AllowedOrigins(),
		Development:    cfg.IsDevelopment(),
		Log:            log,
	})

	sched := scheduler.New(log)
	if err := sched.Add("@every 1m", "refresh_pending", scheduler.RefreshPending(store, m)); err != nil {
		return err
	}
	if err := sched.Add("@every 10m", "sweep_rate_limiter", scheduler.SweepIdle(limiter, 30*time.Minute, log)); err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{
		Handler:      server.Handler(),
		Addr:         ":" + cfg.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the configured backend, brings its schema up to date
// and seeds the bootstrap admin.
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (database.Store, error) {
	if cfg.DBDriver == config.DriverMongo {
		store, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			store.Close(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		if cfg.AdminEmail != "" {
			if err := store.SeedAdmin(ctx, cfg.AdminEmail); err != nil {
				log.WithError(err).Warn("Failed to seed admin")
			}
		}
		return store, nil
	}

	var (
		db  *sqlx.DB
		err error
	)
	if cfg.DBDriver == config.DriverPostgres {
		db, err = database.OpenPostgres(database.PostgresConfig{
			URL:      cfg.DatabaseURL,
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}, log)
	} else {
		if cfg.DatabasePath != database.MemoryPath {
			if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		db, err = database.OpenSQLite(cfg.DatabasePath)
	}
	if err != nil {
		return nil, err
	}

	if err := migrations.RunMigrations(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if cfg.AdminEmail != "" {
		seeded, err := migrations.SeedAdmin(ctx, db, cfg.AdminEmail)
		if err != nil {
			log.WithError(err).Warn("Failed to seed admin")
		} else if seeded {
			log.WithField("admin", cfg.AdminEmail).Info("Seeded bootstrap admin")
		}
	}
	return database.NewSQLStore(db, log), nil
}

func newMailer(cfg *config.Config, log logrus.FieldLogger) notifications.Mailer {
	if cfg.SMTPHost == "" {
		log.Warn("SMTP_HOST not set, mail will be logged instead of sent")
		return notifications.LogMailer{Log: log}
	}
	return notifications.NewSMTPMailer(notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	})
}

func newPusher(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) notifications.Pusher {
	fc := notifications.FirebaseConfig{
		ProjectID:         cfg.FirebaseProjectID,
		CredentialsJSON:   cfg.FirebaseCredentialsJSON,
		CredentialsBase64: cfg.FirebaseCredentialsBase64,
		CredentialsRaw:    cfg.FirebaseCredentialsRaw,
		IconURL:           cfg.FCMIconURL,
		ClickURL:          cfg.ClientURL,
	}
	if !fc.Configured() {
		log.Warn("Firebase credentials not set, push notifications will be logged instead of sent")
		return notifications.LogPusher{Log: log}
	}

	pusher, err := notifications.NewFCMPusher(ctx, fc, log)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize Firebase, push notifications will be logged instead of sent")
		return notifications.LogPusher{Log: log}
	}
	return pusher
}

package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type migration struct {
	name string
	fn   func(*sqlx.DB) error
}

// all lists every migration in the order it must be applied. Append only.
var all = []migration{
	{"create_users_table", CreateUsersTable},
	{"create_loans_table", CreateLoansTable},
	{"create_user_loans_table", CreateUserLoansTable},
	{"create_admins_table", CreateAdminsTable},
	{"add_loan_indexes", AddLoanIndexes},
	{"unique_user_loan_positions", UniqueUserLoanPositions},
}

// RunMigrations executes all migrations in the correct order. Each migration
// runs once and is recorded by name in the migrations table.
func RunMigrations(db *sqlx.DB, log logrus.FieldLogger) error {
	log.Info("Running migrations...")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range all {
		var count int
		err := db.Get(&count, db.Rebind("SELECT COUNT(*) FROM migrations WHERE name = ?"), m.name)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}

		if count > 0 {
			log.WithField("migration", m.name).Debug("Skipping already applied migration")
			continue
		}

		log.WithField("migration", m.name).Info("Applying migration")
		if err := m.fn(db); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}

		if _, err := db.Exec(db.Rebind("INSERT INTO migrations (name) VALUES (?)"), m.name); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
	}

	log.Info("All migrations completed successfully")
	return nil
}

// Applied returns the names of the migrations recorded in db.
func Applied(db *sqlx.DB) ([]string, error) {
	var names []string
	err := db.Select(&names, "SELECT name FROM migrations ORDER BY applied_at, name")
	return names, err
}

func execAll(db *sqlx.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

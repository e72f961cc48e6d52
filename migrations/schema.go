package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The DDL below is shared by SQLite and PostgreSQL, so it sticks to TEXT,
// BOOLEAN and TIMESTAMP columns.

func CreateUsersTable(db *sqlx.DB) error {
	err := execAll(db, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			push_token TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func CreateLoansTable(db *sqlx.DB) error {
	err := execAll(db, `
		CREATE TABLE IF NOT EXISTS loans (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			applicant_name TEXT NOT NULL,
			address TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT NOT NULL,
			amount TEXT NOT NULL,
			installment TEXT NOT NULL,
			fixed BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT 'pending',
			admin_comment TEXT,
			submitted_at TIMESTAMP NOT NULL,
			creator_id TEXT NOT NULL REFERENCES users(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create loans table: %w", err)
	}
	return nil
}

// CreateUserLoansTable stores each user's loan references in submission
// order. Rows go away with either side.
func CreateUserLoansTable(db *sqlx.DB) error {
	err := execAll(db, `
		CREATE TABLE IF NOT EXISTS user_loans (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			loan_id TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			PRIMARY KEY (user_id, loan_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create user_loans table: %w", err)
	}
	return nil
}

func CreateAdminsTable(db *sqlx.DB) error {
	err := execAll(db, `
		CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create admins table: %w", err)
	}
	return nil
}

func AddLoanIndexes(db *sqlx.DB) error {
	err := execAll(db,
		`CREATE INDEX IF NOT EXISTS idx_loans_creator ON loans (creator_id, submitted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans (status, submitted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_user_loans_position ON user_loans (user_id, position)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan indexes: %w", err)
	}
	return nil
}

// UniqueUserLoanPositions replaces the plain position index so two loans of
// one user can never share a position. Concurrent appends that compute the
// same next position fail instead of leaving the order ambiguous.
func UniqueUserLoanPositions(db *sqlx.DB) error {
	err := execAll(db,
		`DROP INDEX IF EXISTS idx_user_loans_position`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_user_loans_position ON user_loans (user_id, position)`,
	)
	if err != nil {
		return fmt.Errorf("failed to make user loan positions unique: %w", err)
	}
	return nil
}

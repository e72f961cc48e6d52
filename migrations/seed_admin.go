package migrations

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SeedAdmin puts email on the admin allow-list unless it is already there.
// It is how the first admin gets in; later admins are added over the API.
func SeedAdmin(ctx context.Context, db *sqlx.DB, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}

	var count int
	if err := db.GetContext(ctx, &count, db.Rebind("SELECT COUNT(*) FROM admins WHERE email = ?"), email); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	_, err := db.ExecContext(ctx, db.Rebind("INSERT INTO admins (id, email, created_at) VALUES (?, ?, ?)"),
		uuid.NewString(), email, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return true, nil
}

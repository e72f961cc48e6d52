package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"loanmanager/models"
)

// SQLStore implements Store on a relational database (SQLite or PostgreSQL).
// Queries are written with ? placeholders and rebound for the driver.
type SQLStore struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

func NewSQLStore(db *sqlx.DB, log logrus.FieldLogger) *SQLStore {
	return &SQLStore{db: db, log: log}
}

// DB exposes the connection pool for migrations.
func (s *SQLStore) DB() *sqlx.DB { return s.db }

func (s *SQLStore) Repos() Repos { return newSQLRepos(s.db) }

// WithinTx runs fn inside a database transaction. The transaction is rolled
// back when fn returns an error or panics.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newSQLRepos(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) Close(ctx context.Context) error { return s.db.Close() }

func newSQLRepos(ext sqlx.ExtContext) Repos {
	return Repos{
		Users:  &sqlUsers{ext: ext},
		Loans:  &sqlLoans{ext: ext},
		Admins: &sqlAdmins{ext: ext},
	}
}

// isUniqueViolation recognises unique constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// expectAffected maps an update or delete that touched no rows to ErrNotFound.
func expectAffected(res sql.Result, err error) error {
	if err != nil {
		return translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- users ---

type sqlUsers struct{ ext sqlx.ExtContext }

type userRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Email     string         `db:"email"`
	PushToken sql.NullString `db:"push_token"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r *sqlUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Loans == nil {
		u.Loans = []string{}
	}
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`INSERT INTO users (id, name, email, push_token, created_at) VALUES (?, ?, ?, ?, ?)`),
		u.ID, u.Name, u.Email, nullString(u.PushToken), u.CreatedAt)
	return translateError(err)
}

func (r *sqlUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *sqlUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *sqlUsers) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var row userRow
	query := fmt.Sprintf(`SELECT id, name, email, push_token, created_at FROM users WHERE %s = ?`, column)
	err := sqlx.GetContext(ctx, r.ext, &row, r.ext.Rebind(query), value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	loans := []string{}
	err = sqlx.SelectContext(ctx, r.ext, &loans, r.ext.Rebind(
		`SELECT loan_id FROM user_loans WHERE user_id = ? ORDER BY position`), row.ID)
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Loans:     loans,
		PushToken: row.PushToken.String,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *sqlUsers) SetPushToken(ctx context.Context, id, token string) error {
	return expectAffected(r.ext.ExecContext(ctx, r.ext.Rebind(
		`UPDATE users SET push_token = ? WHERE id = ?`), nullString(token), id))
}

func (r *sqlUsers) AppendLoan(ctx context.Context, userID, loanID string) error {
	var count int
	err := sqlx.GetContext(ctx, r.ext, &count, r.ext.Rebind(`SELECT COUNT(*) FROM users WHERE id = ?`), userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}

	_, err = r.ext.ExecContext(ctx, r.ext.Rebind(`
		INSERT INTO user_loans (user_id, loan_id, position)
		SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM user_loans WHERE user_id = ?`),
		userID, loanID, userID)
	return translateError(err)
}

func (r *sqlUsers) RemoveLoan(ctx context.Context, userID, loanID string) error {
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`DELETE FROM user_loans WHERE user_id = ? AND loan_id = ?`), userID, loanID)
	return err
}

// --- loans ---

type sqlLoans struct{ ext sqlx.ExtContext }

const loanColumns = `id, title, applicant_name, address, phone, email, amount, installment,
	fixed, status, admin_comment, submitted_at, creator_id`

type loanRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	ApplicantName string         `db:"applicant_name"`
	Address       string         `db:"address"`
	Phone         string         `db:"phone"`
	Email         string         `db:"email"`
	Amount        string         `db:"amount"`
	Installment   string         `db:"installment"`
	Fixed         bool           `db:"fixed"`
	Status        string         `db:"status"`
	AdminComment  sql.NullString `db:"admin_comment"`
	SubmittedAt   time.Time      `db:"submitted_at"`
	CreatorID     string         `db:"creator_id"`
}

func (row loanRow) toModel() models.LoanApplication {
	return models.LoanApplication{
		ID: row.ID,
		LoanFields: models.LoanFields{
			Title:         row.Title,
			ApplicantName: row.ApplicantName,
			Address:       row.Address,
			Phone:         row.Phone,
			Email:         row.Email,
			Amount:        row.Amount,
			Installment:   row.Installment,
			Fixed:         row.Fixed,
		},
		Status:       models.LoanStatus(row.Status),
		AdminComment: row.AdminComment.String,
		Timestamp:    row.SubmittedAt,
		CreatorID:    row.CreatorID,
	}
}

func (r *sqlLoans) Create(ctx context.Context, l *models.LoanApplication) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = models.LoanPending
	}
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
		INSERT INTO loans (`+loanColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		l.ID, l.Title, l.ApplicantName, l.Address, l.Phone, l.Email, l.Amount, l.Installment,
		l.Fixed, string(l.Status), nullString(l.AdminComment), l.Timestamp, l.CreatorID)
	return translateError(err)
}

func (r *sqlLoans) GetByID(ctx context.Context, id string) (*models.LoanApplication, error) {
	var row loanRow
	err := sqlx.GetContext(ctx, r.ext, &row, r.ext.Rebind(`SELECT `+loanColumns+` FROM loans WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	loan := row.toModel()
	return &loan, nil
}

func (r *sqlLoans) Update(ctx context.Context, l *models.LoanApplication) error {
	return expectAffected(r.ext.ExecContext(ctx, r.ext.Rebind(`
		UPDATE loans SET title = ?, applicant_name = ?, address = ?, phone = ?, email = ?,
			amount = ?, installment = ?, fixed = ?, status = ?, admin_comment = ?
		WHERE id = ?`),
		l.Title, l.ApplicantName, l.Address, l.Phone, l.Email, l.Amount, l.Installment,
		l.Fixed, string(l.Status), nullString(l.AdminComment), l.ID))
}

func (r *sqlLoans) SetDecision(ctx context.Context, id string, status models.LoanStatus, comment string) (*models.LoanApplication, error) {
	err := expectAffected(r.ext.ExecContext(ctx, r.ext.Rebind(
		`UPDATE loans SET status = ?, admin_comment = ? WHERE id = ?`),
		string(status), nullString(comment), id))
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *sqlLoans) Delete(ctx context.Context, id string) error {
	return expectAffected(r.ext.ExecContext(ctx, r.ext.Rebind(`DELETE FROM loans WHERE id = ?`), id))
}

func (r *sqlLoans) ListByCreator(ctx context.Context, creatorID string) ([]models.LoanApplication, error) {
	return r.list(ctx, "creator_id", creatorID)
}

func (r *sqlLoans) ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.LoanApplication, error) {
	return r.list(ctx, "status", string(status))
}

func (r *sqlLoans) list(ctx context.Context, column, value string) ([]models.LoanApplication, error) {
	var rows []loanRow
	query := fmt.Sprintf(`SELECT %s FROM loans WHERE %s = ? ORDER BY submitted_at DESC`, loanColumns, column)
	if err := sqlx.SelectContext(ctx, r.ext, &rows, r.ext.Rebind(query), value); err != nil {
		return nil, err
	}

	loans := make([]models.LoanApplication, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toModel())
	}
	return loans, nil
}

func (r *sqlLoans) CountByStatus(ctx context.Context, status models.LoanStatus) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, r.ext, &n, r.ext.Rebind(`SELECT COUNT(*) FROM loans WHERE status = ?`), string(status))
	return n, err
}

// --- admins ---

type sqlAdmins struct{ ext sqlx.ExtContext }

type adminRow struct {
	ID    string `db:"id"`
	Email string `db:"email"`
}

func (r *sqlAdmins) List(ctx context.Context) ([]models.Admin, error) {
	var rows []adminRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, `SELECT id, email FROM admins ORDER BY created_at`); err != nil {
		return nil, err
	}
	admins := make([]models.Admin, 0, len(rows))
	for _, row := range rows {
		admins = append(admins, models.Admin{ID: row.ID, Email: row.Email})
	}
	return admins, nil
}

func (r *sqlAdmins) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var row adminRow
	err := sqlx.GetContext(ctx, r.ext, &row, r.ext.Rebind(`SELECT id, email FROM admins WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.Admin{ID: row.ID, Email: row.Email}, nil
}

func (r *sqlAdmins) Create(ctx context.Context, a *models.Admin) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`INSERT INTO admins (id, email, created_at) VALUES (?, ?, ?)`), a.ID, a.Email, time.Now().UTC())
	return translateError(err)
}

func (r *sqlAdmins) Delete(ctx context.Context, id string) error {
	return expectAffected(r.ext.ExecContext(ctx, r.ext.Rebind(`DELETE FROM admins WHERE id = ?`), id))
}

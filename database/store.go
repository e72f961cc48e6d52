package database

import (
	"context"
	"errors"

	"loanmanager/models"
)

var (
	// ErrNotFound is returned by reads, updates and deletes that match no record.
	ErrNotFound = errors.New("database: record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("database: duplicate record")
)

// UserRepository persists users and their ordered list of loan references.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetPushToken(ctx context.Context, id, token string) error
	AppendLoan(ctx context.Context, userID, loanID string) error
	RemoveLoan(ctx context.Context, userID, loanID string) error
}

// LoanRepository persists loan applications.
type LoanRepository interface {
	Create(ctx context.Context, l *models.LoanApplication) error
	GetByID(ctx context.Context, id string) (*models.LoanApplication, error)
	// Update overwrites the applicant fields, status and comment of l.ID.
	Update(ctx context.Context, l *models.LoanApplication) error
	// SetDecision stores a review outcome and returns the updated application.
	SetDecision(ctx context.Context, id string, status models.LoanStatus, comment string) (*models.LoanApplication, error)
	Delete(ctx context.Context, id string) error
	// ListByCreator and ListByStatus return newest first.
	ListByCreator(ctx context.Context, creatorID string) ([]models.LoanApplication, error)
	ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.LoanApplication, error)
	CountByStatus(ctx context.Context, status models.LoanStatus) (int64, error)
}

// AdminRepository persists the admin allow-list.
type AdminRepository interface {
	List(ctx context.Context) ([]models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	Create(ctx context.Context, a *models.Admin) error
	Delete(ctx context.Context, id string) error
}

// Repos groups the repositories bound to one connection or transaction.
type Repos struct {
	Users  UserRepository
	Loans  LoanRepository
	Admins AdminRepository
}

// Store is the persistence backend. Work passed to WithinTx commits as a
// unit; fn must use the ctx and Repos it is given.
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	Close(ctx context.Context) error
}

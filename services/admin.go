package services

import (
	"context"
	"errors"

	"loanmanager/apperrors"
	"loanmanager/database"
	"loanmanager/models"
)

// AdminService manages the admin allow-list. Membership is looked up by the
// caller's email; every operation other than IsAdmin is itself admin-only.
type AdminService struct {
	Deps
}

func NewAdminService(d Deps) *AdminService {
	return &AdminService{Deps: d}
}

// IsAdmin reports whether userID resolves to a user whose email is on the
// allow-list. An unknown user is not an admin.
func (s *AdminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	repos := s.Store.Repos()

	u, err := repos.Users.GetByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Persistence(MsgTryAgain, err)
	}

	_, err = repos.Admins.GetByEmail(ctx, normalizeEmail(u.Email))
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Persistence(MsgTryAgain, err)
	}
	return true, nil
}

func (s *AdminService) requireAdmin(ctx context.Context, userID string) error {
	ok, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Auth(MsgPermissionDenied)
	}
	return nil
}

// Check fails with an auth error unless userID is an admin.
func (s *AdminService) Check(ctx context.Context, userID string) error {
	return s.requireAdmin(ctx, userID)
}

func (s *AdminService) List(ctx context.Context, userID string) ([]models.Admin, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	admins, err := s.Store.Repos().Admins.List(ctx)
	if err != nil {
		return nil, apperrors.Persistence(MsgTryAgain, err)
	}
	return admins, nil
}

func (s *AdminService) Add(ctx context.Context, userID, email string) (*models.Admin, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, apperrors.Validation(MsgEmailInvalid)
	}
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}

	a := &models.Admin{Email: email}
	err := s.Store.Repos().Admins.Create(ctx, a)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, apperrors.Validation(MsgAdminExists)
	}
	if err != nil {
		return nil, apperrors.Persistence(MsgTryAgain, err)
	}

	s.logger().WithField("admin", email).Info("Added admin")
	return a, nil
}

// Remove deletes an allow-list entry by id. Removing an unknown id succeeds.
func (s *AdminService) Remove(ctx context.Context, userID, adminID string) error {
	if adminID == "" {
		return apperrors.Validation(MsgEmailInvalid)
	}
	if err := s.requireAdmin(ctx, userID); err != nil {
		return err
	}

	err := s.Store.Repos().Admins.Delete(ctx, adminID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return apperrors.Persistence(MsgTryAgain, err)
	}
	return nil
}

// Emails returns the allow-listed addresses for notification. Failures are
// logged and yield an empty list.
func (s *AdminService) Emails(ctx context.Context) []string {
	admins, err := s.Store.Repos().Admins.List(ctx)
	if err != nil {
		s.logger().WithError(err).Warn("Cannot fetch admin list for mail")
		return nil
	}

	emails := make([]string, 0, len(admins))
	for _, a := range admins {
		emails = append(emails, a.Email)
	}
	return emails
}

package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"loanmanager/apperrors"
	"loanmanager/database"
	"loanmanager/models"
	"loanmanager/security"
)

// AuthService runs the passwordless login flow and resolves session tokens.
type AuthService struct {
	Deps
}

func NewAuthService(d Deps) *AuthService {
	return &AuthService{Deps: d}
}

// LoginResult is returned by a successful VerifyLogin.
type LoginResult struct {
	User  models.PublicUser
	Token string
}

// RequestLogin creates the user on first contact and mails a login code.
// A user created here is kept even if the mail cannot be sent.
func (s *AuthService) RequestLogin(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return apperrors.Validation(MsgInvalidEmail)
	}
	s.Metrics.OTPRequested()

	users := s.Store.Repos().Users
	_, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		u := &models.User{Name: models.NameFromEmail(email), Email: email, CreatedAt: s.now()}
		if err := users.Create(ctx, u); err != nil && !errors.Is(err, database.ErrDuplicate) {
			return apperrors.Persistence(MsgCreateUser, err)
		}
		s.logger().WithField("user_id", u.ID).Info("Created user on first login")
	case err != nil:
		return apperrors.Persistence(MsgLookupUser, err)
	}

	code, err := s.OTP.Generate(email)
	if err != nil {
		return apperrors.Internal(MsgSendFailed, err)
	}
	if err := s.Notifier.SendLoginCode(ctx, email, code); err != nil {
		return apperrors.Dispatch(MsgSendFailed, err)
	}
	return nil
}

// VerifyLogin checks code for email and issues a session token.
func (s *AuthService) VerifyLogin(ctx context.Context, email, code string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if !validEmail(email) || code == "" {
		return nil, apperrors.Validation(MsgInvalidLogin)
	}

	ok := s.OTP.Validate(email, code)
	s.Metrics.OTPVerified(ok)
	if !ok {
		return nil, apperrors.Auth(MsgWrongOTP)
	}

	u, err := s.Store.Repos().Users.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(MsgUserNotFound).WithStatus(http.StatusForbidden)
	}
	if err != nil {
		return nil, apperrors.Persistence(MsgLookupUser, err)
	}

	token, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, apperrors.Internal(MsgSigningFailed, err)
	}
	return &LoginResult{User: u.Public(), Token: token}, nil
}

// Authenticate resolves a bearer token to its claims.
func (s *AuthService) Authenticate(token string) (*security.Claims, error) {
	if token == "" {
		return nil, apperrors.Auth(MsgAuthFailed).WithStatus(http.StatusForbidden)
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		s.logger().WithError(err).Debug("Rejected session token")
		return nil, apperrors.New(apperrors.KindAuth, MsgAuthFailed, err).WithStatus(http.StatusForbidden)
	}
	return claims, nil
}

// SavePushToken stores the caller's device token, encrypted.
func (s *AuthService) SavePushToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return apperrors.Validation(MsgPushTokenMissing)
	}

	sealed, err := s.Sealer.Encrypt(token)
	if err != nil {
		return apperrors.Internal(MsgPushTokenSave, err).WithStatus(http.StatusUnprocessableEntity)
	}
	if err := s.Store.Repos().Users.SetPushToken(ctx, userID, sealed); err != nil {
		return apperrors.Persistence(MsgPushTokenSave, err).WithStatus(http.StatusUnprocessableEntity)
	}

	s.logger().WithFields(logrus.Fields{"user_id": userID}).Info("Saved push token")
	return nil
}

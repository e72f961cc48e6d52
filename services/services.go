// Package services holds the loan workflow: passwordless login, the admin
// allow-list and the loan application lifecycle.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"loanmanager/database"
	"loanmanager/metrics"
	"loanmanager/security"
)

// Client-facing messages.
const (
	MsgInvalidEmail     = "Invalid or no email passed"
	MsgInvalidLogin     = "Invalid input passed"
	MsgWrongOTP         = "You have entered wrong OTP"
	MsgCreateUser       = "Something went wrong , please try again later"
	MsgLookupUser       = "Cannot log you in, please try again later"
	MsgSendFailed       = "Something went wrong, please try again later"
	MsgUserNotFound     = "Cannot find user associated with this email"
	MsgSigningFailed    = "Signing up failed, please try again later."
	MsgAuthFailed       = "Authentication failed"
	MsgPushTokenMissing = "FCM Token not found"
	MsgPushTokenSave    = "Cannot save FCM Token"
	MsgPermissionDenied = "Permission denied! You cannot access this service"
	MsgEmailInvalid     = "Email invalid"
	MsgAdminExists      = "Email already in the admin group"
	MsgTryAgain         = "Something went wrong. Please try again"
	MsgInvalidInputs    = "Invalid inputs passed, please check your data."
	MsgSubmitFailed     = "Something went wrong. Cannot submit your loan application"
	MsgLoanNotFound     = "Could not find any loan application for this id"
	MsgUpdateFailed     = "Cannot update loan application"
	MsgFetchFailed      = "Cannot fetch data"
	MsgNotOwner         = "You do not have the access to delete this Loan application"
	MsgDeleteFailed     = "Something went wrong, could not delete Loan application."
	MsgPendingFailed    = "Something went wrong, could not fetch Loan applications"
	MsgDecisionFailed   = "Something went wrong, could not approve loan applications"
)

// CodeGenerator issues and checks login codes.
type CodeGenerator interface {
	Generate(email string) (string, error)
	Validate(email, code string) bool
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(id, email string) (string, error)
	Parse(token string) (*security.Claims, error)
}

// Notifier delivers workflow notifications.
type Notifier interface {
	SendLoginCode(ctx context.Context, email, code string) error
	NotifyAdmins(ctx context.Context, emails []string) error
	NotifyDecision(ctx context.Context, token string, approved bool) error
}

// Sealer protects push tokens at rest.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encrypted string) (string, error)
}

// Deps are the collaborators shared by the services.
type Deps struct {
	Store    database.Store
	OTP      CodeGenerator
	Tokens   TokenIssuer
	Notifier Notifier
	Sealer   Sealer
	Metrics  *metrics.Metrics
	Log      logrus.FieldLogger
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) logger() logrus.FieldLogger {
	if d.Log != nil {
		return d.Log
	}
	return logrus.StandardLogger()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

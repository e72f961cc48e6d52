package services

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/sirupsen/logrus"

	"loanmanager/apperrors"
	"loanmanager/database"
	"loanmanager/models"
)

// LoanInput carries the applicant-supplied fields of a submission.
type LoanInput struct {
	Title         string `json:"title" validate:"required"`
	ApplicantName string `json:"applicantName" validate:"required"`
	Address       string `json:"address" validate:"required"`
	Phone         string `json:"phone" validate:"required,mobile"`
	Email         string `json:"email" validate:"required,email"`
	Amount        string `json:"amount" validate:"required"`
	Installment   string `json:"installment" validate:"required"`
	Fixed         *bool  `json:"fixed" validate:"required"`
}

func (in LoanInput) fields() models.LoanFields {
	return models.LoanFields{
		Title:         in.Title,
		ApplicantName: in.ApplicantName,
		Address:       in.Address,
		Phone:         in.Phone,
		Email:         in.Email,
		Amount:        in.Amount,
		Installment:   in.Installment,
		Fixed:         in.Fixed != nil && *in.Fixed,
	}
}

// LoanUpdate overwrites an application. Verified, when present, moves the
// review state; any authenticated caller may send it.
type LoanUpdate struct {
	ID string `json:"_id" validate:"required"`
	LoanInput
	Verified *bool `json:"verified"`
}

// Decision is an admin's review outcome.
type Decision struct {
	LoanID       string `json:"loanId" validate:"required"`
	Verified     *bool  `json:"verified" validate:"required"`
	AdminComment string `json:"adminComment"`
}

// LoanService runs the loan application lifecycle.
type LoanService struct {
	Deps
	admins *AdminService
}

func NewLoanService(d Deps, admins *AdminService) *LoanService {
	return &LoanService{Deps: d, admins: admins}
}

// Submit records a pending application for userID and links it to the user
// in one transaction, then mails the admins. When that mail fails the
// application is still returned alongside a dispatch error: it is recorded
// but nobody was told.
func (s *LoanService) Submit(ctx context.Context, userID string, in LoanInput) (*models.LoanApplication, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperrors.Validation(MsgInvalidInputs)
	}

	user, err := s.Store.Repos().Users.GetByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.Auth(MsgPermissionDenied)
	}
	if err != nil {
		return nil, apperrors.Persistence(MsgSubmitFailed, err)
	}

	loan := &models.LoanApplication{
		LoanFields: in.fields(),
		Status:     models.LoanPending,
		Timestamp:  s.now(),
		CreatorID:  user.ID,
	}
	err = s.Store.WithinTx(ctx, func(ctx context.Context, r database.Repos) error {
		if err := r.Loans.Create(ctx, loan); err != nil {
			return err
		}
		return r.Users.AppendLoan(ctx, user.ID, loan.ID)
	})
	if err != nil {
		return nil, apperrors.Persistence(MsgSubmitFailed, err)
	}
	s.Metrics.LoanSubmitted()

	log := s.logger().WithFields(logrus.Fields{"loan_id": loan.ID, "user_id": user.ID})
	log.Info("Loan application submitted")

	emails := s.admins.Emails(ctx)
	if len(emails) == 0 {
		log.Warn("No admins to notify about new application")
		return loan, nil
	}
	if err := s.Notifier.NotifyAdmins(ctx, emails); err != nil {
		log.WithError(err).Error("Failed to notify admins")
		return loan, apperrors.Dispatch(MsgSendFailed, err)
	}
	return loan, nil
}

// Update overwrites the fields of in.ID. The caller must exist but need not
// own the application.
func (s *LoanService) Update(ctx context.Context, userID string, in LoanUpdate) (*models.LoanApplication, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperrors.Validation(MsgInvalidInputs)
	}

	_, err := s.Store.Repos().Users.GetByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.Auth(MsgPermissionDenied)
	}
	if err != nil {
		return nil, apperrors.Persistence(MsgUpdateFailed, err)
	}

	var updated *models.LoanApplication
	err = s.Store.WithinTx(ctx, func(ctx context.Context, r database.Repos) error {
		loan, err := r.Loans.GetByID(ctx, in.ID)
		if err != nil {
			return err
		}
		loan.LoanFields = in.fields()
		if in.Verified != nil {
			loan.ApplyVerified(*in.Verified)
		}
		if err := r.Loans.Update(ctx, loan); err != nil {
			return err
		}
		updated = loan
		return nil
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(MsgLoanNotFound)
	}
	if err != nil {
		return nil, apperrors.Persistence(MsgUpdateFailed, err)
	}
	return updated, nil
}

// ListMine returns the caller's applications, newest first.
func (s *LoanService) ListMine(ctx context.Context, userID string) ([]models.LoanApplication, error) {
	loans, err := s.Store.Repos().Loans.ListByCreator(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(MsgFetchFailed, err)
	}
	return loans, nil
}

// Delete removes the caller's own application and unlinks it from the user
// in one transaction. A missing application is reported the same way as a
// permission failure.
func (s *LoanService) Delete(ctx context.Context, userID, loanID string) error {
	if loanID == "" {
		return apperrors.Validation(MsgInvalidInputs)
	}

	err := s.Store.WithinTx(ctx, func(ctx context.Context, r database.Repos) error {
		loan, err := r.Loans.GetByID(ctx, loanID)
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.Auth(MsgPermissionDenied)
		}
		if err != nil {
			return err
		}
		if loan.CreatorID != userID {
			return apperrors.Auth(MsgNotOwner)
		}

		if err := r.Users.RemoveLoan(ctx, loan.CreatorID, loan.ID); err != nil {
			return err
		}
		return r.Loans.Delete(ctx, loan.ID)
	})
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if err != nil {
		return apperrors.Persistence(MsgDeleteFailed, err)
	}

	s.logger().WithFields(logrus.Fields{"loan_id": loanID, "user_id": userID}).Info("Loan application deleted")
	return nil
}

// ListPending returns applications awaiting review, newest first. Admin only.
func (s *LoanService) ListPending(ctx context.Context, userID string) ([]models.LoanApplication, error) {
	if err := s.admins.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	loans, err := s.Store.Repos().Loans.ListByStatus(ctx, models.LoanPending)
	if err != nil {
		return nil, apperrors.Persistence(MsgPendingFailed, err)
	}
	return loans, nil
}

// Decide approves or rejects an application and pushes the outcome to the
// applicant. A failed push is logged only. Admin only.
func (s *LoanService) Decide(ctx context.Context, userID string, d Decision) (*models.LoanApplication, error) {
	if err := s.admins.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}
	if err := validate.Struct(d); err != nil {
		return nil, apperrors.Validation(MsgInvalidInputs)
	}

	status := models.LoanRejected
	if *d.Verified {
		status = models.LoanApproved
	}

	loan, err := s.Store.Repos().Loans.SetDecision(ctx, d.LoanID, status, d.AdminComment)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(MsgLoanNotFound)
	}
	if err != nil {
		return nil, apperrors.Persistence(MsgDecisionFailed, err)
	}
	s.Metrics.Decision(string(status))

	s.notifyDecision(ctx, loan)
	return loan, nil
}

func (s *LoanService) notifyDecision(ctx context.Context, loan *models.LoanApplication) {
	log := s.logger().WithFields(logrus.Fields{"loan_id": loan.ID, "status": loan.Status})

	creator, err := s.Store.Repos().Users.GetByID(ctx, loan.CreatorID)
	if err != nil {
		log.WithError(err).Warn("Cannot load applicant for decision push")
		return
	}
	if creator.PushToken == "" {
		log.Debug("Applicant has no push token")
		return
	}

	token, err := s.pushToken(creator.PushToken)
	if err != nil {
		log.WithError(err).Warn("Cannot decrypt applicant push token")
		return
	}
	if err := s.Notifier.NotifyDecision(ctx, token, loan.Verified()); err != nil {
		log.WithError(err).Warn("Cannot send FCM")
	}
}

// pushToken opens a stored device token. Tokens saved before encryption was
// introduced are plain FCM tokens, which are never valid base64, and are
// returned as stored.
func (s *LoanService) pushToken(stored string) (string, error) {
	token, err := s.Sealer.Decrypt(stored)
	if err == nil {
		return token, nil
	}
	if _, b64err := base64.StdEncoding.DecodeString(stored); b64err != nil {
		return stored, nil
	}
	return "", err
}

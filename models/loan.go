package models

import (
	"encoding/json"
	"time"
)

// LoanFields are the applicant-supplied fields of a loan application.
type LoanFields struct {
	Title         string
	ApplicantName string
	Address       string
	Phone         string
	Email         string
	Amount        string
	Installment   string
	Fixed         bool
}

// LoanApplication is a loan request and its review state. Status is the
// source of truth; the legacy verified flag is derived from it.
type LoanApplication struct {
	ID string
	LoanFields
	Status       LoanStatus
	AdminComment string
	Timestamp    time.Time
	CreatorID    string
}

// Verified reports whether the application has been approved.
func (l *LoanApplication) Verified() bool {
	return l.Status == LoanApproved
}

// Approve moves the application to approved.
func (l *LoanApplication) Approve(comment string) {
	l.Status = LoanApproved
	l.AdminComment = comment
}

// Reject moves the application to rejected with the reviewer's comment.
func (l *LoanApplication) Reject(comment string) {
	l.Status = LoanRejected
	l.AdminComment = comment
}

// ApplyVerified maps the verified flag sent by update callers onto the
// status. A false flag leaves a commented application rejected and any other
// application pending.
func (l *LoanApplication) ApplyVerified(verified bool) {
	switch {
	case verified:
		l.Status = LoanApproved
	case l.AdminComment != "":
		l.Status = LoanRejected
	default:
		l.Status = LoanPending
	}
}

type loanJSON struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	ApplicantName string     `json:"applicantName"`
	Address       string     `json:"address"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	Amount        string     `json:"amount"`
	Installment   string     `json:"installment"`
	Fixed         bool       `json:"fixed"`
	Verified      bool       `json:"verified"`
	Status        LoanStatus `json:"status"`
	AdminComment  string     `json:"adminComment,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
	Creator       string     `json:"creator"`
}

func (l LoanApplication) MarshalJSON() ([]byte, error) {
	return json.Marshal(loanJSON{
		ID:            l.ID,
		Title:         l.Title,
		ApplicantName: l.ApplicantName,
		Address:       l.Address,
		Phone:         l.Phone,
		Email:         l.Email,
		Amount:        l.Amount,
		Installment:   l.Installment,
		Fixed:         l.Fixed,
		Verified:      l.Verified(),
		Status:        l.Status,
		AdminComment:  l.AdminComment,
		Timestamp:     l.Timestamp,
		Creator:       l.CreatorID,
	})
}

// UnmarshalJSON accepts documents with or without a status; without one the
// status is read from the legacy verified/adminComment pair.
func (l *LoanApplication) UnmarshalJSON(data []byte) error {
	var in loanJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*l = LoanApplication{
		ID: in.ID,
		LoanFields: LoanFields{
			Title:         in.Title,
			ApplicantName: in.ApplicantName,
			Address:       in.Address,
			Phone:         in.Phone,
			Email:         in.Email,
			Amount:        in.Amount,
			Installment:   in.Installment,
			Fixed:         in.Fixed,
		},
		Status:       in.Status,
		AdminComment: in.AdminComment,
		Timestamp:    in.Timestamp,
		CreatorID:    in.Creator,
	}
	if !l.Status.Valid() {
		l.ApplyVerified(in.Verified)
	}
	return nil
}

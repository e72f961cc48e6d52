package models

import (
	"strings"
	"time"
)

// User is an applicant identified by email. Loans lists the ids of the
// applications the user created, oldest first.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Loans     []string  `json:"loans"`
	PushToken string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublicUser is the part of a user returned after login.
type PublicUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *User) Public() PublicUser {
	return PublicUser{Email: u.Email, Name: u.Name}
}

// HasLoan reports whether loanID is in the user's loan list.
func (u *User) HasLoan(loanID string) bool {
	for _, id := range u.Loans {
		if id == loanID {
			return true
		}
	}
	return false
}

// NameFromEmail returns the local part of an email address, used as the
// display name of users created on first login.
func NameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

package models

// Admin is an entry in the admin allow-list. Membership of a user's email
// is the only permission the system knows about.
type Admin struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

package core

import "time"

// User is an account identity. PasswordHash is a bcrypt digest and never
// leaves the auth layer; API responses carry a redacted copy.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"-"`
}

// Redacted returns the user with the credential stripped, the only form the
// gate hands back to callers.
func (u User) Redacted() User {
	u.PasswordHash = ""
	return u
}

package identity

import "time"

// User represents a registered wallet owner.
type User struct {
	ID           int64
	Phone        string
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Registration captures the fields needed to onboard a user.
type Registration struct {
	Phone    string
	Name     string
	Email    string
	Password string
}

// Credentials request structure.
type Credentials struct {
	Phone    string
	Password string
}

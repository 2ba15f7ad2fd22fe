package domain

import "time"

// Account is a user record as kept by the contract stub backend.
type Account struct {
	User
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

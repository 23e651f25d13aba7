package entities

import (
	"time"
)

// User represents a company user who can book facilities
type User struct {
	ID           string    `json:"user_id" db:"user_id"`
	Name         string    `json:"user_name" db:"user_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Email        string    `json:"email" db:"email"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

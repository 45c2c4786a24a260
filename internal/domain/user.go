package domain

import "time"

// User represents a storefront account. The password hash is never serialized.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

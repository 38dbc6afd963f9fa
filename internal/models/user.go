package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles a user can hold on the platform.
const (
	RoleClient    = "client"
	RoleDeveloper = "developer"
	RoleAdmin     = "admin"
)

// User is an account with a built-in wallet. WalletBalance is in pesewas
// (GHS minor units); it never goes negative at a committed state.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	PasswordHash  string    `json:"-"`
	WalletBalance int64     `json:"wallet_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

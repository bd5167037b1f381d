// go-models/account.go

package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a phone-bound identity. Email is the synthetic address
// derived from the phone number and is always confirmed.
type Account struct {
	ID               uuid.UUID
	Email            string
	PhoneNumber      string
	FullName         *string
	PasswordHash     *string
	EmailConfirmedAt *time.Time
	LastSignInAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

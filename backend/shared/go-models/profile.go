package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the display data for an account, one row per account.
type Profile struct {
	ID          uuid.UUID // same as Account.ID
	FullName    *string
	PhoneNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

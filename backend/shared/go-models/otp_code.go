// go-models/otp_code.go

package models

import (
	"time"

	"github.com/google/uuid"
)

// OtpCode is a row of otp_codes. At most one row per phone is live at a
// time: issuing a new code deletes the previous ones.
type OtpCode struct {
	ID          uuid.UUID
	PhoneNumber string
	Code        string
	ExpiresAt   time.Time
	Attempts    int
	Verified    bool
	VerifiedAt  *time.Time
	CreatedAt   time.Time
}

// OtpState is the derived lifecycle state of a code.
type OtpState string

const (
	OtpStateIssued   OtpState = "ISSUED"
	OtpStateVerified OtpState = "VERIFIED"
	OtpStateExpired  OtpState = "EXPIRED"
)

// StateAt reports the state of the code at time now. Superseded codes no
// longer exist, so they have no state.
func (c *OtpCode) StateAt(now time.Time) OtpState {
	switch {
	case c.Verified:
		return OtpStateVerified
	case now.After(c.ExpiresAt):
		return OtpStateExpired
	default:
		return OtpStateIssued
	}
}

package model

import (
	"time"
)

type OTPPurpose string

const (
	OTPPurposeEmailVerification OTPPurpose = "email_verification"
	OTPPurposePasswordReset     OTPPurpose = "password_reset"
)

func (p OTPPurpose) IsValid() bool {
	return p == OTPPurposeEmailVerification || p == OTPPurposePasswordReset
}

// OTPVerification is a one-time code sent to an email address. At most one active
// (unused, unexpired) record exists per (email, purpose); the service enforces it on issue.
type OTPVerification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`                                                 // record ID
	Email     string     `gorm:"size:255;not null;index:idx_otp_email_purpose" json:"email"`           // recipient
	Code      string     `gorm:"size:6;not null" json:"-"`                                             // 6 digit code (never serialized)
	Purpose   OTPPurpose `gorm:"type:varchar(30);not null;index:idx_otp_email_purpose" json:"purpose"` // what the code authorizes
	Used      bool       `gorm:"not null" json:"used"`                                                 // consumed by a successful verify
	CreatedAt time.Time  `json:"created_at"`                                                           // issued at
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`                                     // issued at + TTL
}

func (OTPVerification) TableName() string {
	return "otp_verifications"
}

// IsExpired reports whether the code is past its expiry at now.
func (o *OTPVerification) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// IsActive reports whether the code can still be verified at now.
func (o *OTPVerification) IsActive(now time.Time) bool {
	return !o.Used && !o.IsExpired(now)
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPPurpose tells a registration code apart from a login code for the same address
type OTPPurpose string

const (
	OTPPurposeRegistration OTPPurpose = "registration"
	OTPPurposeLogin        OTPPurpose = "login"
)

// ParseOTPPurpose accepts the wire value of a purpose. "register" is kept as
// an alias used by older clients.
func ParseOTPPurpose(s string) (OTPPurpose, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "registration", "register":
		return OTPPurposeRegistration, true
	case "login":
		return OTPPurposeLogin, true
	}
	return "", false
}

// Valid reports whether p is a known purpose
func (p OTPPurpose) Valid() bool {
	return p == OTPPurposeRegistration || p == OTPPurposeLogin
}

// Label is the wording used in outgoing messages
func (p OTPPurpose) Label() string {
	if p == OTPPurposeLogin {
		return "login"
	}
	return "registration"
}

// OTPRecord is the single live one-time passcode for an (address, purpose) pair.
// Only the salted hash of the code is stored.
type OTPRecord struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Address      string     `json:"address" gorm:"size:255;not null;uniqueIndex:idx_otp_records_address_purpose"`
	Purpose      OTPPurpose `json:"purpose" gorm:"size:20;not null;uniqueIndex:idx_otp_records_address_purpose"`
	CodeHash     string     `json:"-" gorm:"size:64;not null"`
	Salt         string     `json:"-" gorm:"size:32;not null"`
	AccountID    *uuid.UUID `json:"account_id" gorm:"type:uuid"`
	ExpiresAt    time.Time  `json:"expires_at" gorm:"not null;index"`
	AttemptCount int        `json:"attempt_count" gorm:"not null"`
	CreatedAt    time.Time  `json:"created_at"`
}

// BeforeCreate assigns the primary key
func (o *OTPRecord) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsExpired checks whether the code window has closed at now
func (o *OTPRecord) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OTPMutation is what the store does to a locked record after a verify step
type OTPMutation int

const (
	OTPKeep OTPMutation = iota
	OTPDelete
	OTPIncrementAttempts
)

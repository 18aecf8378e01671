package models

import (
	"time"
)

// TOTPEnrollment stores a system admin's step-up TOTP secret, encrypted with
// AES-256-GCM. LastUsedStep guards against replaying a code within the same
// 30-second period.
type TOTPEnrollment struct {
	UserID          string
	EncryptedSecret []byte
	Nonce           []byte
	Verified        bool
	LastUsedStep    int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

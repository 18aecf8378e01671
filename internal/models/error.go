package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountPending   = errors.New("account is pending approval")
	ErrAccountSuspended = errors.New("account is suspended")

	// Invitation errors
	ErrInvitationExpired = errors.New("invitation has expired")
	ErrInvitationUsed    = errors.New("invitation has already been accepted")

	// Admin step-up
	ErrTOTPRequired = errors.New("totp code required")
	ErrTOTPInvalid  = errors.New("invalid totp code")
	ErrTOTPReplayed = errors.New("totp code already used")
)

package util

import "errors"

// Error taxonomy shared by services and controllers. Services wrap these with
// fmt.Errorf("%w: ...") and controllers map them to HTTP codes in RespondError.
var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNotFound               = errors.New("not found")
	ErrInvalidState           = errors.New("invalid state")
	ErrValidationFailed       = errors.New("validation failed")
	ErrVerificationFailed     = errors.New("verification failed")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrLedgerSubmissionFailed = errors.New("ledger submission failed")
	ErrUpstreamProvider       = errors.New("upstream provider error")
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailRegistered   = errors.New("email already registered")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrLedgerDisabled    = errors.New("ledger is not configured")
)

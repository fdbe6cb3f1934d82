package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrDuplicateUser         = errors.New("user already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrStorage               = errors.New("storage unavailable")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError marks a transient persistence failure. Callers may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// TokenError carries the internal reason a token was rejected. Its message
// never includes the reason.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string { return ErrInvalidOrExpiredToken.Error() }

func (e *TokenError) Unwrap() error { return e.Err }

func (e *TokenError) Is(target error) bool { return target == ErrInvalidOrExpiredToken }

func invalidToken(reason string, cause error) error {
	return &TokenError{Reason: reason, Err: cause}
}

// TokenFailureReason extracts the logged reason from a token rejection.
func TokenFailureReason(err error) string {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}

func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateUser):
		return "duplicate_user"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "invalid_token"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

func statusOf(err error) string {
	if err == nil {
		return "success"
	}
	return ErrorKind(err)
}

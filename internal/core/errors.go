// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenRevoked = errors.New("token revoked")

	// ErrBadSignature marks an inbound payload whose provider signature did
	// not verify. Fatal for the request; never retried.
	ErrBadSignature = errors.New("bad signature")

	// ErrAccessExpired is distinct from ErrForbidden so clients can prompt
	// re-authorization instead of re-purchase.
	ErrAccessExpired = errors.New("access expired")

	// ErrUpstream marks a failed call to the payment provider or the storage
	// signer. Retryable by the caller.
	ErrUpstream = errors.New("upstream failure")
)

type AppError struct {
	Err     error
	Message string
	Status  int
	Code    string
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Status:  status,
		Code:    code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(
		ErrUnauthorized,
		message,
		http.StatusUnauthorized,
		"UNAUTHORIZED",
	)
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("%s already exists", field),
		http.StatusConflict,
		"DUPLICATE",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(
		ErrTokenExpired,
		"token has expired",
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
	)
}

func TokenInvalidError() *AppError {
	return NewAppError(
		ErrTokenInvalid,
		"token is invalid",
		http.StatusUnauthorized,
		"TOKEN_INVALID",
	)
}

func TokenRevokedError() *AppError {
	return NewAppError(
		ErrTokenRevoked,
		"token has been revoked",
		http.StatusUnauthorized,
		"TOKEN_REVOKED",
	)
}

func BadSignatureError() *AppError {
	return NewAppError(
		ErrBadSignature,
		"payload signature verification failed",
		http.StatusUnauthorized,
		"BAD_SIGNATURE",
	)
}

// PurchaseRequiredError is the authorization failure for the watch flow:
// no valid entitlement covers the requested content.
func PurchaseRequiredError() *AppError {
	return NewAppError(
		ErrForbidden,
		"no active purchase covers this content",
		http.StatusForbidden,
		"PURCHASE_REQUIRED",
	)
}

// AccessExpiredError signals a lapsed entitlement or access token. Carries a
// distinct code so clients can re-authorize rather than re-purchase.
func AccessExpiredError() *AppError {
	return NewAppError(
		ErrAccessExpired,
		"access to this content has expired",
		http.StatusForbidden,
		"ACCESS_EXPIRED",
	)
}

func UpstreamError(message string) *AppError {
	if message == "" {
		message = "upstream service failure"
	}
	return NewAppError(ErrUpstream, message, http.StatusBadGateway, "UPSTREAM")
}

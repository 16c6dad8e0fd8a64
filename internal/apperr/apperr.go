// Package apperr defines the error kinds shared by the account, API key and
// notification flows. Handlers map a Kind to a status code, services only
// decide which Kind a failure belongs to.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
	Forbidden
	Unauthorized
	AccountLocked
	ActivationPending
	EmailDeliveryFailed
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	case Unauthorized:
		return "unauthorized"
	case AccountLocked:
		return "account_locked"
	case ActivationPending:
		return "activation_pending"
	case EmailDeliveryFailed:
		return "email_delivery_failed"
	default:
		return "internal"
	}
}

// Error is a classified failure. Code is stable and meant for clients,
// Message is meant for humans.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by kind and code so predefined errors can be
// compared with errors.Is after being wrapped or copied.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Internalf wraps an unexpected failure.
func Internalf(err error, format string, args ...any) *Error {
	return Wrap(err, Internal, "internal", fmt.Sprintf(format, args...))
}

// Invalid builds a validation error from a per-field message map.
func Invalid(fields map[string]string) *Error {
	return &Error{
		Kind:    Validation,
		Code:    "validation_failed",
		Message: "One or more fields are missing or invalid",
		Fields:  fields,
	}
}

// KindOf reports the kind of err. Errors that were never classified are
// Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// As unwraps err into an *Error, classifying unknown errors as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internalf(err, "Internal server error")
}

var (
	ErrWrongCredentials   = New(NotFound, "wrong_credentials", "Incorrect email or password")
	ErrTokenInvalid       = New(NotFound, "token_invalid", "Token is invalid or has expired")
	// Confirmation links check a password and a token, both fail the same way
	ErrConfirmationFailed = New(NotFound, "confirmation_failed", "Incorrect email or password, or the link is invalid or has expired")
	ErrUserNotFound       = New(NotFound, "user_not_found", "No user found")
	ErrAPIKeyNotFound     = New(NotFound, "api_key_not_found", "No API key found")
	ErrNotifNotFound      = New(NotFound, "notification_not_found", "No notification found")
	ErrDuplicateKey       = New(Conflict, "duplicate_key", "An API key with this name already exists for this account")
	ErrDuplicateEmail     = New(Conflict, "duplicate_email", "This email is already registered")
	ErrAccountLocked      = New(AccountLocked, "account_locked", "Your account is locked following too many failed login attempts. Please try again in one hour")
	ErrActivationPending  = New(ActivationPending, "activation_pending", "Your account is not activated yet. Please check your email to activate it")
	ErrWrongPassword      = New(Unauthorized, "wrong_password", "Your current password is wrong")
	ErrUnauthenticated    = New(Unauthorized, "unauthenticated", "You are not logged in. Please log in to get access")
	ErrSessionStale       = New(Unauthorized, "session_stale", "Your password or email changed recently. Please log in again")
	ErrForbidden          = New(Forbidden, "forbidden", "You do not have permission to perform this action")
	ErrPasswordRoute      = New(Forbidden, "password_route", "This route is not for password or email updates. Please use the dedicated routes")
)

// Delivery builds an EmailDeliveryFailed error for flows where the mutation
// was rolled back.
func Delivery(err error, message string) *Error {
	return Wrap(err, EmailDeliveryFailed, "email_delivery_failed", message)
}

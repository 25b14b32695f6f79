package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error. The HTTP status is derived from the kind only.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidState
	KindRateLimited
	KindUpstream
)

// String returns the lower-case kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream"
	case KindInternal:
		return "internal"
	default:
		return "internal"
	}
}

// Status maps the kind to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidState:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Kind    Kind        `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	return e.Kind.Status()
}

// Is matches errors sharing the same code, so errors.Is works against the predefined values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(kind Kind, code string, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, kind Kind, code string, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrValidation           = New(KindValidation, "VALIDATION_ERROR", "validation failed")
	ErrAuthMissing          = New(KindUnauthenticated, "AUTH_MISSING", "authorization token missing")
	ErrAuthInvalid          = New(KindUnauthenticated, "AUTH_INVALID", "authorization token invalid or expired")
	ErrUnauthorized         = New(KindUnauthenticated, "UNAUTHORIZED", "unauthorized")
	ErrInvalidCredentials   = New(KindUnauthenticated, "INVALID_CREDENTIALS", "invalid email or password")
	ErrInactiveAccount      = New(KindForbidden, "ACCOUNT_INACTIVE", "account is inactive")
	ErrForbidden            = New(KindForbidden, "FORBIDDEN", "forbidden")
	ErrUnauthorizedJob      = New(KindForbidden, "UNAUTHORIZED_JOB_ACCESS", "you do not have access to this job posting")
	ErrEnrollmentRequired   = New(KindForbidden, "ENROLLMENT_REQUIRED", "enrollment required to access this resource")
	ErrNotFound             = New(KindNotFound, "NOT_FOUND", "resource not found")
	ErrConflict             = New(KindConflict, "CONFLICT", "conflict")
	ErrEmailTaken           = New(KindConflict, "EMAIL_TAKEN", "email already registered")
	ErrAlreadyApplied       = New(KindConflict, "ALREADY_APPLIED", "you have already applied to this job")
	ErrAlreadyEnrolled      = New(KindConflict, "ALREADY_ENROLLED", "already enrolled in this course")
	ErrAlreadyReferred      = New(KindConflict, "ALREADY_REFERRED", "user has already been referred")
	ErrAmbassadorExists     = New(KindConflict, "AMBASSADOR_EXISTS", "ambassador profile already exists")
	ErrDeadlinePassed       = New(KindInvalidState, "APPLICATION_DEADLINE_PASSED", "application deadline has passed")
	ErrJobNotOpen           = New(KindInvalidState, "JOB_NOT_ACCEPTING_APPLICATIONS", "job is not accepting applications")
	ErrInvalidTransition    = New(KindInvalidState, "INVALID_STATUS_TRANSITION", "status transition not allowed")
	ErrInsufficientPoints   = New(KindInvalidState, "INSUFFICIENT_POINTS", "insufficient points balance")
	ErrSelfReferral         = New(KindValidation, "SELF_REFERRAL", "cannot use your own referral code")
	ErrInvalidReferralCode  = New(KindValidation, "INVALID_REFERRAL_CODE", "referral code is invalid")
	ErrFileTooLarge         = New(KindValidation, "FILE_TOO_LARGE", "file exceeds the maximum allowed size")
	ErrInvalidFileType      = New(KindValidation, "INVALID_FILE_TYPE", "file type is not allowed")
	ErrRateLimited          = New(KindRateLimited, "RATE_LIMIT_EXCEEDED", "too many requests")
	ErrPayoutTransferFailed = New(KindUpstream, "PAYOUT_TRANSFER_FAILED", "payout transfer failed")
	ErrInternal             = New(KindInternal, "INTERNAL_SERVER_ERROR", "internal server error")
	ErrCacheMiss            = New(KindInternal, "CACHE_MISS", "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Kind, ErrInternal.Code, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of err carrying details.
func WithDetails(err *Error, details interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}

// Rewrap returns a copy of the predefined error wrapping cause.
func Rewrap(base *Error, cause error, message string) *Error {
	if base == nil {
		return nil
	}
	clone := Clone(base, message)
	clone.Err = cause
	return clone
}

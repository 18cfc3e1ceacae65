// Package apperrors provides the error taxonomy shared by the generation
// pipeline, the billing proxies and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuth          Kind = "auth"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindQuota         Kind = "quota"
	KindUpstream      Kind = "upstream"
	KindStorage       Kind = "storage"
	KindParse         Kind = "parse"
	KindTimeout       Kind = "timeout"
	KindConfiguration Kind = "configuration"
	KindSignature     Kind = "signature"
	KindInternal      Kind = "internal"
)

// StorageClass splits storage failures the way the relational store reports them.
type StorageClass string

const (
	StorageNoRows  StorageClass = "no_rows"
	StorageSchema  StorageClass = "schema"
	StorageGeneric StorageClass = "generic"
)

// Postgres SQLSTATE for undefined_table.
const pqUndefinedTable = "42P01"

// Error is an application error with a coarse type tag for API consumers.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Storage StorageClass
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Type returns the tag written into {error: {message, type}} response bodies.
func (e *Error) Type() string {
	switch e.Kind {
	case KindValidation, KindNotFound:
		return "invalid_request_error"
	case KindAuth, KindForbidden:
		return "authentication_error"
	case KindQuota:
		return "quota_exceeded"
	case KindUpstream:
		return "api_error"
	case KindStorage:
		return "database_error"
	case KindParse:
		return "parse_error"
	case KindTimeout:
		return "timeout_error"
	case KindSignature:
		return "signature_verification_error"
	default:
		return "server_error"
	}
}

// StatusCode returns the appropriate HTTP status code
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindSignature:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindQuota:
		return http.StatusTooManyRequests
	case KindUpstream, KindParse:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindStorage:
		if e.Storage == StorageNoRows {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation reports missing or malformed input.
func Validation(message string) *Error {
	return newError(KindValidation, message, nil)
}

// Auth reports a missing, invalid or expired bearer credential.
func Auth(message string, cause error) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return newError(KindAuth, message, cause)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, message, nil)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, message, nil)
}

func Quota(message string) *Error {
	return newError(KindQuota, message, nil)
}

// Upstream reports a failed or non-success call to the generation or billing service.
func Upstream(message string, cause error) *Error {
	return newError(KindUpstream, message, cause)
}

// Parse reports model output that is not JSON or fails shape validation.
func Parse(message string, cause error) *Error {
	return newError(KindParse, message, cause)
}

func Timeout(message string) *Error {
	return newError(KindTimeout, message, nil)
}

// Configuration reports a required secret or environment value that is absent.
func Configuration(missing []string) *Error {
	e := newError(KindConfiguration, "missing required configuration", nil)
	e.Details = strings.Join(missing, ", ")
	return e
}

// Internal wraps a failure nobody classified. Its cause is logged, never returned to clients.
func Internal(cause error) *Error {
	return newError(KindInternal, "Internal server error", cause)
}

func Signature(cause error) *Error {
	return newError(KindSignature, "Webhook signature verification failed", cause)
}

// Storage classifies a relational store error. Nil stays nil; errors that are
// already classified pass through untouched.
func Storage(message string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	e := newError(KindStorage, message, err)
	e.Storage = ClassifyStorage(err)
	return e
}

// ClassifyStorage reports whether err means "no rows", a schema problem, or anything else.
func ClassifyStorage(err error) StorageClass {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StorageNoRows
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUndefinedTable {
		return StorageSchema
	}
	if strings.Contains(err.Error(), "no such table") {
		return StorageSchema
	}
	return StorageGeneric
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// IsNoRows reports whether err is a storage "no rows" failure.
func IsNoRows(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	appErr, ok := As(err)
	return ok && appErr.Kind == KindStorage && appErr.Storage == StorageNoRows
}

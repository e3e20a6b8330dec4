// Package apperr carries the error kinds handlers return. Only PublicMsg and
// Fields reach the client; Err is logged.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Invalid         Kind = "invalid"
	NotFound        Kind = "not_found"
	Unauthorized    Kind = "unauthorized"
	Forbidden       Kind = "forbidden"
	Conflict        Kind = "conflict"
	TooManyRequests Kind = "too_many_requests"
	Unavailable     Kind = "unavailable"
	Internal        Kind = "internal"
)

var statusByKind = map[Kind]int{
	Invalid:         http.StatusBadRequest,
	NotFound:        http.StatusNotFound,
	Unauthorized:    http.StatusUnauthorized,
	Forbidden:       http.StatusForbidden,
	Conflict:        http.StatusConflict,
	TooManyRequests: http.StatusTooManyRequests,
	Unavailable:     http.StatusServiceUnavailable,
	Internal:        http.StatusInternalServerError,
}

const defaultPublicMsg = "An unexpected error occurred."

type AppError struct {
	Kind      Kind
	PublicMsg string
	Fields    map[string]string // per-field validation messages keyed by json name
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.PublicMsg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.PublicMsg)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

func newErr(k Kind, publicMsg string) *AppError {
	return &AppError{Kind: k, PublicMsg: publicMsg}
}

func InvalidErr(publicMsg string, fields map[string]string) *AppError {
	e := newErr(Invalid, publicMsg)
	e.Fields = fields
	return e
}

func NotFoundErr(publicMsg string) *AppError     { return newErr(NotFound, publicMsg) }
func UnauthorizedErr(publicMsg string) *AppError { return newErr(Unauthorized, publicMsg) }
func ForbiddenErr(publicMsg string) *AppError    { return newErr(Forbidden, publicMsg) }
func ConflictErr(publicMsg string) *AppError     { return newErr(Conflict, publicMsg) }
func TooManyRequestsErr(publicMsg string) *AppError {
	return newErr(TooManyRequests, publicMsg)
}

// UnavailableErr marks a transient failure the caller may retry.
func UnavailableErr(publicMsg string, err error) *AppError {
	e := newErr(Unavailable, publicMsg)
	e.Err = err
	return e
}

// Wrap hides err behind the generic message.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	e := newErr(Internal, defaultPublicMsg)
	e.Err = err
	return e
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err wraps an AppError of kind k.
func IsKind(err error, k Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == k
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		if s, known := statusByKind[ae.Kind]; known {
			return s
		}
	}
	return http.StatusInternalServerError
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return defaultPublicMsg
}

package httputil

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Shown to callers for anything that is not a classified error.
const GenericErrorMessage = "서버 오류가 발생했습니다"

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Error is an error that already knows how it should be rendered.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error   { return NewError(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return NewError(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return NewError(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return NewError(http.StatusNotFound, message) }

func TooManyRequests(message string) *Error {
	return NewError(http.StatusTooManyRequests, message)
}

// Internal wraps an upstream failure. The caller only ever sees the generic message.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: GenericErrorMessage, Err: err}
}

// IsUniqueViolation reports whether err is a duplicate-key failure, either
// translated by gorm or raw from the postgres driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// FromDB classifies a database error. Missing rows become notFound (404),
// duplicate keys become duplicate (400), anything else is internal.
// Empty messages disable that mapping.
func FromDB(err error, notFound, duplicate string) error {
	switch {
	case err == nil:
		return nil
	case notFound != "" && errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(notFound)
	case duplicate != "" && IsUniqueViolation(err):
		return BadRequest(duplicate)
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

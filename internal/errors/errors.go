package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"gostamp/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    codeFor(err),
		Message: message,
		Cause:   err,
	}
}

// FromDomain classifies a domain error by its sentinel
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Code: codeFor(err), Message: err.Error(), Cause: err}
}

func codeFor(err error) string {
	switch {
	case stderrors.Is(err, core.ErrInvalidInput):
		return CodeInvalidInput
	case stderrors.Is(err, core.ErrUnsupportedConfiguration):
		return CodeUnsupportedConfiguration
	case stderrors.Is(err, core.ErrNotFound), stderrors.Is(err, core.ErrRunNotFound):
		return CodeNotFound
	case stderrors.Is(err, core.ErrDegenerateCase):
		return CodeDegenerate
	case stderrors.Is(err, core.ErrNumericalInstability):
		return CodeNumericalInstability
	}
	return CodeInternalError
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HTTPStatus maps an error code to a response status
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidInput, CodeUnsupportedConfiguration, CodeDegenerate:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNumericalInstability:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Predefined error codes
const (
	CodeConfigInvalid            = "CONFIG_INVALID"
	CodeDatabaseError            = "DATABASE_ERROR"
	CodeNotFound                 = "NOT_FOUND"
	CodeInternalError            = "INTERNAL_ERROR"
	CodeInvalidInput             = "INVALID_INPUT"
	CodeUnsupportedConfiguration = "UNSUPPORTED_CONFIGURATION"
	CodeDegenerate               = "DEGENERATE_CASE"
	CodeNumericalInstability     = "NUMERICAL_INSTABILITY"
	CodeExportError              = "EXPORT_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func ExportError(target string, cause error) *AppError {
	return &AppError{Code: CodeExportError, Message: fmt.Sprintf("export to %s failed", target), Cause: cause}
}

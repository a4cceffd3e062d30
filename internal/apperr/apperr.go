// Package apperr defines the sentinel error categories used across dlpsit.
//
// Error taxonomy
//
//	UserError              – caused by missing or invalid CLI input.
//	                         Exit code: 1, usage help is not repeated.
//	ArchiveExtractionError – recoverable: recorded as a warning on the
//	                         enclosing scan-item, recursion into that
//	                         archive is abandoned, the job continues.
//	EmailExtractionError   – recoverable, same handling as above.
//	ExportValidationError  – caller-visible: aborts export, no partial XML
//	                         is returned.
//
// Everything else is a plain Go error (I/O, parsing, …) and is propagated
// with fmt.Errorf("context: %w", err) wrapping.
package apperr

import (
	"errors"
	"fmt"
)

// UserError represents an error caused by invalid or missing CLI input.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// Userf creates a formatted UserError.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// IsUser reports whether err is (or wraps) a *UserError.
func IsUser(err error) bool {
	var u *UserError
	return errors.As(err, &u)
}

// ArchiveExtractionError is raised by the archive extractor. It is always
// recoverable by the caller: the enclosing container scan-item records it
// as a warning and recursion into that archive stops.
type ArchiveExtractionError struct {
	Path    string
	Message string
}

func (e *ArchiveExtractionError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// NewArchiveError builds an ArchiveExtractionError.
func NewArchiveError(path, format string, args ...any) error {
	return &ArchiveExtractionError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// EmailExtractionError is raised by the email extractor, same handling as
// ArchiveExtractionError.
type EmailExtractionError struct {
	Path    string
	Message string
}

func (e *EmailExtractionError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// NewEmailError builds an EmailExtractionError.
func NewEmailError(path, format string, args ...any) error {
	return &EmailExtractionError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// ExportValidationError aborts a rulepack export. The message names the
// offending SIT version id.
type ExportValidationError struct {
	Message string
}

func (e *ExportValidationError) Error() string { return e.Message }

// NewExportValidationError builds an ExportValidationError.
func NewExportValidationError(format string, args ...any) error {
	return &ExportValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsArchiveError reports whether err is (or wraps) an *ArchiveExtractionError.
func IsArchiveError(err error) bool {
	var a *ArchiveExtractionError
	return errors.As(err, &a)
}

// IsEmailError reports whether err is (or wraps) an *EmailExtractionError.
func IsEmailError(err error) bool {
	var e *EmailExtractionError
	return errors.As(err, &e)
}

package core

import (
	"fmt"

	"github.com/goliatone/go-errors"
)

const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeWorkflow         = "WORKFLOW_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter", errors.CategoryBadInput).
				WithTextCode(CodeInvalidParameter)
	ErrWorkflow = errors.New("workflow error", errors.CategoryOperation).
			WithTextCode(CodeWorkflow)
	ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuthz).
			WithTextCode(CodeUnauthorized)
	ErrNotFound = errors.New("not found", errors.CategoryNotFound).
			WithTextCode(CodeNotFound)
)

// newError clones one of the sentinels above and replaces its message.
func newError(base *errors.Error, format string, args ...any) *errors.Error {
	err := base.Clone()
	err.Message = fmt.Sprintf(format, args...)
	return err
}

// Code returns the text code of err, or an empty string if err is no *errors.Error.
func Code(err error) string {
	var ge *errors.Error
	if errors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsCode reports whether err carries the given text code.
func IsCode(err error, code string) bool {
	return err != nil && Code(err) == code
}

// Message returns the human readable part of err.
func Message(err error) string {
	var ge *errors.Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

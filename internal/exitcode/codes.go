// Package exitcode defines the process exit codes of regctl. Scripts that
// drive regctl branch on them instead of parsing messages.
//
//   - 0: success
//   - 1-9: general and usage errors
//   - 10-19: something regctl looked for was not found
//   - 20-29: permission errors
//   - 30-39: instance web server errors
//   - 50-59: state conflicts
package exitcode

import (
	"errors"
	"fmt"
)

const (
	Success = 0

	ErrGeneral = 1
	ErrUsage   = 2

	ErrInstanceNotFound = 10
	ErrManagerNotFound  = 11
	ErrNotRunning       = 12
	ErrFileNotFound     = 13

	ErrPermission = 20

	ErrNetwork = 30

	ErrAlreadyExists = 51
	// ErrBusy means another regctl holds the resource, e.g. the console lock.
	ErrBusy = 52
)

// Error carries an explicit exit code.
type Error struct {
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Newf returns a coded error with a formatted message.
func Newf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code to cause.
func Wrap(code int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// ManagerNotFound reports that no manager installation could be located.
func ManagerNotFound() *Error {
	return &Error{Code: ErrManagerNotFound, Message: "manager installation not found"}
}

// Busy reports a resource held by another regctl.
func Busy(resource string) *Error {
	return Newf(ErrBusy, "%s is already in use by another regctl", resource)
}

// Rule maps the errors it matches to Code.
type Rule struct {
	Code  int
	Match func(error) bool
}

// Is matches errors that wrap target.
func Is(target error, code int) Rule {
	return Rule{Code: code, Match: func(err error) bool { return errors.Is(err, target) }}
}

// As matches errors whose chain holds a T.
func As[T error](code int) Rule {
	return Rule{Code: code, Match: func(err error) bool {
		var target T
		return errors.As(err, &target)
	}}
}

// Classify returns the exit code for err. An explicit *Error wins; otherwise
// the first matching rule decides, and anything unmatched is ErrGeneral.
func Classify(err error, rules ...Rule) int {
	if err == nil {
		return Success
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	for _, r := range rules {
		if r.Match(err) {
			return r.Code
		}
	}
	return ErrGeneral
}

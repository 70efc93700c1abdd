package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories surfaced by editing operations. Detailed error types
// below match their category through errors.Is.
var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrValidationFailed    = errors.New("validation failed")
	ErrInternalFault       = errors.New("internal consistency fault")
	ErrUnspecified         = errors.New("unspecified failure")
	ErrContextMismatch     = errors.New("context mismatch")
	ErrNoSiteSelected      = errors.New("no site selected")
	ErrNoDSMSelected       = errors.New("no dsm selected")
	ErrNotFound            = errors.New("not found")
)

// MalformedInputError reports a field that fails its syntactic contract.
type MalformedInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e MalformedInputError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %q is malformed", e.Field, e.Value)
	}
	return fmt.Sprintf("%s %q is malformed: %s", e.Field, e.Value, e.Reason)
}

func (e MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// DuplicateIdentifierError reports a uniqueness pre-condition failure.
type DuplicateIdentifierError struct {
	Scope string
	Field string
	Value string
}

func (e DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("%s %s %s is not unique", e.Scope, e.Field, e.Value)
}

func (e DuplicateIdentifierError) Is(target error) bool { return target == ErrDuplicateIdentifier }

// ValidationError is returned when blocking rule violations are present.
type ValidationError struct {
	Result Result
}

func (e ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	if len(msgs) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// InternalFaultError reports a should-never-happen invariant violation.
type InternalFaultError struct {
	Op     string
	Detail string
	Err    error
}

func (e InternalFaultError) Error() string {
	msg := e.Detail
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e InternalFaultError) Is(target error) bool { return target == ErrInternalFault }

func (e InternalFaultError) Unwrap() error { return e.Err }

// UnspecifiedError wraps an unexpected failure raised while applying an edit.
type UnspecifiedError struct {
	Op  string
	Err error
}

func (e UnspecifiedError) Error() string {
	return fmt.Sprintf("%s: unexpected failure: %v", e.Op, e.Err)
}

func (e UnspecifiedError) Is(target error) bool { return target == ErrUnspecified }

func (e UnspecifiedError) Unwrap() error { return e.Err }

// ContextMismatchError reports an operation invoked on the wrong kind of container.
type ContextMismatchError struct {
	Want string
	Got  string
}

func (e ContextMismatchError) Error() string {
	return fmt.Sprintf("operation requires a %s context, got %s", e.Want, e.Got)
}

func (e ContextMismatchError) Is(target error) bool { return target == ErrContextMismatch }

// NotFoundError is returned when a referenced entity does not exist.
type NotFoundError struct {
	Entity EntityType
	Key    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ErrorPriority ranks an error for aggregation: internal faults first,
// then input and validation failures, then anything else.
func ErrorPriority(err error) int {
	switch {
	case err == nil:
		return 3
	case errors.Is(err, ErrInternalFault):
		return 0
	case errors.Is(err, ErrValidationFailed),
		errors.Is(err, ErrMalformedInput),
		errors.Is(err, ErrDuplicateIdentifier):
		return 1
	default:
		return 2
	}
}

// FirstByPriority returns the earliest error of the highest priority class.
func FirstByPriority(errs []error) error {
	var best error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if best == nil || ErrorPriority(err) < ErrorPriority(best) {
			best = err
		}
	}
	return best
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorCategories(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{MalformedInputError{Field: "dsm id", Value: "x"}, ErrMalformedInput},
		{DuplicateIdentifierError{Scope: "site A", Field: "dsm id", Value: "2"}, ErrDuplicateIdentifier},
		{ValidationError{}, ErrValidationFailed},
		{InternalFaultError{Op: "op", Detail: "broken"}, ErrInternalFault},
		{UnspecifiedError{Op: "op", Err: errors.New("boom")}, ErrUnspecified},
		{ContextMismatchError{Want: "site", Got: "dsm"}, ErrContextMismatch},
		{NotFoundError{Entity: EntityDSM, Key: "2"}, ErrNotFound},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("wrapped: %w", tc.err)
		if !errors.Is(wrapped, tc.want) {
			t.Fatalf("%T does not match %v", tc.err, tc.want)
		}
	}
}

func TestInternalFaultUnwraps(t *testing.T) {
	cause := errors.New("cause")
	err := InternalFaultError{Op: "save", Detail: "render", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if err.Error() != "save: render: cause" {
		t.Fatalf("message %q", err.Error())
	}
}

func TestValidationErrorListsBlockingMessages(t *testing.T) {
	err := ValidationError{Result: Result{Violations: []Violation{
		{Severity: SeverityWarn, Message: "shared device"},
		{Severity: SeverityBlock, Message: "duplicate id"},
	}}}
	if got := err.Error(); got != "validation failed: duplicate id" {
		t.Fatalf("message %q", got)
	}
	if !strings.Contains(ValidationError{}.Error(), "validation failed") {
		t.Fatalf("empty message")
	}
}

func TestFirstByPriority(t *testing.T) {
	dup := DuplicateIdentifierError{Scope: "s", Field: "f", Value: "v"}
	fault := InternalFaultError{Detail: "x"}
	other := errors.New("other")
	if got := FirstByPriority([]error{other, dup, nil, fault}); got != error(fault) {
		t.Fatalf("expected the internal fault, got %v", got)
	}
	if got := FirstByPriority([]error{other, dup}); got != error(dup) {
		t.Fatalf("expected the duplicate, got %v", got)
	}
	if FirstByPriority(nil) != nil {
		t.Fatalf("expected nil")
	}
}

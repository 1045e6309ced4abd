package userbase

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrorKind tells callers how to present a FieldErrors set.
type FieldErrorKind string

const (
	// ValidationKind marks malformed input.
	ValidationKind FieldErrorKind = "validation"
	// ConflictKind marks values already used by another identity.
	ConflictKind FieldErrorKind = "conflict"
)

// FieldErrors collects every problem found in one call, keyed by form field.
type FieldErrors struct {
	Kind   FieldErrorKind
	Fields map[string][]string
}

// NewFieldErrors returns an empty set of the given kind.
func NewFieldErrors(kind FieldErrorKind) *FieldErrors {
	return &FieldErrors{Kind: kind, Fields: map[string][]string{}}
}

// Add appends message to field.
func (e *FieldErrors) Add(field, message string) *FieldErrors {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

// Has reports whether field has at least one message.
func (e *FieldErrors) Has(field string) bool {
	if e == nil {
		return false
	}
	return len(e.Fields[field]) > 0
}

// Get returns the messages for field.
func (e *FieldErrors) Get(field string) []string {
	if e == nil {
		return nil
	}
	return e.Fields[field]
}

// Empty reports whether no field has messages.
func (e *FieldErrors) Empty() bool {
	if e == nil {
		return true
	}
	for _, messages := range e.Fields {
		if len(messages) > 0 {
			return false
		}
	}
	return true
}

// FieldNames returns the fields with messages in stable order.
func (e *FieldErrors) FieldNames() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.Fields))
	for name, messages := range e.Fields {
		if len(messages) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsValidation reports whether the set describes malformed input.
func (e *FieldErrors) IsValidation() bool {
	return e != nil && e.Kind == ValidationKind
}

// IsConflict reports whether the set describes existing-user conflicts.
func (e *FieldErrors) IsConflict() bool {
	return e != nil && e.Kind == ConflictKind
}

func (e *FieldErrors) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Fields))
	for _, name := range e.FieldNames() {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return fmt.Sprintf("%s failed: %s", e.Kind, strings.Join(parts, ", "))
}

// Outcome is the result of a form driven operation: either a value or a
// field keyed error set. Warnings hold secondary failures that did not stop
// the operation, such as activity recording.
type Outcome[T any] struct {
	Value    T
	Errors   *FieldErrors
	Warnings []error
}

// OK reports whether the operation produced a value.
func (o Outcome[T]) OK() bool {
	return o.Errors.Empty()
}

// Succeed wraps value in a successful outcome.
func Succeed[T any](value T, warnings ...error) Outcome[T] {
	return Outcome[T]{Value: value, Warnings: compactErrors(warnings)}
}

// Reject wraps a field error set in a failed outcome.
func Reject[T any](errs *FieldErrors) Outcome[T] {
	return Outcome[T]{Errors: errs}
}

func compactErrors(errs []error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

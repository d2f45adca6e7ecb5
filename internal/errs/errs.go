// Package errs defines the error taxonomy shared across the trestle
// metadata subsystem. Callers classify failures with the Is* helpers
// rather than matching on message text.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports a required external source (core-field
// template, schema directory) that is missing or malformed. It is always
// fatal to the operation that needed the source.
type ConfigurationError struct {
	Source string
	Err    error
}

// NewConfiguration wraps err as a ConfigurationError for the named source.
func NewConfiguration(source string, err error) *ConfigurationError {
	return &ConfigurationError{Source: source, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration error: %s", e.Source)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// SchemaError reports entity or relationship metadata that fails
// structural validation: a missing required key, an unknown type, an
// unknown cascade action. It aborts the triggering operation only.
type SchemaError struct {
	Subject string
	Detail  string
}

// NewSchema builds a SchemaError for the named subject.
func NewSchema(subject, detail string) *SchemaError {
	return &SchemaError{Subject: subject, Detail: detail}
}

// Schemaf builds a SchemaError with a formatted detail message.
func Schemaf(subject, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

func (e *SchemaError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("schema error: %s", e.Detail)
	}
	return fmt.Sprintf("schema error: %s: %s", e.Subject, e.Detail)
}

// NotFoundError reports a lookup against the warm metadata cache for a
// name that does not exist. It always carries the set of valid names so
// the caller can see what was actually loaded.
type NotFoundError struct {
	Kind      string
	Name      string
	Available []string
}

// NewNotFound builds a NotFoundError. available should already be sorted.
func NewNotFound(kind, name string, available []string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name, Available: available}
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("%s %q not found (none loaded)", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q not found (available: %s)", e.Kind, e.Name, strings.Join(e.Available, ", "))
}

// ConstraintError reports a restrict cascade policy blocking a deletion
// because active related rows still exist. It is an expected, user-facing
// condition, not a bug.
type ConstraintError struct {
	Entity       string
	Relationship string
	Table        string
}

// NewConstraint builds a ConstraintError.
func NewConstraint(entity, relationship, table string) *ConstraintError {
	return &ConstraintError{Entity: entity, Relationship: relationship, Table: table}
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("cannot delete %s: active related rows exist for relationship %s (table %s)",
		e.Entity, e.Relationship, e.Table)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsSchema reports whether err is a SchemaError.
func IsSchema(err error) bool {
	var target *SchemaError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConstraint reports whether err is a ConstraintError.
func IsConstraint(err error) bool {
	var target *ConstraintError
	return errors.As(err, &target)
}

// Package errors provides structured error types for the Metadata Template
// Language (MTL) engine.
//
// This package defines TemplateError, a unified error type that can represent
// both parse-time and evaluation-time failures with enough metadata for hosts
// to decide how to report them.
package errors

import (
	"fmt"
	"strings"
)

// ErrorClass categorizes errors for filtering and host-side handling.
type ErrorClass string

const (
	ClassParse    ErrorClass = "parse"    // Malformed template source
	ClassField    ErrorClass = "field"    // No provider claimed the field
	ClassFilter   ErrorClass = "filter"   // Unknown filter or bad filter argument
	ClassCoercion ErrorClass = "coercion" // Type coercion failure
	ClassVariable ErrorClass = "variable" // Unbound variable reference
	ClassProvider ErrorClass = "provider" // Provider-reported failure
)

// TemplateError represents any error from parsing or evaluating a template.
type TemplateError struct {
	Class   ErrorClass // Error category
	Code    string     // Stable error code (e.g. "PARSE-0001")
	Message string     // Human-readable message
	Offset  int        // Byte offset into the template source (-1 if unknown)
	Inner   error      // Wrapped cause, if any
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	var sb strings.Builder
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, "offset %d: ", e.Offset)
	}
	sb.WriteString(e.Message)
	if e.Inner != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Inner.Error())
	}
	return sb.String()
}

// Unwrap returns the wrapped cause so errors.Is/As see through it.
func (e *TemplateError) Unwrap() error {
	return e.Inner
}

// IsParseError returns true if this is a parse-time error.
func (e *TemplateError) IsParseError() bool {
	return e.Class == ClassParse
}

// WithOffset returns a copy of the error with the source offset set.
func (e *TemplateError) WithOffset(offset int) *TemplateError {
	c := *e
	c.Offset = offset
	return &c
}

// NewSyntaxError reports a malformed template at the given source offset.
func NewSyntaxError(offset int, reason string) *TemplateError {
	return &TemplateError{
		Class:   ClassParse,
		Code:    "PARSE-0001",
		Message: reason,
		Offset:  offset,
	}
}

// NewUnknownField reports that no provider claimed a field.
func NewUnknownField(namespace, subfield string) *TemplateError {
	name := namespace
	if subfield != "" {
		name += ":" + subfield
	}
	return &TemplateError{
		Class:   ClassField,
		Code:    "FIELD-0001",
		Message: fmt.Sprintf("unknown template field: %s", name),
		Offset:  -1,
	}
}

// NewUnknownFilter reports a filter name no filter implements.
func NewUnknownFilter(name string) *TemplateError {
	return &TemplateError{
		Class:   ClassFilter,
		Code:    "FILTER-0001",
		Message: fmt.Sprintf("unknown filter: %s", name),
		Offset:  -1,
	}
}

// NewBadFilterArg reports an invalid argument to a filter.
func NewBadFilterArg(name, reason string) *TemplateError {
	return &TemplateError{
		Class:   ClassFilter,
		Code:    "FILTER-0002",
		Message: fmt.Sprintf("invalid argument for %s: %s", name, reason),
		Offset:  -1,
	}
}

// NewCoercion reports a value that could not be coerced to the requested type.
func NewCoercion(typ, value string) *TemplateError {
	return &TemplateError{
		Class:   ClassCoercion,
		Code:    "COERCE-0001",
		Message: fmt.Sprintf("cannot convert %q to %s", value, typ),
		Offset:  -1,
	}
}

// NewUnboundVariable reports a reference to a variable that was never bound.
func NewUnboundVariable(name string) *TemplateError {
	return &TemplateError{
		Class:   ClassVariable,
		Code:    "VAR-0001",
		Message: fmt.Sprintf("variable %q is not defined", name),
		Offset:  -1,
	}
}

// NewMultiValued reports a clause that must expand to a single value but
// expanded to several (a multi-valued variable in a delimiter, filter
// argument, or find/replace side).
func NewMultiValued(what string) *TemplateError {
	return &TemplateError{
		Class:   ClassVariable,
		Code:    "VAR-0002",
		Message: fmt.Sprintf("%s must expand to a single value", what),
		Offset:  -1,
	}
}

// NewProviderError wraps a failure reported by a metadata provider.
func NewProviderError(namespace string, inner error) *TemplateError {
	return &TemplateError{
		Class:   ClassProvider,
		Code:    "PROVIDER-0001",
		Message: fmt.Sprintf("provider %q failed", namespace),
		Offset:  -1,
		Inner:   inner,
	}
}

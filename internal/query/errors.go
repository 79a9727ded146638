package query

import "fmt"

// UnknownFieldError indicates a field name that resolves to neither a builtin
// search attribute nor a declared custom attribute.
type UnknownFieldError struct {
	Name string
	// Suggestion is a case-insensitive near-miss against a known field, if any.
	Suggestion string
}

func (e *UnknownFieldError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown field %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown field %q", e.Name)
}

// InvalidFieldNameError indicates a field name that cannot be represented in
// the filter language, e.g. one containing a back-tick.
type InvalidFieldNameError struct {
	Name   string
	Reason string
}

func (e *InvalidFieldNameError) Error() string {
	return fmt.Sprintf("invalid field name %q: %s", e.Name, e.Reason)
}

// TypeMismatchError indicates an operator or literal that is incompatible with
// the field's declared type.
type TypeMismatchError struct {
	Field    string
	Type     FieldType
	Operator Operator
	Reason   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %s (%s): operator %s: %s", e.Field, e.Type, e.Operator, e.Reason)
}

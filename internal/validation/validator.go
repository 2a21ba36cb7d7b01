// Package validation provides field-level request validation for the
// handler layer. The core assumes its inputs already satisfy these
// checks.
package validation

import (
	"fmt"
)

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Validator struct {
	Errors []FieldError
}

func New() *Validator {
	return &Validator{
		Errors: make([]FieldError, 0),
	}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	v.Errors = append(v.Errors, FieldError{
		Field:   field,
		Message: message,
	})
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// FieldMap flattens the collected errors for the response payload.
func (v *Validator) FieldMap() map[string]string {
	fields := make(map[string]string, len(v.Errors))
	for _, e := range v.Errors {
		fields[e.Field] = e.Message
	}
	return fields
}

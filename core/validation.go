package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ValidationResult accumulates the outcome of one or more validation checks.
// The zero value is not valid, use Success or Failure to create a result.
type ValidationResult struct {
	Valid       bool
	Errors      []string
	FieldErrors map[string][]string
	// Warnings never influence Valid.
	Warnings []string
}

// Success returns a valid result without any messages.
func Success() ValidationResult {
	return ValidationResult{Valid: true}
}

// Failure returns an invalid result containing the specified global errors.
func Failure(errs ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: slices.Clone(errs)}
}

// AddError adds a global error and marks the result as invalid.
func (r *ValidationResult) AddError(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

// AddFieldError adds one or more errors for the specified field and marks the result as invalid.
func (r *ValidationResult) AddFieldError(field string, msgs ...string) {
	r.Valid = false
	if r.FieldErrors == nil {
		r.FieldErrors = make(map[string][]string)
	}
	r.FieldErrors[field] = append(r.FieldErrors[field], msgs...)
}

// AddWarning adds an informational message that does not block persistence.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Combine merges two results into a new one without modifying either of them.
// The combination is invalid if either result is invalid, global errors and warnings are
// concatenated and field error lists are appended per field.
func (r ValidationResult) Combine(other ValidationResult) ValidationResult {
	combined := ValidationResult{
		Valid:    r.Valid && other.Valid,
		Errors:   slices.Concat(r.Errors, other.Errors),
		Warnings: slices.Concat(r.Warnings, other.Warnings),
	}
	if len(r.FieldErrors) > 0 || len(other.FieldErrors) > 0 {
		combined.FieldErrors = make(map[string][]string, len(r.FieldErrors)+len(other.FieldErrors))
		for field, msgs := range r.FieldErrors {
			combined.FieldErrors[field] = slices.Clone(msgs)
		}
		for field, msgs := range other.FieldErrors {
			combined.FieldErrors[field] = append(combined.FieldErrors[field], msgs...)
		}
	}
	return combined
}

// CombineResults folds any amount of results into a single one, starting from Success.
func CombineResults(results ...ValidationResult) ValidationResult {
	combined := Success()
	for _, r := range results {
		combined = combined.Combine(r)
	}
	return combined
}

// Err returns a *ValidationError if the result is invalid and nil otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{
		Errors:      slices.Clone(r.Errors),
		FieldErrors: maps.Clone(r.FieldErrors),
	}
}

// ValidationError is returned whenever a record fails validation.
// It matches ErrValidation when used with errors.Is.
type ValidationError struct {
	Errors      []string
	FieldErrors map[string][]string
}

// NewValidationError creates a validation error with the specified global errors.
func NewValidationError(errs ...string) *ValidationError {
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrValidation.Error())
	if len(e.Errors) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Errors, ", "))
	}
	if len(e.FieldErrors) > 0 {
		fieldErrors := make([]string, 0, len(e.FieldErrors))
		for _, field := range slices.Sorted(maps.Keys(e.FieldErrors)) {
			for _, msg := range e.FieldErrors[field] {
				fieldErrors = append(fieldErrors, fmt.Sprintf("%s: %s", field, msg))
			}
		}
		sb.WriteString("; field errors: ")
		sb.WriteString(strings.Join(fieldErrors, ", "))
	}
	return sb.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

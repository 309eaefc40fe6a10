package schema

import "fmt"

// Impact grades how disruptive a warning is. Errors always block; impact
// only feeds the overall severity derivation for warnings.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Severity is the overall grade of a validation result. It is derived from
// the issues present, never stored per issue.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Issue is a single validation finding with location context.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Impact  Impact `json:"impact,omitempty"`
}

// ValidationResult aggregates the findings of all validation passes.
type ValidationResult struct {
	Errors      []Issue  `json:"errors,omitempty"`
	Warnings    []Issue  `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Valid returns true if there are no errors (warnings are acceptable).
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// AddError appends a hard error.
func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, Issue{Path: path, Code: code, Message: message})
}

// AddWarning appends a warning with the given impact.
func (r *ValidationResult) AddWarning(path, code, message string, impact Impact) {
	r.Warnings = append(r.Warnings, Issue{Path: path, Code: code, Message: message, Impact: impact})
}

// Suggest appends a free-form suggestion.
func (r *ValidationResult) Suggest(message string) {
	r.Suggestions = append(r.Suggestions, message)
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Suggestions = append(r.Suggestions, other.Suggestions...)
}

// criticalCodes force critical severity regardless of anything else.
var criticalCodes = map[string]bool{
	ErrCodeTargetNotFound: true,
	ErrCodeCircular:       true,
	ErrCodeJumpCycle:      true,
}

// Severity derives the overall grade:
// critical-code error -> critical; any other error -> high;
// high-impact warning -> high; more than one medium-impact warning -> medium;
// any warning -> low; otherwise none.
func (r *ValidationResult) Severity() Severity {
	for _, e := range r.Errors {
		if criticalCodes[e.Code] {
			return SeverityCritical
		}
	}
	if len(r.Errors) > 0 {
		return SeverityHigh
	}

	mediums := 0
	for _, w := range r.Warnings {
		switch w.Impact {
		case ImpactHigh:
			return SeverityHigh
		case ImpactMedium:
			mediums++
		}
	}
	if mediums > 1 {
		return SeverityMedium
	}
	if len(r.Warnings) > 0 {
		return SeverityLow
	}
	return SeverityNone
}

// ToError converts the result to a GraphError if invalid, nil if valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msg := r.Errors[0].Message
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(r.Errors))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"severity":      r.Severity(),
			"errors":        r.Errors,
			"warnings":      r.Warnings,
		})
}

package validation

import (
	"fmt"

	"github.com/rendis/regraph/pkg/schema"
)

// UserReport is the user-facing rendering of a validation result. Hard
// errors block the operation; warnings and suggestions surface alongside a
// proceedable message.
type UserReport struct {
	CanProceed bool            `json:"canProceed"`
	Title      string          `json:"title"`
	Severity   schema.Severity `json:"severity"`
	Messages   []string        `json:"messages,omitempty"`
}

// FormatForUser maps a validation result to a UserReport.
func FormatForUser(result *schema.ValidationResult) UserReport {
	report := UserReport{
		CanProceed: result.Valid(),
		Severity:   result.Severity(),
	}

	switch {
	case !result.Valid():
		report.Title = "The branch insertion cannot be applied"
	case len(result.Warnings) > 0:
		report.Title = "The branch insertion can be applied with caveats"
	default:
		report.Title = "The branch insertion is safe to apply"
	}

	for _, e := range result.Errors {
		report.Messages = append(report.Messages, fmt.Sprintf("error: %s", e.Message))
	}
	for _, w := range result.Warnings {
		report.Messages = append(report.Messages, fmt.Sprintf("warning: %s", w.Message))
	}
	for _, s := range result.Suggestions {
		report.Messages = append(report.Messages, fmt.Sprintf("suggestion: %s", s))
	}

	return report
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/regraph/pkg/schema"
)

func TestFormatForUser(t *testing.T) {
	t.Run("clean result", func(t *testing.T) {
		report := FormatForUser(&schema.ValidationResult{})
		assert.True(t, report.CanProceed)
		assert.Equal(t, "The branch insertion is safe to apply", report.Title)
		assert.Equal(t, schema.SeverityNone, report.Severity)
		assert.Empty(t, report.Messages)
	})

	t.Run("warnings keep it proceedable", func(t *testing.T) {
		result := &schema.ValidationResult{}
		result.AddWarning("stepsToTransfer", schema.WarnCodeNoSteps, "branch starts empty", schema.ImpactLow)
		result.Suggest("add an end node")

		report := FormatForUser(result)
		assert.True(t, report.CanProceed)
		assert.Equal(t, "The branch insertion can be applied with caveats", report.Title)
		assert.Equal(t, []string{
			"warning: branch starts empty",
			"suggestion: add an end node",
		}, report.Messages)
	})

	t.Run("errors block", func(t *testing.T) {
		result := &schema.ValidationResult{}
		result.AddError("edges", schema.ErrCodeCircular, "applying the plan creates a cycle: a -> b -> a")
		result.AddWarning("", schema.WarnCodeOrphan, "node q may be orphaned", schema.ImpactMedium)

		report := FormatForUser(result)
		assert.False(t, report.CanProceed)
		assert.Equal(t, "The branch insertion cannot be applied", report.Title)
		assert.Equal(t, schema.SeverityCritical, report.Severity)
		assert.Equal(t, []string{
			"error: applying the plan creates a cycle: a -> b -> a",
			"warning: node q may be orphaned",
		}, report.Messages)
	})
}

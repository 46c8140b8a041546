package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for different metric types.
// Green: success/positive metrics
// Red: failure/error metrics
// Yellow: warning/threshold metrics
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats a single metric with colorized label and value.
// Label is colored cyan, value is colored based on the metric type and value.
// Format: "label: value"
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	labelColored := scheme.label.Sprint(label)
	valueColored := scheme.value.Sprintf("%v", value)
	return fmt.Sprintf("%s: %s", labelColored, valueColored)
}

// formatColorizedUpdateSummary formats an update pass's result with
// color coding: the "added" label in green, removed in red if nonzero,
// quarantined in yellow, rescanned in the plain metric style (cyan
// label). Zero-valued fields are omitted except
// "added" and "removed", which are always shown for continuity across
// runs.
func formatColorizedUpdateSummary(s UpdateSummary) string {
	scheme := newColorScheme()
	var parts []string

	addedLabel := scheme.success.Sprint("added")
	parts = append(parts, fmt.Sprintf("%s: %s", addedLabel, scheme.value.Sprintf("%d", s.Added)))

	if s.Removed > 0 {
		removedLabel := scheme.fail.Sprint("removed")
		parts = append(parts, fmt.Sprintf("%s: %s", removedLabel, scheme.fail.Sprintf("%d", s.Removed)))
	} else {
		parts = append(parts, formatColorizedMetric("removed", s.Removed, scheme))
	}

	if s.Rescanned > 0 {
		parts = append(parts, formatColorizedMetric("rescanned", s.Rescanned, scheme))
	}

	if s.Quarantined > 0 {
		quarantinedLabel := scheme.warn.Sprint("quarantined")
		parts = append(parts, fmt.Sprintf("%s: %s", quarantinedLabel, scheme.warn.Sprintf("%d", s.Quarantined)))
	}

	return strings.Join(parts, ", ")
}

// formatUpdateSummary is the plain-text counterpart of
// formatColorizedUpdateSummary, used when colorOutput is disabled.
func formatUpdateSummary(s UpdateSummary) string {
	parts := []string{
		fmt.Sprintf("added: %d", s.Added),
		fmt.Sprintf("removed: %d", s.Removed),
	}
	if s.Rescanned > 0 {
		parts = append(parts, fmt.Sprintf("rescanned: %d", s.Rescanned))
	}
	if s.Quarantined > 0 {
		parts = append(parts, fmt.Sprintf("quarantined: %d", s.Quarantined))
	}
	return strings.Join(parts, ", ")
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// NoFiltersSummary is the summary text when no constraint is active.
const NoFiltersSummary = "No filters active"

// SummarySeparator joins the active constraints in a summary.
const SummarySeparator = " | "

// Summary renders the active constraints in the fixed order zip, time range,
// agency, violations, weekdays. A zip with a lookup entry is followed by its
// neighborhood names.
func Summary(t *Table, state FilterState) string {
	state = state.Normalize()
	var parts []string
	if state.Zip != "" {
		if names, ok := t.lookup[state.Zip]; ok && len(names) > 0 {
			parts = append(parts, fmt.Sprintf("ZIP %s (%s)", state.Zip, strings.Join(names, " / ")))
		} else {
			parts = append(parts, "ZIP "+state.Zip)
		}
	}
	if r := state.TimeRange; r != nil {
		parts = append(parts, fmt.Sprintf("Period %s to %s", formatBound(r.Start), formatBound(r.End)))
	}
	if state.Agency != "" {
		parts = append(parts, "Agency: "+state.Agency)
	}
	if len(state.Violations) > 0 {
		parts = append(parts, "Violations: "+strings.Join(state.Violations, ", "))
	}
	if len(state.Weekdays) > 0 {
		parts = append(parts, "Weekdays: "+strings.Join(state.Weekdays, ", "))
	}
	if len(parts) == 0 {
		return NoFiltersSummary
	}
	return strings.Join(parts, SummarySeparator)
}

// formatBound prints a date when the bound falls on midnight, otherwise the
// full minute.
func formatBound(t time.Time) string {
	if t.Equal(utcDate(t)) {
		return t.Format(time.DateOnly)
	}
	return t.Format("2006-01-02 15:04")
}

package domain

// Views holds the three filtered subsets of the table. Each consuming
// aggregate reads exactly one of them.
type Views struct {
	// Primary applies every constraint.
	Primary []Ticket
	// ForRevenue skips the violation constraint.
	ForRevenue []Ticket
	// ForAverage skips the weekday constraint.
	ForAverage []Ticket
}

// Filter applies state to the table in a single scan. An invalid time range
// fails the whole call rather than being ignored.
func Filter(t *Table, state FilterState) (Views, error) {
	if state.TimeRange != nil {
		if err := state.TimeRange.Validate(); err != nil {
			return Views{}, err
		}
	}

	violations := toSet(state.Violations)
	weekdays := toSet(state.Weekdays)

	var v Views
	for _, tk := range t.tickets {
		if state.Zip != "" && tk.Zip != state.Zip {
			continue
		}
		if state.TimeRange != nil && !state.TimeRange.Contains(tk.IssuedAt) {
			continue
		}
		if state.Agency != "" && tk.Agency != state.Agency {
			continue
		}

		weekdayOK := weekdays == nil || has(weekdays, WeekdayName(tk.IssuedAt))
		violationOK := violations == nil || has(violations, tk.Violation)

		if weekdayOK && violationOK {
			v.Primary = append(v.Primary, tk)
		}
		if weekdayOK {
			v.ForRevenue = append(v.ForRevenue, tk)
		}
		if violationOK {
			v.ForAverage = append(v.ForAverage, tk)
		}
	}
	return v, nil
}

func toSet(items []string) map[string]struct{} {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}

func has(set map[string]struct{}, s string) bool {
	_, ok := set[s]
	return ok
}

// Package domain models the parking-ticket dataset and the cross-filtering
// logic that drives the linked dashboard views.
//
// # Data Source
//
// Tickets come from the municipal parking-violation CSV export. Rows are
// cleaned by the ingest package before they reach this package, so every
// [Ticket] already satisfies:
//
//	Zip       5-digit zero-padded string, e.g. "19102"
//	Fine      nil when the source value was missing or non-numeric
//	IssuedAt  UTC; naive source timestamps are assumed to be UTC
//
// # Filter State
//
// A [FilterState] holds the five independent constraints a user can set by
// interacting with the dashboard:
//
//	zip         map click (toggle: clicking the active zip clears it)
//	time range  brush on the time series (inclusive bounds)
//	agency      dropdown
//	violations  box-select on the revenue chart
//	weekdays    box-select on the weekday chart
//
// All constraints are conjunctive. An empty constraint means "no filtering on
// this dimension". State only changes through [Reduce] (one [Event] at a
// time) or [ReduceSignals] (a full snapshot of all five signals); both are
// pure and take the previous state explicitly so zip toggling compares
// against what is actually selected.
//
// # Views
//
// [Filter] produces three subsets of the table, one per consuming chart:
//
//	Primary     zip, time, agency, weekdays, violations   -> time series, totals
//	ForRevenue  zip, time, agency, weekdays               -> top violations
//	ForAverage  zip, time, agency, violations             -> weekday averages
//
// The revenue chart ignores the violation filter so unselected candidates stay
// visible next to the highlighted ones; the weekday chart ignores the weekday
// filter so all seven days remain a comparable baseline.
//
// # Aggregates
//
// [Compute] returns a [Dashboard] holding the six aggregates and the
// active-filter summary. The choropleth counts ([Table.ZipCounts]) always
// cover the whole table; selection only adds a highlight overlay.
//
// Weekday averages round half to even, matching the rounding used by the
// analysts' notebooks the dashboard replaced.
package domain

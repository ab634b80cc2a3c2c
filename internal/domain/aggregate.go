package domain

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// TopViolationsLimit caps the revenue chart.
const TopViolationsLimit = 5

// ViolationRevenue is the summed fine for one violation description.
type ViolationRevenue struct {
	Violation string  `json:"violation"`
	TotalFine float64 `json:"total_fine"`
	Selected  bool    `json:"selected"`
}

// DailyCount is the number of tickets issued on one UTC calendar date.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// WeekdayAverage is the mean number of tickets per day for one weekday.
type WeekdayAverage struct {
	Weekday  string `json:"weekday"`
	Average  int    `json:"average"`
	Selected bool   `json:"selected"`
}

// Totals summarizes the fully filtered view.
type Totals struct {
	FineSum float64 `json:"fine_sum"`
	Count   int     `json:"count"`
}

// Dashboard is every aggregate the linked views need for one state.
type Dashboard struct {
	State           FilterState        `json:"state"`
	ZipCounts       []ZipCount         `json:"zip_counts"`
	Highlight       *ZipCount          `json:"highlight,omitempty"`
	TopViolations   []ViolationRevenue `json:"top_violations"`
	TimeSeries      []DailyCount       `json:"time_series"`
	WeekdayAverages [7]WeekdayAverage  `json:"weekday_averages"`
	Totals          Totals             `json:"totals"`
	Summary         string             `json:"summary"`
}

// Compute filters the table by state and derives all aggregates. It is pure:
// the same table and state always produce the same dashboard.
func Compute(t *Table, state FilterState) (Dashboard, error) {
	state = state.Normalize()
	views, err := Filter(t, state)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		State:           state,
		ZipCounts:       t.ZipCounts(),
		Highlight:       Highlight(t, state),
		TopViolations:   TopViolations(views.ForRevenue, state.Violations),
		TimeSeries:      TimeSeries(views.Primary),
		WeekdayAverages: WeekdayAverages(views.ForAverage, state.Weekdays),
		Totals:          ComputeTotals(views.Primary),
		Summary:         Summary(t, state),
	}, nil
}

// Highlight returns the global count entry for the selected zip, or nil when
// no zip is selected or it has no tickets.
func Highlight(t *Table, state FilterState) *ZipCount {
	if state.Zip == "" {
		return nil
	}
	zc, ok := t.ZipCount(state.Zip)
	if !ok || zc.Count == 0 {
		return nil
	}
	return &zc
}

// TopViolations sums fines per violation, skipping tickets without a fine or
// a description, and returns the highest earners. Equal sums are ordered by
// violation label ascending.
func TopViolations(tickets []Ticket, selected []string) []ViolationRevenue {
	sums := make(map[string]float64)
	for _, tk := range tickets {
		if tk.Fine == nil || tk.Violation == "" || math.IsNaN(*tk.Fine) {
			continue
		}
		sums[tk.Violation] += *tk.Fine
	}

	out := make([]ViolationRevenue, 0, len(sums))
	for v, sum := range sums {
		out = append(out, ViolationRevenue{Violation: v, TotalFine: sum})
	}
	slices.SortFunc(out, func(a, b ViolationRevenue) int {
		if c := cmp.Compare(b.TotalFine, a.TotalFine); c != 0 {
			return c
		}
		return cmp.Compare(a.Violation, b.Violation)
	})
	if len(out) > TopViolationsLimit {
		out = out[:TopViolationsLimit]
	}

	sel := toSet(selected)
	for i := range out {
		out[i].Selected = has(sel, out[i].Violation)
	}
	return out
}

// TimeSeries counts tickets per UTC date in ascending order. Dates without
// tickets are omitted.
func TimeSeries(tickets []Ticket) []DailyCount {
	counts := make(map[time.Time]int)
	for _, tk := range tickets {
		counts[utcDate(tk.IssuedAt)]++
	}
	out := make([]DailyCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DailyCount{Date: d, Count: n})
	}
	slices.SortFunc(out, func(a, b DailyCount) int { return a.Date.Compare(b.Date) })
	return out
}

// WeekdayAverages returns the mean daily ticket count for each weekday,
// Monday first. Each weekday averages over the distinct dates on which it
// has tickets; a weekday with no dates averages to 0.
func WeekdayAverages(tickets []Ticket, selected []string) [7]WeekdayAverage {
	perDay := make(map[time.Time]int)
	for _, tk := range tickets {
		perDay[utcDate(tk.IssuedAt)]++
	}

	var sums [7]int
	var days [7]int
	for d, n := range perDay {
		i := weekdayIndex(d.Weekday())
		sums[i] += n
		days[i]++
	}

	sel := toSet(selected)
	var out [7]WeekdayAverage
	for i, name := range Weekdays {
		avg := 0
		if days[i] > 0 {
			avg = int(math.RoundToEven(float64(sums[i]) / float64(days[i])))
		}
		out[i] = WeekdayAverage{Weekday: name, Average: avg, Selected: has(sel, name)}
	}
	return out
}

// ComputeTotals sums fines (missing fines count as 0) and counts tickets.
func ComputeTotals(tickets []Ticket) Totals {
	var t Totals
	for _, tk := range tickets {
		if tk.Fine != nil && !math.IsNaN(*tk.Fine) {
			t.FineSum += *tk.Fine
		}
	}
	t.Count = len(tickets)
	return t
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

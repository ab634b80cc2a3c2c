// Command validate performs end-to-end integrity checks on a tickets export
// and neighborhoods lookup before they are served. It loads both through the
// same ingest path the service uses, then recomputes dashboards for a spread
// of filter states and verifies the aggregate invariants hold.
//
// Usage:
//
//	go run ./cmd/validate \
//	  --tickets data/mock/tickets.csv \
//	  --neighborhoods data/mock/neighborhoods.yaml
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"github.com/couchcryptid/parking-ticket-explorer/internal/ingest"
	"github.com/spf13/pflag"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	var ticketsPath, neighborhoodsPath string
	flags := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	flags.StringVar(&ticketsPath, "tickets", "", "path to the tickets CSV export")
	flags.StringVar(&neighborhoodsPath, "neighborhoods", "", "path to the neighborhoods YAML (optional)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if ticketsPath == "" {
		flags.Usage()
		os.Exit(1)
	}

	os.Exit(run(ticketsPath, neighborhoodsPath))
}

func run(ticketsPath, neighborhoodsPath string) int {
	fmt.Println("=== Parking Ticket Data Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res, err := ingest.LoadTicketsFile(ticketsPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load tickets: %v\n", err)
		return 1
	}
	lookup, err := ingest.LoadNeighborhoodsFile(neighborhoodsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load neighborhoods: %v\n", err)
		return 1
	}
	table, err := domain.NewTable(res.Tickets, lookup)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateIngest(res),
		validateLookup(table, lookup),
		validateAggregates(table),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d read, %d loaded, %d dropped\n", res.Rows, table.Len(), res.Dropped())
	for _, reason := range slices.Sorted(maps.Keys(res.DroppedBy)) {
		fmt.Printf("  %-20s %d\n", reason, res.DroppedBy[reason])
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Ingest ──
// Every loaded ticket must carry a valid zip and a UTC timestamp.

func validateIngest(res ingest.Result) *phase {
	p := &phase{name: "Phase 1: Ingest (CSV rows)"}

	if len(res.Tickets) == 0 {
		p.errorf("no usable rows in %d read", res.Rows)
	}
	if got := len(res.Tickets) + res.Dropped(); got != res.Rows {
		p.errorf("row accounting: %d loaded + %d dropped != %d read", len(res.Tickets), res.Dropped(), res.Rows)
	}
	for i, tk := range res.Tickets {
		if !domain.ValidZip(tk.Zip) {
			p.errorf("ticket %d: invalid zip %q", i, tk.Zip)
		}
		if tk.IssuedAt.Location() != time.UTC {
			p.errorf("ticket %d: timestamp %s is not UTC", i, tk.IssuedAt)
		}
		if tk.Fine != nil && (math.IsNaN(*tk.Fine) || math.IsInf(*tk.Fine, 0)) {
			p.errorf("ticket %d: non-finite fine", i)
		}
	}
	return p
}

// ── Phase 2: Neighborhood Lookup ──
// Lookup entries should name at least one neighborhood. Zips present in the
// data but missing from the lookup are reported, not failed.

func validateLookup(t *domain.Table, lookup domain.NeighborhoodLookup) *phase {
	p := &phase{name: "Phase 2: Neighborhood Lookup"}

	for zip, names := range lookup {
		if len(names) == 0 {
			p.errorf("zip %s: empty neighborhood list", zip)
		}
	}

	var unnamed []string
	for _, zc := range t.ZipCounts() {
		if _, ok := lookup[zc.Zip]; !ok {
			unnamed = append(unnamed, zc.Zip)
		}
	}
	if len(unnamed) > 0 {
		fmt.Printf("  Note: %d zip(s) without neighborhood names: %v\n", len(unnamed), unnamed)
	}
	return p
}

// ── Phase 3: Aggregates ──
// Recomputes dashboards for single-constraint states and checks the
// invariants every dashboard must satisfy.

func validateAggregates(t *domain.Table) *phase {
	p := &phase{name: "Phase 3: Aggregates (dashboard invariants)"}

	global := 0
	for _, zc := range t.ZipCounts() {
		global += zc.Count
	}
	if global != t.Len() {
		p.errorf("zip counts sum to %d, table has %d tickets", global, t.Len())
	}

	for _, s := range probeStates(t) {
		checkDashboard(p, t, s)
	}
	return p
}

func probeStates(t *domain.Table) []domain.FilterState {
	states := []domain.FilterState{{}}
	for _, zc := range t.ZipCounts() {
		states = append(states, domain.FilterState{Zip: zc.Zip})
	}
	for _, a := range t.Agencies() {
		states = append(states, domain.FilterState{Agency: a})
	}
	for _, w := range domain.Weekdays {
		states = append(states, domain.FilterState{Weekdays: []string{w}})
	}
	return states
}

func checkDashboard(p *phase, t *domain.Table, s domain.FilterState) {
	label := domain.Summary(t, s)

	v, err := domain.Filter(t, s)
	if err != nil {
		p.errorf("%s: filter: %v", label, err)
		return
	}
	d, err := domain.Compute(t, s)
	if err != nil {
		p.errorf("%s: compute: %v", label, err)
		return
	}

	var sum float64
	for _, tk := range v.Primary {
		if tk.Fine != nil {
			sum += *tk.Fine
		}
	}
	if d.Totals.Count != len(v.Primary) {
		p.errorf("%s: totals count %d, filtered view has %d", label, d.Totals.Count, len(v.Primary))
	}
	if math.Abs(d.Totals.FineSum-sum) > 1e-6 {
		p.errorf("%s: totals fine sum %.2f, filtered view sums to %.2f", label, d.Totals.FineSum, sum)
	}

	if len(d.TopViolations) > domain.TopViolationsLimit {
		p.errorf("%s: %d top violations exceeds limit", label, len(d.TopViolations))
	}
	for i := 1; i < len(d.TopViolations); i++ {
		if d.TopViolations[i-1].TotalFine < d.TopViolations[i].TotalFine {
			p.errorf("%s: top violations not sorted by revenue at %d", label, i)
		}
	}

	daily := 0
	for i, dc := range d.TimeSeries {
		daily += dc.Count
		if i > 0 && !d.TimeSeries[i-1].Date.Before(dc.Date) {
			p.errorf("%s: time series not strictly ascending at %d", label, i)
		}
	}
	if daily != len(v.Primary) {
		p.errorf("%s: time series sums to %d, filtered view has %d", label, daily, len(v.Primary))
	}

	for i, w := range d.WeekdayAverages {
		if w.Weekday != domain.Weekdays[i] {
			p.errorf("%s: weekday %d is %q, want %q", label, i, w.Weekday, domain.Weekdays[i])
		}
		if w.Average < 0 {
			p.errorf("%s: negative average for %s", label, w.Weekday)
		}
	}

	if s.Zip != "" {
		if d.Highlight == nil || d.Highlight.Zip != s.Zip {
			p.errorf("%s: missing highlight", label)
		}
	}
}

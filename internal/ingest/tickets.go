// Package ingest loads the ticket CSV export and the neighborhood lookup into
// the shapes the domain package expects.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
)

// Source column names in the tickets export.
const (
	ColZip       = "zip_code"
	ColFine      = "fine"
	ColIssuedAt  = "issue_datetime"
	ColAgency    = "issuing_agency"
	ColViolation = "violation_desc"
)

// Drop reasons reported in Result.DroppedBy.
const (
	DropMissingZip  = "missing_zip"
	DropInvalidZip  = "invalid_zip"
	DropInvalidTime = "invalid_timestamp"
	DropShortRecord = "short_record"
)

// Result is the outcome of loading a tickets export.
type Result struct {
	Tickets   []domain.Ticket
	Rows      int
	DroppedBy map[string]int
}

// Dropped returns the total number of rows skipped.
func (r Result) Dropped() int {
	n := 0
	for _, c := range r.DroppedBy {
		n += c
	}
	return n
}

// LoadTicketsFile opens path and loads it with LoadTickets.
func LoadTicketsFile(path string, logger *slog.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open tickets: %w", err)
	}
	defer f.Close()
	return LoadTickets(f, logger)
}

// LoadTickets reads a tickets CSV with a header row. Rows with a missing or
// unusable zip, or an unparseable timestamp, are skipped and counted.
// Non-numeric fines become missing rather than dropping the row.
func LoadTickets(r io.Reader, logger *slog.Logger) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return Result{}, err
	}

	res := Result{DroppedBy: map[string]int{}}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read row %d: %w", res.Rows+1, err)
		}
		res.Rows++

		tk, reason := parseRow(rec, cols)
		if reason != "" {
			res.DroppedBy[reason]++
			logger.Debug("dropping ticket row", "row", res.Rows, "reason", reason)
			continue
		}
		res.Tickets = append(res.Tickets, tk)
	}
	return res, nil
}

type columns struct {
	zip, fine, issuedAt, agency, violation int
}

func indexColumns(header []string) (columns, error) {
	c := columns{zip: -1, fine: -1, issuedAt: -1, agency: -1, violation: -1}
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case ColZip:
			c.zip = i
		case ColFine:
			c.fine = i
		case ColIssuedAt:
			c.issuedAt = i
		case ColAgency:
			c.agency = i
		case ColViolation:
			c.violation = i
		}
	}
	if c.zip < 0 {
		return c, fmt.Errorf("missing required column %q", ColZip)
	}
	if c.issuedAt < 0 {
		return c, fmt.Errorf("missing required column %q", ColIssuedAt)
	}
	return c, nil
}

func parseRow(rec []string, c columns) (domain.Ticket, string) {
	if len(rec) <= max(c.zip, c.issuedAt) {
		return domain.Ticket{}, DropShortRecord
	}
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rawZip := field(c.zip)
	if rawZip == "" {
		return domain.Ticket{}, DropMissingZip
	}
	zip, ok := ParseZip(rawZip)
	if !ok {
		return domain.Ticket{}, DropInvalidZip
	}

	issuedAt, err := domain.ParseTimestamp(field(c.issuedAt))
	if err != nil {
		return domain.Ticket{}, DropInvalidTime
	}

	return domain.Ticket{
		Zip:       zip,
		Fine:      ParseFine(field(c.fine)),
		IssuedAt:  issuedAt,
		Agency:    field(c.agency),
		Violation: field(c.violation),
	}, ""
}

// ParseZip normalizes a raw zip value to a 5-digit string. Exports store zips
// as floats ("19102.0"), so the value is parsed as a number, truncated, and
// zero-padded. Values that do not fit five digits are rejected.
func ParseZip(raw string) (string, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v >= 100000 {
		return "", false
	}
	return fmt.Sprintf("%05d", int64(v)), true
}

// ParseFine returns nil for empty or non-numeric fines.
func ParseFine(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

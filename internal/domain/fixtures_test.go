package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	zipCenter   = "19102"
	zipChinatwn = "19107"
	zipRitt     = "19103"

	vioMeter   = "METER EXPIRED"
	vioMeterCC = "METER EXPIRED CC"
	vioBus     = "BUS ONLY ZONE"
	vioOver    = "OVER TIME LIMIT"
)

func fine(v float64) *float64 { return &v }

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func testLookup() NeighborhoodLookup {
	return NeighborhoodLookup{
		zipCenter: {"Center City", "Logan Square"},
		zipRitt:   {"Rittenhouse"},
	}
}

// sampleTickets spans two Mondays (2017-03-06, 2017-03-13), a Tuesday and a
// Saturday, with one missing fine and one row lacking agency and violation.
func sampleTickets(t *testing.T) []Ticket {
	t.Helper()
	return []Ticket{
		{Zip: zipCenter, Fine: fine(50), IssuedAt: ts(t, "2017-03-06T09:00:00Z"), Agency: "PPA", Violation: vioMeter},
		{Zip: zipCenter, Fine: fine(30), IssuedAt: ts(t, "2017-03-06T14:30:00Z"), Agency: "PPA", Violation: vioMeterCC},
		{Zip: zipChinatwn, Fine: fine(100), IssuedAt: ts(t, "2017-03-07T08:15:00Z"), Agency: "POLICE", Violation: vioBus},
		{Zip: zipChinatwn, IssuedAt: ts(t, "2017-03-13T11:00:00Z"), Agency: "PPA", Violation: vioOver},
		{Zip: zipRitt, Fine: fine(76), IssuedAt: ts(t, "2017-03-11T20:00:00Z"), Agency: "PPA", Violation: vioBus},
		{Zip: zipRitt, Fine: fine(26), IssuedAt: ts(t, "2017-03-13T12:00:00Z"), Agency: "PPA", Violation: vioMeter},
		{Zip: zipRitt, Fine: fine(26), IssuedAt: ts(t, "2017-03-13T13:00:00Z")},
	}
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(sampleTickets(t), testLookup())
	require.NoError(t, err)
	return tbl
}

// scenarioTable is the three-row table from the acceptance scenarios.
func scenarioTable(t *testing.T, fines ...*float64) *Table {
	t.Helper()
	if len(fines) == 0 {
		fines = []*float64{fine(50), fine(30), fine(100)}
	}
	tbl, err := NewTable([]Ticket{
		{Zip: zipCenter, Fine: fines[0], IssuedAt: ts(t, "2017-03-06T09:00:00Z"), Violation: vioMeter},
		{Zip: zipCenter, Fine: fines[1], IssuedAt: ts(t, "2017-03-07T09:00:00Z"), Violation: vioMeterCC},
		{Zip: zipChinatwn, Fine: fines[2], IssuedAt: ts(t, "2017-03-08T09:00:00Z"), Violation: vioBus},
	}, nil)
	require.NoError(t, err)
	return tbl
}

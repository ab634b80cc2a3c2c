package view

import (
	"testing"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func fine(v float64) *float64 { return &v }

func testTable(t *testing.T) *domain.Table {
	t.Helper()
	day := func(d, h int) time.Time { return time.Date(2017, 3, d, h, 0, 0, 0, time.UTC) }
	tickets := []domain.Ticket{
		{Zip: "19102", Fine: fine(1500), IssuedAt: day(6, 9), Agency: "PPA", Violation: "BUS ONLY ZONE"},
		{Zip: "19102", Fine: fine(26), IssuedAt: day(6, 10), Agency: "PPA", Violation: "METER EXPIRED"},
		{Zip: "19107", Fine: fine(41), IssuedAt: day(7, 11), Agency: "POLICE", Violation: "STOP PROHIBITED"},
	}
	tbl, err := domain.NewTable(tickets, domain.NeighborhoodLookup{"19102": {"Center City", "Logan Square"}})
	require.NoError(t, err)
	return tbl
}

func build(t *testing.T, tbl *domain.Table, state domain.FilterState) Dashboard {
	t.Helper()
	d, err := domain.Compute(tbl, state)
	require.NoError(t, err)
	return NewBuilder(language.English).Build(tbl, d)
}

func TestBuild_NoFilters(t *testing.T) {
	v := build(t, testTable(t), domain.FilterState{})

	assert.Equal(t, "Neighborhood: All Neighborhoods", v.Banner)
	assert.Equal(t, domain.NoFiltersSummary, v.Summary)

	assert.Equal(t, FeatureIDKey, v.Map.FeatureIDKey)
	require.Len(t, v.Map.Regions, 2)
	assert.Equal(t, Region{Zip: "19102", Label: "Center City / Logan Square", Count: 2, Hover: "Center City / Logan Square: 2 tickets"}, v.Map.Regions[0])
	assert.Nil(t, v.Map.Highlight)
	assert.Empty(t, v.Map.HighlightColor)

	require.Len(t, v.Revenue.Bars, 3)
	assert.Equal(t, Bar{Label: "BUS ONLY ZONE", Value: 1500, Display: "$1,500", Color: ColorDefault}, v.Revenue.Bars[0])
	assert.Empty(t, v.Revenue.Message)

	assert.Equal(t, []Point{{Date: "2017-03-06", Count: 2}, {Date: "2017-03-07", Count: 1}}, v.TimeSeries.Points)

	assert.Equal(t, "$1,567", v.TotalRevenue.Display)
	assert.InDelta(t, 1567, v.TotalRevenue.Value, 1e-9)
	assert.Equal(t, "3", v.TotalCount.Display)
}

func TestBuild_SelectionColors(t *testing.T) {
	v := build(t, testTable(t), domain.FilterState{
		Zip:        "19102",
		Violations: []string{"METER EXPIRED"},
		Weekdays:   []string{"Monday"},
	})

	assert.Equal(t, "Neighborhood: Center City | Logan Square", v.Banner)
	require.NotNil(t, v.Map.Highlight)
	assert.Equal(t, "19102", v.Map.Highlight.Zip)
	assert.Equal(t, ColorSelected, v.Map.HighlightColor)
	assert.Len(t, v.Map.Regions, 2, "choropleth keeps every zip")

	for _, b := range v.Revenue.Bars {
		want := ColorDefault
		if b.Label == "METER EXPIRED" {
			want = ColorSelected
		}
		assert.Equal(t, want, b.Color, b.Label)
	}

	require.Len(t, v.Weekdays.Bars, 7)
	assert.Equal(t, "Monday", v.Weekdays.Bars[0].Label)
	assert.Equal(t, ColorSelected, v.Weekdays.Bars[0].Color)
	assert.True(t, v.Weekdays.Bars[0].Selected)
	for _, b := range v.Weekdays.Bars[1:] {
		assert.Equal(t, ColorDefault, b.Color, b.Label)
	}
}

func TestBuild_NoViolations(t *testing.T) {
	v := build(t, testTable(t), domain.FilterState{
		TimeRange: &domain.TimeRange{Start: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)},
	})
	assert.Empty(t, v.Revenue.Bars)
	assert.Equal(t, NoViolationsMessage, v.Revenue.Message)
	assert.Empty(t, v.TimeSeries.Points)
	assert.Equal(t, "$0", v.TotalRevenue.Display)
	assert.Equal(t, "0", v.TotalCount.Display)
}

func TestBanner(t *testing.T) {
	tbl := testTable(t)
	assert.Equal(t, "Neighborhood: All Neighborhoods", Banner(tbl, ""))
	assert.Equal(t, "Neighborhood: Center City | Logan Square", Banner(tbl, "19102"))
	assert.Equal(t, "Neighborhood: ZIP 19107", Banner(tbl, "19107"))
}

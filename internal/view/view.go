// Package view turns computed dashboards into chart-ready structures: bar and
// line series with colors, formatted indicator values, the map layers and the
// neighborhood banner.
package view

import (
	"strings"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Colors used by the bar charts and the map overlay.
const (
	ColorSelected = "red"
	ColorDefault  = "#636EFA"
)

// Chart titles.
const (
	TitleRevenue      = "Top 5 Violations by Revenue"
	TitleTimeSeries   = "Tickets over Time"
	TitleWeekdays     = "Average Tickets per Day of the Week"
	TitleTotalRevenue = "Total Revenue"
	TitleTotalCount   = "Total Ticket Count"

	NoViolationsMessage = "No valid violations found"
	AllNeighborhoods    = "All Neighborhoods"
)

// FeatureIDKey is the GeoJSON property that holds a polygon's zip code.
const FeatureIDKey = "properties.CODE"

// Bar is one bar of a categorical chart.
type Bar struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Display  string  `json:"display"`
	Color    string  `json:"color"`
	Selected bool    `json:"selected"`
}

// BarChart is an ordered bar series. Message is set when there is nothing to
// plot.
type BarChart struct {
	Title   string `json:"title"`
	Bars    []Bar  `json:"bars"`
	Message string `json:"message,omitempty"`
}

// Point is one day of the time series.
type Point struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// LineChart is the daily ticket series.
type LineChart struct {
	Title  string  `json:"title"`
	Points []Point `json:"points"`
}

// Indicator is a single headline number.
type Indicator struct {
	Title   string  `json:"title"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Region is one zip polygon on the map.
type Region struct {
	Zip   string `json:"zip"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Hover string `json:"hover"`
}

// Map is the choropleth layer plus an optional overlay for the selected zip.
type Map struct {
	FeatureIDKey   string   `json:"feature_id_key"`
	Regions        []Region `json:"regions"`
	Highlight      *Region  `json:"highlight,omitempty"`
	HighlightColor string   `json:"highlight_color,omitempty"`
}

// Dashboard is the complete set of linked views for one filter state.
type Dashboard struct {
	State        domain.FilterState `json:"state"`
	Summary      string             `json:"summary"`
	Banner       string             `json:"banner"`
	Map          Map                `json:"map"`
	Revenue      BarChart           `json:"revenue"`
	TimeSeries   LineChart          `json:"time_series"`
	Weekdays     BarChart           `json:"weekdays"`
	TotalRevenue Indicator          `json:"total_revenue"`
	TotalCount   Indicator          `json:"total_count"`
}

// Builder renders dashboards with locale-aware number formatting.
type Builder struct {
	printer *message.Printer
}

// NewBuilder returns a Builder that formats numbers for tag.
func NewBuilder(tag language.Tag) *Builder {
	return &Builder{printer: message.NewPrinter(tag)}
}

// Build renders d. The table supplies neighborhood names for the banner.
func (b *Builder) Build(t *domain.Table, d domain.Dashboard) Dashboard {
	return Dashboard{
		State:      d.State,
		Summary:    d.Summary,
		Banner:     Banner(t, d.State.Zip),
		Map:        b.buildMap(d),
		Revenue:    b.buildRevenue(d.TopViolations),
		TimeSeries: buildTimeSeries(d.TimeSeries),
		Weekdays:   b.buildWeekdays(d.WeekdayAverages),
		TotalRevenue: Indicator{
			Title:   TitleTotalRevenue,
			Value:   d.Totals.FineSum,
			Display: b.money(d.Totals.FineSum),
		},
		TotalCount: Indicator{
			Title:   TitleTotalCount,
			Value:   float64(d.Totals.Count),
			Display: b.printer.Sprintf("%d", d.Totals.Count),
		},
	}
}

// Banner names the neighborhoods of the selected zip, or all of them when
// no zip is selected.
func Banner(t *domain.Table, zip string) string {
	if zip == "" {
		return "Neighborhood: " + AllNeighborhoods
	}
	names := t.Lookup(zip)
	if len(names) == 1 && names[0] == zip {
		names = []string{"ZIP " + zip}
	}
	return "Neighborhood: " + strings.Join(names, " | ")
}

func (b *Builder) buildMap(d domain.Dashboard) Map {
	m := Map{FeatureIDKey: FeatureIDKey, Regions: make([]Region, len(d.ZipCounts))}
	for i, zc := range d.ZipCounts {
		m.Regions[i] = b.region(zc)
	}
	if d.Highlight != nil {
		r := b.region(*d.Highlight)
		m.Highlight = &r
		m.HighlightColor = ColorSelected
	}
	return m
}

func (b *Builder) region(zc domain.ZipCount) Region {
	return Region{
		Zip:   zc.Zip,
		Label: zc.Label(),
		Count: zc.Count,
		Hover: b.printer.Sprintf("%s: %d tickets", zc.Label(), zc.Count),
	}
}

func (b *Builder) buildRevenue(top []domain.ViolationRevenue) BarChart {
	c := BarChart{Title: TitleRevenue, Bars: make([]Bar, len(top))}
	if len(top) == 0 {
		c.Message = NoViolationsMessage
	}
	for i, v := range top {
		c.Bars[i] = Bar{
			Label:    v.Violation,
			Value:    v.TotalFine,
			Display:  b.money(v.TotalFine),
			Color:    color(v.Selected),
			Selected: v.Selected,
		}
	}
	return c
}

func (b *Builder) buildWeekdays(avgs [7]domain.WeekdayAverage) BarChart {
	c := BarChart{Title: TitleWeekdays, Bars: make([]Bar, len(avgs))}
	for i, w := range avgs {
		c.Bars[i] = Bar{
			Label:    w.Weekday,
			Value:    float64(w.Average),
			Display:  b.printer.Sprintf("%d", w.Average),
			Color:    color(w.Selected),
			Selected: w.Selected,
		}
	}
	return c
}

func buildTimeSeries(series []domain.DailyCount) LineChart {
	c := LineChart{Title: TitleTimeSeries, Points: make([]Point, len(series))}
	for i, p := range series {
		c.Points[i] = Point{Date: p.Date.Format(time.DateOnly), Count: p.Count}
	}
	return c
}

func (b *Builder) money(v float64) string {
	return b.printer.Sprintf("$%.0f", v)
}

func color(selected bool) string {
	if selected {
		return ColorSelected
	}
	return ColorDefault
}

package domain

import "fmt"

// Event is one user interaction with the dashboard. The concrete types below
// form a closed set; Reduce handles each of them.
type Event interface {
	// Kind returns a stable snake_case identifier for logs and metrics.
	Kind() string
	isEvent()
}

// ZipClicked toggles the zip selection from a map click.
type ZipClicked struct {
	Zip string `json:"zip"`
}

// TimeRangeBrushed replaces the time range with a brushed window. Bounds are
// the raw strings reported by the chart and are parsed by Reduce.
type TimeRangeBrushed struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeRangeReset clears the time range (chart zoomed back out).
type TimeRangeReset struct{}

// ViolationsSelected replaces the violation set. An empty set clears it.
type ViolationsSelected struct {
	Violations []string `json:"violations"`
}

// AgencySelected replaces the agency. An empty agency clears it.
type AgencySelected struct {
	Agency string `json:"agency"`
}

// WeekdaysSelected replaces the weekday set. An empty set clears it.
type WeekdaysSelected struct {
	Weekdays []string `json:"weekdays"`
}

// Reset clears every constraint.
type Reset struct{}

func (ZipClicked) Kind() string         { return "zip_clicked" }
func (TimeRangeBrushed) Kind() string   { return "time_range_brushed" }
func (TimeRangeReset) Kind() string     { return "time_range_reset" }
func (ViolationsSelected) Kind() string { return "violations_selected" }
func (AgencySelected) Kind() string     { return "agency_selected" }
func (WeekdaysSelected) Kind() string   { return "weekdays_selected" }
func (Reset) Kind() string              { return "reset" }

func (ZipClicked) isEvent()         {}
func (TimeRangeBrushed) isEvent()   {}
func (TimeRangeReset) isEvent()     {}
func (ViolationsSelected) isEvent() {}
func (AgencySelected) isEvent()     {}
func (WeekdaysSelected) isEvent()   {}
func (Reset) isEvent()              {}

// Reduce applies ev to prev and returns the new canonical state. Fields the
// event does not touch are carried forward from prev. Zip clicks toggle
// against prev.Zip.
func Reduce(prev FilterState, ev Event) (FilterState, error) {
	next := prev.Clone()
	switch e := ev.(type) {
	case ZipClicked:
		next.Zip = toggleZip(prev.Zip, e.Zip)
	case TimeRangeBrushed:
		r, err := ParseTimeRange(e.Start, e.End)
		if err != nil {
			return prev, err
		}
		next.TimeRange = &r
	case TimeRangeReset:
		next.TimeRange = nil
	case ViolationsSelected:
		next.Violations = e.Violations
	case AgencySelected:
		next.Agency = e.Agency
	case WeekdaysSelected:
		next.Weekdays = e.Weekdays
	case Reset:
		next = FilterState{}
	default:
		return prev, fmt.Errorf("unknown event type %T", ev)
	}
	return next.Normalize(), nil
}

// Signals is a snapshot of all five interaction signals at once. A nil
// pointer means the signal carried no value in this snapshot.
type Signals struct {
	ClickedZip *string           `json:"clicked_zip"`
	TimeRange  *TimeRangeBrushed `json:"time_range"`
	Violations []string          `json:"violations"`
	Agency     string            `json:"agency"`
	Weekdays   []string          `json:"weekdays"`
}

// ReduceSignals builds the next state from a full signal snapshot. Every
// field is replaced by its signal; the zip is the one exception, toggling
// against prev.Zip when a click is present. A snapshot without a click or a
// brush leaves that field unset.
func ReduceSignals(prev FilterState, s Signals) (FilterState, error) {
	next := FilterState{
		Agency:     s.Agency,
		Violations: s.Violations,
		Weekdays:   s.Weekdays,
	}
	if s.ClickedZip != nil {
		next.Zip = toggleZip(prev.Zip, *s.ClickedZip)
	}
	if s.TimeRange != nil {
		r, err := ParseTimeRange(s.TimeRange.Start, s.TimeRange.End)
		if err != nil {
			return prev, err
		}
		next.TimeRange = &r
	}
	return next.Normalize(), nil
}

func toggleZip(current, clicked string) string {
	if clicked == current {
		return ""
	}
	return clicked
}

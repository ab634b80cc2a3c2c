package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReduce(t *testing.T, prev FilterState, ev Event) FilterState {
	t.Helper()
	next, err := Reduce(prev, ev)
	require.NoError(t, err)
	return next
}

func TestReduce_ZipToggle(t *testing.T) {
	t.Run("click selects zip", func(t *testing.T) {
		s := mustReduce(t, FilterState{}, ZipClicked{Zip: zipCenter})
		assert.Equal(t, zipCenter, s.Zip)
	})

	t.Run("clicking the active zip clears it", func(t *testing.T) {
		s1 := mustReduce(t, FilterState{}, ZipClicked{Zip: zipCenter})
		s2 := mustReduce(t, s1, ZipClicked{Zip: zipCenter})
		assert.Empty(t, s2.Zip)
	})

	t.Run("clicking another zip switches", func(t *testing.T) {
		s1 := mustReduce(t, FilterState{}, ZipClicked{Zip: zipCenter})
		s2 := mustReduce(t, s1, ZipClicked{Zip: zipChinatwn})
		assert.Equal(t, zipChinatwn, s2.Zip)
	})

	t.Run("toggle law holds for any starting state without a zip", func(t *testing.T) {
		starts := []FilterState{
			{},
			{Agency: "PPA"},
			{Violations: []string{vioBus}, Weekdays: []string{"Monday"}},
			{TimeRange: &TimeRange{Start: time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2017, 3, 31, 0, 0, 0, 0, time.UTC)}},
		}
		for _, s0 := range starts {
			for _, z := range []string{zipCenter, zipChinatwn, "00001"} {
				s1 := mustReduce(t, s0, ZipClicked{Zip: z})
				s2 := mustReduce(t, s1, ZipClicked{Zip: z})
				assert.Empty(t, s2.Zip)
				assert.Equal(t, s0.Normalize(), s2)
			}
		}
	})
}

func TestReduce_ReplaceSemantics(t *testing.T) {
	base := FilterState{
		Zip:        zipCenter,
		Agency:     "PPA",
		Violations: []string{vioMeter},
		Weekdays:   []string{"Friday"},
	}

	tests := []struct {
		name  string
		event Event
		check func(t *testing.T, s FilterState)
	}{
		{
			name:  "agency replaced",
			event: AgencySelected{Agency: "POLICE"},
			check: func(t *testing.T, s FilterState) { assert.Equal(t, "POLICE", s.Agency) },
		},
		{
			name:  "agency cleared",
			event: AgencySelected{},
			check: func(t *testing.T, s FilterState) { assert.Empty(t, s.Agency) },
		},
		{
			name:  "violations replaced and sorted",
			event: ViolationsSelected{Violations: []string{vioOver, vioBus, vioBus}},
			check: func(t *testing.T, s FilterState) { assert.Equal(t, []string{vioBus, vioOver}, s.Violations) },
		},
		{
			name:  "violations cleared",
			event: ViolationsSelected{Violations: []string{}},
			check: func(t *testing.T, s FilterState) { assert.Nil(t, s.Violations) },
		},
		{
			name:  "weekdays replaced in calendar order",
			event: WeekdaysSelected{Weekdays: []string{"Sunday", "Monday", "Wednesday"}},
			check: func(t *testing.T, s FilterState) {
				assert.Equal(t, []string{"Monday", "Wednesday", "Sunday"}, s.Weekdays)
			},
		},
		{
			name:  "weekdays cleared",
			event: WeekdaysSelected{},
			check: func(t *testing.T, s FilterState) { assert.Nil(t, s.Weekdays) },
		},
		{
			name:  "reset clears everything",
			event: Reset{},
			check: func(t *testing.T, s FilterState) { assert.True(t, s.IsEmpty()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := mustReduce(t, base, tt.event)
			tt.check(t, next)
			if _, ok := tt.event.(Reset); !ok {
				assert.Equal(t, zipCenter, next.Zip, "untouched fields carry forward")
			}
		})
	}
}

func TestReduce_TimeRange(t *testing.T) {
	t.Run("brush parses naive bounds as UTC", func(t *testing.T) {
		s := mustReduce(t, FilterState{}, TimeRangeBrushed{Start: "2017-03-01 00:00:00", End: "2017-03-15 12:30:00.5"})
		require.NotNil(t, s.TimeRange)
		assert.Equal(t, time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC), s.TimeRange.Start)
		assert.Equal(t, time.Date(2017, 3, 15, 12, 30, 0, 500_000_000, time.UTC), s.TimeRange.End)
	})

	t.Run("offset-aware bounds converted to UTC", func(t *testing.T) {
		s := mustReduce(t, FilterState{}, TimeRangeBrushed{Start: "2017-03-01T00:00:00-05:00", End: "2017-03-02"})
		require.NotNil(t, s.TimeRange)
		assert.Equal(t, time.Date(2017, 3, 1, 5, 0, 0, 0, time.UTC), s.TimeRange.Start)
		assert.Equal(t, time.UTC, s.TimeRange.Start.Location())
	})

	t.Run("new brush replaces old", func(t *testing.T) {
		s1 := mustReduce(t, FilterState{}, TimeRangeBrushed{Start: "2017-01-01", End: "2017-02-01"})
		s2 := mustReduce(t, s1, TimeRangeBrushed{Start: "2017-05-01", End: "2017-06-01"})
		assert.Equal(t, time.Date(2017, 5, 1, 0, 0, 0, 0, time.UTC), s2.TimeRange.Start)
	})

	t.Run("reset clears range", func(t *testing.T) {
		s1 := mustReduce(t, FilterState{}, TimeRangeBrushed{Start: "2017-01-01", End: "2017-02-01"})
		s2 := mustReduce(t, s1, TimeRangeReset{})
		assert.Nil(t, s2.TimeRange)
	})

	t.Run("malformed bounds are rejected and state is unchanged", func(t *testing.T) {
		prev := FilterState{Agency: "PPA"}
		for _, ev := range []TimeRangeBrushed{
			{Start: "yesterday", End: "2017-01-01"},
			{Start: "2017-01-01", End: ""},
			{Start: "2017-02-01", End: "2017-01-01"},
		} {
			next, err := Reduce(prev, ev)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTimeRange)
			assert.Equal(t, prev, next)
		}
	})
}

func TestReduce_DoesNotMutatePrevious(t *testing.T) {
	prev := FilterState{Violations: []string{vioBus, vioMeter}}
	_ = mustReduce(t, prev, ViolationsSelected{Violations: []string{vioOver}})
	assert.Equal(t, []string{vioBus, vioMeter}, prev.Violations)
}

func TestReduceSignals(t *testing.T) {
	clicked := zipCenter

	t.Run("snapshot replaces every field", func(t *testing.T) {
		prev := FilterState{Agency: "POLICE", Violations: []string{vioBus}, Weekdays: []string{"Friday"}}
		next, err := ReduceSignals(prev, Signals{
			ClickedZip: &clicked,
			TimeRange:  &TimeRangeBrushed{Start: "2017-03-01", End: "2017-03-31"},
			Violations: []string{vioMeter},
			Agency:     "PPA",
			Weekdays:   []string{"Monday"},
		})
		require.NoError(t, err)
		assert.Equal(t, zipCenter, next.Zip)
		assert.Equal(t, "PPA", next.Agency)
		assert.Equal(t, []string{vioMeter}, next.Violations)
		assert.Equal(t, []string{"Monday"}, next.Weekdays)
		require.NotNil(t, next.TimeRange)
	})

	t.Run("repeated click against previous state toggles off", func(t *testing.T) {
		s1, err := ReduceSignals(FilterState{}, Signals{ClickedZip: &clicked})
		require.NoError(t, err)
		assert.Equal(t, zipCenter, s1.Zip)

		s2, err := ReduceSignals(s1, Signals{ClickedZip: &clicked})
		require.NoError(t, err)
		assert.Empty(t, s2.Zip)
	})

	t.Run("absent brush leaves range unset", func(t *testing.T) {
		prev := FilterState{TimeRange: &TimeRange{Start: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2017, 2, 1, 0, 0, 0, 0, time.UTC)}}
		next, err := ReduceSignals(prev, Signals{})
		require.NoError(t, err)
		assert.Nil(t, next.TimeRange)
		assert.True(t, next.IsEmpty())
	})

	t.Run("malformed brush", func(t *testing.T) {
		_, err := ReduceSignals(FilterState{}, Signals{TimeRange: &TimeRangeBrushed{Start: "x", End: "y"}})
		assert.ErrorIs(t, err, ErrInvalidTimeRange)
	})
}

func TestEventKinds(t *testing.T) {
	kinds := map[string]Event{
		"zip_clicked":         ZipClicked{},
		"time_range_brushed":  TimeRangeBrushed{},
		"time_range_reset":    TimeRangeReset{},
		"violations_selected": ViolationsSelected{},
		"agency_selected":     AgencySelected{},
		"weekdays_selected":   WeekdaysSelected{},
		"reset":               Reset{},
	}
	for want, ev := range kinds {
		assert.Equal(t, want, ev.Kind())
	}
}

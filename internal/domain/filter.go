package domain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// ErrInvalidTimeRange is returned when a time-range bound is missing,
// unparseable, or the start falls after the end.
var ErrInvalidTimeRange = errors.New("invalid time range")

// Weekdays lists weekday names in display order.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// weekdayIndex maps a time.Weekday to its position in Weekdays.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// WeekdayName returns the UTC calendar weekday name of t.
func WeekdayName(t time.Time) string {
	return Weekdays[weekdayIndex(t.UTC().Weekday())]
}

// TimeRange is an inclusive UTC interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the range, bounds included.
func (r TimeRange) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(r.Start) && !t.After(r.End)
}

// Validate rejects zero bounds and inverted ranges.
func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: missing bound", ErrInvalidTimeRange)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidTimeRange,
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// timestampLayouts are tried in order. Layouts without a zone yield UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseTimestamp parses an ISO-8601 timestamp. Offset-aware values are
// converted to UTC; naive values are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseTimeRange parses brush bounds into a validated TimeRange.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := ParseTimestamp(start)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: start: %w", ErrInvalidTimeRange, err)
	}
	e, err := ParseTimestamp(end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: end: %w", ErrInvalidTimeRange, err)
	}
	r := TimeRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// FilterState is the canonical dashboard selection. The zero value applies no
// constraints. Treat values as immutable: the reducer always returns a fresh
// state and never edits the previous one.
type FilterState struct {
	Zip        string     `json:"zip,omitempty"`
	TimeRange  *TimeRange `json:"time_range,omitempty"`
	Agency     string     `json:"agency,omitempty"`
	Violations []string   `json:"violations,omitempty"`
	Weekdays   []string   `json:"weekdays,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (s FilterState) IsEmpty() bool {
	return s.Zip == "" && s.TimeRange == nil && s.Agency == "" &&
		len(s.Violations) == 0 && len(s.Weekdays) == 0
}

// Clone returns a deep copy.
func (s FilterState) Clone() FilterState {
	out := s
	if s.TimeRange != nil {
		r := *s.TimeRange
		out.TimeRange = &r
	}
	out.Violations = slices.Clone(s.Violations)
	out.Weekdays = slices.Clone(s.Weekdays)
	return out
}

// Normalize canonicalizes the set fields: violations sorted and deduplicated,
// weekdays deduplicated in Monday..Sunday order (unknown names sorted after),
// empty sets as nil, time-range bounds in UTC.
func (s FilterState) Normalize() FilterState {
	out := s.Clone()
	out.Violations = normalizeSet(out.Violations)
	out.Weekdays = normalizeWeekdays(out.Weekdays)
	if out.TimeRange != nil {
		out.TimeRange.Start = out.TimeRange.Start.UTC()
		out.TimeRange.End = out.TimeRange.End.UTC()
	}
	return out
}

// Fingerprint returns a stable digest of the normalized state, suitable as a
// memoization key together with Table.Fingerprint.
func (s FilterState) Fingerprint() string {
	n := s.Normalize()
	h := blake3.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = io.WriteString(h, p)
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{1})
	}
	write("zip", n.Zip)
	if n.TimeRange != nil {
		write("time", n.TimeRange.Start.Format(time.RFC3339Nano), n.TimeRange.End.Format(time.RFC3339Nano))
	} else {
		write("time")
	}
	write("agency", n.Agency)
	write(append([]string{"violations"}, n.Violations...)...)
	write(append([]string{"weekdays"}, n.Weekdays...)...)
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

func normalizeWeekdays(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	var known, unknown []string
	for _, d := range in {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		if slices.Contains(Weekdays[:], d) {
			known = append(known, d)
		} else {
			unknown = append(unknown, d)
		}
	}
	slices.SortFunc(known, func(a, b string) int {
		return slices.Index(Weekdays[:], a) - slices.Index(Weekdays[:], b)
	})
	slices.Sort(unknown)
	return append(known, unknown...)
}

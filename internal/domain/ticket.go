package domain

import (
	"cmp"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// ErrInvalidZip is returned when a ticket's zip does not match ^\d{5}$.
var ErrInvalidZip = errors.New("invalid zip code")

var zipRe = regexp.MustCompile(`^\d{5}$`)

// ValidZip reports whether z is a 5-digit zip code.
func ValidZip(z string) bool {
	return zipRe.MatchString(z)
}

// Ticket is one parking citation.
type Ticket struct {
	Zip       string    `json:"zip"`
	Fine      *float64  `json:"fine,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	Agency    string    `json:"issuing_agency,omitempty"`
	Violation string    `json:"violation_desc,omitempty"`
}

// NeighborhoodLookup maps a zip code to the neighborhoods it covers.
type NeighborhoodLookup map[string][]string

// Neighborhoods returns the names for zip, or a single-element list holding
// the zip itself when the lookup has no entry.
func (l NeighborhoodLookup) Neighborhoods(zip string) []string {
	if names, ok := l[zip]; ok && len(names) > 0 {
		return slices.Clone(names)
	}
	return []string{zip}
}

// ZipCount is the number of tickets issued in one zip code.
type ZipCount struct {
	Zip           string   `json:"zip"`
	Count         int      `json:"count"`
	Neighborhoods []string `json:"neighborhoods"`
}

// Label joins the neighborhood names for display.
func (z ZipCount) Label() string {
	return strings.Join(z.Neighborhoods, " / ")
}

// Table is the immutable base dataset. Construct it once with NewTable and
// share it; nothing mutates it afterwards.
type Table struct {
	tickets     []Ticket
	lookup      NeighborhoodLookup
	zipCounts   []ZipCount
	zipIndex    map[string]int
	agencies    []string
	fingerprint string
}

// NewTable validates tickets and builds the table along with its global zip
// counts. The input slice and lookup are copied.
func NewTable(tickets []Ticket, lookup NeighborhoodLookup) (*Table, error) {
	t := &Table{
		tickets: make([]Ticket, len(tickets)),
		lookup:  make(NeighborhoodLookup, len(lookup)),
	}
	for zip, names := range lookup {
		t.lookup[zip] = slices.Clone(names)
	}

	counts := make(map[string]int)
	agencies := make(map[string]struct{})
	for i, tk := range tickets {
		if !ValidZip(tk.Zip) {
			return nil, fmt.Errorf("ticket %d: %w: %q", i, ErrInvalidZip, tk.Zip)
		}
		tk.IssuedAt = tk.IssuedAt.UTC()
		if tk.Fine != nil {
			f := *tk.Fine
			tk.Fine = &f
		}
		t.tickets[i] = tk
		counts[tk.Zip]++
		if tk.Agency != "" {
			agencies[tk.Agency] = struct{}{}
		}
	}

	t.zipCounts = make([]ZipCount, 0, len(counts))
	for zip, n := range counts {
		t.zipCounts = append(t.zipCounts, ZipCount{Zip: zip, Count: n, Neighborhoods: t.lookup.Neighborhoods(zip)})
	}
	slices.SortFunc(t.zipCounts, func(a, b ZipCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Zip, b.Zip)
	})
	t.zipIndex = make(map[string]int, len(t.zipCounts))
	for i, zc := range t.zipCounts {
		t.zipIndex[zc.Zip] = i
	}

	for a := range agencies {
		t.agencies = append(t.agencies, a)
	}
	slices.Sort(t.agencies)

	t.fingerprint = fingerprint(t.tickets, t.lookup)
	return t, nil
}

// Len returns the number of tickets.
func (t *Table) Len() int { return len(t.tickets) }

// Lookup returns the neighborhood names for zip.
func (t *Table) Lookup(zip string) []string { return t.lookup.Neighborhoods(zip) }

// ZipCounts returns per-zip ticket counts over the whole table, ordered by
// count descending and then zip ascending.
func (t *Table) ZipCounts() []ZipCount {
	out := make([]ZipCount, len(t.zipCounts))
	for i, zc := range t.zipCounts {
		zc.Neighborhoods = slices.Clone(zc.Neighborhoods)
		out[i] = zc
	}
	return out
}

// ZipCount returns the global count entry for zip.
func (t *Table) ZipCount(zip string) (ZipCount, bool) {
	i, ok := t.zipIndex[zip]
	if !ok {
		return ZipCount{}, false
	}
	zc := t.zipCounts[i]
	zc.Neighborhoods = slices.Clone(zc.Neighborhoods)
	return zc, true
}

// Agencies returns the distinct non-empty issuing agencies, sorted.
func (t *Table) Agencies() []string { return slices.Clone(t.agencies) }

// Fingerprint identifies the table contents. Two tables built from the same
// rows share a fingerprint.
func (t *Table) Fingerprint() string { return t.fingerprint }

func fingerprint(tickets []Ticket, lookup NeighborhoodLookup) string {
	h := blake3.New()
	var buf [8]byte
	for _, tk := range tickets {
		for _, field := range []string{tk.Zip, tk.Agency, tk.Violation} {
			_, _ = io.WriteString(h, field)
			_, _ = h.Write([]byte{0})
		}
		binary.BigEndian.PutUint64(buf[:], uint64(tk.IssuedAt.UnixNano()))
		_, _ = h.Write(buf[:])
		if tk.Fine == nil {
			_, _ = h.Write([]byte{0})
			continue
		}
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(*tk.Fine))
		_, _ = h.Write([]byte{1})
		_, _ = h.Write(buf[:])
	}
	zips := slices.Sorted(maps.Keys(lookup))
	for _, zip := range zips {
		_, _ = io.WriteString(h, zip)
		for _, name := range lookup[zip] {
			_, _ = h.Write([]byte{0})
			_, _ = io.WriteString(h, name)
		}
		_, _ = h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

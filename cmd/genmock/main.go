// Command genmock writes a deterministic synthetic tickets export and a
// matching neighborhoods lookup for local runs and test fixtures. The same
// seed always produces the same files.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  --tickets-out data/mock/tickets.csv \
//	  --neighborhoods-out data/mock/neighborhoods.yaml \
//	  --rows 5000 --days 90 --seed 7
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/ingest"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Export column order. Only the ingest columns carry data; the rest are
// filled with placeholders so the layout matches the real export.
var header = []string{
	"anon_ticket_number", ingest.ColIssuedAt, "state", "anon_plate_id", "division",
	"location", ingest.ColViolation, ingest.ColFine, ingest.ColAgency, "lat", "lon", "gps", ingest.ColZip,
}

type violation struct {
	desc string
	fine float64
}

var violations = []violation{
	{"METER EXPIRED CC", 36},
	{"METER EXPIRED", 26},
	{"OVER TIME LIMIT", 26},
	{"BUS ONLY ZONE", 51},
	{"STOP PROHIBITED CC", 76},
	{"PARKING PROHBITED", 51},
	{"EXPIRED INSPECTION", 41},
	{"FIRE HYDRANT", 76},
	{"DOUBLE PARKED", 51},
}

var agencies = []string{"PPA", "PPA", "PPA", "POLICE", "HOUSING", "TEMPLE"}

var neighborhoods = map[string][]string{
	"19102": {"Center City", "Logan Square"},
	"19103": {"Rittenhouse", "Fitler Square"},
	"19106": {"Old City", "Society Hill"},
	"19107": {"Chinatown", "Washington Square West"},
	"19123": {"Northern Liberties"},
	"19130": {"Fairmount", "Spring Garden"},
	"19146": {"Graduate Hospital", "Point Breeze"},
	"19147": {"Queen Village", "Bella Vista"},
}

// zipsOutsideLookup appear in tickets but not in the neighborhoods file.
var zipsOutsideLookup = []string{"19104", "19121", "19148"}

type options struct {
	ticketsOut       string
	neighborhoodsOut string
	rows             int
	days             int
	seed             uint64
	dirty            float64
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

func run(args []string) error {
	var opts options
	flags := pflag.NewFlagSet("genmock", pflag.ContinueOnError)
	flags.StringVar(&opts.ticketsOut, "tickets-out", "", "output path for the tickets CSV")
	flags.StringVar(&opts.neighborhoodsOut, "neighborhoods-out", "", "output path for the neighborhoods YAML (optional)")
	flags.IntVar(&opts.rows, "rows", 5000, "number of ticket rows to generate")
	flags.IntVar(&opts.days, "days", 90, "number of days the tickets span")
	flags.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flags.Float64Var(&opts.dirty, "dirty", 0.02, "fraction of rows written with a missing zip, bad zip or bad timestamp")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if opts.ticketsOut == "" {
		flags.Usage()
		return errors.New("missing required flag: --tickets-out")
	}
	if opts.rows < 1 || opts.days < 1 {
		return errors.New("--rows and --days must be positive")
	}

	// Fixed end of window for reproducible timestamps.
	clock := clockwork.NewFakeClockAt(time.Date(2017, time.April, 1, 0, 0, 0, 0, time.UTC))

	rows := generate(opts, clock)
	if err := writeCSV(opts.ticketsOut, rows); err != nil {
		return fmt.Errorf("writing tickets: %w", err)
	}
	log.Printf("wrote %d tickets: %s", len(rows), opts.ticketsOut)

	if opts.neighborhoodsOut != "" {
		if err := writeYAML(opts.neighborhoodsOut, neighborhoods); err != nil {
			return fmt.Errorf("writing neighborhoods: %w", err)
		}
		log.Printf("wrote %d zips: %s", len(neighborhoods), opts.neighborhoodsOut)
	}
	return nil
}

func generate(opts options, clock clockwork.Clock) [][]string {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))

	zips := make([]string, 0, len(neighborhoods)+len(zipsOutsideLookup))
	for zip := range neighborhoods {
		zips = append(zips, zip)
	}
	// Map order is random; sort so the seed alone determines output.
	slices.Sort(zips)
	zips = append(zips, zipsOutsideLookup...)

	end := clock.Now()
	start := end.AddDate(0, 0, -opts.days)
	span := end.Sub(start)

	rows := make([][]string, 0, opts.rows)
	for i := range opts.rows {
		v := violations[rng.IntN(len(violations))]
		issued := start.Add(time.Duration(rng.Int64N(int64(span)))).Truncate(time.Minute)
		zip := zips[rng.IntN(len(zips))] + ".0"
		fine := strconv.FormatFloat(v.fine, 'f', -1, 64)
		ts := issued.Format(time.RFC3339)

		if rng.Float64() < opts.dirty {
			switch rng.IntN(4) {
			case 0:
				zip = ""
			case 1:
				zip = "191030"
			case 2:
				ts = "not-a-time"
			default:
				fine = ""
			}
		}

		rows = append(rows, []string{
			strconv.Itoa(1_000_000 + i), ts, "PA", strconv.Itoa(rng.IntN(900_000)), "",
			"", v.desc, fine, agencies[rng.IntN(len(agencies))], "", "", "f", zip,
		})
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

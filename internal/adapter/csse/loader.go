// Package csse loads the JHU CSSE global COVID-19 time-series tables into a
// domain.Dataset.
//
// Each table has one row per (Province/State, Country/Region) pair with the
// columns Province/State, Country/Region, Lat, Long followed by one column
// per date in M/D/YY form. Rows of the same country are summed per date.
package csse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/domain"
)

const (
	countryColumn = "Country/Region"
	longColumn    = "Long"
	dateLayout    = "1/2/06"
)

// Tables supplies the three global time-series tables.
type Tables struct {
	Confirmed io.Reader
	Deaths    io.Reader
	Recovered io.Reader
}

// Files names the three tables inside a directory.
type Files struct {
	Confirmed string
	Deaths    string
	Recovered string
}

// Loader builds a Dataset from CSSE tables, keeping only the configured
// regions.
type Loader struct {
	regions []string
	aliases map[string]string
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithAliases sets the display names passed through to the Dataset.
func WithAliases(aliases map[string]string) Option {
	return func(l *Loader) { l.aliases = aliases }
}

// NewLoader creates a Loader for the given region keys. An empty region list
// loads every country in the tables.
func NewLoader(regions []string, logger *slog.Logger, opts ...Option) *Loader {
	l := &Loader{
		regions: append([]string(nil), regions...),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDir opens the three tables from dir and loads them.
func (l *Loader) LoadDir(dir string, files Files) (*domain.Dataset, error) {
	paths := []string{
		filepath.Join(dir, files.Confirmed),
		filepath.Join(dir, files.Deaths),
		filepath.Join(dir, files.Recovered),
	}
	handles := make([]*os.File, 0, len(paths))
	defer func() {
		for _, f := range handles {
			f.Close() //nolint:errcheck // read-only
		}
	}()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open table: %w", err)
		}
		handles = append(handles, f)
	}

	return l.Load(Tables{Confirmed: handles[0], Deaths: handles[1], Recovered: handles[2]})
}

// Load parses the three tables. All tables must share the same date columns,
// and every loaded region must also appear in the deaths and recovered
// tables; violations return domain.ErrDataInconsistency.
// Configured regions absent from the confirmed table are logged and skipped.
func (l *Loader) Load(t Tables) (*domain.Dataset, error) {
	confirmed, err := parseTable("confirmed", t.Confirmed)
	if err != nil {
		return nil, err
	}
	deaths, err := parseTable("deaths", t.Deaths)
	if err != nil {
		return nil, err
	}
	recovered, err := parseTable("recovered", t.Recovered)
	if err != nil {
		return nil, err
	}

	for _, other := range []*table{deaths, recovered} {
		if err := sameCalendar(confirmed, other); err != nil {
			return nil, err
		}
	}

	wanted := l.regions
	if len(wanted) == 0 {
		wanted = confirmed.countries()
	}

	regions := make(map[string]domain.RegionSeries, len(wanted))
	for _, name := range wanted {
		c, ok := confirmed.rows[name]
		if !ok {
			l.logger.Warn("region missing from confirmed table", "region", name)
			continue
		}
		d, ok := deaths.rows[name]
		if !ok {
			return nil, &domain.RegionError{Region: name, Err: fmt.Errorf("%w: missing from deaths table", domain.ErrDataInconsistency)}
		}
		r, ok := recovered.rows[name]
		if !ok {
			return nil, &domain.RegionError{Region: name, Err: fmt.Errorf("%w: missing from recovered table", domain.ErrDataInconsistency)}
		}
		regions[name] = domain.RegionSeries{Confirmed: c, Deaths: d, Recovered: r}
	}

	ds, err := domain.NewDataset(confirmed.dates, regions, domain.WithAliases(l.aliases))
	if err != nil {
		return nil, err
	}

	l.logger.Info("dataset loaded",
		"regions", len(regions),
		"dates", len(confirmed.dates),
		"first_date", formatDate(confirmed.dates, 0),
		"last_date", formatDate(confirmed.dates, len(confirmed.dates)-1),
	)
	return ds, nil
}

type table struct {
	name  string
	dates []time.Time
	rows  map[string]domain.Series
}

func (t *table) countries() []string {
	out := make([]string, 0, len(t.rows))
	for k := range t.rows {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func parseTable(name string, r io.Reader) (*table, error) {
	if r == nil {
		return nil, fmt.Errorf("%s table: no reader", name)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s table: read header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	countryIdx, firstDate := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case countryColumn:
			countryIdx = i
		case longColumn:
			firstDate = i + 1
		}
	}
	if countryIdx < 0 || firstDate < 0 {
		return nil, fmt.Errorf("%s table: header must contain %q and %q", name, countryColumn, longColumn)
	}

	dates := make([]time.Time, 0, len(header)-firstDate)
	for _, col := range header[firstDate:] {
		d, err := time.Parse(dateLayout, strings.TrimSpace(col))
		if err != nil {
			return nil, fmt.Errorf("%s table: date column %q: %w", name, col, err)
		}
		dates = append(dates, d)
	}

	t := &table{name: name, dates: dates, rows: make(map[string]domain.Series)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s table: line %d: %w", name, line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%s table: line %d: %d fields, header has %d: %w",
				name, line, len(rec), len(header), domain.ErrDataInconsistency)
		}

		country := strings.TrimSpace(rec[countryIdx])
		sum, ok := t.rows[country]
		if !ok {
			sum = make(domain.Series, len(dates))
			t.rows[country] = sum
		}
		for i, cell := range rec[firstDate:] {
			v, err := parseCount(cell)
			if err != nil {
				return nil, fmt.Errorf("%s table: line %d, %s: %w",
					name, line, dates[i].Format(time.DateOnly), err)
			}
			sum[i] += v
		}
	}
	return t, nil
}

// parseCount reads a cumulative count. Empty cells are zero; some releases
// write counts as floats ("12.0").
func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("invalid count %q", s)
		}
		n = int64(math.Round(f))
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %q", domain.ErrDataInconsistency, s)
	}
	return n, nil
}

func sameCalendar(a, b *table) error {
	if len(a.dates) != len(b.dates) {
		return fmt.Errorf("%w: %s table has %d dates, %s table has %d",
			domain.ErrDataInconsistency, a.name, len(a.dates), b.name, len(b.dates))
	}
	for i := range a.dates {
		if !a.dates[i].Equal(b.dates[i]) {
			return fmt.Errorf("%w: date column %d is %s in %s table but %s in %s table",
				domain.ErrDataInconsistency, i,
				a.dates[i].Format(time.DateOnly), a.name,
				b.dates[i].Format(time.DateOnly), b.name)
		}
	}
	return nil
}

func formatDate(dates []time.Time, i int) string {
	if i < 0 || i >= len(dates) {
		return ""
	}
	return dates[i].Format(time.DateOnly)
}

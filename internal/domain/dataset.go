package domain

import (
	"fmt"
	"sort"
	"time"
)

// Series is a cumulative counter indexed by date position.
type Series []int64

// RegionSeries holds the three cumulative counters of one region. All three
// share the same length and calendar.
type RegionSeries struct {
	Confirmed Series
	Deaths    Series
	Recovered Series
}

// Dataset is an immutable table of per-region cumulative series. It is built
// once by a loader and shared read-only by every query, so it is safe for
// concurrent readers.
type Dataset struct {
	dates   []time.Time
	regions map[string]RegionSeries
	keys    []string
	aliases map[string]string
}

// DatasetOption customizes a Dataset at construction time.
type DatasetOption func(*Dataset)

// WithAliases sets display names for region keys. Keys are unchanged; aliases
// only affect NamedSeries.Name in query results.
func WithAliases(aliases map[string]string) DatasetOption {
	return func(d *Dataset) {
		for k, v := range aliases {
			d.aliases[k] = v
		}
	}
}

// NewDataset validates and copies the per-region series. Every region's three
// series must have equal length, and must match len(dates) when dates is
// non-empty; otherwise ErrDataInconsistency is returned.
func NewDataset(dates []time.Time, regions map[string]RegionSeries, opts ...DatasetOption) (*Dataset, error) {
	d := &Dataset{
		dates:   append([]time.Time(nil), dates...),
		regions: make(map[string]RegionSeries, len(regions)),
		keys:    make([]string, 0, len(regions)),
		aliases: make(map[string]string),
	}

	for name, rs := range regions {
		if err := checkLengths(rs, len(dates)); err != nil {
			return nil, &RegionError{Region: name, Err: err}
		}
		d.regions[name] = RegionSeries{
			Confirmed: append(Series(nil), rs.Confirmed...),
			Deaths:    append(Series(nil), rs.Deaths...),
			Recovered: append(Series(nil), rs.Recovered...),
		}
		d.keys = append(d.keys, name)
	}
	sort.Strings(d.keys)

	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func checkLengths(rs RegionSeries, numDates int) error {
	n := len(rs.Confirmed)
	if len(rs.Deaths) != n || len(rs.Recovered) != n {
		return fmt.Errorf("%w: confirmed=%d deaths=%d recovered=%d",
			ErrDataInconsistency, n, len(rs.Deaths), len(rs.Recovered))
	}
	if numDates > 0 && n != numDates {
		return fmt.Errorf("%w: %d samples for %d dates", ErrDataInconsistency, n, numDates)
	}
	return nil
}

// Lookup returns the series of a region. The returned slices are shared with
// the dataset and must not be modified.
func (d *Dataset) Lookup(region string) (RegionSeries, error) {
	rs, ok := d.regions[region]
	if !ok {
		return RegionSeries{}, ErrUnknownRegion
	}
	return rs, nil
}

// Regions returns the region keys in ascending order.
func (d *Dataset) Regions() []string {
	return append([]string(nil), d.keys...)
}

// Dates returns a copy of the shared calendar. It is empty when the loader
// supplied no dates.
func (d *Dataset) Dates() []time.Time {
	return append([]time.Time(nil), d.dates...)
}

// DisplayName returns the alias of a region, or the key itself.
func (d *Dataset) DisplayName(region string) string {
	if alias, ok := d.aliases[region]; ok && alias != "" {
		return alias
	}
	return region
}

// dateLabel formats the calendar date at position i, or "" if unknown.
func (d *Dataset) dateLabel(i int) string {
	if i < 0 || i >= len(d.dates) {
		return ""
	}
	return d.dates[i].Format(time.DateOnly)
}

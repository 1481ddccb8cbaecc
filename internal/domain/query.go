package domain

import "fmt"

// Query selects one chart for a set of regions.
type Query struct {
	Chart   ChartKind
	Regions []string
	Scale   ScaleMode
}

// Point is one (x, y) sample of a derived series. Label carries the calendar
// date for date-indexed charts.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// NamedSeries is the derived series of a single region.
type NamedSeries struct {
	Region string  `json:"region"`
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Result holds one NamedSeries per requested region, in request order. Scale is
// passed through from the query for the renderer.
type Result struct {
	Chart  ChartKind     `json:"chart"`
	Scale  ScaleMode     `json:"scale"`
	Series []NamedSeries `json:"series"`
}

type chartFunc func(ds *Dataset, rs RegionSeries) ([]Point, error)

var chartFuncs = map[ChartKind]chartFunc{
	TimeSeries:               timeSeries,
	TimeSeriesSinceFirstCase: sinceFirstCase,
	WeeklyVsTotal:            weeklyVsTotal,
	DoublingTime:             doublingTime,
	DailyCases:               dailyCases,
	ActiveCases:              activeCases,
	RecoveredTotal:           alignedTotal(func(rs RegionSeries) Series { return rs.Recovered }),
	RecoveredPerDay:          alignedPerDay(func(rs RegionSeries) Series { return rs.Recovered }),
	DeathsTotal:              alignedTotal(func(rs RegionSeries) Series { return rs.Deaths }),
	DeathsPerDay:             alignedPerDay(func(rs RegionSeries) Series { return rs.Deaths }),
	FatalityRatio:            fatalityRatio,
}

// Compute derives the requested chart for every selected region. It recomputes
// everything from the dataset on each call. The first failing region aborts
// the whole query with a *RegionError; an empty selection yields an empty
// result.
func Compute(ds *Dataset, q Query) (Result, error) {
	fn, ok := chartFuncs[q.Chart]
	if !ok {
		return Result{}, fmt.Errorf("%w: %v", ErrUnknownChart, q.Chart)
	}

	res := Result{
		Chart:  q.Chart,
		Scale:  q.Scale,
		Series: make([]NamedSeries, 0, len(q.Regions)),
	}
	for _, region := range q.Regions {
		rs, err := ds.Lookup(region)
		if err != nil {
			return Result{}, &RegionError{Region: region, Chart: q.Chart, Err: err}
		}
		points, err := fn(ds, rs)
		if err != nil {
			return Result{}, &RegionError{Region: region, Chart: q.Chart, Err: err}
		}
		res.Series = append(res.Series, NamedSeries{
			Region: region,
			Name:   ds.DisplayName(region),
			Points: points,
		})
	}
	return res, nil
}

func timeSeries(ds *Dataset, rs RegionSeries) ([]Point, error) {
	points := make([]Point, len(rs.Confirmed))
	for i, v := range rs.Confirmed {
		points[i] = Point{X: float64(i), Y: float64(v), Label: ds.dateLabel(i)}
	}
	return points, nil
}

func sinceFirstCase(_ *Dataset, rs RegionSeries) ([]Point, error) {
	_, aligned, err := Align(rs.Confirmed)
	if err != nil {
		return nil, err
	}
	return indexed(aligned, 0), nil
}

func weeklyVsTotal(_ *Dataset, rs RegionSeries) ([]Point, error) {
	_, aligned, err := Align(rs.Confirmed)
	if err != nil {
		return nil, err
	}
	weekly := WeeklyTotals(aligned)
	points := make([]Point, len(weekly))
	for i, w := range weekly {
		points[i] = Point{X: float64(w.Cumulative), Y: float64(w.WeeklyTotal)}
	}
	return points, nil
}

func doublingTime(_ *Dataset, rs RegionSeries) ([]Point, error) {
	_, aligned, err := Align(rs.Confirmed)
	if err != nil {
		return nil, err
	}
	events, err := DoublingTimes(aligned)
	if err != nil {
		return nil, err
	}
	points := make([]Point, len(events))
	for i, gap := range events {
		points[i] = Point{X: float64(i), Y: float64(gap)}
	}
	return points, nil
}

func dailyCases(_ *Dataset, rs RegionSeries) ([]Point, error) {
	_, aligned, err := Align(rs.Confirmed)
	if err != nil {
		return nil, err
	}
	return indexed(Deltas(aligned), 0), nil
}

func activeCases(_ *Dataset, rs RegionSeries) ([]Point, error) {
	active, err := ReconstructActive(rs.Confirmed, rs.Recovered, rs.Deaths)
	if err != nil {
		return nil, err
	}
	return indexed(active, 0), nil
}

// alignedTotal slices a secondary series from the confirmed first-case index.
func alignedTotal(pick func(RegionSeries) Series) chartFunc {
	return func(_ *Dataset, rs RegionSeries) ([]Point, error) {
		aligned, err := alignSecondary(rs, pick(rs))
		if err != nil {
			return nil, err
		}
		return indexed(aligned, 0), nil
	}
}

// alignedPerDay pairs consecutive samples of the aligned secondary series, so
// the first point lands on day 1.
func alignedPerDay(pick func(RegionSeries) Series) chartFunc {
	return func(_ *Dataset, rs RegionSeries) ([]Point, error) {
		aligned, err := alignSecondary(rs, pick(rs))
		if err != nil {
			return nil, err
		}
		return indexed(PairwiseDeltas(aligned), 1), nil
	}
}

func alignSecondary(rs RegionSeries, s Series) (Series, error) {
	first, err := FirstCaseIndex(rs.Confirmed)
	if err != nil {
		return nil, err
	}
	return AlignTo(s, first)
}

func fatalityRatio(_ *Dataset, rs RegionSeries) ([]Point, error) {
	ratios, err := FatalityRatios(rs.Confirmed, rs.Deaths)
	if err != nil {
		return nil, err
	}
	points := make([]Point, len(ratios))
	for i, r := range ratios {
		points[i] = Point{X: float64(i), Y: r}
	}
	return points, nil
}

func indexed(s Series, start int) []Point {
	points := make([]Point, len(s))
	for i, v := range s {
		points[i] = Point{X: float64(start + i), Y: float64(v)}
	}
	return points
}

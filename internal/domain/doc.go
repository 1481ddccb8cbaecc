// Package domain derives chart-ready series from per-region cumulative epidemic
// counters (confirmed cases, deaths, recoveries).
//
// # Data Source
//
// Counters originate from the JHU CSSE COVID-19 global time-series tables:
//
//	time_series_covid19_confirmed_global.csv
//	time_series_covid19_deaths_global.csv
//	time_series_covid19_recovered_global.csv
//
// Each table has one row per Province/State and Country/Region, followed by one
// column per calendar day ("1/22/20", "1/23/20", ...). The csse adapter sums the
// province rows of a country into a single region series and hands a finished
// [Dataset] to this package. All three series of a region share the same calendar.
//
// # Cumulative Conventions
//
// Values are running totals and are normally nondecreasing, but upstream
// revisions regularly produce local decreases. Nothing in this package assumes
// monotonicity: deltas can be negative, and the rolling weekly total sums
// absolute day-over-day differences.
//
// # Alignment
//
// The first-case index of a region is the first position whose confirmed count
// is strictly positive. It is always computed from the confirmed series and
// reused to slice deaths and recovered, so that the three series stay
// date-synchronized for per-day arithmetic even when deaths or recoveries
// start later.
//
// # Derived Series
//
//	Deltas          d[0] = v[0], d[i] = v[i] - v[i-1]          (length n, zero baseline)
//	PairwiseDeltas  d[i] = v[i+1] - v[i]                       (length n-1, plotted from day 1)
//	WeeklyTotals    sum of the last 7 |v[i] - v[i-1]|          (7-slot ring indexed by position mod 7)
//	DoublingTimes   samples between successive doublings       (counter restarts at 1, not 0)
//	ActiveCases     confirmed - recovered - deaths             (trimmed to first positive day)
//	FatalityRatios  deaths * 100 / confirmed                   (from the first-case index)
//
// The two delta conventions feed different charts (bar counts starting at
// day 0 versus paired differences starting at day 1) and are kept distinct.
//
// # Queries
//
// [Compute] is the single entry point for the rendering layer. It takes a
// closed [ChartKind], a region selection, and a [ScaleMode] that is passed
// through untouched. A failure for any region aborts the whole query.
package domain

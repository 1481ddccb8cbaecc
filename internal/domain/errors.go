package domain

import (
	"errors"
	"fmt"
)

// Error kinds reported by the engine. Callers match them with errors.Is.
var (
	// ErrUnknownRegion is returned when a selection references a key absent from the dataset.
	ErrUnknownRegion = errors.New("unknown region")

	// ErrNoCasesRecorded is returned when a region's confirmed series is all zero.
	ErrNoCasesRecorded = errors.New("no cases recorded")

	// ErrNoActiveCases is returned when the reconstructed active series never turns positive.
	ErrNoActiveCases = errors.New("no active cases")

	// ErrDataInconsistency is returned when a region's series lengths or calendars disagree.
	ErrDataInconsistency = errors.New("data inconsistency")

	// ErrDivisionByZero is returned when a fatality ratio denominator is zero at an included index.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnknownChart is returned for a chart name outside the ChartKind enumeration.
	ErrUnknownChart = errors.New("unknown chart kind")

	// ErrUnknownScale is returned for a scale name other than linear or log.
	ErrUnknownScale = errors.New("unknown scale mode")
)

// RegionError attaches the failing region (and chart, when known) to an error kind.
type RegionError struct {
	Region string
	Chart  ChartKind
	Err    error
}

func (e *RegionError) Error() string {
	if e.Chart.Valid() {
		return fmt.Sprintf("%s: region %q: %v", e.Chart, e.Region, e.Err)
	}
	return fmt.Sprintf("region %q: %v", e.Region, e.Err)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}

// Kind maps an error to a stable machine-readable name. Errors outside the
// engine's kinds map to "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownRegion):
		return "unknown_region"
	case errors.Is(err, ErrNoCasesRecorded):
		return "no_cases_recorded"
	case errors.Is(err, ErrNoActiveCases):
		return "no_active_cases"
	case errors.Is(err, ErrDataInconsistency):
		return "data_inconsistency"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, ErrUnknownChart):
		return "unknown_chart"
	case errors.Is(err, ErrUnknownScale):
		return "unknown_scale"
	default:
		return "internal"
	}
}

// FailedRegion returns the region carried by err, or "" if it has none.
func FailedRegion(err error) string {
	var re *RegionError
	if errors.As(err, &re) {
		return re.Region
	}
	return ""
}

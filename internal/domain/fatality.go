package domain

import "fmt"

// FatalityRatios returns deaths[i] * 100 / confirmed[i] for every index from
// the region's first-case index onward. A zero denominator at an included
// index fails with ErrDivisionByZero instead of producing Inf or NaN.
func FatalityRatios(confirmed, deaths Series) ([]float64, error) {
	if len(deaths) != len(confirmed) {
		return nil, fmt.Errorf("%w: confirmed=%d deaths=%d",
			ErrDataInconsistency, len(confirmed), len(deaths))
	}

	first, err := FirstCaseIndex(confirmed)
	if err != nil {
		return nil, err
	}

	ratios := make([]float64, 0, len(confirmed)-first)
	for i := first; i < len(confirmed); i++ {
		if confirmed[i] == 0 {
			return nil, fmt.Errorf("%w: confirmed is zero at index %d", ErrDivisionByZero, i)
		}
		ratios = append(ratios, float64(deaths[i])*100/float64(confirmed[i]))
	}
	return ratios, nil
}

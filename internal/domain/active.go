package domain

import "fmt"

// ReconstructActive reconstructs active[i] = confirmed[i] - recovered[i] - deaths[i]
// over the full, unaligned series and returns it from the first day the result
// is positive. Earlier values may be negative because the three sources report
// with different lags; they are excluded, not rejected.
func ReconstructActive(confirmed, recovered, deaths Series) (Series, error) {
	if len(recovered) != len(confirmed) || len(deaths) != len(confirmed) {
		return nil, fmt.Errorf("%w: confirmed=%d recovered=%d deaths=%d",
			ErrDataInconsistency, len(confirmed), len(recovered), len(deaths))
	}

	active := make(Series, len(confirmed))
	first := -1
	for i := range confirmed {
		active[i] = confirmed[i] - recovered[i] - deaths[i]
		if first < 0 && active[i] > 0 {
			first = i
		}
	}
	if first < 0 {
		return nil, ErrNoActiveCases
	}
	return active[first:], nil
}

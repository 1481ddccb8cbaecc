package domain

import "fmt"

// FirstCaseIndex returns the smallest index with a strictly positive confirmed
// count, or ErrNoCasesRecorded if the series is all zero (or empty).
func FirstCaseIndex(confirmed Series) (int, error) {
	for i, v := range confirmed {
		if v > 0 {
			return i, nil
		}
	}
	return -1, ErrNoCasesRecorded
}

// Align trims a confirmed series to start at its first case and returns the
// first-case index alongside the trimmed view. Aligning an aligned series is a
// no-op.
func Align(confirmed Series) (int, Series, error) {
	first, err := FirstCaseIndex(confirmed)
	if err != nil {
		return -1, nil, err
	}
	return first, confirmed[first:], nil
}

// AlignTo slices s from a first-case index computed on the region's confirmed
// series. Deaths and recovered are never aligned on their own first nonzero day.
func AlignTo(s Series, firstCase int) (Series, error) {
	if firstCase < 0 || firstCase > len(s) {
		return nil, fmt.Errorf("%w: first-case index %d outside series of length %d",
			ErrDataInconsistency, firstCase, len(s))
	}
	return s[firstCase:], nil
}

package domain

// Deltas converts an aligned cumulative series into daily increments against a
// zero baseline: d[0] = v[0] and d[i] = v[i] - v[i-1]. The result has the same
// length as v. Revisions show up as negative increments.
func Deltas(v Series) Series {
	d := make(Series, len(v))
	var prev int64
	for i, val := range v {
		d[i] = val - prev
		prev = val
	}
	return d
}

// PairwiseDeltas differences consecutive elements without a baseline:
// d[i] = v[i+1] - v[i]. The result is one shorter than v and is plotted from
// day 1. Series shorter than two samples yield an empty result.
func PairwiseDeltas(v Series) Series {
	if len(v) < 2 {
		return Series{}
	}
	d := make(Series, len(v)-1)
	for i := 1; i < len(v); i++ {
		d[i-1] = v[i] - v[i-1]
	}
	return d
}

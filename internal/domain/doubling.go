package domain

// DoublingState tracks the value at the last detected doubling and the number
// of samples seen since.
type DoublingState struct {
	minval  int64
	counter int
}

// NewDoublingState starts the extractor at the first sample of a series.
func NewDoublingState(first int64) DoublingState {
	return DoublingState{minval: first}
}

// Step consumes one sample. When val is at least twice the last doubling value
// it emits the current counter and restarts counting at 1, so the triggering
// sample counts as day 1 of the next interval. Otherwise the counter advances.
func (s DoublingState) Step(val int64) (next DoublingState, gap int, emitted bool) {
	if val >= 2*s.minval {
		gap = s.counter
		s.minval = val
		s.counter = 1
		return s, gap, true
	}
	s.counter++
	return s, 0, false
}

// DoublingTimes runs the extractor over an aligned confirmed series, including
// its first sample, and returns the gap (in samples) before each doubling.
// An empty series fails with ErrNoCasesRecorded.
func DoublingTimes(v Series) ([]int, error) {
	if len(v) == 0 {
		return nil, ErrNoCasesRecorded
	}

	events := []int{}
	state := NewDoublingState(v[0])
	for _, val := range v {
		var (
			gap int
			ok  bool
		)
		state, gap, ok = state.Step(val)
		if ok {
			events = append(events, gap)
		}
	}
	return events, nil
}

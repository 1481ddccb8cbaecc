package domain

// weekLen is the number of slots in the rolling buffer. Slots are indexed by
// position within the aligned series, not by calendar weekday.
const weekLen = 7

// WeeklyState is the rolling buffer threaded through WeeklyTotals. The zero
// value is the initial state (empty buffer, previous value 0).
type WeeklyState struct {
	buf  [weekLen]int64
	prev int64
	pos  int
}

// Step stores |value - previous| at slot pos mod 7, overwriting the difference
// from seven samples earlier, and returns the next state with the buffer sum.
func (s WeeklyState) Step(value int64) (WeeklyState, int64) {
	diff := value - s.prev
	if diff < 0 {
		diff = -diff
	}
	s.buf[s.pos%weekLen] = diff
	s.prev = value
	s.pos++

	var total int64
	for _, d := range s.buf {
		total += d
	}
	return s, total
}

// WeeklyPoint pairs a cumulative value with the weekly total emitted for it.
type WeeklyPoint struct {
	Cumulative  int64
	WeeklyTotal int64
}

// WeeklyTotals emits one running weekly total per sample of an aligned
// confirmed series. The output has the same length as v.
func WeeklyTotals(v Series) []WeeklyPoint {
	out := make([]WeeklyPoint, 0, len(v))
	var state WeeklyState
	for _, val := range v {
		var total int64
		state, total = state.Step(val)
		out = append(out, WeeklyPoint{Cumulative: val, WeeklyTotal: total})
	}
	return out
}

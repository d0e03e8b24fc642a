package insights

import "sort"

func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// recentBaseline is the median of the last k values, or false when there
// are none.
func recentBaseline(values []float64, k int) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	if len(values) > k {
		values = values[len(values)-k:]
	}
	return median(values), true
}

// nearEqual reports whether a is within pct of b, relative to b.
func nearEqual(a, b, pct float64) bool {
	if b == 0 {
		return a < 1e-9 && a > -1e-9
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if b < 0 {
		b = -b
	}
	return diff/b <= pct
}

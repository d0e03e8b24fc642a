package forecast

// Linear projects the last value forward by the mean first difference.
// Lower and Upper equal Mean since no interval is estimated.
func Linear(s Series, steps int) ([]Point, error) {
	n := s.Len()
	if n < 2 {
		return nil, ErrTooFewPoints
	}

	slope := (s.Values[n-1] - s.Values[0]) / float64(n-1)
	last := s.Values[n-1]

	months, err := nextMonths(s, steps)
	if err != nil {
		return nil, err
	}
	points := make([]Point, steps)
	for k := range points {
		v := last + float64(k+1)*slope
		points[k] = Point{Month: months[k], Mean: v, Lower: v, Upper: v}
	}
	return points, nil
}

package forecast

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConverged is returned when the model fit produced no usable parameters.
	ErrNotConverged = errors.New("forecast: model did not converge")

	// ErrTooFewPoints is returned by Linear for series shorter than two points.
	ErrTooFewPoints = errors.New("forecast: at least 2 points are needed for a trend")
)

// InsufficientDataError reports a series too short for the seasonal model.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("forecast: need at least %d monthly points, have %d", e.Need, e.Have)
}

// Package forecast projects a user's monthly running balance a few months
// ahead, falling back to a straight-line trend when the seasonal model
// cannot be fitted.
package forecast

import (
	"errors"
	"fmt"
)

// DefaultHorizon is the number of months forecast.
const DefaultHorizon = 6

// Mode tells which method produced an Outcome.
type Mode string

const (
	ModeSARIMA   Mode = "sarima"
	ModeBaseline Mode = "baseline"
)

// Outcome is the forecast together with the history it was built from.
type Outcome struct {
	Mode    Mode    `json:"mode"`
	Model   string  `json:"model,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	History Series  `json:"history"`
	Points  []Point `json:"points"`
}

// Adapter runs the seasonal model with the linear fallback.
type Adapter struct {
	Model   Model
	Horizon int
}

// NewAdapter returns an Adapter using DefaultModel and DefaultHorizon.
func NewAdapter() *Adapter {
	return &Adapter{Model: DefaultModel(), Horizon: DefaultHorizon}
}

// Forecast returns the seasonal forecast when it can be fitted and the
// linear baseline otherwise. It fails only when the series has fewer than
// two points.
func (a *Adapter) Forecast(s Series) (*Outcome, error) {
	horizon := a.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	fit, err := a.Model.Fit(s)
	if err == nil {
		var points []Point
		points, err = fit.Forecast(horizon)
		if err == nil {
			return &Outcome{Mode: ModeSARIMA, Model: fit.Model.String(), History: s, Points: points}, nil
		}
	}

	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) && !errors.Is(err, ErrNotConverged) {
		return nil, fmt.Errorf("Adapter.Forecast: %w", err)
	}

	points, lerr := Linear(s, horizon)
	if lerr != nil {
		return nil, fmt.Errorf("Adapter.Forecast: baseline: %w", lerr)
	}
	return &Outcome{Mode: ModeBaseline, Reason: err.Error(), History: s, Points: points}, nil
}

package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	// MinPoints is the shortest series the model will fit.
	MinPoints = 6

	// minResiduals is the fewest one-step residuals a fit may be based on.
	minResiduals = 4

	z95 = 1.959963984540054
)

// Order is a (p, d, q) triple.
type Order struct {
	P, D, Q int
}

// SeasonalOrder is a (P, D, Q, s) quadruple.
type SeasonalOrder struct {
	P, D, Q, S int
}

// Model is a multiplicative seasonal ARIMA specification.
type Model struct {
	Order    Order
	Seasonal SeasonalOrder
}

// DefaultModel is (1,1,1)(1,1,1,12).
func DefaultModel() Model {
	return Model{
		Order:    Order{P: 1, D: 1, Q: 1},
		Seasonal: SeasonalOrder{P: 1, D: 1, Q: 1, S: 12},
	}
}

func (m Model) String() string {
	return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d,%d)",
		m.Order.P, m.Order.D, m.Order.Q,
		m.Seasonal.P, m.Seasonal.D, m.Seasonal.Q, m.Seasonal.S)
}

func (m Model) seasonal() bool {
	return m.Seasonal.S > 1 && (m.Seasonal.P > 0 || m.Seasonal.D > 0 || m.Seasonal.Q > 0)
}

func (m Model) numParams() int {
	n := m.Order.P + m.Order.Q
	if m.seasonal() {
		n += m.Seasonal.P + m.Seasonal.Q
	}
	return n
}

func (m Model) validate() error {
	o, s := m.Order, m.Seasonal
	if o.P < 0 || o.D < 0 || o.Q < 0 || s.P < 0 || s.D < 0 || s.Q < 0 || s.S < 0 {
		return fmt.Errorf("forecast: negative order in %s", m)
	}
	return nil
}

// polynomials expands the model for parameter vector x (already in (-1, 1))
// into the full autoregressive operator, differencing included, and the
// moving-average operator. Both are in lag-polynomial form with a leading 1.
func (m Model) polynomials(x []float64) (ar, ma []float64) {
	i := 0
	take := func(n int) []float64 {
		v := x[i : i+n]
		i += n
		return v
	}

	ar = []float64{1}
	ma = []float64{1}

	ar = polyMul(ar, lagPoly(take(m.Order.P), 1, -1))
	ma = polyMul(ma, lagPoly(take(m.Order.Q), 1, 1))
	for d := 0; d < m.Order.D; d++ {
		ar = polyMul(ar, []float64{1, -1})
	}

	if m.seasonal() {
		ar = polyMul(ar, lagPoly(take(m.Seasonal.P), m.Seasonal.S, -1))
		ma = polyMul(ma, lagPoly(take(m.Seasonal.Q), m.Seasonal.S, 1))
		diff := make([]float64, m.Seasonal.S+1)
		diff[0], diff[m.Seasonal.S] = 1, -1
		for d := 0; d < m.Seasonal.D; d++ {
			ar = polyMul(ar, diff)
		}
	}
	return ar, ma
}

// lagPoly builds 1 + sign*c1*B^s + sign*c2*B^2s + ...
func lagPoly(coef []float64, s int, sign float64) []float64 {
	p := make([]float64, len(coef)*s+1)
	p[0] = 1
	for k, c := range coef {
		p[(k+1)*s] = sign * c
	}
	return p
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// residuals runs the conditional recursion
//
//	e[t] = sum_k ar[k]*y[t-k] - sum_{j>=1} ma[j]*e[t-j]
//
// starting at the first t with a full AR history; earlier errors are zero.
func residuals(y, ar, ma []float64) []float64 {
	start := len(ar) - 1
	e := make([]float64, len(y))
	for t := start; t < len(y); t++ {
		v := 0.0
		for k, a := range ar {
			v += a * y[t-k]
		}
		for j := 1; j < len(ma) && j <= t; j++ {
			v -= ma[j] * e[t-j]
		}
		e[t] = v
	}
	return e
}

// Fit is a fitted model ready to forecast.
type Fit struct {
	Model  Model
	Params []float64
	Sigma2 float64

	series Series
	ar, ma []float64
	resid  []float64
}

// Fit estimates the model by conditional sum of squares. When the series is
// too short for the seasonal lags the seasonal factors are dropped.
func (m Model) Fit(s Series) (*Fit, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	n := s.Len()
	if n < MinPoints {
		return nil, &InsufficientDataError{Have: n, Need: MinPoints}
	}

	if m.seasonal() {
		ar, _ := m.polynomials(make([]float64, m.numParams()))
		if n-(len(ar)-1) < minResiduals {
			m.Seasonal = SeasonalOrder{}
		}
	}
	ar, _ := m.polynomials(make([]float64, m.numParams()))
	if n-(len(ar)-1) < minResiduals {
		return nil, &InsufficientDataError{Have: n, Need: len(ar) - 1 + minResiduals}
	}

	y := s.Values
	objective := func(u []float64) float64 {
		ar, ma := m.polynomials(squash(u))
		e := residuals(y, ar, ma)[len(ar)-1:]
		sse := floats.Dot(e, e)
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return math.MaxFloat64
		}
		return sse
	}

	params := make([]float64, m.numParams())
	if len(params) > 0 {
		result, err := optimize.Minimize(
			optimize.Problem{Func: objective},
			params,
			&optimize.Settings{
				MajorIterations: 5000,
				FuncEvaluations: 20000,
				Converger: &optimize.FunctionConverge{
					Absolute:   1e-10,
					Relative:   1e-10,
					Iterations: 200,
				},
			},
			&optimize.NelderMead{},
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConverged, err)
		}
		if result.F == math.MaxFloat64 || !finite(result.X) {
			return nil, ErrNotConverged
		}
		params = squash(result.X)
	}

	ar, ma := m.polynomials(params)
	resid := residuals(y, ar, ma)
	used := resid[len(ar)-1:]
	sigma2 := floats.Dot(used, used) / float64(len(used))
	if math.IsNaN(sigma2) || math.IsInf(sigma2, 0) {
		return nil, ErrNotConverged
	}

	return &Fit{
		Model:  m,
		Params: params,
		Sigma2: sigma2,
		series: s,
		ar:     ar,
		ma:     ma,
		resid:  resid,
	}, nil
}

// Forecast projects steps months ahead with 95% intervals from the
// psi-weight expansion of the fitted operators.
func (f *Fit) Forecast(steps int) ([]Point, error) {
	if steps <= 0 {
		return nil, nil
	}
	months, err := nextMonths(f.series, steps)
	if err != nil {
		return nil, err
	}

	n := f.series.Len()
	y := append(append([]float64(nil), f.series.Values...), make([]float64, steps)...)
	e := append(append([]float64(nil), f.resid...), make([]float64, steps)...)

	psi := psiWeights(f.ar, f.ma, steps)
	sigma := math.Sqrt(f.Sigma2)

	points := make([]Point, steps)
	var cum float64
	for h := 0; h < steps; h++ {
		t := n + h
		v := 0.0
		for k := 1; k < len(f.ar) && k <= t; k++ {
			v -= f.ar[k] * y[t-k]
		}
		for j := 1; j < len(f.ma) && j <= t; j++ {
			v += f.ma[j] * e[t-j]
		}
		y[t] = v

		cum += psi[h] * psi[h]
		half := z95 * sigma * math.Sqrt(cum)
		if math.IsNaN(v) || math.IsNaN(half) || math.IsInf(v, 0) || math.IsInf(half, 0) {
			return nil, ErrNotConverged
		}
		points[h] = Point{Month: months[h], Mean: v, Lower: v - half, Upper: v + half}
	}
	return points, nil
}

// psiWeights returns the first n coefficients of ma(B)/ar(B).
func psiWeights(ar, ma []float64, n int) []float64 {
	psi := make([]float64, n)
	for j := 0; j < n; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for k := 1; k <= j && k < len(ar); k++ {
			v -= ar[k] * psi[j-k]
		}
		psi[j] = v
	}
	return psi
}

func squash(u []float64) []float64 {
	out := make([]float64, len(u))
	for i, v := range u {
		out[i] = math.Tanh(v)
	}
	return out
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

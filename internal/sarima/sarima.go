package sarima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInvalidOrder     = errors.New("invalid model order")
	ErrInsufficientData = errors.New("insufficient observations")
	ErrNonFinite        = errors.New("non-finite observation")
	ErrNotConverged     = errors.New("estimation did not converge")
	ErrInvalidSteps     = errors.New("steps must be at least 1")
)

// Order represents the non-seasonal order (p, d, q).
type Order struct {
	P int // AR order
	D int // Differencing order
	Q int // MA order
}

// SeasonalOrder represents the seasonal order (P, D, Q, s).
type SeasonalOrder struct {
	P int // Seasonal AR order
	D int // Seasonal differencing order
	Q int // Seasonal MA order
	S int // Seasonal period, e.g. 12 for monthly data with yearly seasonality
}

// Model is an unfitted SARIMA specification bound to a series.
type Model struct {
	endog    []float64
	order    Order
	seasonal SeasonalOrder

	enforceStationarity  bool
	enforceInvertibility bool
	maxIter              int
	tolerance            float64
}

// Option configures a Model.
type Option func(*Model)

// WithEnforceStationarity bounds AR coefficients to (-0.99, 0.99).
func WithEnforceStationarity(enforce bool) Option {
	return func(m *Model) { m.enforceStationarity = enforce }
}

// WithEnforceInvertibility bounds MA coefficients to (-0.99, 0.99).
func WithEnforceInvertibility(enforce bool) Option {
	return func(m *Model) { m.enforceInvertibility = enforce }
}

// WithMaxIter sets the optimizer iteration limit.
func WithMaxIter(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.maxIter = n
		}
	}
}

// New creates a SARIMA model for endog. The series is copied.
func New(endog []float64, order Order, seasonal SeasonalOrder, opts ...Option) *Model {
	m := &Model{
		endog:                append([]float64(nil), endog...),
		order:                order,
		seasonal:             seasonal,
		enforceStationarity:  true,
		enforceInvertibility: true,
		maxIter:              200,
		tolerance:            1e-8,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) String() string {
	return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]",
		m.order.P, m.order.D, m.order.Q,
		m.seasonal.P, m.seasonal.D, m.seasonal.Q, m.seasonal.S)
}

func (m *Model) validate() error {
	o, so := m.order, m.seasonal
	if o.P < 0 || o.D < 0 || o.Q < 0 || so.P < 0 || so.D < 0 || so.Q < 0 {
		return fmt.Errorf("%w: %s has a negative order", ErrInvalidOrder, m)
	}
	if so.S < 1 {
		return fmt.Errorf("%w: seasonal period must be at least 1, got %d", ErrInvalidOrder, so.S)
	}
	for i, v := range m.endog {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: observation %d is %v", ErrNonFinite, i, v)
		}
	}
	return nil
}

// includeConstant mirrors the usual ARIMA default: a mean term only without differencing.
func (m *Model) includeConstant() bool {
	return m.order.D+m.seasonal.D == 0
}

// armaObservations is the differenced length the non-seasonal ARMA part needs.
func (m *Model) armaObservations() int {
	params := m.order.P + m.order.Q
	if m.includeConstant() {
		params++
	}
	return params + 1
}

// MinObservations is the shortest series Fit accepts for this order.
// Seasonal structure the series is too short for is reduced rather than
// rejected: a seasonal difference that would leave fewer than the ARMA
// part needs is skipped, and seasonal coefficients whose lag does not fit
// are held at zero. Results.Warnings lists each reduction.
func (m *Model) MinObservations() int {
	return m.order.D + m.armaObservations()
}

// Fit estimates the model by conditional sum of squares.
func (m *Model) Fit() (*Results, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	if need := m.MinObservations(); len(m.endog) < need {
		return nil, fmt.Errorf("%w: %s needs at least %d observations, got %d",
			ErrInsufficientData, m, need, len(m.endog))
	}

	r := newResults(m)
	w := r.levels[len(r.levels)-1]
	if m.includeConstant() {
		r.Intercept = stat.Mean(w, nil)
	}
	centered := center(w, r.Intercept)

	scale := math.Sqrt(floats.Dot(centered, centered) / float64(len(centered)))
	if scale > 0 && r.activeParams() > 0 {
		z := make([]float64, len(centered))
		floats.ScaleTo(z, 1/scale, centered)
		r.initialize(z, m)
		if err := m.optimize(r, z); err != nil {
			return nil, err
		}
	}

	r.resid = make([]float64, len(centered))
	sse := r.residuals(centered, r.resid)
	if err := r.finish(sse); err != nil {
		return nil, err
	}
	return r, nil
}

// optimize runs momentum gradient descent on the standardised series z.
func (m *Model) optimize(r *Results, z []float64) error {
	const (
		momentum = 0.9
		decay    = 0.99
		patience = 20
	)
	n := float64(len(z))
	learningRate := 0.01

	e := make([]float64, len(z))
	velocity := make([]float64, len(r.coef))
	best := append([]float64(nil), r.coef...)
	bestSSE := math.Inf(1)
	prevSSE := math.Inf(1)
	stalled := 0

	for iter := 0; iter < m.maxIter; iter++ {
		sse := r.residuals(z, e)
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			break
		}
		if sse < bestSSE {
			bestSSE = sse
			copy(best, r.coef)
			stalled = 0
		} else if stalled++; stalled > patience {
			break
		}
		if math.Abs(prevSSE-sse) <= m.tolerance*(1+sse) {
			break
		}
		prevSSE = sse

		grad := r.gradient(z, e)
		for k := range r.coef {
			if r.terms[k].fixed {
				continue
			}
			velocity[k] = momentum*velocity[k] + learningRate*grad[k]/n
			r.coef[k] = m.constrain(r.terms[k], r.coef[k]-velocity[k])
		}
		learningRate *= decay
	}

	if math.IsInf(bestSSE, 1) {
		return fmt.Errorf("%w: %s sum of squares is not finite at the starting values", ErrNotConverged, m)
	}
	copy(r.coef, best)
	return nil
}

func (m *Model) constrain(t term, v float64) float64 {
	if (t.ma && m.enforceInvertibility) || (!t.ma && m.enforceStationarity) {
		return math.Max(-0.99, math.Min(0.99, v))
	}
	return v
}

// term is one coefficient of a lag polynomial factor: B^lag in the AR or MA
// factor, seasonal or not.
type term struct {
	lag      int
	ma       bool
	seasonal bool
	fixed    bool // held at zero, the series is too short for its lag
}

// Results is a fitted SARIMA model.
type Results struct {
	Order     Order
	Seasonal  SeasonalOrder
	Intercept float64
	Sigma2    float64 // residual variance
	LogLik    float64
	AIC       float64
	BIC       float64
	NObs      int
	Warnings  []string // reductions applied because the series is short

	terms  []term
	coef   []float64
	levels [][]float64 // levels[0] is the input, each next level one more difference
	lags   []int       // lags[i] takes levels[i] to levels[i+1]
	start  int         // first index of the differenced series with a full lag window
	resid  []float64
	hasC   bool
}

func newResults(m *Model) *Results {
	r := &Results{
		Order:    m.order,
		Seasonal: m.seasonal,
		NObs:     len(m.endog),
		hasC:     m.includeConstant(),
	}
	s := m.seasonal.S
	need := m.armaObservations()

	r.levels = [][]float64{m.endog}
	for i := 0; i < m.order.D; i++ {
		r.lags = append(r.lags, 1)
		r.levels = append(r.levels, difference(r.levels[len(r.levels)-1], 1))
	}
	for i := 0; i < m.seasonal.D; i++ {
		last := r.levels[len(r.levels)-1]
		if len(last)-s < need {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"seasonal differencing at lag %d skipped: %d observations after differencing are too few",
				s, len(last)))
			break
		}
		r.lags = append(r.lags, s)
		r.levels = append(r.levels, difference(last, s))
	}
	n := len(r.levels[len(r.levels)-1])

	// fits reports whether a polynomial of the given degree leaves enough residuals.
	fits := func(degree int) bool { return n-degree >= need }

	arDeg, maDeg := m.order.P, m.order.Q
	for i := 1; i <= m.order.P; i++ {
		r.terms = append(r.terms, term{lag: i})
	}
	for j := 1; j <= m.seasonal.P; j++ {
		t := term{lag: j * s, seasonal: true, fixed: !fits(m.order.P + j*s)}
		if t.fixed {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"seasonal AR coefficient at lag %d held at zero: %d observations after differencing are too few", t.lag, n))
		} else {
			arDeg = m.order.P + t.lag
		}
		r.terms = append(r.terms, t)
	}
	for i := 1; i <= m.order.Q; i++ {
		r.terms = append(r.terms, term{lag: i, ma: true})
	}
	for j := 1; j <= m.seasonal.Q; j++ {
		t := term{lag: j * s, ma: true, seasonal: true, fixed: !fits(m.order.Q + j*s)}
		if t.fixed {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"seasonal MA coefficient at lag %d held at zero: %d observations after differencing are too few", t.lag, n))
		} else {
			maDeg = m.order.Q + t.lag
		}
		r.terms = append(r.terms, t)
	}
	r.coef = make([]float64, len(r.terms))
	r.start = max(arDeg, maDeg)
	return r
}

func (r *Results) activeParams() int {
	n := 0
	for _, t := range r.terms {
		if !t.fixed {
			n++
		}
	}
	return n
}

// factors returns the four lag polynomial factors: non-seasonal AR,
// seasonal AR, non-seasonal MA and seasonal MA, each with a leading 1.
// AR factors carry negated coefficients, as in (1 - phi B).
func (r *Results) factors() (ar, sar, ma, sma []float64) {
	ar, sar, ma, sma = []float64{1}, []float64{1}, []float64{1}, []float64{1}
	for k, t := range r.terms {
		if t.fixed {
			continue
		}
		switch {
		case t.ma && t.seasonal:
			sma = addAt(sma, t.lag, r.coef[k])
		case t.ma:
			ma = addAt(ma, t.lag, r.coef[k])
		case t.seasonal:
			sar = addAt(sar, t.lag, -r.coef[k])
		default:
			ar = addAt(ar, t.lag, -r.coef[k])
		}
	}
	return ar, sar, ma, sma
}

// polynomials returns the multiplicative AR and MA lag polynomials.
func (r *Results) polynomials() (ar, ma []float64) {
	nsAR, sAR, nsMA, sMA := r.factors()
	return polyMul(nsAR, sAR), polyMul(nsMA, sMA)
}

// initialize seeds AR terms from the autocorrelations and MA terms at 0.1.
func (r *Results) initialize(z []float64, m *Model) {
	acf := autocorrelations(z, r.start)
	for k, t := range r.terms {
		switch {
		case t.fixed:
		case t.ma:
			r.coef[k] = 0.1
		case acf != nil && t.lag < len(acf):
			r.coef[k] = m.constrain(t, acf[t.lag]*0.5)
		}
	}
}

// predict is the conditional expectation of y[t] from earlier values and
// from residuals at indices below observed (later residuals have mean zero).
func predict(ar, ma, y, e []float64, t, observed int) float64 {
	pred := 0.0
	for i := 1; i < len(ar) && i <= t; i++ {
		pred -= ar[i] * y[t-i]
	}
	for j := 1; j < len(ma) && j <= t; j++ {
		if t-j < observed {
			pred += ma[j] * e[t-j]
		}
	}
	return pred
}

// residuals fills e for y and returns the conditional sum of squares.
func (r *Results) residuals(y, e []float64) float64 {
	ar, ma := r.polynomials()
	sse := 0.0
	for t := range y {
		if t < r.start {
			e[t] = 0
			continue
		}
		e[t] = y[t] - predict(ar, ma, y, e, t, len(y))
		sse += e[t] * e[t]
	}
	return sse
}

// gradient of the sum of squares, holding lagged residuals fixed. The
// derivative of the product polynomial by one coefficient is the other
// factor shifted by that coefficient's lag.
func (r *Results) gradient(y, e []float64) []float64 {
	nsAR, sAR, nsMA, sMA := r.factors()
	grad := make([]float64, len(r.coef))
	for k, tm := range r.terms {
		if tm.fixed {
			continue
		}
		other, x := sAR, y
		switch {
		case tm.ma && tm.seasonal:
			other, x = nsMA, e
		case tm.ma:
			other, x = sMA, e
		case tm.seasonal:
			other = nsAR
		}
		for t := r.start; t < len(y); t++ {
			d := 0.0
			for i, c := range other {
				idx := t - tm.lag - i
				if idx < 0 {
					break
				}
				d += c * x[idx]
			}
			grad[k] -= 2 * e[t] * d
		}
	}
	return grad
}

func (r *Results) finish(sse float64) error {
	for k, c := range r.coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: coefficient %d is %v", ErrNotConverged, k, c)
		}
	}

	count := len(r.resid) - r.start
	params := r.activeParams()
	if r.hasC {
		params++
	}
	if count > params {
		r.Sigma2 = sse / float64(count-params)
	} else {
		r.Sigma2 = sse / float64(count)
	}
	if math.IsNaN(r.Sigma2) || math.IsInf(r.Sigma2, 0) {
		return fmt.Errorf("%w: residual variance is %v", ErrNotConverged, r.Sigma2)
	}

	nf := float64(count)
	if r.Sigma2 > 0 {
		r.LogLik = -nf/2*math.Log(2*math.Pi) - nf/2*math.Log(r.Sigma2) - sse/(2*r.Sigma2)
	} else {
		r.LogLik = math.Inf(1)
	}
	kf := float64(params + 1) // coefficients plus the variance
	r.AIC = -2*r.LogLik + 2*kf
	r.BIC = -2*r.LogLik + kf*math.Log(nf)
	return nil
}

// AR returns the non-seasonal autoregressive coefficients.
func (r *Results) AR() []float64 { return r.pick(false, false) }

// MA returns the non-seasonal moving-average coefficients.
func (r *Results) MA() []float64 { return r.pick(true, false) }

// SeasonalAR returns the seasonal autoregressive coefficients.
func (r *Results) SeasonalAR() []float64 { return r.pick(false, true) }

// SeasonalMA returns the seasonal moving-average coefficients.
func (r *Results) SeasonalMA() []float64 { return r.pick(true, true) }

func (r *Results) pick(ma, seasonal bool) []float64 {
	var out []float64
	for k, t := range r.terms {
		if t.ma == ma && t.seasonal == seasonal {
			out = append(out, r.coef[k])
		}
	}
	return out
}

// Resid returns the residuals of the differenced series.
func (r *Results) Resid() []float64 {
	return append([]float64(nil), r.resid...)
}

// Forecast returns point forecasts for the next steps observations.
func (r *Results) Forecast(steps int) ([]float64, error) {
	if steps < 1 {
		return nil, ErrInvalidSteps
	}
	return r.integrate(r.forecastDifferenced(steps)), nil
}

func (r *Results) forecastDifferenced(steps int) []float64 {
	w := r.levels[len(r.levels)-1]
	n := len(w)
	ext := make([]float64, n+steps)
	copy(ext, center(w, r.Intercept))
	e := make([]float64, n+steps)
	copy(e, r.resid)

	ar, ma := r.polynomials()
	out := make([]float64, steps)
	for h := 0; h < steps; h++ {
		ext[n+h] = predict(ar, ma, ext, e, n+h, n)
		out[h] = ext[n+h] + r.Intercept
	}
	return out
}

// integrate undoes the differencing chain, last difference first.
func (r *Results) integrate(future []float64) []float64 {
	out := future
	for i := len(r.lags) - 1; i >= 0; i-- {
		hist, lag := r.levels[i], r.lags[i]
		ext := make([]float64, len(hist)+len(out))
		copy(ext, hist)
		for h, v := range out {
			t := len(hist) + h
			ext[t] = v + ext[t-lag]
		}
		out = ext[len(hist):]
	}
	return out
}

// psi returns the first h MA(infinity) weights of the integrated model.
func (r *Results) psi(h int) []float64 {
	ar, ma := r.polynomials()
	for _, lag := range r.lags {
		unit := make([]float64, lag+1)
		unit[0], unit[lag] = 1, -1
		ar = polyMul(ar, unit)
	}

	weights := make([]float64, h)
	weights[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for i := 1; i < len(ar) && i <= j; i++ {
			v -= ar[i] * weights[j-i]
		}
		weights[j] = v
	}
	return weights
}

// Prediction holds forecasts with their standard errors.
type Prediction struct {
	PredictedMean []float64
	StdErr        []float64
}

// GetForecast returns forecasts with standard errors for interval construction.
func (r *Results) GetForecast(steps int) (*Prediction, error) {
	mean, err := r.Forecast(steps)
	if err != nil {
		return nil, err
	}
	weights := r.psi(steps)
	se := make([]float64, steps)
	for h := range se {
		se[h] = math.Sqrt(r.Sigma2 * floats.Dot(weights[:h+1], weights[:h+1]))
	}
	return &Prediction{PredictedMean: mean, StdErr: se}, nil
}

// ConfInt returns the two-sided (1-alpha) normal interval. Alpha outside (0,1) means 0.05.
func (p *Prediction) ConfInt(alpha float64) (lower, upper []float64) {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}
	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	lower = make([]float64, len(p.PredictedMean))
	upper = make([]float64, len(p.PredictedMean))
	for h, mean := range p.PredictedMean {
		lower[h] = mean - z*p.StdErr[h]
		upper[h] = mean + z*p.StdErr[h]
	}
	return lower, upper
}

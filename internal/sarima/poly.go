package sarima

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// difference returns x[t] - x[t-lag].
func difference(x []float64, lag int) []float64 {
	if len(x) <= lag {
		return nil
	}
	out := make([]float64, len(x)-lag)
	floats.SubTo(out, x[lag:], x[:len(x)-lag])
	return out
}

func center(x []float64, c float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-c, out)
	return out
}

// autocorrelations returns the sample ACF for lags 0..maxLag, or nil for a constant series.
func autocorrelations(x []float64, maxLag int) []float64 {
	mean := stat.Mean(x, nil)
	d := center(x, mean)
	variance := floats.Dot(d, d)
	if variance == 0 {
		return nil
	}
	if maxLag >= len(x) {
		maxLag = len(x) - 1
	}
	acf := make([]float64, maxLag+1)
	for k := range acf {
		acf[k] = floats.Dot(d[k:], d[:len(d)-k]) / variance
	}
	return acf
}

// addAt adds v to the coefficient of B^i, growing p as needed.
func addAt(p []float64, i int, v float64) []float64 {
	for len(p) <= i {
		p = append(p, 0)
	}
	p[i] += v
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

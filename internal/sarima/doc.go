// Package sarima fits seasonal ARIMA models and forecasts from them.
//
// A SARIMA(p,d,q)(P,D,Q)[s] model is estimated by conditional sum of squares
// on the differenced series: d non-seasonal differences are applied first,
// then D seasonal differences at lag s. The AR and MA polynomials are
// multiplicative, phi(B)Phi(B^s) and theta(B)Theta(B^s), so a seasonal AR(1)
// with a non-seasonal AR(1) also acts at lag s+1.
//
// # Short Series
//
// Fit needs d observations plus one more than the non-seasonal parameters.
// When the series is too short for the seasonal structure, a seasonal
// difference is skipped and seasonal coefficients whose lag does not fit are
// held at zero. Results.Warnings records each reduction.
//
// # Basic Usage
//
//	model := sarima.New(values,
//	    sarima.Order{P: 1, D: 1, Q: 1},
//	    sarima.SeasonalOrder{P: 1, D: 1, Q: 1, S: 12},
//	)
//	res, err := model.Fit()
//	if err != nil {
//	    return err
//	}
//	pred, _ := res.GetForecast(12)
//	lower, upper := pred.ConfInt(0.05)
//
// # Prediction Intervals
//
// Standard errors grow with the horizon through the psi weights of the
// integrated ARMA polynomial, so random-walk style models widen as sqrt(h).
//
// # Failure Modes
//
// Fit returns ErrInvalidOrder, ErrNonFinite, ErrInsufficientData or
// ErrNotConverged, each wrapped with a message describing the input.
package sarima

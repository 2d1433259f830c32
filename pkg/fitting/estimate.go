package fitting

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// The estimators below turn a raw signal into a starting guess without any
// optimization. They only need to land in the basin of attraction of the
// least-squares refinement, so each one prefers a crude closed-form answer
// with a deterministic fallback over anything iterative.

// estimateExp seeds A*exp(-t/tau) + C. The log-linear slope fit runs on a
// millisecond time axis because typical pulse durations (1e-3 s and below)
// push the regression into badly scaled territory; the recovered time
// constant is rescaled back to seconds afterwards.
func estimateExp(t, y []float64) []float64 {
	n := len(y)
	offset := tailMean(y)
	amp := y[0] - offset

	const msPerSecond = 1000.0
	ts := make([]float64, n)
	for i, ti := range t {
		ts[i] = ti * msPerSecond
	}

	tauMS := math.NaN()
	if amp != 0 {
		// z = ln((y-C)/A) = -t/tau is linear in t; keep only samples where
		// the ratio is a usable positive fraction.
		var zs, xs []float64
		for i := 0; i < n; i++ {
			r := (y[i] - offset) / amp
			if r > 1e-10 {
				xs = append(xs, ts[i])
				zs = append(zs, math.Log(r))
			}
		}
		if len(xs) >= 2 {
			_, slope := stat.LinearRegression(xs, zs, nil, false)
			if slope < 0 && !math.IsNaN(slope) {
				tauMS = -1 / slope
			}
		}
	}
	if !isFinitePositive(tauMS) {
		tauMS = ts[n/2]
	}
	if !isFinitePositive(tauMS) {
		tauMS = 1
	}

	return []float64{amp, tauMS / msPerSecond, offset}
}

// estimateDoubleExp seeds the five-parameter double exponential. The slow
// component comes from a single-exponential estimate over the late half of
// the signal, the fast one from the early-half residual; when the halves are
// too short or the split turns degenerate it falls back to splitting the
// single-exponential estimate into two staggered components.
func estimateDoubleExp(t, y []float64) []float64 {
	base := estimateExp(t, y)
	amp, tau, offset := base[0], base[1], base[2]
	fallback := []float64{amp / 2, tau / 2, amp / 2, 2 * tau, offset}

	h := len(t) / 2
	if h < 3 || len(t)-h < 3 {
		return fallback
	}

	slow := estimateExp(t[h:], y[h:])
	// The windowed amplitude absorbed exp(-t_h/tau); undo it so the slow
	// term is expressed from t=0 like the model is.
	slowTau := slow[1]
	slowAmp := slow[0] * math.Exp(t[h]/slowTau)
	slowOff := slow[2]

	resid := make([]float64, h)
	for i := 0; i < h; i++ {
		resid[i] = y[i] - (slowAmp*math.Exp(-t[i]/slowTau) + slowOff)
	}
	fast := estimateExp(t[:h], resid)
	fastAmp, fastTau := fast[0], fast[1]

	guess := []float64{fastAmp, fastTau, slowAmp, slowTau, slowOff}
	for _, v := range guess {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fallback
		}
	}
	if !isFinitePositive(fastTau) || !isFinitePositive(slowTau) {
		return fallback
	}
	return guess
}

// estimateStrExp seeds A*exp(-t^beta) + C by regressing ln(-ln((y-C)/A))
// against ln t, which is linear with slope beta.
func estimateStrExp(t, y []float64) []float64 {
	offset := tailMean(y)
	amp := y[0] - offset

	beta := 1.0
	if amp != 0 {
		var xs, ws []float64
		for i := 1; i < len(y); i++ {
			if t[i] <= 0 {
				continue
			}
			r := (y[i] - offset) / amp
			if r > 1e-10 && r < 1-1e-10 {
				xs = append(xs, math.Log(t[i]))
				ws = append(ws, math.Log(-math.Log(r)))
			}
		}
		if len(xs) >= 2 {
			_, slope := stat.LinearRegression(xs, ws, nil, false)
			if isFinitePositive(slope) {
				beta = math.Min(slope, 2)
			}
		}
	}
	if beta < 0.1 {
		beta = 0.1
	}

	return []float64{amp, beta, offset}
}

// estimateLogistic seeds the generalized logistic with the signal's range as
// the asymptotes, unit shape parameters, and a growth rate read off the
// steepest finite-difference slope (a plain logistic's midpoint slope is
// B*(K-A)/4).
func estimateLogistic(t, y []float64) []float64 {
	lo, hi := y[0], y[0]
	for _, v := range y {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	growth := 1.0
	if hi > lo {
		steepest := 0.0
		for i := 1; i < len(y); i++ {
			dt := t[i] - t[i-1]
			if dt <= 0 {
				continue
			}
			s := math.Abs(y[i]-y[i-1]) / dt
			steepest = math.Max(steepest, s)
		}
		if steepest > 0 {
			growth = 4 * steepest / (hi - lo)
		}
	}

	return []float64{lo, hi, growth, 1, 1, 1}
}

// tailMean estimates the settled offset from the last quarter of the signal.
func tailMean(y []float64) float64 {
	n := len(y)
	q := n / 4
	if q < 1 {
		q = 1
	}
	return stat.Mean(y[n-q:], nil)
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

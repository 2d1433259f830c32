package fitting

import (
	"fmt"
	"math"

	"github.com/maorshutman/lm"
)

// evalBudget caps the total number of model evaluations a single fit may
// spend. The Levenberg-Marquardt iterations below each cost one evaluation
// per parameter (numerical Jacobian) plus one for the step, so the iteration
// cap is the budget divided by params+1.
const evalBudget = 2500

// Fit refines the estimator's initial guess for the given model by
// Levenberg-Marquardt least squares over the samples (t, y). It returns the
// best-fit parameter vector in the descriptor's field order. Non-convergence
// and non-finite solutions return a *FitConvergenceError carrying the last
// iterate.
func Fit(d Descriptor, t, y []float64) ([]float64, error) {
	if len(t) != len(y) {
		return nil, fmt.Errorf("fit %s: time axis has %d samples, signal has %d", d.Kind, len(t), len(y))
	}
	if len(y) < d.NumParams() {
		return nil, fmt.Errorf("fit %s: %d samples cannot constrain %d parameters", d.Kind, len(y), d.NumParams())
	}

	guess := d.Estimate(t, y)

	f := func(dst, params []float64) {
		for i := range t {
			dst[i] = d.Eval(params, t[i]) - y[i]
		}
	}
	jacobian := lm.NumJac{Func: f}

	problem := lm.LMProblem{
		Dim:        d.NumParams(),
		Size:       len(y),
		Func:       f,
		Jac:        jacobian.Jac,
		InitParams: guess,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	iterations := evalBudget / (d.NumParams() + 1)
	results, err := lm.LM(problem, &lm.Settings{Iterations: iterations, ObjectiveTol: 1e-16})
	if err != nil {
		// The solver rejected the problem outright, so the seed is the last
		// meaningful iterate there is.
		return nil, &FitConvergenceError{Model: d.Kind, LastParams: append([]float64(nil), guess...), Err: err}
	}

	params := append([]float64(nil), results.X...)
	for _, v := range params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &FitConvergenceError{Model: d.Kind, LastParams: params}
		}
	}
	return params, nil
}

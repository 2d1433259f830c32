package fitting

import "fmt"

// UnsupportedModelError is returned when a model name does not match any
// registered descriptor.
type UnsupportedModelError struct {
	Name string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported fit model %q", e.Name)
}

// FitConvergenceError is returned when the least-squares refinement exhausts
// its evaluation budget or produces non-finite parameters. LastParams holds
// the solver's final iterate so callers can inspect or log how far the fit
// got; it is never silently returned as a valid result.
type FitConvergenceError struct {
	Model      Kind
	LastParams []float64
	Err        error
}

func (e *FitConvergenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fit did not converge: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("%s fit did not converge: non-finite parameters", e.Model)
}

func (e *FitConvergenceError) Unwrap() error {
	return e.Err
}

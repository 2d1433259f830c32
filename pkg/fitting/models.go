package fitting

import (
	"math"
	"sort"
)

// Kind names a relaxation model. The string values double as the
// configuration surface, so they are stable identifiers.
type Kind string

const (
	Exponential  Kind = "Exponential"
	DoubleExp    Kind = "Double_Exp"
	StretchedExp Kind = "Str_Exp"
	Logistic     Kind = "Logistic"
)

// ModelFunc evaluates a model at time t for a given parameter vector.
type ModelFunc func(params []float64, t float64) float64

// Descriptor is the single source of truth for one model: its result schema
// (group/dataset/field names), its closed-form function, its initial-guess
// estimator and, where ordering matters, its canonicalizer. Schema creation,
// dispatch and write-back all read this table so they cannot drift apart.
type Descriptor struct {
	Kind        Kind
	GroupName   string
	DatasetName string
	Fields      []string
	Eval        ModelFunc
	Estimate    func(t, y []float64) []float64
	// Canonicalize reorders one parameter vector in place; nil when the
	// model has no ordering convention.
	Canonicalize func(params []float64)
}

// NumParams returns the model's parameter count.
func (d Descriptor) NumParams() int {
	return len(d.Fields)
}

var descriptors = map[Kind]Descriptor{
	Exponential: {
		Kind:        Exponential,
		GroupName:   "Exp_Fit",
		DatasetName: "Exponential_Fit",
		Fields:      []string{"Amplitude [pm]", "Time_Constant [s]", "Offset [pm]"},
		Eval:        expFunc,
		Estimate:    estimateExp,
	},
	DoubleExp: {
		Kind:        DoubleExp,
		GroupName:   "Double_Exp",
		DatasetName: "Double_Exp_Fit",
		Fields: []string{
			"Amplitude 1 [pm]", "Time_Constant 1 [s]",
			"Amplitude 2 [pm]", "Time_Constant 2 [s]",
			"Offset [pm]",
		},
		Eval:         doubleExpFunc,
		Estimate:     estimateDoubleExp,
		Canonicalize: canonicalizeDoubleExp,
	},
	StretchedExp: {
		Kind:        StretchedExp,
		GroupName:   "Str_Exp",
		DatasetName: "Str_Exp_Fit",
		Fields:      []string{"Amplitude [pm]", "Beta", "Offset [pm]"},
		Eval:        strExpFunc,
		Estimate:    estimateStrExp,
	},
	Logistic: {
		Kind:        Logistic,
		GroupName:   "Logistic_Fit",
		DatasetName: "Logistic_Fit",
		Fields:      []string{"A", "K", "B", "v", "Q", "C"},
		Eval:        logisticFunc,
		Estimate:    estimateLogistic,
	},
}

// Lookup resolves a model name to its descriptor.
func Lookup(name string) (Descriptor, error) {
	d, ok := descriptors[Kind(name)]
	if !ok {
		return Descriptor{}, &UnsupportedModelError{Name: name}
	}
	return d, nil
}

// Kinds lists the registered model names in stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(descriptors))
	for k := range descriptors {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Curve evaluates the model across a whole time axis.
func Curve(d Descriptor, params, t []float64) []float64 {
	out := make([]float64, len(t))
	for i, ti := range t {
		out[i] = d.Eval(params, ti)
	}
	return out
}

// expFunc is A*exp(-t/tau) + C with params [A, tau, C].
func expFunc(p []float64, t float64) float64 {
	return p[0]*math.Exp(-t/p[1]) + p[2]
}

// doubleExpFunc is A1*exp(-t/tau1) + A2*exp(-t/tau2) + C with params
// [A1, tau1, A2, tau2, C]; the two terms share one offset.
func doubleExpFunc(p []float64, t float64) float64 {
	return p[0]*math.Exp(-t/p[1]) + p[2]*math.Exp(-t/p[3]) + p[4]
}

// strExpFunc is A*exp(-t^beta) + C with params [A, beta, C]. The time
// constant is fixed to the unit of the time axis.
func strExpFunc(p []float64, t float64) float64 {
	return p[0]*math.Exp(-math.Pow(t, p[1])) + p[2]
}

// logisticFunc is the generalized logistic
// A + (K-A)/(C + Q*exp(-B*t))^(1/v) with params [A, K, B, v, Q, C].
func logisticFunc(p []float64, t float64) float64 {
	a, k, b, v, q, c := p[0], p[1], p[2], p[3], p[4], p[5]
	return a + (k-a)/math.Pow(c+q*math.Exp(-b*t), 1/v)
}

// canonicalizeDoubleExp orders the two exponential components by ascending
// amplitude, keeping each amplitude paired with its own time constant.
func canonicalizeDoubleExp(p []float64) {
	if p[0] > p[2] {
		p[0], p[2] = p[2], p[0]
		p[1], p[3] = p[3], p[1]
	}
}

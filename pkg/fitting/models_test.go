package fitting

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownModels(t *testing.T) {
	cases := []struct {
		name      string
		group     string
		dataset   string
		numParams int
	}{
		{"Exponential", "Exp_Fit", "Exponential_Fit", 3},
		{"Double_Exp", "Double_Exp", "Double_Exp_Fit", 5},
		{"Str_Exp", "Str_Exp", "Str_Exp_Fit", 3},
		{"Logistic", "Logistic_Fit", "Logistic_Fit", 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Lookup(tc.name)
			require.NoError(t, err)
			assert.Equal(t, Kind(tc.name), d.Kind)
			assert.Equal(t, tc.group, d.GroupName)
			assert.Equal(t, tc.dataset, d.DatasetName)
			assert.Equal(t, tc.numParams, d.NumParams())
			assert.Len(t, d.Fields, tc.numParams)
			assert.NotNil(t, d.Eval)
			assert.NotNil(t, d.Estimate)
		})
	}
}

func TestLookupUnknownModel(t *testing.T) {
	_, err := Lookup("Gaussian")
	require.Error(t, err)

	var unsupported *UnsupportedModelError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "Gaussian", unsupported.Name)
}

func TestKindsAreStable(t *testing.T) {
	assert.Equal(t, []Kind{DoubleExp, Exponential, Logistic, StretchedExp}, Kinds())
}

func TestModelFunctions(t *testing.T) {
	t.Run("exponential", func(t *testing.T) {
		p := []float64{5, 0.003, 1}
		assert.InDelta(t, 6.0, expFunc(p, 0), 1e-12)
		assert.InDelta(t, 1.0, expFunc(p, 10), 1e-9)
	})

	t.Run("double exponential", func(t *testing.T) {
		p := []float64{2, 0.001, 6, 0.01, 0.5}
		assert.InDelta(t, 8.5, doubleExpFunc(p, 0), 1e-12)
		assert.InDelta(t, 0.5, doubleExpFunc(p, 10), 1e-9)
	})

	t.Run("stretched exponential", func(t *testing.T) {
		p := []float64{3, 0.7, 1}
		assert.InDelta(t, 4.0, strExpFunc(p, 0), 1e-12)
		// beta=1 degenerates to a plain exponential with unit time constant.
		p1 := []float64{3, 1, 1}
		assert.InDelta(t, 3*math.Exp(-2)+1, strExpFunc(p1, 2), 1e-12)
	})

	t.Run("logistic", func(t *testing.T) {
		// Plain sigmoid: C=Q=v=1 puts the midpoint at t=0.
		p := []float64{0, 10, 2, 1, 1, 1}
		assert.InDelta(t, 5.0, logisticFunc(p, 0), 1e-12)
		assert.InDelta(t, 10.0, logisticFunc(p, 50), 1e-9)
	})
}

func TestCurveEvaluatesAxis(t *testing.T) {
	d, err := Lookup("Exponential")
	require.NoError(t, err)

	axis := []float64{0, 0.003, 0.006}
	got := Curve(d, []float64{5, 0.003, 1}, axis)
	require.Len(t, got, 3)
	for i, ti := range axis {
		assert.InDelta(t, 5*math.Exp(-ti/0.003)+1, got[i], 1e-12)
	}
}

func TestCanonicalizeDoubleExp(t *testing.T) {
	t.Run("swaps descending amplitudes", func(t *testing.T) {
		p := []float64{6, 0.01, 2, 0.001, 0.5}
		canonicalizeDoubleExp(p)
		assert.Equal(t, []float64{2, 0.001, 6, 0.01, 0.5}, p)
	})

	t.Run("keeps ascending amplitudes", func(t *testing.T) {
		p := []float64{2, 0.001, 6, 0.01, 0.5}
		canonicalizeDoubleExp(p)
		assert.Equal(t, []float64{2, 0.001, 6, 0.01, 0.5}, p)
	})

	t.Run("idempotent", func(t *testing.T) {
		p := []float64{6, 0.01, 2, 0.001, 0.5}
		canonicalizeDoubleExp(p)
		canonicalizeDoubleExp(p)
		assert.Equal(t, []float64{2, 0.001, 6, 0.01, 0.5}, p)
	})
}

func TestEstimateExp(t *testing.T) {
	axis := timeAxis(8, 0.004)
	y := make([]float64, len(axis))
	for i, ti := range axis {
		y[i] = 5*math.Exp(-ti/0.003) + 1
	}

	guess := estimateExp(axis, y)
	require.Len(t, guess, 3)
	assert.InDelta(t, 5.0, guess[0], 1.0)
	assert.InDelta(t, 0.003, guess[1], 0.002)
	assert.InDelta(t, 1.0, guess[2], 0.5)
}

func TestEstimateExpFlatSignal(t *testing.T) {
	axis := timeAxis(8, 0.004)
	y := []float64{2, 2, 2, 2, 2, 2, 2, 2}

	guess := estimateExp(axis, y)
	require.Len(t, guess, 3)
	assert.InDelta(t, 0.0, guess[0], 1e-12)
	assert.Greater(t, guess[1], 0.0)
	assert.InDelta(t, 2.0, guess[2], 1e-12)
}

func TestEstimateStrExpBetaRange(t *testing.T) {
	axis := timeAxis(16, 0.25)
	y := make([]float64, len(axis))
	for i, ti := range axis {
		y[i] = 3*math.Exp(-math.Pow(ti, 0.7)) + 1
	}

	guess := estimateStrExp(axis, y)
	require.Len(t, guess, 3)
	assert.Greater(t, guess[1], 0.0)
	assert.LessOrEqual(t, guess[1], 2.0)
	assert.InDelta(t, 0.7, guess[1], 0.3)
}

func TestEstimateLogisticBrackets(t *testing.T) {
	axis := timeAxis(26, 0.2)
	y := make([]float64, len(axis))
	truth := []float64{0, 10, 2, 1, 50, 1}
	for i, ti := range axis {
		y[i] = logisticFunc(truth, ti)
	}

	guess := estimateLogistic(axis, y)
	require.Len(t, guess, 6)
	assert.InDelta(t, 0.0, guess[0], 0.5)  // lower asymptote
	assert.InDelta(t, 10.0, guess[1], 0.5) // upper asymptote
	assert.Greater(t, guess[2], 0.0)       // growth rate
}

func timeAxis(n int, dt float64) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = float64(i) * dt
	}
	return axis
}

package relax

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReconstructor(t *testing.T, sensitivity, phaseOffset float64) *Reconstructor {
	t.Helper()
	m := validMetadata()
	part, err := NewCyclePartition(m)
	require.NoError(t, err)
	return NewReconstructor(m, part, sensitivity, phaseOffset)
}

func constantRows(n int, v float64) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = v
	}
	return row
}

func TestReconstructConstantSignal(t *testing.T) {
	sens, phaseOff := 2.5, 0.7
	r := testReconstructor(t, sens, phaseOff)

	amp := constantRows(20, 1)
	phase := constantRows(20, 0)

	sig, err := r.Pixel(0, amp, phase)
	require.NoError(t, err)
	require.Len(t, sig.Read, 2)
	require.Len(t, sig.Write, 2)

	want := sens * math.Cos(phaseOff)
	for c := 0; c < 2; c++ {
		require.Len(t, sig.Read[c], 8)
		require.Len(t, sig.Write[c], 2)
		for _, v := range sig.Read[c] {
			assert.InDelta(t, want, v, 1e-12)
		}
		for _, v := range sig.Write[c] {
			assert.InDelta(t, want, v, 1e-12)
		}
	}
}

func TestReconstructFollowsPartitionIndices(t *testing.T) {
	r := testReconstructor(t, 1, 0)

	// amp[i] = i makes the mixed value equal the step index, so each branch
	// sample reveals exactly which raw step it came from.
	amp := make([]float64, 20)
	for i := range amp {
		amp[i] = float64(i)
	}
	phase := constantRows(20, 0)

	sig, err := r.Pixel(0, amp, phase)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8, 9}, sig.Read[0])
	assert.Equal(t, []float64{12, 13, 14, 15, 16, 17, 18, 19}, sig.Read[1])
	assert.Equal(t, []float64{0, 1}, sig.Write[0])
	assert.Equal(t, []float64{10, 11}, sig.Write[1])
}

func TestReconstructShapeMismatch(t *testing.T) {
	r := testReconstructor(t, 1, 0)

	_, err := r.Pixel(3, constantRows(19, 1), constantRows(20, 0))
	require.Error(t, err)

	var shape *ShapeMismatchError
	require.True(t, errors.As(err, &shape))
	assert.Equal(t, 3, shape.Row)
	assert.Equal(t, 19, shape.Got)
	assert.Equal(t, 20, shape.Want)
}

func TestReconstructChunk(t *testing.T) {
	r := testReconstructor(t, 2, 0)

	amps := [][]float64{constantRows(20, 1), constantRows(20, 3)}
	phases := [][]float64{constantRows(20, 0), constantRows(20, 0)}

	sigs, err := r.Chunk(amps, phases)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.InDelta(t, 2.0, sigs[0].Read[0][0], 1e-12)
	assert.InDelta(t, 6.0, sigs[1].Read[0][0], 1e-12)
}

func TestReconstructChunkRowCountMismatch(t *testing.T) {
	r := testReconstructor(t, 1, 0)

	_, err := r.Chunk([][]float64{constantRows(20, 1)}, nil)
	assert.Error(t, err)
}

package relax

import (
	"fmt"
	"math"
)

// PixelSignal holds one pixel's mixed signals, one sequence per cycle: the
// read branch carries the relaxation being fit, the write branch the
// excitation response. Signals are ephemeral, rebuilt for every processed
// chunk.
type PixelSignal struct {
	Read  [][]float64
	Write [][]float64
}

// Reconstructor mixes raw amplitude/phase channel rows into real-valued
// signals using a fixed partition, sensitivity and phase offset.
type Reconstructor struct {
	meta        ScanMetadata
	part        CyclePartition
	sensitivity float64
	phaseOffset float64
}

// NewReconstructor builds a reconstructor over an already-validated
// partition.
func NewReconstructor(meta ScanMetadata, part CyclePartition, sensitivity, phaseOffset float64) *Reconstructor {
	return &Reconstructor{
		meta:        meta,
		part:        part,
		sensitivity: sensitivity,
		phaseOffset: phaseOffset,
	}
}

// Pixel mixes one pixel's amplitude and phase rows. Row index is only used
// in error reports.
func (r *Reconstructor) Pixel(row int, amp, phase []float64) (PixelSignal, error) {
	if len(amp) != r.meta.NumSteps {
		return PixelSignal{}, &ShapeMismatchError{Row: row, Got: len(amp), Want: r.meta.NumSteps}
	}
	if len(phase) != r.meta.NumSteps {
		return PixelSignal{}, &ShapeMismatchError{Row: row, Got: len(phase), Want: r.meta.NumSteps}
	}

	cycles := r.part.Cycles()
	sig := PixelSignal{
		Read:  make([][]float64, cycles),
		Write: make([][]float64, cycles),
	}
	for c := 0; c < cycles; c++ {
		sig.Read[c] = r.mix(amp, phase, r.part.Read[c])
		sig.Write[c] = r.mix(amp, phase, r.part.Write[c])
	}
	return sig, nil
}

// Chunk mixes a batch of pixels. Rows are independent; nothing is shared or
// mixed across pixels.
func (r *Reconstructor) Chunk(amps, phases [][]float64) ([]PixelSignal, error) {
	if len(amps) != len(phases) {
		return nil, fmt.Errorf("chunk has %d amplitude rows but %d phase rows", len(amps), len(phases))
	}
	out := make([]PixelSignal, len(amps))
	for i := range amps {
		sig, err := r.Pixel(i, amps[i], phases[i])
		if err != nil {
			return nil, err
		}
		out[i] = sig
	}
	return out, nil
}

// mix gathers amp[idx]*sensitivity*cos(phase[idx]+phaseOffset) over the
// given step indices, preserving their order.
func (r *Reconstructor) mix(amp, phase []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = amp[idx] * r.sensitivity * math.Cos(phase[idx]+r.phaseOffset)
	}
	return out
}

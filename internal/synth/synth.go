package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/nccreang/berelax/pkg/dataset"
	"github.com/nccreang/berelax/pkg/relax"
)

// Params controls the synthetic scan Build writes. The raw channels are
// constructed so that mixing with sensitivity=1 and phase_offset=0
// reproduces a single-exponential relaxation on every read branch, which
// makes the expected fit parameters known in advance.
type Params struct {
	Pixels         int
	Cycles         int
	ReadsPerCycle  int
	WritesPerCycle int
	PulseDuration  float64
	StartsWith     relax.StartsWith

	// Amplitude, TimeConstant and Offset define the base relaxation
	// A*exp(-t/tau) + C carried by every read branch.
	Amplitude    float64
	TimeConstant float64
	Offset       float64

	// PixelSpread scales a deterministic per-pixel variation of the
	// amplitude, so pixels are distinguishable. Zero keeps every pixel
	// identical.
	PixelSpread float64

	// Noise is the standard deviation of additive Gaussian noise on the raw
	// amplitudes. Zero produces exact model signals.
	Noise float64

	// BiasStep sets the DC bias written on each cycle's write steps: cycle c
	// carries (c+1)*BiasStep volts.
	BiasStep float64

	Seed int64
}

// Metadata assembles the scan metadata the parameters imply.
func (p Params) Metadata() relax.ScanMetadata {
	return relax.ScanMetadata{
		NumSteps:       p.Cycles * (p.ReadsPerCycle + p.WritesPerCycle),
		ReadsPerCycle:  p.ReadsPerCycle,
		WritesPerCycle: p.WritesPerCycle,
		PulseDuration:  p.PulseDuration,
		StartsWith:     p.StartsWith,
	}
}

// Build writes a complete input hierarchy into the store: the measurement
// group with timing attributes, the channel group with the raw Main
// amplitude/phase dataset, and the spectroscopic bias table.
func Build(store *dataset.Store, p Params) error {
	if p.Pixels <= 0 {
		return fmt.Errorf("synthetic scan needs a positive pixel count, got %d", p.Pixels)
	}
	if p.Cycles <= 0 {
		return fmt.Errorf("synthetic scan needs a positive cycle count, got %d", p.Cycles)
	}
	meta := p.Metadata()
	if err := meta.Validate(); err != nil {
		return err
	}
	part, err := relax.NewCyclePartition(meta)
	if err != nil {
		return err
	}

	root, err := store.Root()
	if err != nil {
		return err
	}
	meas, err := root.CreateGroup(relax.DefaultMeasurementGroup)
	if err != nil {
		return err
	}
	if err := meas.SetAttrInt(relax.AttrNumSteps, int64(meta.NumSteps)); err != nil {
		return err
	}
	if err := meas.SetAttrInt(relax.AttrReadsPerStep, int64(meta.ReadsPerCycle)); err != nil {
		return err
	}
	if err := meas.SetAttrInt(relax.AttrWritesPerStep, int64(meta.WritesPerCycle)); err != nil {
		return err
	}
	if err := meas.SetAttrFloat(relax.AttrPulseDuration, meta.PulseDuration); err != nil {
		return err
	}

	channel, err := meas.CreateGroup(relax.DefaultChannelGroup)
	if err != nil {
		return err
	}

	main, err := channel.CreateDataset(relax.MainDatasetName, p.Pixels, meta.NumSteps,
		[]string{relax.AmplitudeFieldName, relax.PhaseFieldName})
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(p.Seed))
	rows := make([][]float64, p.Pixels)
	for pixel := 0; pixel < p.Pixels; pixel++ {
		rows[pixel] = p.rawPixelRow(pixel, part, rng)
	}
	if err := main.WriteRows(0, rows); err != nil {
		return err
	}

	spec, err := channel.CreateDataset(relax.SpectroscopicName, 1, meta.NumSteps,
		[]string{relax.BiasFieldName})
	if err != nil {
		return err
	}
	bias := make([]float64, meta.NumSteps)
	for c, writes := range part.Write {
		for _, step := range writes {
			bias[step] = float64(c+1) * p.BiasStep
		}
	}
	if err := spec.WriteRows(0, [][]float64{bias}); err != nil {
		return err
	}

	return store.Flush()
}

// PixelAmplitude returns the relaxation amplitude baked into a pixel's read
// branches, so tests can predict fit outcomes.
func (p Params) PixelAmplitude(pixel int) float64 {
	if p.Pixels <= 1 || p.PixelSpread == 0 {
		return p.Amplitude
	}
	// Linear ramp across pixels, centered on the base amplitude.
	frac := float64(pixel)/float64(p.Pixels-1) - 0.5
	return p.Amplitude * (1 + p.PixelSpread*frac)
}

// rawPixelRow lays out one pixel's interleaved Amplitude/Phase record row.
// Phase is zero everywhere, so the mixed signal equals the raw amplitude
// when sensitivity is 1 and the phase offset 0. Write steps carry the cycle
// bias as their amplitude.
func (p Params) rawPixelRow(pixel int, part relax.CyclePartition, rng *rand.Rand) []float64 {
	meta := p.Metadata()
	row := make([]float64, meta.NumSteps*2)
	amp := p.PixelAmplitude(pixel)

	for c, reads := range part.Read {
		for k, step := range reads {
			t := float64(k) * p.PulseDuration
			v := amp*math.Exp(-t/p.TimeConstant) + p.Offset
			if p.Noise > 0 {
				v += rng.NormFloat64() * p.Noise
			}
			row[step*2] = v
		}
		for _, step := range part.Write[c] {
			row[step*2] = float64(c+1) * p.BiasStep
		}
	}
	return row
}

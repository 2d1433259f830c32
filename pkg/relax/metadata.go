package relax

import (
	"fmt"

	"github.com/nccreang/berelax/pkg/dataset"
)

// Attribute names on the measurement group of an input store.
const (
	AttrNumSteps      = "num_steps"
	AttrReadsPerStep  = "VS_num_meas_per_read_step"
	AttrWritesPerStep = "VS_num_meas_per_write_step"
	AttrPulseDuration = "BE_pulse_duration_[s]"
)

// StartsWith says whether each read-write cycle opens with its read steps or
// its write steps. It is a single two-valued enum everywhere; the YAML and
// CLI surfaces use the strings "read" and "write".
type StartsWith int

const (
	StartsWithRead StartsWith = iota
	StartsWithWrite
)

// ParseStartsWith maps the configuration strings onto the enum.
func ParseStartsWith(s string) (StartsWith, error) {
	switch s {
	case "read":
		return StartsWithRead, nil
	case "write":
		return StartsWithWrite, nil
	default:
		return 0, configErrorf("starts_with must be \"read\" or \"write\", got %q", s)
	}
}

func (s StartsWith) String() string {
	if s == StartsWithWrite {
		return "write"
	}
	return "read"
}

// ScanMetadata describes the voltage-pulse timing of one scan: how many
// measurement steps each pixel holds, how those steps split into read and
// write pulses per cycle, and how long each pulse lasts.
type ScanMetadata struct {
	NumSteps       int
	ReadsPerCycle  int
	WritesPerCycle int
	PulseDuration  float64
	StartsWith     StartsWith
}

// LoadScanMetadata reads the timing attributes from a measurement group.
// StartsWith is acquisition configuration the file does not carry, so the
// caller supplies it.
func LoadScanMetadata(g *dataset.Group, startsWith StartsWith) (ScanMetadata, error) {
	var m ScanMetadata
	m.StartsWith = startsWith

	steps, err := g.AttrInt(AttrNumSteps)
	if err != nil {
		return m, fmt.Errorf("load scan metadata: %w", err)
	}
	reads, err := g.AttrInt(AttrReadsPerStep)
	if err != nil {
		return m, fmt.Errorf("load scan metadata: %w", err)
	}
	writes, err := g.AttrInt(AttrWritesPerStep)
	if err != nil {
		return m, fmt.Errorf("load scan metadata: %w", err)
	}
	dt, err := g.AttrFloat(AttrPulseDuration)
	if err != nil {
		return m, fmt.Errorf("load scan metadata: %w", err)
	}

	m.NumSteps = int(steps)
	m.ReadsPerCycle = int(reads)
	m.WritesPerCycle = int(writes)
	m.PulseDuration = dt
	return m, nil
}

// Validate checks the metadata invariant: step counts positive and NumSteps
// an integer multiple of a full read-write cycle.
func (m ScanMetadata) Validate() error {
	if m.NumSteps <= 0 || m.ReadsPerCycle <= 0 || m.WritesPerCycle <= 0 {
		return configErrorf("step counts must be positive: num_steps=%d reads=%d writes=%d",
			m.NumSteps, m.ReadsPerCycle, m.WritesPerCycle)
	}
	if m.PulseDuration <= 0 {
		return configErrorf("pulse duration must be positive, got %g", m.PulseDuration)
	}
	cycleLen := m.ReadsPerCycle + m.WritesPerCycle
	if m.NumSteps%cycleLen != 0 {
		return configErrorf("num_steps=%d is not a whole number of %d-step cycles", m.NumSteps, cycleLen)
	}
	return nil
}

// Cycles returns the number of read-write cycles in the scan. Only
// meaningful after Validate.
func (m ScanMetadata) Cycles() int {
	return m.NumSteps / (m.ReadsPerCycle + m.WritesPerCycle)
}

// ReadTimeAxis builds the relaxation time axis for one cycle's read branch:
// t_k = k * PulseDuration for k = 0 .. ReadsPerCycle-1.
func (m ScanMetadata) ReadTimeAxis() []float64 {
	axis := make([]float64, m.ReadsPerCycle)
	for k := range axis {
		axis[k] = float64(k) * m.PulseDuration
	}
	return axis
}

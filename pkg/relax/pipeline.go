package relax

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nccreang/berelax/pkg/dataset"
	"github.com/nccreang/berelax/pkg/fitting"
)

// Default store layout names.
const (
	DefaultMeasurementGroup = "Measurement_000"
	DefaultChannelGroup     = "Channel_000"
	MainDatasetName         = "Main"
	AmplitudeFieldName      = "Amplitude"
	PhaseFieldName          = "Phase"
)

// Params configures a fitting run over one channel of a scan.
type Params struct {
	// MeasurementGroup is the root-level group carrying the scan timing
	// attributes. Defaults to Measurement_000.
	MeasurementGroup string

	// ChannelGroup is the measurement child holding the raw Main dataset.
	// Defaults to Channel_000.
	ChannelGroup string

	// Model selects the relaxation model by name.
	Model string

	// Sensitivity converts raw amplitudes to displacement, in pm/V.
	Sensitivity float64

	// PhaseOffset is added to the raw phase before mixing, in radians.
	PhaseOffset float64

	// StartsWith says whether cycles open with read or write pulses.
	StartsWith string

	// ChunkSize is the number of pixels committed per chunk. Zero picks a
	// default.
	ChunkSize int

	// Workers is the goroutine count for per-pixel fitting inside a chunk.
	// Zero uses all CPUs.
	Workers int
}

const defaultChunkSize = 128

// Pipeline is one configured fitting run: immutable scan metadata, index
// partition and bias axis, plus handles into the raw store. The only state
// that moves during Process is the cursor, and that is threaded explicitly
// through commits.
type Pipeline struct {
	params    Params
	desc      fitting.Descriptor
	meta      ScanMetadata
	part      CyclePartition
	rec       *Reconstructor
	channel   *dataset.Group
	main      *dataset.Dataset
	ampIdx    int
	phaseIdx  int
	numPixels int
	bias      []float64
	timeAxis  []float64
}

// NewPipeline validates the configuration against the store and builds the
// immutable run state. All structural failures happen here, before any
// results exist.
func NewPipeline(store *dataset.Store, params Params) (*Pipeline, error) {
	if params.MeasurementGroup == "" {
		params.MeasurementGroup = DefaultMeasurementGroup
	}
	if params.ChannelGroup == "" {
		params.ChannelGroup = DefaultChannelGroup
	}
	if params.ChunkSize <= 0 {
		params.ChunkSize = defaultChunkSize
	}
	if params.Workers <= 0 {
		params.Workers = runtime.NumCPU()
	}

	desc, err := fitting.Lookup(params.Model)
	if err != nil {
		return nil, err
	}
	startsWith, err := ParseStartsWith(params.StartsWith)
	if err != nil {
		return nil, err
	}

	root, err := store.Root()
	if err != nil {
		return nil, err
	}
	meas, err := root.Group(params.MeasurementGroup)
	if err != nil {
		return nil, fmt.Errorf("open measurement group: %w", err)
	}
	channel, err := meas.Group(params.ChannelGroup)
	if err != nil {
		return nil, fmt.Errorf("open channel group: %w", err)
	}

	meta, err := LoadScanMetadata(meas, startsWith)
	if err != nil {
		return nil, err
	}
	part, err := NewCyclePartition(meta)
	if err != nil {
		return nil, err
	}
	if meta.ReadsPerCycle < desc.NumParams() {
		return nil, configErrorf("%d read steps per cycle cannot constrain the %d-parameter %s model",
			meta.ReadsPerCycle, desc.NumParams(), desc.Kind)
	}

	main, err := channel.Dataset(MainDatasetName)
	if err != nil {
		return nil, fmt.Errorf("open raw dataset: %w", err)
	}
	if main.Cols() != meta.NumSteps {
		return nil, configErrorf("raw dataset has %d step columns, metadata declares %d", main.Cols(), meta.NumSteps)
	}
	ampIdx := main.FieldIndex(AmplitudeFieldName)
	phaseIdx := main.FieldIndex(PhaseFieldName)
	if ampIdx < 0 || phaseIdx < 0 {
		return nil, configErrorf("raw dataset fields %v lack %s/%s", main.Fields(), AmplitudeFieldName, PhaseFieldName)
	}

	bias, err := cycleBiasOffsets(channel, meta, part)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		params:    params,
		desc:      desc,
		meta:      meta,
		part:      part,
		rec:       NewReconstructor(meta, part, params.Sensitivity, params.PhaseOffset),
		channel:   channel,
		main:      main,
		ampIdx:    ampIdx,
		phaseIdx:  phaseIdx,
		numPixels: main.Rows(),
		bias:      bias,
		timeAxis:  meta.ReadTimeAxis(),
	}, nil
}

// cycleBiasOffsets reads the spectroscopic bias table and picks each cycle's
// DC offset as the bias at that cycle's first write step. The result is a
// sequence even for a single cycle.
func cycleBiasOffsets(channel *dataset.Group, meta ScanMetadata, part CyclePartition) ([]float64, error) {
	spec, err := channel.Dataset(SpectroscopicName)
	if err != nil {
		return nil, fmt.Errorf("open spectroscopic table: %w", err)
	}
	if spec.Cols() != meta.NumSteps {
		return nil, configErrorf("spectroscopic table has %d steps, metadata declares %d", spec.Cols(), meta.NumSteps)
	}
	biasIdx := spec.FieldIndex(BiasFieldName)
	if biasIdx < 0 {
		return nil, configErrorf("spectroscopic table fields %v lack %q", spec.Fields(), BiasFieldName)
	}
	row, err := spec.ReadRow(0)
	if err != nil {
		return nil, fmt.Errorf("read spectroscopic table: %w", err)
	}

	fieldCount := len(spec.Fields())
	offsets := make([]float64, part.Cycles())
	for c := range offsets {
		step := part.Write[c][0]
		offsets[c] = row[step*fieldCount+biasIdx]
	}
	return offsets, nil
}

// Metadata returns the scan metadata the pipeline was built against.
func (pl *Pipeline) Metadata() ScanMetadata {
	return pl.meta
}

// Partition returns the immutable cycle partition.
func (pl *Pipeline) Partition() CyclePartition {
	return pl.part
}

// NumPixels returns the pixel count of the raw dataset.
func (pl *Pipeline) NumPixels() int {
	return pl.numPixels
}

// BiasOffsets returns the per-cycle write-step DC bias axis.
func (pl *Pipeline) BiasOffsets() []float64 {
	return append([]float64(nil), pl.bias...)
}

// Process runs the chunked fit loop: resume the cursor, then repeatedly
// read a pixel chunk, reconstruct, fit every pixel and cycle across the
// worker pool, and commit. A fit failure aborts before the chunk's commit,
// so the persisted cursor never moves past a bad pixel and a rerun retries
// it. Cancellation is honored between chunks.
func (pl *Pipeline) Process(ctx context.Context) error {
	start := time.Now()
	logrus.Infof("fitting %s over %d pixels (%d cycles, %d read steps each, starts with %s)",
		pl.desc.Kind, pl.numPixels, pl.part.Cycles(), pl.meta.ReadsPerCycle, pl.meta.StartsWith)

	writer, cur, err := NewResultWriter(pl.channel, MainDatasetName, pl.desc, pl.numPixels, pl.bias)
	if err != nil {
		return err
	}

	for cur.Next < pl.numPixels {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunkStart := time.Now()
		end := cur.Next + pl.params.ChunkSize
		if end > pl.numPixels {
			end = pl.numPixels
		}

		fits, err := pl.fitChunk(cur.Next, end)
		if err != nil {
			return fmt.Errorf("chunk [%d, %d): %w", cur.Next, end, err)
		}

		cur, err = writer.Commit(cur, fits)
		if err != nil {
			return fmt.Errorf("chunk [%d, %d): %w", cur.Next, end, err)
		}

		logrus.Infof("committed pixels [%d, %d) of %d in %v", end-len(fits), end, pl.numPixels,
			time.Since(chunkStart).Round(time.Millisecond))
	}

	logrus.Infof("fit run complete: %d pixels in %v", pl.numPixels, time.Since(start).Round(time.Millisecond))
	return nil
}

// fitChunk reads raw rows [lo, hi), reconstructs their signals and fits
// every pixel across the worker pool.
func (pl *Pipeline) fitChunk(lo, hi int) ([]PixelFit, error) {
	rows, err := pl.main.ReadRows(lo, hi)
	if err != nil {
		return nil, err
	}
	amps, phases := pl.splitChannels(rows)
	signals, err := pl.rec.Chunk(amps, phases)
	if err != nil {
		return nil, err
	}

	n := len(signals)
	fits := make([]PixelFit, n)
	workers := pl.params.Workers
	perWorker := (n + workers - 1) / workers

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			startPixel := workerID * perWorker
			endPixel := startPixel + perWorker
			if endPixel > n {
				endPixel = n
			}
			if startPixel >= n {
				return
			}

			for i := startPixel; i < endPixel; i++ {
				fit, err := pl.fitPixel(signals[i])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("pixel %d: %w", lo+i, err)
					}
					mu.Unlock()
					return
				}
				fits[i] = fit
			}
		}(w)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return fits, nil
}

// fitPixel fits every cycle of one pixel's read branch.
func (pl *Pipeline) fitPixel(sig PixelSignal) (PixelFit, error) {
	params := make([][]float64, len(sig.Read))
	for c, signal := range sig.Read {
		p, err := fitting.Fit(pl.desc, pl.timeAxis, signal)
		if err != nil {
			return PixelFit{}, fmt.Errorf("cycle %d: %w", c, err)
		}
		params[c] = p
	}
	return PixelFit{Params: params}, nil
}

// splitChannels pulls the amplitude and phase columns out of raw record
// rows.
func (pl *Pipeline) splitChannels(rows [][]float64) (amps, phases [][]float64) {
	fieldCount := len(pl.main.Fields())
	amps = make([][]float64, len(rows))
	phases = make([][]float64, len(rows))
	for i, row := range rows {
		amp := make([]float64, pl.meta.NumSteps)
		phase := make([]float64, pl.meta.NumSteps)
		for j := 0; j < pl.meta.NumSteps; j++ {
			amp[j] = row[j*fieldCount+pl.ampIdx]
			phase[j] = row[j*fieldCount+pl.phaseIdx]
		}
		amps[i] = amp
		phases[i] = phase
	}
	return amps, phases
}

// PixelPreview is the in-memory outcome of a single-pixel test fit: the
// read time axis, the reconstructed per-cycle signals, the fitted curves
// sampled on the same axis, and the fitted parameters.
type PixelPreview struct {
	Time    []float64
	Signals [][]float64
	Fitted  [][]float64
	Params  [][]float64
}

// TestPixel fits one pixel in memory without creating or touching any
// results group. It is meant for checking sensitivity, phase offset and
// model choice before a batch run.
func (pl *Pipeline) TestPixel(pixel int) (*PixelPreview, error) {
	if pixel < 0 || pixel >= pl.numPixels {
		return nil, fmt.Errorf("pixel %d outside [0, %d)", pixel, pl.numPixels)
	}

	rows, err := pl.main.ReadRows(pixel, pixel+1)
	if err != nil {
		return nil, err
	}
	amps, phases := pl.splitChannels(rows)
	sig, err := pl.rec.Pixel(pixel, amps[0], phases[0])
	if err != nil {
		return nil, err
	}

	preview := &PixelPreview{
		Time:    append([]float64(nil), pl.timeAxis...),
		Signals: sig.Read,
		Fitted:  make([][]float64, len(sig.Read)),
		Params:  make([][]float64, len(sig.Read)),
	}
	for c, signal := range sig.Read {
		p, err := fitting.Fit(pl.desc, pl.timeAxis, signal)
		if err != nil {
			return nil, fmt.Errorf("cycle %d: %w", c, err)
		}
		preview.Params[c] = p
		preview.Fitted[c] = fitting.Curve(pl.desc, p, pl.timeAxis)
	}
	return preview, nil
}

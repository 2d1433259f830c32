package relax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nccreang/berelax/pkg/dataset"
	"github.com/nccreang/berelax/pkg/fitting"
)

// Attribute and dataset names inside a results group.
const (
	AttrLastPixel     = "last_pixel"
	AttrAlgorithm     = "algorithm"
	SpectroscopicName = "Spectroscopic_Values"
	BiasFieldName     = "Bias [V]"
	algorithmPrefix   = "relax_fit_"
	resultGroupDigits = 3
)

// Cursor is the resume position of a chunked run: the first pixel row not
// yet committed. It is passed into and returned from every commit instead of
// living as hidden writer state, and it is persisted as the results group's
// last_pixel attribute.
type Cursor struct {
	Next int
}

// PixelFit holds the fitted parameter vectors for one pixel, one vector per
// read-write cycle, in the model's field order.
type PixelFit struct {
	Params [][]float64
}

// ResultWriter owns one results group: its schema comes from the model
// descriptor, its rows are committed chunk by chunk, and its cursor
// attribute makes interrupted runs resumable.
type ResultWriter struct {
	desc      fitting.Descriptor
	group     *dataset.Group
	data      *dataset.Dataset
	numPixels int
	cycles    int
}

// NewResultWriter creates the results group for the given model under
// parent, or reopens an existing incomplete one with a matching algorithm so
// an interrupted run resumes where it stopped. The returned cursor is zero
// for a fresh group and the persisted last_pixel otherwise.
//
// Group names follow <source>-<model group>_NNN; a new group takes the first
// unused suffix. biasOffsets is the per-cycle write-step DC bias axis and
// must stay a sequence even for a single cycle.
func NewResultWriter(parent *dataset.Group, source string, desc fitting.Descriptor, numPixels int, biasOffsets []float64) (*ResultWriter, Cursor, error) {
	if numPixels <= 0 {
		return nil, Cursor{}, configErrorf("results need a positive pixel count, got %d", numPixels)
	}
	if len(biasOffsets) == 0 {
		return nil, Cursor{}, configErrorf("results need at least one cycle bias offset")
	}

	cycles := len(biasOffsets)
	prefix := source + "-" + desc.GroupName + "_"

	existing, next, err := findResultGroups(parent, prefix)
	if err != nil {
		return nil, Cursor{}, err
	}
	for _, g := range existing {
		w, cur, ok, err := tryReopen(g, desc, numPixels, cycles)
		if err != nil {
			return nil, Cursor{}, err
		}
		if ok {
			logrus.Infof("resuming results group %s at pixel %d/%d", g.Path(), cur.Next, numPixels)
			return w, cur, nil
		}
	}

	name := fmt.Sprintf("%s%0*d", prefix, resultGroupDigits, next)
	group, err := parent.CreateGroup(name)
	if err != nil {
		return nil, Cursor{}, fmt.Errorf("create results group: %w", err)
	}
	data, err := group.CreateDataset(desc.DatasetName, numPixels, cycles, desc.Fields)
	if err != nil {
		return nil, Cursor{}, fmt.Errorf("create results dataset: %w", err)
	}
	spec, err := group.CreateDataset(SpectroscopicName, 1, cycles, []string{BiasFieldName})
	if err != nil {
		return nil, Cursor{}, fmt.Errorf("create results bias axis: %w", err)
	}
	if err := spec.WriteRows(0, [][]float64{append([]float64(nil), biasOffsets...)}); err != nil {
		return nil, Cursor{}, fmt.Errorf("write results bias axis: %w", err)
	}
	if err := group.SetAttrInt(AttrLastPixel, 0); err != nil {
		return nil, Cursor{}, err
	}
	if err := group.SetAttrString(AttrAlgorithm, algorithmPrefix+string(desc.Kind)); err != nil {
		return nil, Cursor{}, err
	}
	if err := group.Store().Flush(); err != nil {
		return nil, Cursor{}, err
	}

	logrus.Infof("created results group %s (%d pixels x %d cycles, %d fields)",
		group.Path(), numPixels, cycles, len(desc.Fields))
	return &ResultWriter{desc: desc, group: group, data: data, numPixels: numPixels, cycles: cycles}, Cursor{}, nil
}

// findResultGroups lists children matching the name prefix and returns them
// along with the first unused numeric suffix.
func findResultGroups(parent *dataset.Group, prefix string) ([]*dataset.Group, int, error) {
	children, err := parent.Groups()
	if err != nil {
		return nil, 0, fmt.Errorf("list result groups: %w", err)
	}
	var matches []*dataset.Group
	next := 0
	for _, child := range children {
		if !strings.HasPrefix(child.Name(), prefix) {
			continue
		}
		var idx int
		if _, err := fmt.Sscanf(child.Name()[len(prefix):], "%d", &idx); err != nil {
			continue
		}
		matches = append(matches, child)
		if idx >= next {
			next = idx + 1
		}
	}
	return matches, next, nil
}

// tryReopen checks whether an existing group belongs to the same model and
// shape and is still incomplete; if so it is adopted for resumption.
func tryReopen(g *dataset.Group, desc fitting.Descriptor, numPixels, cycles int) (*ResultWriter, Cursor, bool, error) {
	alg, err := g.AttrString(AttrAlgorithm)
	if errors.Is(err, dataset.ErrNotFound) {
		return nil, Cursor{}, false, nil
	}
	if err != nil {
		return nil, Cursor{}, false, err
	}
	if alg != algorithmPrefix+string(desc.Kind) {
		return nil, Cursor{}, false, nil
	}

	data, err := g.Dataset(desc.DatasetName)
	if errors.Is(err, dataset.ErrNotFound) {
		return nil, Cursor{}, false, nil
	}
	if err != nil {
		return nil, Cursor{}, false, err
	}
	if data.Rows() != numPixels || data.Cols() != cycles {
		return nil, Cursor{}, false, nil
	}

	last, err := g.AttrInt(AttrLastPixel)
	if err != nil {
		return nil, Cursor{}, false, err
	}
	if int(last) >= numPixels {
		// Complete run; leave it alone.
		return nil, Cursor{}, false, nil
	}

	w := &ResultWriter{desc: desc, group: g, data: data, numPixels: numPixels, cycles: cycles}
	return w, Cursor{Next: int(last)}, true, nil
}

// Group returns the results group this writer owns.
func (w *ResultWriter) Group() *dataset.Group {
	return w.group
}

// NumPixels returns the total pixel row count of the results dataset.
func (w *ResultWriter) NumPixels() int {
	return w.numPixels
}

// Commit writes one chunk of fits into pixel rows [cur.Next,
// cur.Next+len(fits)), canonicalizes stored parameter ordering in place,
// advances the persisted cursor to the chunk end and flushes. Re-committing
// the same range with the same fits leaves the store unchanged. The
// advanced cursor is returned; the input cursor is not mutated.
func (w *ResultWriter) Commit(cur Cursor, fits []PixelFit) (Cursor, error) {
	if len(fits) == 0 {
		return cur, nil
	}
	end := cur.Next + len(fits)
	if cur.Next < 0 || end > w.numPixels {
		return cur, fmt.Errorf("commit range [%d, %d) outside [0, %d)", cur.Next, end, w.numPixels)
	}

	fieldCount := w.desc.NumParams()
	rows := make([][]float64, len(fits))
	for i, fit := range fits {
		if len(fit.Params) != w.cycles {
			return cur, fmt.Errorf("pixel %d carries %d cycle fits, want %d", cur.Next+i, len(fit.Params), w.cycles)
		}
		row := make([]float64, w.cycles*fieldCount)
		for c, params := range fit.Params {
			if len(params) != fieldCount {
				return cur, fmt.Errorf("pixel %d cycle %d carries %d params, want %d", cur.Next+i, c, len(params), fieldCount)
			}
			copy(row[c*fieldCount:(c+1)*fieldCount], params)
		}
		rows[i] = row
	}

	if err := w.data.WriteRows(cur.Next, rows); err != nil {
		return cur, fmt.Errorf("commit chunk: %w", err)
	}
	if err := w.canonicalizeRange(cur.Next, end); err != nil {
		return cur, err
	}
	if err := w.group.SetAttrInt(AttrLastPixel, int64(end)); err != nil {
		return cur, fmt.Errorf("advance cursor: %w", err)
	}
	if err := w.group.Store().Flush(); err != nil {
		return cur, fmt.Errorf("flush chunk: %w", err)
	}
	return Cursor{Next: end}, nil
}

// canonicalizeRange rewrites the stored rows of [lo, hi) with the model's
// parameter-ordering convention applied to every cycle record. Models
// without a convention skip the pass.
func (w *ResultWriter) canonicalizeRange(lo, hi int) error {
	if w.desc.Canonicalize == nil {
		return nil
	}
	rows, err := w.data.ReadRows(lo, hi)
	if err != nil {
		return fmt.Errorf("canonicalize rows [%d, %d): %w", lo, hi, err)
	}
	fieldCount := w.desc.NumParams()
	for _, row := range rows {
		for c := 0; c < w.cycles; c++ {
			w.desc.Canonicalize(row[c*fieldCount : (c+1)*fieldCount])
		}
	}
	if err := w.data.WriteRows(lo, rows); err != nil {
		return fmt.Errorf("canonicalize rows [%d, %d): %w", lo, hi, err)
	}
	return nil
}

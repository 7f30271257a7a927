// Package binning aggregates event populations onto a pitch grid.
package binning

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/pitch"
)

// Op is a per-cell aggregation operator.
type Op string

const (
	OpCount Op = "count"
	OpSum   Op = "sum"
	OpMean  Op = "mean"
)

// Field extracts a numeric value from an event. ok is false when the event
// has no value for it.
type Field func(e *model.Event) (v float64, ok bool)

// Coord extracts the position an event is binned at.
type Coord func(e *model.Event) (p model.Point, ok bool)

// Origin bins events at their valid origin.
func Origin(e *model.Event) (model.Point, bool) {
	if !model.ValidPosition(e.Origin) {
		return model.Point{}, false
	}
	return *e.Origin, true
}

// Destination bins events at their valid destination.
func Destination(e *model.Event) (model.Point, bool) {
	if !model.ValidPosition(e.Destination) {
		return model.Point{}, false
	}
	return *e.Destination, true
}

// Metric names a source field and how to aggregate it. A nil Field is only
// allowed with OpCount, where it counts the cell population.
type Metric struct {
	Field Field
	Op    Op
}

// Count is the plain group-size metric.
func Count() Metric { return Metric{Op: OpCount} }

// Config describes one binning request.
type Config struct {
	Grid    *pitch.Grid
	Coord   Coord // defaults to Origin
	Metrics map[string]Metric
}

// Result holds one rows=y, cols=x matrix per metric plus the axis centers.
// Every cell is populated; cells without events hold 0.
type Result struct {
	Matrices map[string]*mat.Dense
	XCenters []float64
	YCenters []float64
}

// Matrix returns the named matrix or nil.
func (r *Result) Matrix(name string) *mat.Dense { return r.Matrices[name] }

func (c *Config) validate() error {
	if c.Grid == nil {
		return fmt.Errorf("%w: binning requires a grid", model.ErrInvalidConfig)
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("%w: binning requires at least one metric", model.ErrInvalidConfig)
	}
	for name, m := range c.Metrics {
		switch m.Op {
		case OpCount:
		case OpSum, OpMean:
			if m.Field == nil {
				return fmt.Errorf("%w: metric %q: %s needs a source field", model.ErrInvalidConfig, name, m.Op)
			}
		default:
			return fmt.Errorf("%w: metric %q: unsupported aggregation %q", model.ErrInvalidConfig, name, m.Op)
		}
	}
	return nil
}

// Bin assigns every event with a usable position to a grid cell and
// aggregates the configured metrics per cell.
func Bin(events []model.Event, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	coord := cfg.Coord
	if coord == nil {
		coord = Origin
	}
	g := cfg.Grid
	nx, ny := g.BucketsX, g.BucketsY

	names := make([]string, 0, len(cfg.Metrics))
	for name := range cfg.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	type accum struct {
		sum   []float64
		count []float64
	}
	accums := make(map[string]*accum, len(names))
	for _, name := range names {
		accums[name] = &accum{sum: make([]float64, nx*ny), count: make([]float64, nx*ny)}
	}

	for i := range events {
		e := &events[i]
		pt, ok := coord(e)
		if !ok {
			continue
		}
		ix, iy, ok := g.Cell(pt)
		if !ok {
			continue
		}
		cell := iy*nx + ix
		for _, name := range names {
			m := cfg.Metrics[name]
			acc := accums[name]
			if m.Field == nil {
				acc.count[cell]++
				continue
			}
			v, ok := m.Field(e)
			if !ok {
				continue
			}
			acc.sum[cell] += v
			acc.count[cell]++
		}
	}

	res := &Result{
		Matrices: make(map[string]*mat.Dense, len(names)),
		XCenters: append([]float64(nil), g.XCenters...),
		YCenters: append([]float64(nil), g.YCenters...),
	}
	for _, name := range names {
		acc := accums[name]
		data := make([]float64, nx*ny)
		switch cfg.Metrics[name].Op {
		case OpCount:
			copy(data, acc.count)
		case OpSum:
			copy(data, acc.sum)
		case OpMean:
			for k := range data {
				if acc.count[k] > 0 {
					data[k] = acc.sum[k] / acc.count[k]
				}
			}
		}
		res.Matrices[name] = mat.NewDense(ny, nx, data)
	}
	return res, nil
}

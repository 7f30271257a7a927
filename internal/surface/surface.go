// Package surface builds per-cell goal conversion-rate surfaces from binned
// shot populations.
package surface

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/pable/go-pitch-metrics/internal/binning"
	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/pitch"
)

// Config selects the grid and the position events are binned at.
type Config struct {
	Grid  *pitch.Grid
	Coord binning.Coord // defaults to binning.Origin
}

// Surface is a conversion-rate map plus the layers it was derived from. All
// matrices are rows=y, cols=x.
type Surface struct {
	Rate     *mat.Dense // 100 * goals / shots, 0 where there are no shots
	Shots    *mat.Dense
	Goals    *mat.Dense
	Share    *mat.Dense // share of all binned shots, percent
	XCenters []float64
	YCenters []float64
}

// FilterReport summarises the outlier filter.
type FilterReport struct {
	GoalsBefore  int
	GoalsRemoved int
	Shots        int

	// Decision is shots / (shots + passes) per cell, 0 for empty cells.
	Decision *mat.Dense
}

// ShareRemoved is the percentage of goals dropped as outliers.
func (r FilterReport) ShareRemoved() float64 {
	return 100 * model.SafeDiv(float64(r.GoalsRemoved), float64(r.GoalsBefore))
}

func (c Config) binConfig(metrics map[string]binning.Metric) binning.Config {
	return binning.Config{Grid: c.Grid, Coord: c.Coord, Metrics: metrics}
}

func countOnGrid(events []model.Event, c Config) (*binning.Result, error) {
	return binning.Bin(events, c.binConfig(map[string]binning.Metric{"count": binning.Count()}))
}

// ConversionRate bins shots and goals on the same grid. goals is expected to
// be a subset of shots.
func ConversionRate(shots, goals []model.Event, c Config) (*Surface, error) {
	s, err := countOnGrid(shots, c)
	if err != nil {
		return nil, fmt.Errorf("bin shots: %w", err)
	}
	g, err := countOnGrid(goals, c)
	if err != nil {
		return nil, fmt.Errorf("bin goals: %w", err)
	}
	shotM, goalM := s.Matrix("count"), g.Matrix("count")
	r, cols := shotM.Dims()

	rate := mat.NewDense(r, cols, nil)
	rate.Apply(func(i, j int, _ float64) float64 {
		return 100 * model.SafeDiv(goalM.At(i, j), shotM.At(i, j))
	}, rate)

	total := mat.Sum(shotM)
	share := mat.NewDense(r, cols, nil)
	share.Apply(func(i, j int, _ float64) float64 {
		return 100 * model.SafeDiv(shotM.At(i, j), total)
	}, share)

	return &Surface{
		Rate:     rate,
		Shots:    shotM,
		Goals:    goalM,
		Share:    share,
		XCenters: s.XCenters,
		YCenters: s.YCenters,
	}, nil
}

// Goals returns the events of shots flagged as goals.
func Goals(shots []model.Event) []model.Event {
	var out []model.Event
	for _, e := range shots {
		if e.Goal {
			out = append(out, e)
		}
	}
	return out
}

// FilteredConversionRate drops goals scored from cells where players rarely
// choose to shoot. The shot-decision probability of a cell is
// shots / (shots + passes); goals in cells below threshold are removed from
// the numerator while their shots stay in the denominator.
func FilteredConversionRate(shots, passes []model.Event, threshold float64, c Config) (*Surface, FilterReport, error) {
	var rep FilterReport
	if threshold < 0 || threshold > 1 {
		return nil, rep, fmt.Errorf("%w: decision threshold must be in [0,1], got %g", model.ErrInvalidConfig, threshold)
	}
	s, err := countOnGrid(shots, c)
	if err != nil {
		return nil, rep, fmt.Errorf("bin shots: %w", err)
	}
	p, err := countOnGrid(passes, c)
	if err != nil {
		return nil, rep, fmt.Errorf("bin passes: %w", err)
	}
	shotM, passM := s.Matrix("count"), p.Matrix("count")
	r, cols := shotM.Dims()

	decision := mat.NewDense(r, cols, nil)
	decision.Apply(func(i, j int, _ float64) float64 {
		n := shotM.At(i, j)
		return model.SafeDiv(n, n+passM.At(i, j))
	}, decision)
	rep.Decision = decision

	coord := c.Coord
	if coord == nil {
		coord = binning.Origin
	}
	var kept []model.Event
	for i := range shots {
		e := &shots[i]
		pt, ok := coord(e)
		if !ok {
			continue
		}
		ix, iy, ok := c.Grid.Cell(pt)
		if !ok {
			continue
		}
		rep.Shots++
		if !e.Goal {
			continue
		}
		rep.GoalsBefore++
		if decision.At(iy, ix) < threshold {
			rep.GoalsRemoved++
			continue
		}
		kept = append(kept, *e)
	}

	surf, err := ConversionRate(shots, kept, c)
	if err != nil {
		return nil, rep, err
	}
	return surf, rep, nil
}

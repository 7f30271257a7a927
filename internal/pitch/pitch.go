// Package pitch defines the fixed pitch coordinate system and the bucket
// grid used for spatial aggregation.
package pitch

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/pable/go-pitch-metrics/internal/model"
)

// Standard pitch dimensions in meters.
const (
	DefaultLength = 105.0
	DefaultWidth  = 68.0
)

// Pitch is a length x width rectangle anchored at (0,0). X runs along the
// length, Y along the width.
type Pitch struct {
	Length float64
	Width  float64
}

// Default returns the 105 x 68 m pitch.
func Default() Pitch {
	return Pitch{Length: DefaultLength, Width: DefaultWidth}
}

// Validate rejects degenerate dimensions.
func (p Pitch) Validate() error {
	if !(p.Length > 0) || !(p.Width > 0) {
		return fmt.Errorf("%w: pitch dimensions must be positive, got %gx%g",
			model.ErrInvalidConfig, p.Length, p.Width)
	}
	return nil
}

// HomeGoal is the center of the goal at x = 0.
func (p Pitch) HomeGoal() model.Point { return model.Point{X: 0, Y: p.Width / 2} }

// AwayGoal is the center of the goal at x = Length.
func (p Pitch) AwayGoal() model.Point { return model.Point{X: p.Length, Y: p.Width / 2} }

// AttackingGoal returns the goal center the acting team of e attacks in the
// event's period. Home attacks the away goal in first-half orientation and
// the sides swap after the break.
func (p Pitch) AttackingGoal(e *model.Event) model.Point {
	if e.IsHome() == e.Period.FirstHalfOrientation() {
		return p.AwayGoal()
	}
	return p.HomeGoal()
}

// DefendedGoal is the opposite of AttackingGoal.
func (p Pitch) DefendedGoal(e *model.Event) model.Point {
	if e.IsHome() == e.Period.FirstHalfOrientation() {
		return p.HomeGoal()
	}
	return p.AwayGoal()
}

// Contains reports whether pt lies inside the closed pitch rectangle.
func (p Pitch) Contains(pt model.Point) bool {
	return pt.X >= 0 && pt.X <= p.Length && pt.Y >= 0 && pt.Y <= p.Width
}

// FromPercent scales a 0-100 feed coordinate to meters.
func (p Pitch) FromPercent(x, y float64) model.Point {
	return model.Point{X: x * p.Length / 100, Y: y * p.Width / 100}
}

// BuildGrid splits [min, max] into n equal buckets and returns the n+1 edges
// and the n bucket centers.
func BuildGrid(min, max float64, n int) (edges, centers []float64, err error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: bucket count must be >= 1, got %d", model.ErrInvalidConfig, n)
	}
	if !(max > min) {
		return nil, nil, fmt.Errorf("%w: grid range [%g, %g] is empty", model.ErrInvalidConfig, min, max)
	}
	edges = floats.Span(make([]float64, n+1), min, max)
	centers = make([]float64, n)
	for i := range centers {
		centers[i] = (edges[i] + edges[i+1]) / 2
	}
	return edges, centers, nil
}

// AssignBucket maps v to the bucket i with edges[i] <= v < edges[i+1].
// Values outside the range clamp to the first or last bucket, so the upper
// boundary itself lands in the last bucket. NaN yields -1.
func AssignBucket(v float64, edges []float64) int {
	n := len(edges) - 1
	if n < 1 || math.IsNaN(v) {
		return -1
	}
	// First edge strictly greater than v, minus one.
	i := sort.Search(len(edges), func(k int) bool { return edges[k] > v }) - 1
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// Grid is a pitch discretised into BucketsX x BucketsY cells.
type Grid struct {
	Pitch    Pitch
	BucketsX int
	BucketsY int
	XEdges   []float64
	XCenters []float64
	YEdges   []float64
	YCenters []float64
}

// NewGrid builds the bucket edges and centers for both axes.
func NewGrid(p Pitch, bucketsX, bucketsY int) (*Grid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	xe, xc, err := BuildGrid(0, p.Length, bucketsX)
	if err != nil {
		return nil, fmt.Errorf("x axis: %w", err)
	}
	ye, yc, err := BuildGrid(0, p.Width, bucketsY)
	if err != nil {
		return nil, fmt.Errorf("y axis: %w", err)
	}
	return &Grid{
		Pitch:    p,
		BucketsX: bucketsX,
		BucketsY: bucketsY,
		XEdges:   xe,
		XCenters: xc,
		YEdges:   ye,
		YCenters: yc,
	}, nil
}

// Cell returns the (x, y) bucket indices of pt. ok is false when either
// index falls outside the grid.
func (g *Grid) Cell(pt model.Point) (ix, iy int, ok bool) {
	ix = AssignBucket(pt.X, g.XEdges)
	iy = AssignBucket(pt.Y, g.YEdges)
	ok = ix >= 0 && ix < g.BucketsX && iy >= 0 && iy < g.BucketsY
	return ix, iy, ok
}

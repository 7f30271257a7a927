package tracking

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/pitch"
)

const (
	defaultFPS          = 25
	defaultTargetWindow = 3.0 // seconds

	// Same tolerances as numpy.isclose.
	closeAbsTol = 1e-8
	closeRelTol = 1e-5
)

// Engine turns events into pseudo-tracking frames. It holds a random source
// for duel jitter and is therefore not safe for concurrent use.
type Engine struct {
	pitch        pitch.Pitch
	fps          int
	rules        []Rule
	rng          *rand.Rand
	targetWindow float64
}

// New builds an Engine with the default pitch, 25 fps, the default rule
// table and a time-seeded random source.
func New(opts ...Option) (*Engine, error) {
	en := &Engine{
		pitch:        pitch.Default(),
		fps:          defaultFPS,
		rules:        DefaultRules(),
		targetWindow: defaultTargetWindow,
	}
	for _, opt := range opts {
		opt(en)
	}
	if en.rng == nil {
		en.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if en.fps < 2 {
		return nil, fmt.Errorf("%w: fps must be >= 2, got %d", model.ErrInvalidConfig, en.fps)
	}
	if err := en.pitch.Validate(); err != nil {
		return nil, err
	}
	return en, nil
}

// FPS returns the interpolation frame count.
func (en *Engine) FPS() int { return en.fps }

// Target infers where the ball ends up after e and names the rule that
// decided it. ok is false when e has no valid origin.
func (en *Engine) Target(e *model.Event) (pt model.Point, rule string, ok bool) {
	if !model.ValidPosition(e.Origin) {
		return model.Point{}, "", false
	}
	c := &RuleContext{Pitch: en.pitch, Rand: en.rng}
	for _, r := range en.rules {
		if r.Match(e) {
			return r.Resolve(c, e), r.Name, true
		}
	}
	return *e.Origin, RuleDefault, true
}

// BallFrames interpolates the ball from the origin of e to its inferred
// target. A ball that does not move yields a single frame; otherwise exactly
// fps frames are produced whatever the real duration of the event.
func (en *Engine) BallFrames(e *model.Event) []model.Point {
	target, _, ok := en.Target(e)
	if !ok {
		return nil
	}
	origin := *e.Origin
	if samePoint(origin, target) {
		return []model.Point{origin}
	}
	xs := floats.Span(make([]float64, en.fps), origin.X, target.X)
	ys := floats.Span(make([]float64, en.fps), origin.Y, target.Y)
	out := make([]model.Point, en.fps)
	for i := range out {
		out[i] = model.Point{X: xs[i], Y: ys[i]}
	}
	return out
}

func samePoint(a, b model.Point) bool {
	return scalar.EqualWithinAbsOrRel(a.X, b.X, closeAbsTol, closeRelTol) &&
		scalar.EqualWithinAbsOrRel(a.Y, b.Y, closeAbsTol, closeRelTol)
}

// TargetPlayer is the inferred receiver or continuation actor of an event.
type TargetPlayer struct {
	PlayerID   int64
	PlayerName string
	Team       string
	Position   model.Point
}

// InferTargetPlayer returns the actor of next when it plausibly continues
// e: same team, at most the target window later, with a valid origin.
func (en *Engine) InferTargetPlayer(e, next *model.Event) *TargetPlayer {
	if next == nil {
		return nil
	}
	if e.TeamID != next.TeamID {
		return nil
	}
	if next.EventSec-e.EventSec > en.targetWindow {
		return nil
	}
	if !model.ValidPosition(next.Origin) {
		return nil
	}
	return &TargetPlayer{
		PlayerID:   next.PlayerID,
		PlayerName: next.PlayerName,
		Team:       next.SideLabel(),
		Position:   *next.Origin,
	}
}

// Build assembles the frame stream for one phase. Events are taken in time
// order; events without a valid origin emit nothing and do not advance the
// frame counter. Every ball frame carries the event owner, the inferred
// target (if any) and the ball under one frame index.
func (en *Engine) Build(events []model.Event) []model.Frame {
	phase := append([]model.Event(nil), events...)
	sort.SliceStable(phase, func(i, j int) bool { return phase[i].EventSec < phase[j].EventSec })

	var frames []model.Frame
	frame := 0
	for i := range phase {
		e := &phase[i]
		if !model.ValidPosition(e.Origin) {
			continue
		}
		ball := en.BallFrames(e)
		if len(ball) == 0 {
			continue
		}
		var next *model.Event
		if i+1 < len(phase) {
			next = &phase[i+1]
		}
		target := en.InferTargetPlayer(e, next)

		for _, b := range ball {
			frames = append(frames, model.Frame{
				Frame:      frame,
				EntityType: model.EntityPlayerOwner,
				PlayerID:   e.PlayerID,
				PlayerName: e.PlayerName,
				Team:       e.SideLabel(),
				X:          e.Origin.X,
				Y:          e.Origin.Y,
				EventID:    e.ID,
				EventName:  e.EventName,
			})
			if target != nil {
				frames = append(frames, model.Frame{
					Frame:      frame,
					EntityType: model.EntityPlayerTarget,
					PlayerID:   target.PlayerID,
					PlayerName: target.PlayerName,
					Team:       target.Team,
					X:          target.Position.X,
					Y:          target.Position.Y,
					EventID:    e.ID,
				})
			}
			frames = append(frames, model.Frame{
				Frame:      frame,
				EntityType: model.EntityBall,
				Team:       model.SideBall,
				X:          b.X,
				Y:          b.Y,
				EventID:    e.ID,
			})
			frame++
		}
	}
	return frames
}

package tracking

import (
	"math/rand"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/pitch"
)

// Sub-event vocabularies recognised by the default rules.
var (
	PassSubEvents = map[string]bool{
		"Cross": true, "Hand pass": true, "Head pass": true, "High pass": true,
		"Launch": true, "Simple pass": true, "Smart pass": true,
		// Ball-moving actions animated like passes.
		"Clearance": true, "Touch": true,
	}
	DuelSubEvents = map[string]bool{
		"Air duel": true, "Ground attacking duel": true,
		"Ground defending duel": true, "Ground loose ball duel": true,
	}
	StopSubEvents = map[string]bool{
		"Ball out of the field": true, "Whistle": true, "Offside": true,
	}
)

// saveOffset is how far in front of the goal line a save without a recorded
// destination leaves the ball.
const saveOffset = 2.0

// RuleContext is what a resolver may use besides the event itself.
type RuleContext struct {
	Pitch pitch.Pitch
	Rand  *rand.Rand
}

// Rule resolves the ball's end-of-event position for the events it matches.
// Resolve is only called with events whose origin is valid.
type Rule struct {
	Name    string
	Match   func(e *model.Event) bool
	Resolve func(c *RuleContext, e *model.Event) model.Point
}

// Rule names, also reported by Engine.Target.
const (
	RuleGoalShot = "goal-shot"
	RulePass     = "pass"
	RuleSave     = "save-attempt"
	RuleDuel     = "duel"
	RuleStoppage = "stoppage"
	RuleDefault  = "default"
)

// DefaultRules returns the ordered rule table; the first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  RuleGoalShot,
			Match: func(e *model.Event) bool { return e.EventName == model.EventShot && e.Goal },
			Resolve: func(c *RuleContext, e *model.Event) model.Point {
				return c.Pitch.AttackingGoal(e)
			},
		},
		{
			Name: RulePass,
			Match: func(e *model.Event) bool {
				return e.EventName == model.EventPass || PassSubEvents[e.SubEventName]
			},
			Resolve: destinationOrOrigin,
		},
		{
			Name:  RuleSave,
			Match: func(e *model.Event) bool { return e.EventName == model.EventSaveAttempt },
			Resolve: func(c *RuleContext, e *model.Event) model.Point {
				if model.ValidPosition(e.Destination) {
					return *e.Destination
				}
				g := c.Pitch.DefendedGoal(e)
				if g.X == 0 {
					return model.Point{X: g.X + saveOffset, Y: g.Y}
				}
				return model.Point{X: g.X - saveOffset, Y: g.Y}
			},
		},
		{
			Name: RuleDuel,
			Match: func(e *model.Event) bool {
				return e.EventName == model.EventDuel || DuelSubEvents[e.SubEventName]
			},
			Resolve: func(c *RuleContext, e *model.Event) model.Point {
				return model.Point{
					X: e.Origin.X + c.Rand.Float64()*2 - 1,
					Y: e.Origin.Y + c.Rand.Float64()*2 - 1,
				}
			},
		},
		{
			Name: RuleStoppage,
			Match: func(e *model.Event) bool {
				return e.EventName == model.EventFoul || StopSubEvents[e.SubEventName]
			},
			Resolve: func(_ *RuleContext, e *model.Event) model.Point { return *e.Origin },
		},
	}
}

func destinationOrOrigin(_ *RuleContext, e *model.Event) model.Point {
	if model.ValidPosition(e.Destination) {
		return *e.Destination
	}
	return *e.Origin
}

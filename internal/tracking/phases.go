package tracking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pable/go-pitch-metrics/internal/model"
)

// PolicyLeadToGoal selects the build-up of every goal.
const PolicyLeadToGoal = "LEAD_TO_GOAL"

// Window is an inclusive time range of one match period.
type Window struct {
	MatchID int64
	Period  model.Period
	Start   float64
	End     float64
}

// Phase is a window together with the events selected for it, sorted by
// time.
type Phase struct {
	Window
	Policy string
	Events []model.Event
}

// Selector picks phases out of an event table.
type Selector interface {
	Policy() string
	Select(events []model.Event) []Phase
}

// FilterWindow returns the events of w sorted by time.
func FilterWindow(events []model.Event, w Window) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.MatchID == w.MatchID && e.Period == w.Period && e.EventSec >= w.Start && e.EventSec <= w.End {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EventSec < out[j].EventSec })
	return out
}

func window(e *model.Event, startSec, endSec float64) Window {
	return Window{
		MatchID: e.MatchID,
		Period:  e.Period,
		Start:   math.Max(0, startSec),
		End:     endSec,
	}
}

// sortedByMatchTime orders events by (match, period, time) without touching
// the caller's slice.
func sortedByMatchTime(events []model.Event) []model.Event {
	out := append([]model.Event(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MatchID != b.MatchID {
			return a.MatchID < b.MatchID
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.EventSec < b.EventSec
	})
	return out
}

// SingleEvent windows every occurrence of one event type.
type SingleEvent struct {
	EventName string
	PreSec    float64
	PostSec   float64
}

func (s SingleEvent) Policy() string { return s.EventName }

func (s SingleEvent) Select(events []model.Event) []Phase {
	var phases []Phase
	for i := range events {
		e := &events[i]
		if e.EventName != s.EventName {
			continue
		}
		w := window(e, e.EventSec-s.PreSec, e.EventSec+s.PostSec)
		if evs := FilterWindow(events, w); len(evs) > 0 {
			phases = append(phases, Phase{Window: w, Policy: s.Policy(), Events: evs})
		}
	}
	return phases
}

// PairedEvents windows consecutive (First, Second) events of the same team
// that happen at most MaxGap seconds apart.
type PairedEvents struct {
	First   string
	Second  string
	PreSec  float64
	PostSec float64
	MaxGap  float64
}

func (s PairedEvents) Policy() string { return s.First + "," + s.Second }

func (s PairedEvents) Select(events []model.Event) []Phase {
	sorted := sortedByMatchTime(events)
	var phases []Phase
	for i := 0; i+1 < len(sorted); i++ {
		a, b := &sorted[i], &sorted[i+1]
		if a.EventName != s.First || b.EventName != s.Second {
			continue
		}
		if a.TeamID != b.TeamID || a.MatchID != b.MatchID || a.Period != b.Period {
			continue
		}
		if b.EventSec-a.EventSec > s.MaxGap {
			continue
		}
		w := window(a, a.EventSec-s.PreSec, b.EventSec+s.PostSec)
		if evs := FilterWindow(events, w); len(evs) > 0 {
			phases = append(phases, Phase{Window: w, Policy: s.Policy(), Events: evs})
		}
	}
	return phases
}

// GoalLeadUp windows every goal, keeping only the scoring team's events and,
// when AllowedEvents is set, only those event types.
type GoalLeadUp struct {
	PreSec        float64
	PostSec       float64
	AllowedEvents []string
}

func (s GoalLeadUp) Policy() string { return PolicyLeadToGoal }

func (s GoalLeadUp) Select(events []model.Event) []Phase {
	allowed := make(map[string]bool, len(s.AllowedEvents))
	for _, name := range s.AllowedEvents {
		allowed[name] = true
	}

	sorted := sortedByMatchTime(events)
	var phases []Phase
	for i := range sorted {
		g := &sorted[i]
		if !g.Goal {
			continue
		}
		w := window(g, g.EventSec-s.PreSec, g.EventSec+s.PostSec)
		var evs []model.Event
		for _, e := range FilterWindow(sorted, w) {
			if e.TeamID != g.TeamID {
				continue
			}
			if len(allowed) > 0 && !allowed[e.EventName] {
				continue
			}
			evs = append(evs, e)
		}
		if len(evs) > 0 {
			phases = append(phases, Phase{Window: w, Policy: s.Policy(), Events: evs})
		}
	}
	return phases
}

// SelectorParams carries the numeric knobs shared by all policies.
type SelectorParams struct {
	PreSec        float64
	PostSec       float64
	MaxGap        float64
	AllowedEvents []string
}

// ParseSelector turns a policy string into a Selector:
//
//	LEAD_TO_GOAL   goal lead-up windows
//	Shot           single event-type windows
//	Pass,Shot      paired event windows
//
// Anything else is a configuration error.
func ParseSelector(policy string, p SelectorParams) (Selector, error) {
	if p.PreSec < 0 || p.PostSec < 0 || p.MaxGap < 0 {
		return nil, fmt.Errorf("%w: phase offsets must be non-negative", model.ErrInvalidConfig)
	}
	for _, name := range p.AllowedEvents {
		if !model.IsKnownEventName(name) {
			return nil, fmt.Errorf("%w: unknown allowed event %q", model.ErrInvalidConfig, name)
		}
	}

	policy = strings.TrimSpace(policy)
	switch {
	case policy == "":
		return nil, fmt.Errorf("%w: empty phase policy", model.ErrInvalidConfig)
	case policy == PolicyLeadToGoal:
		return GoalLeadUp{PreSec: p.PreSec, PostSec: p.PostSec, AllowedEvents: p.AllowedEvents}, nil
	case strings.Contains(policy, ","):
		parts := strings.Split(policy, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: paired policy %q must name exactly two events", model.ErrInvalidConfig, policy)
		}
		first, second := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if !model.IsKnownEventName(first) || !model.IsKnownEventName(second) {
			return nil, fmt.Errorf("%w: unknown event in paired policy %q", model.ErrInvalidConfig, policy)
		}
		return PairedEvents{First: first, Second: second, PreSec: p.PreSec, PostSec: p.PostSec, MaxGap: p.MaxGap}, nil
	case model.IsKnownEventName(policy):
		return SingleEvent{EventName: policy, PreSec: p.PreSec, PostSec: p.PostSec}, nil
	default:
		return nil, fmt.Errorf("%w: unknown phase policy %q", model.ErrInvalidConfig, policy)
	}
}

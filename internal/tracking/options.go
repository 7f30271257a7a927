// Package tracking synthesises pseudo-tracking frames from discrete match
// events and selects the time windows (phases) they are built for.
package tracking

import (
	"math/rand"

	"github.com/pable/go-pitch-metrics/internal/pitch"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPitch sets the pitch used for goal locations.
func WithPitch(p pitch.Pitch) Option {
	return func(en *Engine) {
		en.pitch = p
	}
}

// WithFPS sets how many frames a moving ball is interpolated over.
func WithFPS(fps int) Option {
	return func(en *Engine) {
		en.fps = fps
	}
}

// WithRand injects the random source used for duel jitter.
func WithRand(r *rand.Rand) Option {
	return func(en *Engine) {
		if r != nil {
			en.rng = r
		}
	}
}

// WithSeed seeds a private random source, making duel jitter reproducible.
func WithSeed(seed int64) Option {
	return func(en *Engine) {
		en.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRules replaces the ordered target-inference rules.
func WithRules(rules []Rule) Option {
	return func(en *Engine) {
		if len(rules) > 0 {
			en.rules = append([]Rule(nil), rules...)
		}
	}
}

// WithTargetWindow sets the maximum gap in seconds between an event and the
// successor that may be treated as its receiver.
func WithTargetWindow(sec float64) Option {
	return func(en *Engine) {
		if sec >= 0 {
			en.targetWindow = sec
		}
	}
}

// Package xg evaluates precomputed expected-goals predictions against the
// observed shot outcomes.
package xg

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/pable/go-pitch-metrics/internal/model"
)

// logLossEps clips probabilities away from 0 and 1 before taking logs.
const logLossEps = 1e-15

// Prediction pairs a predicted goal probability with the outcome.
type Prediction struct {
	EventID int64
	Prob    float64
	Goal    bool
}

// Models returns the sorted model names present on any event.
func Models(events []model.Event) []string {
	seen := make(map[string]struct{})
	for _, e := range events {
		for name := range e.Predictions {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Predictions extracts the predictions of one model. Events without that
// model are skipped; a model no event carries is a configuration error, and
// a probability outside [0,1] is a data error.
func Predictions(events []model.Event, modelName string) ([]Prediction, error) {
	var out []Prediction
	found := false
	for _, e := range events {
		p, ok := e.Predictions[modelName]
		if !ok {
			continue
		}
		found = true
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: event %d: %s probability %g outside [0,1]",
				model.ErrDataIntegrity, e.ID, modelName, p)
		}
		out = append(out, Prediction{EventID: e.ID, Prob: p, Goal: e.Goal})
	}
	if !found {
		return nil, fmt.Errorf("%w: no event carries model %q", model.ErrInvalidConfig, modelName)
	}
	return out, nil
}

// CalibrationBin is one non-empty bucket of the reliability curve.
type CalibrationBin struct {
	Lower, Upper  float64
	MeanPredicted float64
	ObservedRate  float64
	Count         int
}

// Calibration splits [0,1] into nBins equal buckets (lower, upper], the
// first one closed at 0, and reports the mean prediction against the
// observed goal rate of every non-empty bucket.
func Calibration(preds []Prediction, nBins int) ([]CalibrationBin, error) {
	if nBins < 1 {
		return nil, fmt.Errorf("%w: calibration needs >= 1 bin, got %d", model.ErrInvalidConfig, nBins)
	}
	edges := floats.Span(make([]float64, nBins+1), 0, 1)

	probs := make([][]float64, nBins)
	goals := make([]int, nBins)
	for _, p := range preds {
		i := int(math.Ceil(p.Prob*float64(nBins))) - 1
		if i < 0 {
			i = 0
		}
		if i > nBins-1 {
			i = nBins - 1
		}
		probs[i] = append(probs[i], p.Prob)
		if p.Goal {
			goals[i]++
		}
	}

	var out []CalibrationBin
	for i := 0; i < nBins; i++ {
		n := len(probs[i])
		if n == 0 {
			continue
		}
		out = append(out, CalibrationBin{
			Lower:         edges[i],
			Upper:         edges[i+1],
			MeanPredicted: stat.Mean(probs[i], nil),
			ObservedRate:  float64(goals[i]) / float64(n),
			Count:         n,
		})
	}
	return out, nil
}

// Metrics is the classification report of one model at one threshold.
type Metrics struct {
	N                int
	Threshold        float64
	LogLoss          float64
	AUC              float64
	Precision        float64
	Recall           float64
	F1               float64
	BalancedAccuracy float64
}

// Evaluate scores predictions, classifying a shot as a goal when its
// probability is >= threshold. Ratios with an empty denominator are 0, as is
// the AUC when only one outcome class is present.
func Evaluate(preds []Prediction, threshold float64) (Metrics, error) {
	m := Metrics{N: len(preds), Threshold: threshold}
	if threshold < 0 || threshold > 1 {
		return m, fmt.Errorf("%w: threshold must be in [0,1], got %g", model.ErrInvalidConfig, threshold)
	}
	if len(preds) == 0 {
		return m, fmt.Errorf("%w: no predictions to evaluate", model.ErrDataIntegrity)
	}

	var tp, fp, tn, fn float64
	var loss float64
	for _, p := range preds {
		q := math.Min(math.Max(p.Prob, logLossEps), 1-logLossEps)
		if p.Goal {
			loss -= math.Log(q)
		} else {
			loss -= math.Log(1 - q)
		}
		predicted := p.Prob >= threshold
		switch {
		case predicted && p.Goal:
			tp++
		case predicted && !p.Goal:
			fp++
		case !predicted && p.Goal:
			fn++
		default:
			tn++
		}
	}
	m.LogLoss = loss / float64(len(preds))
	m.Precision = model.SafeDiv(tp, tp+fp)
	m.Recall = model.SafeDiv(tp, tp+fn)
	m.F1 = model.SafeDiv(2*m.Precision*m.Recall, m.Precision+m.Recall)
	m.BalancedAccuracy = (m.Recall + model.SafeDiv(tn, tn+fp)) / 2
	m.AUC = auc(preds)
	return m, nil
}

func auc(preds []Prediction) float64 {
	y := make([]float64, len(preds))
	classes := make([]bool, len(preds))
	pos := 0
	for i, p := range preds {
		y[i] = p.Prob
		classes[i] = p.Goal
		if p.Goal {
			pos++
		}
	}
	if pos == 0 || pos == len(preds) {
		return 0
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

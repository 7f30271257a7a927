package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/binning"
	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/report"
	"github.com/pable/go-pitch-metrics/internal/surface"
)

var (
	heatmapKind      string
	heatmapTeam      int64
	heatmapEvent     string
	heatmapAt        string
	heatmapThreshold float64
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap [match-id...]",
	Short: "Print spatial grids over stored events",
	Long: `Bin stored events on the configured pitch grid.

Kinds:
  conversion  goal conversion rate per cell (100 * goals / shots)
  filtered    conversion rate with goals from rarely-shot-from cells removed
              (cells whose shot/(shot+pass) share is below --threshold)
  density     event count and mean ball travel per cell for --event`,
	RunE: runHeatmap,
}

func init() {
	heatmapCmd.Flags().StringVar(&heatmapKind, "kind", "conversion", "conversion, filtered or density")
	heatmapCmd.Flags().Int64Var(&heatmapTeam, "team", 0, "restrict to one team id")
	heatmapCmd.Flags().StringVar(&heatmapEvent, "event", model.EventPass, "event type for density grids")
	heatmapCmd.Flags().StringVar(&heatmapAt, "at", "origin", "bin at origin or destination")
	heatmapCmd.Flags().Float64Var(&heatmapThreshold, "threshold", -1, "shot-decision threshold (default from config)")
}

func runHeatmap(cmd *cobra.Command, args []string) error {
	matchIDs, err := parseMatchIDs(args)
	if err != nil {
		return err
	}
	grid, err := cfg.Grid()
	if err != nil {
		return err
	}
	var coord binning.Coord
	switch heatmapAt {
	case "origin":
		coord = binning.Origin
	case "destination":
		coord = binning.Destination
	default:
		return fmt.Errorf("%w: --at must be origin or destination", model.ErrInvalidConfig)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := loadScope(db, matchIDs)
	if err != nil {
		return err
	}
	if heatmapTeam != 0 {
		events = filterEvents(events, func(e *model.Event) bool { return e.TeamID == heatmapTeam })
	}
	shots := filterEvents(events, func(e *model.Event) bool { return e.EventName == model.EventShot })
	sc := surface.Config{Grid: grid, Coord: coord}

	switch heatmapKind {
	case "conversion":
		s, err := surface.ConversionRate(shots, surface.Goals(shots), sc)
		if err != nil {
			return err
		}
		report.PrintSurface(os.Stdout, s)

	case "filtered":
		threshold := cfg.ShotThreshold
		if heatmapThreshold >= 0 {
			threshold = heatmapThreshold
		}
		passes := filterEvents(events, func(e *model.Event) bool { return e.EventName == model.EventPass })
		s, rep, err := surface.FilteredConversionRate(shots, passes, threshold, sc)
		if err != nil {
			return err
		}
		report.PrintMatrix(os.Stdout, "Shot decision probability", rep.Decision, s.XCenters, s.YCenters, "%.2f")
		report.PrintSurface(os.Stdout, s)
		report.PrintFilterReport(os.Stdout, rep, threshold)
		log.WithFields(logrus.Fields{
			"goals_removed": rep.GoalsRemoved,
			"goals":         rep.GoalsBefore,
		}).Debug("outlier filter applied")

	case "density":
		if !model.IsKnownEventName(heatmapEvent) {
			return fmt.Errorf("%w: unknown event %q", model.ErrInvalidConfig, heatmapEvent)
		}
		selected := filterEvents(events, func(e *model.Event) bool { return e.EventName == heatmapEvent })
		res, err := binning.Bin(selected, binning.Config{
			Grid:  grid,
			Coord: coord,
			Metrics: map[string]binning.Metric{
				"count":  binning.Count(),
				"travel": {Field: travel, Op: binning.OpMean},
			},
		})
		if err != nil {
			return err
		}
		report.PrintMatrix(os.Stdout, heatmapEvent+" count", res.Matrix("count"), res.XCenters, res.YCenters, "%.0f")
		report.PrintMatrix(os.Stdout, heatmapEvent+" mean travel (m)", res.Matrix("travel"), res.XCenters, res.YCenters, "%.1f")

	default:
		return fmt.Errorf("%w: unknown heatmap kind %q", model.ErrInvalidConfig, heatmapKind)
	}
	return nil
}

// travel is the distance from origin to destination.
func travel(e *model.Event) (float64, bool) {
	if !model.ValidPosition(e.Origin) || !model.ValidPosition(e.Destination) {
		return 0, false
	}
	return math.Hypot(e.Destination.X-e.Origin.X, e.Destination.Y-e.Origin.Y), true
}

func filterEvents(events []model.Event, keep func(e *model.Event) bool) []model.Event {
	var out []model.Event
	for i := range events {
		if keep(&events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}

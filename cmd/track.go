package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/report"
	"github.com/pable/go-pitch-metrics/internal/tracking"
)

var (
	trackPolicy  string
	trackAllowed []string
	trackPre     float64
	trackPost    float64
	trackGap     float64
	trackLimit   int
	trackDryRun  bool
)

var trackCmd = &cobra.Command{
	Use:   "track <match-id>",
	Short: "Select phases of a match and build pseudo-tracking frames",
	Long: `Select time windows of a stored match and synthesise ball and player
frames for each of them. Phases and frames are stored and can be exported
with 'pitchmetrics export <phase-id>'.

Policies:
  LEAD_TO_GOAL   the build-up of every goal (scoring team only)
  Shot           a window around every event of one type
  Pass,Shot      consecutive same-team event pairs within --gap seconds`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&trackPolicy, "policy", tracking.PolicyLeadToGoal, "phase selection policy")
	trackCmd.Flags().StringSliceVar(&trackAllowed, "allowed", nil, "event types kept in LEAD_TO_GOAL phases (default all)")
	trackCmd.Flags().Float64Var(&trackPre, "pre", -1, "seconds before the anchor event (default from config)")
	trackCmd.Flags().Float64Var(&trackPost, "post", -1, "seconds after the anchor event (default from config)")
	trackCmd.Flags().Float64Var(&trackGap, "gap", -1, "max seconds between paired events (default from config)")
	trackCmd.Flags().IntVar(&trackLimit, "limit", 0, "build at most this many phases (0 = all)")
	trackCmd.Flags().BoolVar(&trackDryRun, "dry-run", false, "print the selected phases without storing frames")
}

func orDefault(flagValue, cfgValue float64) float64 {
	if flagValue >= 0 {
		return flagValue
	}
	return cfgValue
}

func runTrack(cmd *cobra.Command, args []string) error {
	ids, err := parseMatchIDs(args)
	if err != nil {
		return err
	}
	matchID := ids[0]

	selector, err := tracking.ParseSelector(trackPolicy, tracking.SelectorParams{
		PreSec:        orDefault(trackPre, cfg.PreSec),
		PostSec:       orDefault(trackPost, cfg.PostSec),
		MaxGap:        orDefault(trackGap, cfg.MaxGapSec),
		AllowedEvents: trackAllowed,
	})
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine, err := tracking.New(
		tracking.WithPitch(cfg.Pitch()),
		tracking.WithFPS(cfg.FPS),
		tracking.WithSeed(seed),
	)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := db.LoadMatchEvents(matchID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	phases := selector.Select(events)
	if trackLimit > 0 && len(phases) > trackLimit {
		phases = phases[:trackLimit]
	}
	if len(phases) == 0 {
		fmt.Fprintf(os.Stdout, "No %s phases in match %d.\n", selector.Policy(), matchID)
		return nil
	}

	var built []model.PhaseSummary
	for _, ph := range phases {
		frames := engine.Build(ph.Events)
		summary := model.PhaseSummary{
			MatchID:    ph.MatchID,
			Period:     ph.Period,
			StartSec:   ph.Start,
			EndSec:     ph.End,
			Policy:     ph.Policy,
			FrameCount: frameCount(frames),
		}
		if !trackDryRun {
			id, err := db.InsertPhase(summary, frames)
			if err != nil {
				return fmt.Errorf("store phase: %w", err)
			}
			summary.PhaseID = id
		}
		log.WithFields(logrus.Fields{
			"match_id": matchID,
			"phase":    summary.PhaseID,
			"events":   len(ph.Events),
			"frames":   summary.FrameCount,
		}).Debug("phase built")
		built = append(built, summary)
	}

	log.WithFields(logrus.Fields{
		"match_id": matchID,
		"policy":   selector.Policy(),
		"phases":   len(built),
		"seed":     seed,
	}).Info("tracking built")
	report.PrintPhases(os.Stdout, built)
	return nil
}

// frameCount is the number of distinct frame indices.
func frameCount(frames []model.Frame) int {
	if len(frames) == 0 {
		return 0
	}
	return frames[len(frames)-1].Frame + 1
}

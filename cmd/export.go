package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/report"
)

var (
	exportOut     string
	exportSummary bool
)

// phaseExport is the JSON document handed to the video renderer.
type phaseExport struct {
	PhaseID  string        `json:"phaseID"`
	MatchID  int64         `json:"matchID"`
	Period   string        `json:"matchPeriod"`
	StartSec float64       `json:"startSec"`
	EndSec   float64       `json:"endSec"`
	Policy   string        `json:"policy"`
	FPS      int           `json:"fps"`
	Frames   []model.Frame `json:"frames"`
}

var exportCmd = &cobra.Command{
	Use:   "export <phase-id-prefix>",
	Short: "Export the frames of a stored phase as JSON",
	Long: `Write the pseudo-tracking frames of a stored phase as a JSON document.
Each frame index holds a PLAYER_OWNER record, an optional PLAYER_TARGET
record and a BALL record.

Example:
  pitchmetrics export 3f2a --out goal1.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().BoolVar(&exportSummary, "summary", false, "print a per-event frame summary instead of JSON")
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	phase, err := db.GetPhaseByPrefix(args[0])
	if err != nil {
		return err
	}
	frames, err := db.GetFrames(phase.PhaseID)
	if err != nil {
		return fmt.Errorf("load frames: %w", err)
	}

	if exportSummary {
		report.PrintPhases(os.Stdout, []model.PhaseSummary{*phase})
		report.PrintFrameSummary(os.Stdout, frames)
		return nil
	}

	doc := phaseExport{
		PhaseID:  phase.PhaseID,
		MatchID:  phase.MatchID,
		Period:   string(phase.Period),
		StartSec: phase.StartSec,
		EndSec:   phase.EndSec,
		Policy:   phase.Policy,
		FPS:      cfg.FPS,
		Frames:   frames,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if exportOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.WithField("frames", len(frames)).Infof("wrote %s", exportOut)
	return nil
}

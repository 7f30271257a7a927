package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/report"
	"github.com/pable/go-pitch-metrics/internal/xg"
)

var (
	calibrateModels    []string
	calibrateBins      int
	calibrateThreshold float64
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate [match-id...]",
	Short: "Evaluate precomputed xG predictions against shot outcomes",
	Long: `Compare the xG probabilities stored with each shot against whether it
became a goal: a reliability table per model plus log loss, ROC AUC,
precision, recall, F1 and balanced accuracy at --threshold.`,
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().StringSliceVar(&calibrateModels, "model", nil, "models to evaluate (default every stored model)")
	calibrateCmd.Flags().IntVar(&calibrateBins, "bins", 10, "number of calibration bins")
	calibrateCmd.Flags().Float64Var(&calibrateThreshold, "threshold", 0.5, "probability above which a shot is predicted a goal")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	matchIDs, err := parseMatchIDs(args)
	if err != nil {
		return err
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
	shots := filterEvents(events, func(e *model.Event) bool { return e.EventName == model.EventShot })

	models := calibrateModels
	if len(models) == 0 {
		models = xg.Models(shots)
	}
	if len(models) == 0 {
		fmt.Fprintln(os.Stdout, "No xG predictions stored with the selected shots.")
		return nil
	}

	metrics := make(map[string]xg.Metrics, len(models))
	for _, name := range models {
		preds, err := xg.Predictions(shots, name)
		if err != nil {
			return err
		}
		bins, err := xg.Calibration(preds, calibrateBins)
		if err != nil {
			return err
		}
		m, err := xg.Evaluate(preds, calibrateThreshold)
		if err != nil {
			return fmt.Errorf("model %s: %w", name, err)
		}
		metrics[name] = m
		report.PrintCalibration(os.Stdout, name, bins)
		log.WithFields(logrus.Fields{
			"model": name,
			"shots": len(preds),
		}).Debug("model evaluated")
	}
	fmt.Fprintln(os.Stdout)
	report.PrintMetrics(os.Stdout, metrics)
	return nil
}

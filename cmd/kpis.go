package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/aggregator"
	"github.com/pable/go-pitch-metrics/internal/report"
)

var (
	kpisGroupBy        string
	kpisKeep           []string
	kpisDrop           []string
	kpisCentroidEvents []string
)

var kpisCmd = &cobra.Command{
	Use:   "kpis [match-id...]",
	Short: "Compute KPI tables over stored matches",
	Long: `Aggregate stored events into a KPI table grouped by player, team, match,
player_match or team_match. Without match ids every stored match is used.

KPIs: totalPasses, totalAccuratePasses, shareAccuratePasses, meanPassLength,
totalShots, totalGoals, totalDuels, centroid, minutePlayed, totalPasses90.
minutePlayed and totalPasses90 need stored formations and a player grouping.

Example:
  pitchmetrics kpis --group-by team --kpis totalPasses,shareAccuratePasses 2500089`,
	RunE: runKPIs,
}

func init() {
	kpisCmd.Flags().StringVar(&kpisGroupBy, "group-by", string(aggregator.ByPlayer), "player, team, match, player_match or team_match")
	kpisCmd.Flags().StringSliceVar(&kpisKeep, "kpis", nil, "KPIs to compute (default all)")
	kpisCmd.Flags().StringSliceVar(&kpisDrop, "drop", nil, "KPIs to leave out")
	kpisCmd.Flags().StringSliceVar(&kpisCentroidEvents, "centroid-events", nil, "event types the centroid is computed over (default all)")
}

func runKPIs(cmd *cobra.Command, args []string) error {
	groupBy, err := aggregator.ParseGroupBy(kpisGroupBy)
	if err != nil {
		return err
	}
	kpis, err := aggregator.ResolveKPIs(kpisKeep, kpisDrop)
	if err != nil {
		return err
	}
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
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "No events in scope.")
		return nil
	}

	formations, err := db.LoadFormations(matchIDs)
	if err != nil {
		return fmt.Errorf("load formations: %w", err)
	}

	rows, err := aggregator.ComputeStatistics(events, groupBy, aggregator.Options{
		KPIs:           kpis,
		CentroidEvents: kpisCentroidEvents,
		Formations:     formations,
	})
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}
	log.WithFields(logrus.Fields{
		"group_by": groupBy,
		"rows":     len(rows),
		"events":   len(events),
	}).Debug("kpis computed")

	report.PrintKPITable(os.Stdout, rows, groupBy, kpis)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/aggregator"
	"github.com/pable/go-pitch-metrics/internal/report"
	"github.com/pable/go-pitch-metrics/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <match-id>",
	Short: "Show the team overview of a stored match",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	ids, err := parseMatchIDs(args)
	if err != nil {
		return err
	}
	matchID := ids[0]

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	match, err := db.GetMatch(matchID)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "No match stored with id %d\n", matchID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("query match: %w", err)
	}

	events, err := db.LoadMatchEvents(matchID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	rows, err := aggregator.ComputeStatistics(events, aggregator.ByTeamMatch, aggregator.Options{
		KPIs: []string{
			aggregator.KPITotalPasses, aggregator.KPIShareAccuratePasses, aggregator.KPIMeanPassLength,
			aggregator.KPITotalShots, aggregator.KPITotalGoals, aggregator.KPITotalDuels,
		},
	})
	if err != nil {
		return fmt.Errorf("compute overview: %w", err)
	}

	report.PrintMatchSummary(os.Stdout, *match)
	report.PrintTeamOverview(os.Stdout, *match, rows)

	phases, err := db.ListPhases(matchID)
	if err != nil {
		return fmt.Errorf("list phases: %w", err)
	}
	if len(phases) > 0 {
		fmt.Fprintln(os.Stdout)
		report.PrintPhases(os.Stdout, phases)
	}
	return nil
}

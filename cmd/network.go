package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/aggregator"
	"github.com/pable/go-pitch-metrics/internal/report"
)

var (
	networkTeam int64
	networkMin  int
)

var networkCmd = &cobra.Command{
	Use:   "network [match-id...]",
	Short: "Print the pass network of a team",
	Long: `Count accurate passes between pairs of players of one team: a pass is
credited to the passer and the next player of the same team to act.`,
	RunE: runNetwork,
}

func init() {
	networkCmd.Flags().Int64Var(&networkTeam, "team", 0, "team id (required)")
	networkCmd.Flags().IntVar(&networkMin, "min", 1, "hide pairs with fewer passes")
	_ = networkCmd.MarkFlagRequired("team")
}

func runNetwork(cmd *cobra.Command, args []string) error {
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

	links := aggregator.PassPairs(events, networkTeam)
	kept := links[:0]
	for _, l := range links {
		if l.TotalPasses >= networkMin {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		fmt.Fprintf(os.Stdout, "No pass links for team %d.\n", networkTeam)
		return nil
	}

	names := make(map[int64]string)
	for _, e := range events {
		if e.TeamID == networkTeam && e.PlayerName != "" {
			names[e.PlayerID] = e.PlayerName
		}
	}
	report.PrintPassPairs(os.Stdout, kept, names)
	return nil
}

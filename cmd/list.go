package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/report"
)

var listPhases bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored matches (or phases with --phases)",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listPhases, "phases", false, "list stored phases instead of matches")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if listPhases {
		phases, err := db.ListPhases(0)
		if err != nil {
			return fmt.Errorf("list phases: %w", err)
		}
		if len(phases) == 0 {
			fmt.Fprintln(os.Stdout, "No phases stored yet. Run 'pitchmetrics track <match-id>' to build one.")
			return nil
		}
		report.PrintPhases(os.Stdout, phases)
		return nil
	}

	matches, err := db.ListMatches()
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'pitchmetrics ingest <events.json>' to add one.")
		return nil
	}
	report.PrintMatchList(os.Stdout, matches)
	return nil
}

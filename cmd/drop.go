package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/storage"
)

var (
	dropForce bool
	dropAll   bool
)

// dropCmd deletes stored matches, or the whole database with --all.
var dropCmd = &cobra.Command{
	Use:   "drop [match-id...]",
	Short: "Delete stored matches or the whole database",
	Long: `Delete the given matches with their events, formations, phases and frames.
With --all the SQLite database file itself is removed; re-ingest your event
files afterwards to rebuild.`,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().BoolVar(&dropAll, "all", false, "delete the database file")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if dropAll {
		return dropDatabase()
	}
	matchIDs, err := parseMatchIDs(args)
	if err != nil {
		return err
	}
	if len(matchIDs) == 0 {
		return fmt.Errorf("name at least one match id, or use --all")
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete matches %v from %s\n", matchIDs, cfg.DBPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range matchIDs {
		n, err := db.DropMatch(id)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stdout, "Match %d not stored, skipping.\n", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("drop match %d: %w", id, err)
		}
		fmt.Fprintf(os.Stdout, "Deleted match %d (%d events)\n", id, n)
	}
	return nil
}

func dropDatabase() error {
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", cfg.DBPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(cfg.DBPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", cfg.DBPath)
	return nil
}

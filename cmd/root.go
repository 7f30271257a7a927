package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/config"
	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/storage"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	cfg *config.Config
	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "pitchmetrics",
	Short: "Soccer event metrics tool",
	Long: `Ingest soccer event exports and compute player/team KPIs, spatial
conversion surfaces, pseudo-tracking frames and xG model reports.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database (default ~/.pitchmetrics/metrics.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (or PITCHMETRICS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(kpisCmd)
	rootCmd.AddCommand(heatmapCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
}

// loadConfig layers flags on top of the file/env configuration and sets up
// the logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		c.DBPath = dbPath
	}
	if cmd.Flags().Changed("log-level") {
		c.LogLevel = logLevel
	}
	cfg = c

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
		log.WithField("invalid_level", cfg.LogLevel).Warn("invalid log level, using info")
	}
	log.SetLevel(level)
	return nil
}

// openDB opens the configured database, creating its directory first.
func openDB() (*storage.DB, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.WithField("db", cfg.DBPath).Debug("storage opened")
	return db, nil
}

// parseMatchIDs parses positional match ids.
func parseMatchIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid match id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// loadScope loads the events of the given matches, or of every stored match
// when none are named.
func loadScope(db *storage.DB, matchIDs []int64) ([]model.Event, error) {
	events, err := db.LoadEvents(matchIDs)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	log.WithFields(logrus.Fields{
		"matches": len(matchIDs),
		"events":  len(events),
	}).Debug("events loaded")
	return events, nil
}

package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-metrics/internal/fetch"
	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/parser"
	"github.com/pable/go-pitch-metrics/internal/report"
	"github.com/pable/go-pitch-metrics/internal/storage"
)

var (
	ingestFormations string
	ingestSingle     bool
	ingestForce      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <events.json|url>...",
	Short: "Parse event exports and store them",
	Long: `Parse one or more JSON event exports, clean their coordinates and store
them. Files already ingested (same content hash) are skipped unless --force
is given. Formations (lineups and minutes played) can be attached with
--formations. Arguments may be http(s) URLs; .gz, .bz2 and .zst downloads
are decompressed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFormations, "formations", "", "JSON formation file (or URL) to store alongside")
	ingestCmd.Flags().BoolVar(&ingestSingle, "single", false, "require every file to hold exactly one match")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest files already stored")
}

func runIngest(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	tmpDir, err := os.MkdirTemp("", "pitchmetrics-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	client := fetch.NewClient(cfg.FetchToken, time.Duration(cfg.FetchTimeoutSec)*time.Second)
	local := func(arg string) (string, error) {
		if !fetch.IsURL(arg) {
			return arg, nil
		}
		fmt.Fprintf(os.Stdout, "Downloading %s...\n", arg)
		dir, err := os.MkdirTemp(tmpDir, "dl-*")
		if err != nil {
			return "", err
		}
		p, err := client.Download(cmd.Context(), arg, dir)
		if err != nil {
			return "", fmt.Errorf("download: %w", err)
		}
		return p, nil
	}

	var ingested []model.MatchSummary
	for _, arg := range args {
		path, err := local(arg)
		if err != nil {
			return err
		}
		summaries, err := ingestFile(db, path)
		if err != nil {
			return err
		}
		ingested = append(ingested, summaries...)
	}

	if ingestFormations != "" {
		path, err := local(ingestFormations)
		if err != nil {
			return err
		}
		formations, err := parser.ParseFormationsFile(path)
		if err != nil {
			return fmt.Errorf("parse formations: %w", err)
		}
		if err := db.InsertFormations(formations); err != nil {
			return fmt.Errorf("insert formations: %w", err)
		}
		log.WithField("formations", len(formations)).Info("formations stored")
	}

	if len(ingested) > 0 {
		report.PrintMatchList(os.Stdout, ingested)
	}
	return nil
}

func ingestFile(db *storage.DB, path string) ([]model.MatchSummary, error) {
	fmt.Fprintf(os.Stdout, "Parsing %s...\n", path)
	var (
		ef  *parser.EventFile
		err error
	)
	if ingestSingle {
		ef, _, err = parser.LoadMatch(path, cfg.Pitch())
	} else {
		ef, err = parser.ParseEventsFile(path, cfg.Pitch())
	}
	if err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}

	exists, err := db.MatchExists(ef.SourceHash)
	if err != nil {
		return nil, fmt.Errorf("check file: %w", err)
	}
	if exists && !ingestForce {
		fmt.Fprintf(os.Stdout, "File %s already stored, skipping.\n", ef.SourceHash[:12])
		return nil, nil
	}

	var out []model.MatchSummary
	for matchID, events := range parser.SplitByMatch(ef.Events) {
		summary := model.MatchSummary{
			MatchID:    matchID,
			HomeTeamID: events[0].HomeTeamID,
			AwayTeamID: events[0].AwayTeamID,
			EventCount: len(events),
			SourceHash: ef.SourceHash,
		}
		if err := db.InsertMatch(summary); err != nil {
			return nil, fmt.Errorf("insert match %d: %w", matchID, err)
		}
		if err := db.InsertEvents(events); err != nil {
			return nil, fmt.Errorf("insert events of match %d: %w", matchID, err)
		}
		stored, err := db.GetMatch(matchID)
		if err != nil {
			return nil, err
		}
		out = append(out, *stored)
		log.WithFields(logrus.Fields{
			"match_id": matchID,
			"events":   len(events),
		}).Info("match stored")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	log.WithFields(logrus.Fields{
		"file":    path,
		"matches": len(out),
		"cleaned": ef.Cleaned,
	}).Debug("file ingested")
	return out, nil
}

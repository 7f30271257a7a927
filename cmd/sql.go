package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the event database",
	Long: `Run an arbitrary SQL query against the event database and print results as a table.

Schema overview:
  matches(match_id, home_team_id, away_team_id, source_hash, event_count, ingested_at)
  events(match_id, event_id, period, event_sec, event_name, sub_event_name, team_id,
    home_team_id, away_team_id, player_id, player_name, player_position,
    orig_x, orig_y, dest_x, dest_y, accurate, goal, own_goal, predictions)
  formations(match_id, player_id, team_id, lineup, substitute_in, substitute_out,
    minute_start, minute_end, minute_played)
  phases(phase_id, match_id, period, start_sec, end_sec, policy, created_at)
  frames(phase_id, seq, frame, entity_type, player_id, player_name, team, x, y,
    event_id, event_name)

Coordinates are meters; orig_*/dest_* are NULL when the position was cleaned.
Example: pitchmetrics sql "SELECT player_name, COUNT(*) FROM events WHERE event_name = 'Shot' GROUP BY 1"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}


package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pable/go-pitch-metrics/internal/model"
)

// eventRow mirrors the events table.
type eventRow struct {
	MatchID        int64           `db:"match_id"`
	EventID        int64           `db:"event_id"`
	Period         string          `db:"period"`
	EventSec       float64         `db:"event_sec"`
	EventName      string          `db:"event_name"`
	SubEventName   string          `db:"sub_event_name"`
	TeamID         int64           `db:"team_id"`
	HomeTeamID     int64           `db:"home_team_id"`
	AwayTeamID     int64           `db:"away_team_id"`
	PlayerID       int64           `db:"player_id"`
	PlayerName     string          `db:"player_name"`
	PlayerPosition string          `db:"player_position"`
	OrigX          sql.NullFloat64 `db:"orig_x"`
	OrigY          sql.NullFloat64 `db:"orig_y"`
	DestX          sql.NullFloat64 `db:"dest_x"`
	DestY          sql.NullFloat64 `db:"dest_y"`
	Accurate       int             `db:"accurate"`
	Goal           int             `db:"goal"`
	OwnGoal        int             `db:"own_goal"`
	Predictions    string          `db:"predictions"`
}

const eventColumns = `match_id, event_id, period, event_sec, event_name, sub_event_name,
	team_id, home_team_id, away_team_id, player_id, player_name, player_position,
	orig_x, orig_y, dest_x, dest_y, accurate, goal, own_goal, predictions`

func (r *eventRow) toModel() (model.Event, error) {
	e := model.Event{
		ID:             r.EventID,
		MatchID:        r.MatchID,
		Period:         model.Period(r.Period),
		EventSec:       r.EventSec,
		EventName:      r.EventName,
		SubEventName:   r.SubEventName,
		TeamID:         r.TeamID,
		HomeTeamID:     r.HomeTeamID,
		AwayTeamID:     r.AwayTeamID,
		PlayerID:       r.PlayerID,
		PlayerName:     r.PlayerName,
		PlayerPosition: r.PlayerPosition,
		Origin:         point(r.OrigX, r.OrigY),
		Destination:    point(r.DestX, r.DestY),
		Accurate:       r.Accurate != 0,
		Goal:           r.Goal != 0,
		OwnGoal:        r.OwnGoal != 0,
	}
	if r.Predictions != "" {
		if err := json.Unmarshal([]byte(r.Predictions), &e.Predictions); err != nil {
			return e, fmt.Errorf("event %d predictions: %w", r.EventID, err)
		}
	}
	return e, nil
}

func point(x, y sql.NullFloat64) *model.Point {
	if !x.Valid || !y.Valid {
		return nil
	}
	return &model.Point{X: x.Float64, Y: y.Float64}
}

func coords(p *model.Point) (x, y sql.NullFloat64) {
	if p == nil {
		return x, y
	}
	return sql.NullFloat64{Float64: p.X, Valid: true}, sql.NullFloat64{Float64: p.Y, Valid: true}
}

// MatchExists returns true if a file with the given content hash is already stored.
func (db *DB) MatchExists(hash string) (bool, error) {
	var count int
	err := db.conn.Get(&count, "SELECT COUNT(1) FROM matches WHERE source_hash = ?", hash)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertMatch inserts a match record. Uses INSERT OR REPLACE for idempotency.
func (db *DB) InsertMatch(summary model.MatchSummary) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO matches(match_id, home_team_id, away_team_id, source_hash, event_count)
		VALUES (?, ?, ?, ?, ?)`,
		summary.MatchID, summary.HomeTeamID, summary.AwayTeamID, summary.SourceHash, summary.EventCount,
	)
	return err
}

// InsertEvents bulk-inserts events in a transaction.
func (db *DB) InsertEvents(events []model.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`
		INSERT OR REPLACE INTO events(` + eventColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		ox, oy := coords(e.Origin)
		dx, dy := coords(e.Destination)
		preds := ""
		if len(e.Predictions) > 0 {
			b, err := json.Marshal(e.Predictions)
			if err != nil {
				return fmt.Errorf("encode predictions for event %d: %w", e.ID, err)
			}
			preds = string(b)
		}
		_, err = stmt.Exec(
			e.MatchID, e.ID, string(e.Period), e.EventSec, e.EventName, e.SubEventName,
			e.TeamID, e.HomeTeamID, e.AwayTeamID, e.PlayerID, e.PlayerName, e.PlayerPosition,
			ox, oy, dx, dy, boolInt(e.Accurate), boolInt(e.Goal), boolInt(e.OwnGoal), preds,
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// matchQuery also derives the score: goals from shots and free kicks plus
// own goals conceded by the other side.
const matchQuery = `
	SELECT m.match_id, m.home_team_id, m.away_team_id, m.source_hash, m.event_count,
	       COALESCE(SUM(CASE WHEN e.goal = 1 AND e.event_name IN ('Shot', 'Free Kick') AND e.team_id = m.home_team_id THEN 1 ELSE 0 END), 0)
	     + COALESCE(SUM(CASE WHEN e.own_goal = 1 AND e.team_id = m.away_team_id THEN 1 ELSE 0 END), 0) AS home_goals,
	       COALESCE(SUM(CASE WHEN e.goal = 1 AND e.event_name IN ('Shot', 'Free Kick') AND e.team_id = m.away_team_id THEN 1 ELSE 0 END), 0)
	     + COALESCE(SUM(CASE WHEN e.own_goal = 1 AND e.team_id = m.home_team_id THEN 1 ELSE 0 END), 0) AS away_goals
	FROM matches m LEFT JOIN events e ON e.match_id = m.match_id`

type matchRow struct {
	MatchID    int64  `db:"match_id"`
	HomeTeamID int64  `db:"home_team_id"`
	AwayTeamID int64  `db:"away_team_id"`
	SourceHash string `db:"source_hash"`
	EventCount int    `db:"event_count"`
	HomeGoals  int    `db:"home_goals"`
	AwayGoals  int    `db:"away_goals"`
}

func (r matchRow) toModel() model.MatchSummary {
	return model.MatchSummary{
		MatchID:    r.MatchID,
		HomeTeamID: r.HomeTeamID,
		AwayTeamID: r.AwayTeamID,
		EventCount: r.EventCount,
		SourceHash: r.SourceHash,
		HomeGoals:  r.HomeGoals,
		AwayGoals:  r.AwayGoals,
	}
}

// ListMatches returns all stored matches ordered by match id.
func (db *DB) ListMatches() ([]model.MatchSummary, error) {
	var rows []matchRow
	if err := db.conn.Select(&rows, matchQuery+` GROUP BY m.match_id ORDER BY m.match_id`); err != nil {
		return nil, err
	}
	out := make([]model.MatchSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// GetMatch returns one match, or ErrNotFound.
func (db *DB) GetMatch(matchID int64) (*model.MatchSummary, error) {
	var r matchRow
	err := db.conn.Get(&r, matchQuery+` WHERE m.match_id = ? GROUP BY m.match_id`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	s := r.toModel()
	return &s, nil
}

func (db *DB) selectEvents(query string, args ...any) ([]model.Event, error) {
	var rows []eventRow
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadMatchEvents returns the events of one match in time order. The events
// must agree with the stored match record on the two team ids.
func (db *DB) LoadMatchEvents(matchID int64) ([]model.Event, error) {
	m, err := db.GetMatch(matchID)
	if err != nil {
		return nil, err
	}
	events, err := db.selectEvents(`SELECT `+eventColumns+` FROM events
		WHERE match_id = ? ORDER BY period, event_sec, event_id`, matchID)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if e.HomeTeamID != m.HomeTeamID || e.AwayTeamID != m.AwayTeamID {
			return nil, fmt.Errorf("%w: match %d: event %d has teams %d-%d, match has %d-%d",
				model.ErrDataIntegrity, matchID, e.ID, e.HomeTeamID, e.AwayTeamID, m.HomeTeamID, m.AwayTeamID)
		}
	}
	return events, nil
}

// LoadEvents returns the events of the given matches, or of every match when
// matchIDs is empty, ordered by match and time.
func (db *DB) LoadEvents(matchIDs []int64) ([]model.Event, error) {
	const order = ` ORDER BY match_id, period, event_sec, event_id`
	if len(matchIDs) == 0 {
		return db.selectEvents(`SELECT ` + eventColumns + ` FROM events` + order)
	}
	query, args, err := sqlx.In(`SELECT `+eventColumns+` FROM events WHERE match_id IN (?)`+order, matchIDs)
	if err != nil {
		return nil, err
	}
	return db.selectEvents(db.conn.Rebind(query), args...)
}

// InsertFormations bulk-inserts lineup rows in a transaction.
func (db *DB) InsertFormations(formations []model.Formation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`
		INSERT OR REPLACE INTO formations(
			match_id, player_id, team_id, lineup, substitute_in, substitute_out,
			minute_start, minute_end, minute_played
		) VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range formations {
		_, err = stmt.Exec(f.MatchID, f.PlayerID, f.TeamID, f.Lineup, f.SubstituteIn, f.SubstituteOut,
			f.MinuteStart, f.MinuteEnd, f.MinutePlayed)
		if err != nil {
			return fmt.Errorf("insert formation for player %d: %w", f.PlayerID, err)
		}
	}
	return tx.Commit()
}

type formationRow struct {
	MatchID       int64   `db:"match_id"`
	PlayerID      int64   `db:"player_id"`
	TeamID        int64   `db:"team_id"`
	Lineup        int     `db:"lineup"`
	SubstituteIn  int     `db:"substitute_in"`
	SubstituteOut int     `db:"substitute_out"`
	MinuteStart   float64 `db:"minute_start"`
	MinuteEnd     float64 `db:"minute_end"`
	MinutePlayed  float64 `db:"minute_played"`
}

// LoadFormations returns the lineup rows of the given matches, or all rows
// when matchIDs is empty.
func (db *DB) LoadFormations(matchIDs []int64) ([]model.Formation, error) {
	query := `SELECT * FROM formations`
	var args []any
	if len(matchIDs) > 0 {
		var err error
		query, args, err = sqlx.In(query+` WHERE match_id IN (?)`, matchIDs)
		if err != nil {
			return nil, err
		}
		query = db.conn.Rebind(query)
	}
	var rows []formationRow
	if err := db.conn.Select(&rows, query+` ORDER BY match_id, player_id`, args...); err != nil {
		return nil, err
	}
	out := make([]model.Formation, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Formation(r))
	}
	return out, nil
}

// DropMatch deletes a match with its events, formations, phases and frames.
// It returns the number of events removed.
func (db *DB) DropMatch(matchID int64) (int64, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM frames WHERE phase_id IN (SELECT phase_id FROM phases WHERE match_id = ?)`, matchID); err != nil {
		return 0, fmt.Errorf("delete frames: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM phases WHERE match_id = ?`, matchID); err != nil {
		return 0, fmt.Errorf("delete phases: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM formations WHERE match_id = ?`, matchID); err != nil {
		return 0, fmt.Errorf("delete formations: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM events WHERE match_id = ?`, matchID)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	res, err = tx.Exec(`DELETE FROM matches WHERE match_id = ?`, matchID)
	if err != nil {
		return 0, fmt.Errorf("delete match: %w", err)
	}
	if m, _ := res.RowsAffected(); m == 0 {
		return 0, fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	return n, tx.Commit()
}

// QueryRaw runs an arbitrary query and returns column names and rows as
// strings. NULL is rendered as "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Queryx(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, nil, err
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

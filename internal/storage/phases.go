package storage

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pable/go-pitch-metrics/internal/model"
)

type phaseRow struct {
	PhaseID    string  `db:"phase_id"`
	MatchID    int64   `db:"match_id"`
	Period     string  `db:"period"`
	StartSec   float64 `db:"start_sec"`
	EndSec     float64 `db:"end_sec"`
	Policy     string  `db:"policy"`
	FrameCount int     `db:"frame_count"`
}

func (r phaseRow) toModel() model.PhaseSummary {
	return model.PhaseSummary{
		PhaseID:    r.PhaseID,
		MatchID:    r.MatchID,
		Period:     model.Period(r.Period),
		StartSec:   r.StartSec,
		EndSec:     r.EndSec,
		Policy:     r.Policy,
		FrameCount: r.FrameCount,
	}
}

// InsertPhase stores a phase and its frames under a fresh UUID and returns
// the id.
func (db *DB) InsertPhase(p model.PhaseSummary, frames []model.Frame) (string, error) {
	id := uuid.NewString()

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO phases(phase_id, match_id, period, start_sec, end_sec, policy)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.MatchID, string(p.Period), p.StartSec, p.EndSec, p.Policy,
	); err != nil {
		return "", fmt.Errorf("insert phase: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO frames(phase_id, seq, frame, entity_type, player_id, player_name, team, x, y, event_id, event_name)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, f := range frames {
		_, err = stmt.Exec(id, i, f.Frame, string(f.EntityType), f.PlayerID, f.PlayerName,
			f.Team, f.X, f.Y, f.EventID, f.EventName)
		if err != nil {
			return "", fmt.Errorf("insert frame %d: %w", f.Frame, err)
		}
	}
	return id, tx.Commit()
}

const phaseQuery = `
	SELECT p.phase_id, p.match_id, p.period, p.start_sec, p.end_sec, p.policy,
	       COUNT(DISTINCT f.frame) AS frame_count
	FROM phases p LEFT JOIN frames f ON f.phase_id = p.phase_id`

// ListPhases returns the stored phases of a match, or of every match when
// matchID is 0, in time order.
func (db *DB) ListPhases(matchID int64) ([]model.PhaseSummary, error) {
	query := phaseQuery
	var args []any
	if matchID != 0 {
		query += ` WHERE p.match_id = ?`
		args = append(args, matchID)
	}
	query += ` GROUP BY p.phase_id ORDER BY p.match_id, p.period, p.start_sec, p.created_at`

	var rows []phaseRow
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.PhaseSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// GetPhaseByPrefix finds the phase whose id starts with prefix. An ambiguous
// prefix is an error.
func (db *DB) GetPhaseByPrefix(prefix string) (*model.PhaseSummary, error) {
	var rows []phaseRow
	err := db.conn.Select(&rows, phaseQuery+` WHERE p.phase_id LIKE ? GROUP BY p.phase_id LIMIT 2`, prefix+"%")
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("phase %q: %w", prefix, ErrNotFound)
	case 1:
		p := rows[0].toModel()
		return &p, nil
	default:
		return nil, fmt.Errorf("phase prefix %q is ambiguous", prefix)
	}
}

type frameRow struct {
	Frame      int     `db:"frame"`
	EntityType string  `db:"entity_type"`
	PlayerID   int64   `db:"player_id"`
	PlayerName string  `db:"player_name"`
	Team       string  `db:"team"`
	X          float64 `db:"x"`
	Y          float64 `db:"y"`
	EventID    int64   `db:"event_id"`
	EventName  string  `db:"event_name"`
}

// GetFrames returns the frames of a phase in emission order.
func (db *DB) GetFrames(phaseID string) ([]model.Frame, error) {
	var rows []frameRow
	err := db.conn.Select(&rows, `
		SELECT frame, entity_type, player_id, player_name, team, x, y, event_id, event_name
		FROM frames WHERE phase_id = ? ORDER BY seq`, phaseID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Frame, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Frame{
			Frame:      r.Frame,
			EntityType: model.EntityType(r.EntityType),
			PlayerID:   r.PlayerID,
			PlayerName: r.PlayerName,
			Team:       r.Team,
			X:          r.X,
			Y:          r.Y,
			EventID:    r.EventID,
			EventName:  r.EventName,
		})
	}
	return out, nil
}

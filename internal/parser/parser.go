package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/pitch"
)

// flag accepts the feed's 0/1 integers as well as JSON booleans.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "true":
		*f = true
	case "false", "null":
		*f = false
	default:
		v, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("flag %s: %w", b, err)
		}
		*f = v != 0
	}
	return nil
}

// rawEvent is the flat per-event record of the exported event table.
// Coordinates come either in meters or as 0-100 percentages of the pitch.
type rawEvent struct {
	ID           int64   `json:"ID"`
	MatchID      int64   `json:"matchID"`
	MatchPeriod  string  `json:"matchPeriod"`
	EventSec     float64 `json:"eventSec"`
	EventName    string  `json:"eventName"`
	SubEventName string  `json:"subEventName"`

	TeamID     int64 `json:"teamID"`
	HomeTeamID int64 `json:"homeTeamID"`
	AwayTeamID int64 `json:"awayTeamID"`

	PlayerID       int64  `json:"playerID"`
	PlayerName     string `json:"playerName"`
	PlayerPosition string `json:"playerPosition"`

	PosBeforeXMeters *float64 `json:"posBeforeXMeters"`
	PosBeforeYMeters *float64 `json:"posBeforeYMeters"`
	PosAfterXMeters  *float64 `json:"posAfterXMeters"`
	PosAfterYMeters  *float64 `json:"posAfterYMeters"`

	PosOrigX *float64 `json:"posOrigX"`
	PosOrigY *float64 `json:"posOrigY"`
	PosDestX *float64 `json:"posDestX"`
	PosDestY *float64 `json:"posDestY"`

	Accurate flag `json:"accurate"`
	Goal     flag `json:"Goal"`
	OwnGoal  flag `json:"ownGoal"`

	Predictions map[string]float64 `json:"predictions"`
}

// EventFile is a parsed event export together with its content hash, the
// idempotency key of an ingest.
type EventFile struct {
	Path       string
	SourceHash string
	Events     []model.Event
	// Cleaned counts coordinates dropped for lying outside the pitch.
	Cleaned int
}

// ParseEvents decodes a JSON array of events and cleans their positions:
// percent coordinates are scaled to meters with p, and positions that are
// non-finite or outside the pitch become nil. The result is sorted by
// (match, period, time, id).
func ParseEvents(r io.Reader, p pitch.Pitch) ([]model.Event, int, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, err
	}
	var raws []rawEvent
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, 0, fmt.Errorf("decode events: %w", err)
	}

	events := make([]model.Event, 0, len(raws))
	cleaned := 0
	for i := range raws {
		raw := &raws[i]
		origin, dropped := position(p, raw.PosBeforeXMeters, raw.PosBeforeYMeters, raw.PosOrigX, raw.PosOrigY)
		if dropped {
			cleaned++
		}
		dest, dropped := position(p, raw.PosAfterXMeters, raw.PosAfterYMeters, raw.PosDestX, raw.PosDestY)
		if dropped {
			cleaned++
		}
		events = append(events, model.Event{
			ID:             raw.ID,
			MatchID:        raw.MatchID,
			Period:         model.Period(raw.MatchPeriod),
			EventSec:       raw.EventSec,
			EventName:      raw.EventName,
			SubEventName:   raw.SubEventName,
			TeamID:         raw.TeamID,
			HomeTeamID:     raw.HomeTeamID,
			AwayTeamID:     raw.AwayTeamID,
			PlayerID:       raw.PlayerID,
			PlayerName:     raw.PlayerName,
			PlayerPosition: raw.PlayerPosition,
			Origin:         origin,
			Destination:    dest,
			Accurate:       bool(raw.Accurate),
			Goal:           bool(raw.Goal),
			OwnGoal:        bool(raw.OwnGoal),
			Predictions:    raw.Predictions,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := &events[i], &events[j]
		if a.MatchID != b.MatchID {
			return a.MatchID < b.MatchID
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.EventSec != b.EventSec {
			return a.EventSec < b.EventSec
		}
		return a.ID < b.ID
	})
	return events, cleaned, nil
}

// position resolves one coordinate pair, preferring meters over percent.
// dropped is true when a coordinate was present but unusable.
func position(p pitch.Pitch, mx, my, px, py *float64) (pt *model.Point, dropped bool) {
	var x, y float64
	switch {
	case mx != nil && my != nil:
		x, y = *mx, *my
	case px != nil && py != nil:
		m := p.FromPercent(*px, *py)
		x, y = round2(m.X), round2(m.Y)
	default:
		return nil, false
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return nil, true
	}
	pos := model.Point{X: x, Y: y}
	if !p.Contains(pos) {
		return nil, true
	}
	return &pos, false
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// ParseEventsFile reads and hashes the event export at path.
func ParseEventsFile(path string, p pitch.Pitch) (*EventFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	// Hash file for idempotency key.
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash events: %w", err)
	}
	hash := fmt.Sprintf("%x", h.Sum(nil))

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek events: %w", err)
	}

	events, cleaned, err := ParseEvents(f, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &EventFile{Path: path, SourceHash: hash, Events: events, Cleaned: cleaned}, nil
}

// LoadMatch parses a single-match export. A file without events or with
// events of several matches is a data-integrity error.
func LoadMatch(path string, p pitch.Pitch) (*EventFile, int64, error) {
	ef, err := ParseEventsFile(path, p)
	if err != nil {
		return nil, 0, err
	}
	matchID, err := SingleMatchID(ef.Events)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return ef, matchID, nil
}

// SingleMatchID returns the one match id shared by all events.
func SingleMatchID(events []model.Event) (int64, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("%w: no events", model.ErrDataIntegrity)
	}
	id := events[0].MatchID
	for _, e := range events[1:] {
		if e.MatchID != id {
			return 0, fmt.Errorf("%w: events span matches %d and %d", model.ErrDataIntegrity, id, e.MatchID)
		}
	}
	return id, nil
}

// SplitByMatch groups events by match id, keeping their order.
func SplitByMatch(events []model.Event) map[int64][]model.Event {
	out := make(map[int64][]model.Event)
	for _, e := range events {
		out[e.MatchID] = append(out[e.MatchID], e)
	}
	return out
}

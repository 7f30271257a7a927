package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pable/go-pitch-metrics/internal/model"
)

type rawFormation struct {
	MatchID       int64   `json:"matchID"`
	PlayerID      int64   `json:"playerID"`
	TeamID        int64   `json:"teamID"`
	Lineup        int     `json:"lineup"`
	SubstituteIn  int     `json:"substituteIn"`
	SubstituteOut int     `json:"substituteOut"`
	MinuteStart   float64 `json:"minuteStart"`
	MinuteEnd     float64 `json:"minuteEnd"`
	MinutePlayed  float64 `json:"minutePlayed"`
}

// ParseFormations decodes a JSON array of lineup rows. Negative minutes are
// rejected as a data-integrity error.
func ParseFormations(r io.Reader) ([]model.Formation, error) {
	var raws []rawFormation
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode formations: %w", err)
	}
	out := make([]model.Formation, 0, len(raws))
	for _, f := range raws {
		if f.MinutePlayed < 0 {
			return nil, fmt.Errorf("%w: player %d match %d: negative minutes played",
				model.ErrDataIntegrity, f.PlayerID, f.MatchID)
		}
		out = append(out, model.Formation(f))
	}
	return out, nil
}

// ParseFormationsFile reads the formations export at path.
func ParseFormationsFile(path string) ([]model.Formation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open formations: %w", err)
	}
	defer f.Close()
	return ParseFormations(f)
}

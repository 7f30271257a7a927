package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/pitch"
)

const sampleEvents = `[
  {"ID": 3, "matchID": 7, "matchPeriod": "1H", "eventSec": 12.5, "eventName": "Shot",
   "teamID": 1, "homeTeamID": 1, "awayTeamID": 2, "playerID": 10, "playerName": "A",
   "posBeforeXMeters": 95.5, "posBeforeYMeters": 30.0, "Goal": 1, "accurate": 1,
   "predictions": {"baseline": 0.31}},
  {"ID": 1, "matchID": 7, "matchPeriod": "1H", "eventSec": 3.0, "eventName": "Pass",
   "subEventName": "Simple pass", "teamID": 1, "homeTeamID": 1, "awayTeamID": 2,
   "playerID": 11, "playerName": "B", "playerPosition": "MF",
   "posOrigX": 50, "posOrigY": 50, "posDestX": 60, "posDestY": 25, "accurate": true},
  {"ID": 2, "matchID": 7, "matchPeriod": "1H", "eventSec": 8.0, "eventName": "Duel",
   "teamID": 2, "homeTeamID": 1, "awayTeamID": 2, "playerID": 20,
   "posBeforeXMeters": 130, "posBeforeYMeters": 30, "ownGoal": 0},
  {"ID": 4, "matchID": 7, "matchPeriod": "2H", "eventSec": 1.0, "eventName": "Interruption",
   "teamID": 1, "homeTeamID": 1, "awayTeamID": 2, "playerID": 0,
   "posBeforeXMeters": null, "posBeforeYMeters": 10}
]`

func TestParseEvents(t *testing.T) {
	events, cleaned, err := ParseEvents(strings.NewReader(sampleEvents), pitch.Default())
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, 1, cleaned, "the off-pitch duel origin")

	// Sorted by match, period, time.
	ids := []int64{events[0].ID, events[1].ID, events[2].ID, events[3].ID}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)

	pass := events[0]
	require.NotNil(t, pass.Origin)
	assert.Equal(t, model.Point{X: 52.5, Y: 34}, *pass.Origin, "percent scaled to meters")
	require.NotNil(t, pass.Destination)
	assert.Equal(t, model.Point{X: 63, Y: 17}, *pass.Destination)
	assert.True(t, pass.Accurate)
	assert.Equal(t, "Simple pass", pass.SubEventName)
	assert.Equal(t, "MF", pass.PlayerPosition)

	duel := events[1]
	assert.Nil(t, duel.Origin, "outside the pitch")
	assert.False(t, duel.OwnGoal)

	shot := events[2]
	assert.True(t, shot.Goal)
	assert.Equal(t, model.Point{X: 95.5, Y: 30}, *shot.Origin)
	assert.Nil(t, shot.Destination)
	assert.Equal(t, 0.31, shot.Predictions["baseline"])

	stop := events[3]
	assert.Equal(t, model.PeriodSecondHalf, stop.Period)
	assert.Nil(t, stop.Origin, "half a coordinate is no coordinate")
}

func TestParseEvents_BadInput(t *testing.T) {
	_, _, err := ParseEvents(strings.NewReader(`{"not": "an array"}`), pitch.Default())
	assert.Error(t, err)

	_, _, err = ParseEvents(strings.NewReader(`[{"accurate": "yes"}]`), pitch.Default())
	assert.Error(t, err)

	_, _, err = ParseEvents(strings.NewReader(`[]`), pitch.Pitch{})
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseEventsFile_HashIsStable(t *testing.T) {
	path := writeFile(t, "events.json", sampleEvents)

	a, err := ParseEventsFile(path, pitch.Default())
	require.NoError(t, err)
	b, err := ParseEventsFile(path, pitch.Default())
	require.NoError(t, err)

	assert.Len(t, a.SourceHash, 64)
	assert.Equal(t, a.SourceHash, b.SourceHash)
	assert.Len(t, a.Events, 4)

	other := writeFile(t, "other.json", strings.Replace(sampleEvents, "12.5", "13.5", 1))
	c, err := ParseEventsFile(other, pitch.Default())
	require.NoError(t, err)
	assert.NotEqual(t, a.SourceHash, c.SourceHash)

	_, err = ParseEventsFile(filepath.Join(t.TempDir(), "missing.json"), pitch.Default())
	assert.Error(t, err)
}

func TestLoadMatch(t *testing.T) {
	path := writeFile(t, "match.json", sampleEvents)
	ef, id, err := LoadMatch(path, pitch.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Len(t, ef.Events, 4)

	mixed := writeFile(t, "mixed.json", strings.Replace(sampleEvents, `"matchID": 7, "matchPeriod": "2H"`, `"matchID": 8, "matchPeriod": "2H"`, 1))
	_, _, err = LoadMatch(mixed, pitch.Default())
	assert.True(t, errors.Is(err, model.ErrDataIntegrity))

	empty := writeFile(t, "empty.json", `[]`)
	_, _, err = LoadMatch(empty, pitch.Default())
	assert.True(t, errors.Is(err, model.ErrDataIntegrity))
}

func TestSplitByMatch(t *testing.T) {
	events := []model.Event{{ID: 1, MatchID: 2}, {ID: 2, MatchID: 1}, {ID: 3, MatchID: 2}}
	got := SplitByMatch(events)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[2][0].ID)
	assert.Equal(t, int64(3), got[2][1].ID)
}

func TestParseFormations(t *testing.T) {
	in := `[
	  {"matchID": 7, "playerID": 10, "teamID": 1, "lineup": 1, "substituteOut": 1, "minuteEnd": 60, "minutePlayed": 60},
	  {"matchID": 7, "playerID": 12, "teamID": 1, "substituteIn": 1, "minuteStart": 60, "minuteEnd": 90, "minutePlayed": 30}
	]`
	got, err := ParseFormations(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.Formation{
		MatchID: 7, PlayerID: 10, TeamID: 1, Lineup: 1, SubstituteOut: 1, MinuteEnd: 60, MinutePlayed: 60,
	}, got[0])
	assert.Equal(t, 1, got[1].SubstituteIn)

	_, err = ParseFormations(strings.NewReader(`[{"playerID": 1, "minutePlayed": -5}]`))
	assert.True(t, errors.Is(err, model.ErrDataIntegrity))

	path := writeFile(t, "formations.json", in)
	got, err = ParseFormationsFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

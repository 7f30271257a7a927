package aggregator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-pitch-metrics/internal/model"
)

// Teams and players used across the scenarios.
const (
	home int64 = 1
	away int64 = 2

	alice int64 = 101 // home
	bob   int64 = 102 // home
	carl  int64 = 201 // away
)

var names = map[int64]string{alice: "Alice", bob: "Bob", carl: "Carl"}

func teamOf(player int64) int64 {
	if player >= 200 {
		return away
	}
	return home
}

// makeEvent builds an event of match 1, first half, for the given player.
func makeEvent(id, player int64, name string, sec float64) model.Event {
	return model.Event{
		ID: id, MatchID: 1, Period: model.PeriodFirstHalf, EventSec: sec,
		EventName: name, TeamID: teamOf(player), HomeTeamID: home, AwayTeamID: away,
		PlayerID: player, PlayerName: names[player], PlayerPosition: "MF",
		Origin: &model.Point{X: 50, Y: 34},
	}
}

func pass(id, player int64, sec float64, accurate bool, from, to model.Point) model.Event {
	e := makeEvent(id, player, model.EventPass, sec)
	e.Accurate = accurate
	e.Origin = &from
	e.Destination = &to
	return e
}

func findRow(rows []model.KPIRow, k model.GroupKey) *model.KPIRow {
	for i := range rows {
		if rows[i].Key == k {
			return &rows[i]
		}
	}
	return nil
}

func TestParseGroupBy(t *testing.T) {
	for _, s := range []string{"player", "team", "match", "player_match", "team_match", "player+match", " Team "} {
		_, err := ParseGroupBy(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseGroupBy("season")
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))

	_, err = ComputeStatistics(nil, GroupBy("season"), Options{})
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
}

func TestResolveKPIs(t *testing.T) {
	all, err := ResolveKPIs(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, AllKPIs, all)

	got, err := ResolveKPIs([]string{"all"}, []string{KPICentroid, KPIMinutePlayed})
	require.NoError(t, err)
	assert.NotContains(t, got, KPICentroid)
	assert.Len(t, got, len(AllKPIs)-2)

	got, err = ResolveKPIs([]string{KPITotalShots, KPITotalPasses}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{KPITotalPasses, KPITotalShots}, got, "AllKPIs order")

	_, err = ResolveKPIs([]string{"xG"}, nil)
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
	_, err = ResolveKPIs(nil, []string{"xG"})
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
}

func TestComputeStatistics_PassKPIs(t *testing.T) {
	events := []model.Event{
		pass(1, alice, 1, true, model.Point{X: 10, Y: 10}, model.Point{X: 13, Y: 14}), // 5 m
		pass(2, alice, 2, true, model.Point{X: 20, Y: 20}, model.Point{X: 26, Y: 28}), // 10 m
		pass(3, alice, 3, false, model.Point{X: 30, Y: 30}, model.Point{X: 0, Y: 0}),  // no length
		makeEvent(4, bob, model.EventDuel, 4),
	}

	rows, err := ComputeStatistics(events, ByPlayer, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	a := findRow(rows, model.GroupKey{PlayerID: alice})
	require.NotNil(t, a)
	assert.Equal(t, "Alice", a.PlayerName)
	assert.Equal(t, home, a.TeamID)
	assert.Equal(t, 1, a.NbMatches)
	assert.Equal(t, 3, a.TotalPasses)
	assert.Equal(t, 2, a.TotalAccuratePasses)
	assert.Equal(t, 66.67, a.ShareAccuratePasses)
	assert.InDelta(t, 7.5, a.MeanPassLength, 1e-9)

	b := findRow(rows, model.GroupKey{PlayerID: bob})
	require.NotNil(t, b)
	assert.Equal(t, 0, b.TotalPasses)
	assert.Equal(t, 0.0, b.ShareAccuratePasses, "no passes, no NaN")
	assert.Equal(t, 0.0, b.MeanPassLength)
	assert.Equal(t, 1, b.TotalDuels)
}

func TestComputeStatistics_ShareWithoutTotalsRequested(t *testing.T) {
	events := []model.Event{
		pass(1, alice, 1, true, model.Point{X: 10, Y: 10}, model.Point{X: 20, Y: 10}),
		pass(2, alice, 2, false, model.Point{X: 10, Y: 10}, model.Point{X: 20, Y: 10}),
	}
	rows, err := ComputeStatistics(events, ByPlayer, Options{KPIs: []string{KPIShareAccuratePasses}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 50.0, rows[0].ShareAccuratePasses)
	assert.Equal(t, 0, rows[0].TotalShots, "not requested")
}

func TestComputeStatistics_PlayerZeroExcluded(t *testing.T) {
	teamEvent := makeEvent(1, 0, model.EventInterruption, 1)
	teamEvent.TeamID = home
	events := []model.Event{teamEvent, makeEvent(2, alice, model.EventShot, 2)}

	rows, err := ComputeStatistics(events, ByPlayer, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, alice, rows[0].Key.PlayerID)

	rows, err = ComputeStatistics(events, ByTeam, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, home, rows[0].Key.TeamID)
	assert.Equal(t, 1, rows[0].TotalShots)
}

func TestComputeStatistics_GoalsAndOwnGoals(t *testing.T) {
	shot := makeEvent(1, alice, model.EventShot, 10)
	shot.Goal = true
	fk := makeEvent(2, alice, model.EventFreeKick, 20)
	fk.Goal = true
	// A pass flagged as goal is not a scoring event type.
	odd := makeEvent(3, alice, model.EventPass, 25)
	odd.Goal = true
	// Carl (away) puts the ball into his own net.
	og := makeEvent(4, carl, model.EventOthersOnBall, 30)
	og.OwnGoal = true

	events := []model.Event{shot, fk, odd, og}

	rows, err := ComputeStatistics(events, ByTeam, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, findRow(rows, model.GroupKey{TeamID: home}).TotalGoals)
	assert.Equal(t, 0, findRow(rows, model.GroupKey{TeamID: away}).TotalGoals)

	rows, err = ComputeStatistics(events, ByTeamMatch, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, findRow(rows, model.GroupKey{TeamID: home, MatchID: 1}).TotalGoals)

	rows, err = ComputeStatistics(events, ByMatch, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].TotalGoals)

	// Own goals never count at player level.
	rows, err = ComputeStatistics(events, ByPlayer, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, findRow(rows, model.GroupKey{PlayerID: alice}).TotalGoals)
	assert.Equal(t, 0, findRow(rows, model.GroupKey{PlayerID: carl}).TotalGoals)
}

func TestComputeStatistics_Centroid(t *testing.T) {
	p1 := pass(1, alice, 1, true, model.Point{X: 10, Y: 20}, model.Point{X: 30, Y: 20})
	p2 := pass(2, alice, 2, true, model.Point{X: 30, Y: 40}, model.Point{X: 40, Y: 20})
	shot := makeEvent(3, alice, model.EventShot, 3)
	shot.Origin = &model.Point{X: 95, Y: 34}
	blind := makeEvent(4, alice, model.EventDuel, 4)
	blind.Origin = nil

	events := []model.Event{p1, p2, shot, blind}

	rows, err := ComputeStatistics(events, ByPlayer, Options{})
	require.NoError(t, err)
	require.True(t, rows[0].HasCentroid)
	assert.InDelta(t, 45, rows[0].CentroidX, 1e-9)
	assert.InDelta(t, 94.0/3, rows[0].CentroidY, 1e-9)

	rows, err = ComputeStatistics(events, ByPlayer, Options{CentroidEvents: []string{model.EventPass}})
	require.NoError(t, err)
	assert.InDelta(t, 20, rows[0].CentroidX, 1e-9)
	assert.InDelta(t, 30, rows[0].CentroidY, 1e-9)

	rows, err = ComputeStatistics(events, ByPlayer, Options{CentroidEvents: []string{model.EventFoul}})
	require.NoError(t, err)
	assert.False(t, rows[0].HasCentroid)
}

func TestComputeStatistics_MinutesAndPer90(t *testing.T) {
	var events []model.Event
	for i := int64(0); i < 30; i++ {
		events = append(events, pass(i+1, alice, float64(i), true,
			model.Point{X: 10, Y: 10}, model.Point{X: 20, Y: 10}))
	}
	events = append(events, pass(99, bob, 5, true, model.Point{X: 10, Y: 10}, model.Point{X: 20, Y: 10}))

	formations := []model.Formation{
		{MatchID: 1, PlayerID: alice, TeamID: home, Lineup: 1, SubstituteOut: 1, MinutePlayed: 45},
		{MatchID: 1, PlayerID: bob, TeamID: home, SubstituteIn: 1, MinutePlayed: 0},
		{MatchID: 2, PlayerID: alice, TeamID: home, Lineup: 1, MinutePlayed: 90}, // other match
	}

	rows, err := ComputeStatistics(events, ByPlayer, Options{Formations: formations})
	require.NoError(t, err)

	a := findRow(rows, model.GroupKey{PlayerID: alice})
	require.True(t, a.HasMinutes)
	assert.Equal(t, 45.0, a.MinutePlayed)
	assert.Equal(t, 1, a.Lineup)
	assert.Equal(t, 1, a.SubstituteOut)
	assert.InDelta(t, 60, a.TotalPasses90, 1e-9)

	b := findRow(rows, model.GroupKey{PlayerID: bob})
	require.True(t, b.HasMinutes)
	assert.Equal(t, 1, b.SubstituteIn)
	assert.Equal(t, 0.0, b.TotalPasses90, "zero minutes")

	// Team granularity ignores formations.
	rows, err = ComputeStatistics(events, ByTeam, Options{Formations: formations})
	require.NoError(t, err)
	assert.False(t, rows[0].HasMinutes)

	// No formations, no minutes.
	rows, err = ComputeStatistics(events, ByPlayer, Options{})
	require.NoError(t, err)
	assert.False(t, rows[0].HasMinutes)
	assert.Equal(t, 0.0, rows[0].TotalPasses90)
}

func TestComputeStatistics_PlayerMatchAndDominantTeam(t *testing.T) {
	e1 := makeEvent(1, alice, model.EventShot, 1)
	e2 := makeEvent(2, alice, model.EventShot, 2)
	e2.MatchID = 2
	e2.TeamID = away // loaned out mid-season
	e3 := makeEvent(3, alice, model.EventDuel, 3)
	e3.MatchID = 2
	e3.TeamID = away
	e4 := makeEvent(4, alice, model.EventDuel, 4)
	e4.MatchID = 2
	e4.TeamID = away

	events := []model.Event{e1, e2, e3, e4}

	rows, err := ComputeStatistics(events, ByPlayer, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].NbMatches)
	assert.Equal(t, away, rows[0].TeamID)

	rows, err = ComputeStatistics(events, ByPlayerMatch, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.GroupKey{PlayerID: alice, MatchID: 1}, rows[0].Key)
	assert.Equal(t, model.GroupKey{PlayerID: alice, MatchID: 2}, rows[1].Key)
	assert.Equal(t, 1, rows[1].TotalShots)
	assert.Equal(t, 2, rows[1].TotalDuels)
	assert.Equal(t, 1, rows[0].NbMatches)
}

func TestDominantTeam_TieGoesToSmallestID(t *testing.T) {
	assert.Equal(t, int64(3), dominantTeam(map[int64]int{7: 2, 3: 2, 9: 1}))
	assert.Equal(t, int64(0), dominantTeam(nil))
}

func TestComputeStatistics_Empty(t *testing.T) {
	rows, err := ComputeStatistics(nil, ByTeam, Options{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPassPairs(t *testing.T) {
	at := func(x, y float64) model.Point { return model.Point{X: x, Y: y} }
	events := []model.Event{
		pass(1, alice, 1, true, at(10, 10), at(20, 10)),
		pass(2, bob, 2, true, at(20, 10), at(30, 10)),
		pass(3, alice, 3, true, at(30, 10), at(40, 10)),
		makeEvent(4, carl, model.EventDuel, 3.5), // other team, ignored
		pass(5, bob, 4, false, at(40, 10), at(50, 10)),
		pass(6, alice, 5, true, at(50, 10), at(60, 10)),
		pass(7, alice, 6, true, at(60, 10), at(70, 10)), // self follow-up
		makeEvent(8, alice, model.EventShot, 7),
	}
	// Last pass of the half has no successor in the same period.
	last := pass(9, bob, 2700, true, at(10, 10), at(20, 10))
	next := makeEvent(10, alice, model.EventShot, 5)
	next.Period = model.PeriodSecondHalf
	events = append(events, last, next)

	links := PassPairs(events, home)
	require.Len(t, links, 1)
	assert.Equal(t, model.PassLink{Player1ID: alice, Player2ID: bob, TotalPasses: 3}, links[0])

	assert.Empty(t, PassPairs(events, 999))
}

package storage

import (
	"errors"
	"testing"

	"github.com/pable/go-pitch-metrics/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func pt(x, y float64) *model.Point { return &model.Point{X: x, Y: y} }

// makeMatch returns a match summary and a few events: home 1 vs away 2.
func makeMatch(matchID int64) (model.MatchSummary, []model.Event) {
	base := model.Event{MatchID: matchID, Period: model.PeriodFirstHalf, HomeTeamID: 1, AwayTeamID: 2}

	pass := base
	pass.ID, pass.EventSec, pass.EventName, pass.TeamID = 1, 5, model.EventPass, 1
	pass.PlayerID, pass.PlayerName, pass.SubEventName = 10, "Ann", "Simple pass"
	pass.Origin, pass.Destination, pass.Accurate = pt(40, 30), pt(60, 35), true

	shot := base
	shot.ID, shot.EventSec, shot.EventName, shot.TeamID = 2, 8, model.EventShot, 1
	shot.PlayerID, shot.Origin, shot.Goal = 11, pt(95, 34), true
	shot.Predictions = map[string]float64{"baseline": 0.42}

	og := base
	og.ID, og.EventSec, og.EventName, og.TeamID = 3, 30, model.EventOthersOnBall, 1
	og.PlayerID, og.OwnGoal = 12, true

	stop := base
	stop.ID, stop.EventSec, stop.EventName, stop.TeamID = 4, 20, model.EventInterruption, 2
	stop.Period = model.PeriodSecondHalf

	events := []model.Event{pass, shot, og, stop}
	summary := model.MatchSummary{
		MatchID: matchID, HomeTeamID: 1, AwayTeamID: 2,
		SourceHash: "hash-" + string(rune('a'+matchID)), EventCount: len(events),
	}
	return summary, events
}

func storeMatch(t *testing.T, db *DB, matchID int64) []model.Event {
	t.Helper()
	summary, events := makeMatch(matchID)
	if err := db.InsertMatch(summary); err != nil {
		t.Fatalf("InsertMatch: %v", err)
	}
	if err := db.InsertEvents(events); err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}
	return events
}

func TestMatchInsertAndExists(t *testing.T) {
	db := openMemDB(t)
	storeMatch(t, db, 1)

	exists, err := db.MatchExists("hash-b")
	if err != nil {
		t.Fatalf("MatchExists: %v", err)
	}
	if !exists {
		t.Error("expected match to exist after insert")
	}

	exists2, _ := db.MatchExists("nonexistent")
	if exists2 {
		t.Error("expected non-existent hash to not exist")
	}
}

func TestListMatchesWithScore(t *testing.T) {
	db := openMemDB(t)
	storeMatch(t, db, 2)
	storeMatch(t, db, 1)

	list, err := db.ListMatches()
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(list))
	}
	if list[0].MatchID != 1 {
		t.Errorf("expected match 1 first, got %d", list[0].MatchID)
	}
	// Home scored one; the home own goal counts for the away side.
	if list[0].HomeGoals != 1 || list[0].AwayGoals != 1 {
		t.Errorf("score = %d-%d, want 1-1", list[0].HomeGoals, list[0].AwayGoals)
	}
	if list[0].EventCount != 4 {
		t.Errorf("EventCount = %d, want 4", list[0].EventCount)
	}
}

func TestEventsRoundTrip(t *testing.T) {
	db := openMemDB(t)
	want := storeMatch(t, db, 1)

	got, err := db.LoadMatchEvents(1)
	if err != nil {
		t.Fatalf("LoadMatchEvents: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}

	// Ordered by period then time: pass, shot, own goal, then the 2H stop.
	order := []int64{1, 2, 3, 4}
	for i, id := range order {
		if got[i].ID != id {
			t.Errorf("event[%d].ID = %d, want %d", i, got[i].ID, id)
		}
	}

	pass := got[0]
	if pass.Origin == nil || *pass.Origin != *want[0].Origin {
		t.Errorf("pass origin = %v, want %v", pass.Origin, want[0].Origin)
	}
	if pass.Destination == nil || pass.Destination.X != 60 {
		t.Errorf("pass destination = %v", pass.Destination)
	}
	if !pass.Accurate || pass.SubEventName != "Simple pass" || pass.PlayerName != "Ann" {
		t.Errorf("pass fields lost: %+v", pass)
	}

	shot := got[1]
	if !shot.Goal || shot.Destination != nil {
		t.Errorf("shot = %+v", shot)
	}
	if shot.Predictions["baseline"] != 0.42 {
		t.Errorf("predictions = %v", shot.Predictions)
	}
	if !got[2].OwnGoal {
		t.Error("own goal flag lost")
	}
	if got[3].Origin != nil {
		t.Errorf("missing origin should stay nil, got %v", got[3].Origin)
	}
	if got[3].Period != model.PeriodSecondHalf {
		t.Errorf("period = %q", got[3].Period)
	}
}

func TestLoadMatchEvents_NotFoundAndIntegrity(t *testing.T) {
	db := openMemDB(t)

	if _, err := db.LoadMatchEvents(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	storeMatch(t, db, 1)
	stray := model.Event{ID: 50, MatchID: 1, Period: model.PeriodFirstHalf, EventName: model.EventPass,
		TeamID: 3, HomeTeamID: 3, AwayTeamID: 4}
	if err := db.InsertEvents([]model.Event{stray}); err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}
	if _, err := db.LoadMatchEvents(1); !errors.Is(err, model.ErrDataIntegrity) {
		t.Errorf("expected ErrDataIntegrity, got %v", err)
	}
}

func TestLoadEventsAcrossMatches(t *testing.T) {
	db := openMemDB(t)
	storeMatch(t, db, 1)
	storeMatch(t, db, 2)
	storeMatch(t, db, 3)

	all, err := db.LoadEvents(nil)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(all) != 12 {
		t.Errorf("expected 12 events, got %d", len(all))
	}

	some, err := db.LoadEvents([]int64{1, 3})
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(some) != 8 {
		t.Fatalf("expected 8 events, got %d", len(some))
	}
	if some[0].MatchID != 1 || some[len(some)-1].MatchID != 3 {
		t.Errorf("unexpected match order: %d .. %d", some[0].MatchID, some[len(some)-1].MatchID)
	}
}

func TestFormationsRoundTrip(t *testing.T) {
	db := openMemDB(t)
	in := []model.Formation{
		{MatchID: 1, PlayerID: 10, TeamID: 1, Lineup: 1, SubstituteOut: 1, MinuteEnd: 70, MinutePlayed: 70},
		{MatchID: 2, PlayerID: 10, TeamID: 1, Lineup: 1, MinuteEnd: 90, MinutePlayed: 90},
	}
	if err := db.InsertFormations(in); err != nil {
		t.Fatalf("InsertFormations: %v", err)
	}

	got, err := db.LoadFormations([]int64{1})
	if err != nil {
		t.Fatalf("LoadFormations: %v", err)
	}
	if len(got) != 1 || got[0] != in[0] {
		t.Errorf("LoadFormations = %+v, want %+v", got, in[:1])
	}

	all, _ := db.LoadFormations(nil)
	if len(all) != 2 {
		t.Errorf("expected 2 formations, got %d", len(all))
	}
}

func TestPhasesAndFrames(t *testing.T) {
	db := openMemDB(t)
	storeMatch(t, db, 1)

	frames := []model.Frame{
		{Frame: 0, EntityType: model.EntityPlayerOwner, PlayerID: 10, PlayerName: "Ann", Team: model.SideHome, X: 40, Y: 30, EventID: 1, EventName: model.EventPass},
		{Frame: 0, EntityType: model.EntityBall, Team: model.SideBall, X: 40, Y: 30, EventID: 1},
		{Frame: 1, EntityType: model.EntityPlayerOwner, PlayerID: 10, PlayerName: "Ann", Team: model.SideHome, X: 40, Y: 30, EventID: 1, EventName: model.EventPass},
		{Frame: 1, EntityType: model.EntityBall, Team: model.SideBall, X: 60, Y: 35, EventID: 1},
	}
	phase := model.PhaseSummary{MatchID: 1, Period: model.PeriodFirstHalf, StartSec: 0, EndSec: 10, Policy: model.EventShot}

	id, err := db.InsertPhase(phase, frames)
	if err != nil {
		t.Fatalf("InsertPhase: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("expected a UUID, got %q", id)
	}

	phases, err := db.ListPhases(1)
	if err != nil {
		t.Fatalf("ListPhases: %v", err)
	}
	if len(phases) != 1 || phases[0].FrameCount != 2 || phases[0].PhaseID != id {
		t.Errorf("ListPhases = %+v", phases)
	}

	p, err := db.GetPhaseByPrefix(id[:8])
	if err != nil {
		t.Fatalf("GetPhaseByPrefix: %v", err)
	}
	if p.Policy != model.EventShot || p.EndSec != 10 {
		t.Errorf("phase = %+v", p)
	}
	if _, err := db.GetPhaseByPrefix("zzzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, err := db.GetFrames(id)
	if err != nil {
		t.Fatalf("GetFrames: %v", err)
	}
	if len(got) != len(frames) {
		t.Fatalf("expected %d frames, got %d", len(frames), len(got))
	}
	for i := range frames {
		if got[i] != frames[i] {
			t.Errorf("frame[%d] = %+v, want %+v", i, got[i], frames[i])
		}
	}
}

func TestDropMatch(t *testing.T) {
	db := openMemDB(t)
	storeMatch(t, db, 1)
	storeMatch(t, db, 2)
	if _, err := db.InsertPhase(model.PhaseSummary{MatchID: 1, Period: model.PeriodFirstHalf, Policy: model.EventShot},
		[]model.Frame{{Frame: 0, EntityType: model.EntityBall, Team: model.SideBall, X: 1, Y: 1, EventID: 1}}); err != nil {
		t.Fatalf("InsertPhase: %v", err)
	}

	n, err := db.DropMatch(1)
	if err != nil {
		t.Fatalf("DropMatch: %v", err)
	}
	if n != 4 {
		t.Errorf("dropped %d events, want 4", n)
	}

	list, _ := db.ListMatches()
	if len(list) != 1 || list[0].MatchID != 2 {
		t.Errorf("remaining matches = %+v", list)
	}
	phases, _ := db.ListPhases(0)
	if len(phases) != 0 {
		t.Errorf("expected phases to be dropped, got %d", len(phases))
	}
	_, rows, _ := db.QueryRaw("SELECT COUNT(*) FROM frames")
	if rows[0][0] != "0" {
		t.Errorf("expected frames to be dropped, got %s", rows[0][0])
	}

	if _, err := db.DropMatch(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second drop, got %v", err)
	}
}

func TestQueryRaw(t *testing.T) {
	db := openMemDB(t)
	storeMatch(t, db, 1)

	cols, rows, err := db.QueryRaw("SELECT event_id, orig_x FROM events WHERE match_id = 1 ORDER BY event_id")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 2 || cols[0] != "event_id" {
		t.Errorf("cols = %v", cols)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0][0] != "1" || rows[0][1] != "40" {
		t.Errorf("row[0] = %v", rows[0])
	}
	if rows[2][1] != "NULL" {
		t.Errorf("expected NULL origin, got %q", rows[2][1])
	}

	if _, _, err := db.QueryRaw("SELECT nope FROM nowhere"); err == nil {
		t.Error("expected error for bad query")
	}
}

func TestInsertIdempotency(t *testing.T) {
	db := openMemDB(t)
	storeMatch(t, db, 1)
	storeMatch(t, db, 1)

	events, err := db.LoadMatchEvents(1)
	if err != nil {
		t.Fatalf("LoadMatchEvents: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("expected 4 events after double insert, got %d", len(events))
	}
}

package aggregator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/pable/go-pitch-metrics/internal/model"
)

// GroupBy selects the key of the KPI table.
type GroupBy string

const (
	ByPlayer      GroupBy = "player"
	ByTeam        GroupBy = "team"
	ByMatch       GroupBy = "match"
	ByPlayerMatch GroupBy = "player_match"
	ByTeamMatch   GroupBy = "team_match"
)

// ParseGroupBy validates a group-by name. "player+match" is accepted as an
// alias of "player_match".
func ParseGroupBy(s string) (GroupBy, error) {
	g := GroupBy(strings.ReplaceAll(strings.TrimSpace(strings.ToLower(s)), "+", "_"))
	switch g {
	case ByPlayer, ByTeam, ByMatch, ByPlayerMatch, ByTeamMatch:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown group-by %q", model.ErrInvalidConfig, s)
}

func (g GroupBy) playerLevel() bool { return g == ByPlayer || g == ByPlayerMatch }

// KPI names, in output column order.
const (
	KPITotalPasses         = "totalPasses"
	KPITotalAccuratePasses = "totalAccuratePasses"
	KPIShareAccuratePasses = "shareAccuratePasses"
	KPIMeanPassLength      = "meanPassLength"
	KPITotalShots          = "totalShots"
	KPITotalGoals          = "totalGoals"
	KPITotalDuels          = "totalDuels"
	KPICentroid            = "centroid"
	KPIMinutePlayed        = "minutePlayed"
	KPITotalPasses90       = "totalPasses90"
)

// AllKPIs lists every supported KPI.
var AllKPIs = []string{
	KPITotalPasses, KPITotalAccuratePasses, KPIShareAccuratePasses, KPIMeanPassLength,
	KPITotalShots, KPITotalGoals, KPITotalDuels, KPICentroid, KPIMinutePlayed, KPITotalPasses90,
}

// ResolveKPIs returns the KPI set to compute: keep (nil, empty or "all"
// means every KPI) minus drop, in AllKPIs order. Unknown names are a
// configuration error.
func ResolveKPIs(keep, drop []string) ([]string, error) {
	known := make(map[string]bool, len(AllKPIs))
	for _, k := range AllKPIs {
		known[k] = true
	}
	want := make(map[string]bool)
	if len(keep) == 0 || (len(keep) == 1 && keep[0] == "all") {
		for _, k := range AllKPIs {
			want[k] = true
		}
	} else {
		for _, k := range keep {
			if !known[k] {
				return nil, fmt.Errorf("%w: unknown KPI %q", model.ErrInvalidConfig, k)
			}
			want[k] = true
		}
	}
	for _, k := range drop {
		if !known[k] {
			return nil, fmt.Errorf("%w: unknown KPI %q", model.ErrInvalidConfig, k)
		}
		delete(want, k)
	}
	var out []string
	for _, k := range AllKPIs {
		if want[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

// Options tunes ComputeStatistics.
type Options struct {
	KPIs []string // nil = all
	Drop []string

	// CentroidEvents restricts the centroid to these event types; nil uses
	// every event.
	CentroidEvents []string

	// Formations enables minutePlayed (and totalPasses90) at player
	// granularity.
	Formations []model.Formation
}

// groupAccum collects everything one KPI row needs.
type groupAccum struct {
	names     map[string]struct{}
	positions map[string]struct{}
	teams     map[int64]int
	matches   map[int64]struct{}

	passes, accurate, shots, duels int
	goals                          int
	passLengths                    []float64
	centroidXs, centroidYs         []float64
}

func newGroupAccum() *groupAccum {
	return &groupAccum{
		names:     make(map[string]struct{}),
		positions: make(map[string]struct{}),
		teams:     make(map[int64]int),
		matches:   make(map[int64]struct{}),
	}
}

func keyOf(g GroupBy, playerID, teamID, matchID int64) model.GroupKey {
	switch g {
	case ByPlayer:
		return model.GroupKey{PlayerID: playerID}
	case ByTeam:
		return model.GroupKey{TeamID: teamID}
	case ByMatch:
		return model.GroupKey{MatchID: matchID}
	case ByPlayerMatch:
		return model.GroupKey{PlayerID: playerID, MatchID: matchID}
	default:
		return model.GroupKey{TeamID: teamID, MatchID: matchID}
	}
}

// ComputeStatistics aggregates events into one KPI row per group key. Rows
// come out sorted by key. Player granularity skips the "no player" id 0.
func ComputeStatistics(events []model.Event, groupBy GroupBy, opts Options) ([]model.KPIRow, error) {
	if _, err := ParseGroupBy(string(groupBy)); err != nil {
		return nil, err
	}
	kpis, err := ResolveKPIs(opts.KPIs, opts.Drop)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(kpis))
	for _, k := range kpis {
		want[k] = true
	}

	var centroidFilter map[string]bool
	if opts.CentroidEvents != nil {
		centroidFilter = make(map[string]bool, len(opts.CentroidEvents))
		for _, name := range opts.CentroidEvents {
			centroidFilter[name] = true
		}
	}

	// ---- Pass 1: per-event accumulation. ----

	accums := make(map[model.GroupKey]*groupAccum)
	get := func(k model.GroupKey) *groupAccum {
		a, ok := accums[k]
		if !ok {
			a = newGroupAccum()
			accums[k] = a
		}
		return a
	}

	for i := range events {
		e := &events[i]
		if groupBy.playerLevel() && e.PlayerID == 0 {
			continue
		}
		a := get(keyOf(groupBy, e.PlayerID, e.TeamID, e.MatchID))
		a.matches[e.MatchID] = struct{}{}
		a.teams[e.TeamID]++
		if e.PlayerName != "" {
			a.names[e.PlayerName] = struct{}{}
		}
		if e.PlayerPosition != "" {
			a.positions[e.PlayerPosition] = struct{}{}
		}

		switch e.EventName {
		case model.EventPass:
			a.passes++
			if e.Accurate {
				a.accurate++
			}
			if model.ValidPosition(e.Origin) && model.ValidPosition(e.Destination) {
				a.passLengths = append(a.passLengths, math.Hypot(
					e.Destination.X-e.Origin.X, e.Destination.Y-e.Origin.Y))
			}
		case model.EventShot:
			a.shots++
		case model.EventDuel:
			a.duels++
		}
		if e.Goal && (e.EventName == model.EventShot || e.EventName == model.EventFreeKick) {
			a.goals++
		}
		if model.ValidPosition(e.Origin) && (centroidFilter == nil || centroidFilter[e.EventName]) {
			a.centroidXs = append(a.centroidXs, e.Origin.X)
			a.centroidYs = append(a.centroidYs, e.Origin.Y)
		}
	}

	// ---- Pass 2: own goals count for the opponent at team/match level. ----

	if want[KPITotalGoals] && !groupBy.playerLevel() {
		for i := range events {
			e := &events[i]
			if !e.OwnGoal {
				continue
			}
			// Only credit groups that exist; an opponent absent from the
			// event table gets no row.
			if a, ok := accums[keyOf(groupBy, 0, e.OpponentID(), e.MatchID)]; ok {
				a.goals++
			}
		}
	}

	// ---- Pass 3: formations, player granularity only. ----

	type minutes struct {
		lineup, subIn, subOut int
		played                float64
	}
	minutesByKey := make(map[model.GroupKey]*minutes)
	if want[KPIMinutePlayed] && groupBy.playerLevel() && opts.Formations != nil {
		inScope := make(map[int64]bool)
		for i := range events {
			inScope[events[i].MatchID] = true
		}
		for _, f := range opts.Formations {
			if !inScope[f.MatchID] {
				continue
			}
			k := keyOf(groupBy, f.PlayerID, f.TeamID, f.MatchID)
			m, ok := minutesByKey[k]
			if !ok {
				m = &minutes{}
				minutesByKey[k] = m
			}
			m.lineup += f.Lineup
			m.subIn += f.SubstituteIn
			m.subOut += f.SubstituteOut
			m.played += f.MinutePlayed
		}
	}

	// ---- Pass 4: build rows. ----

	rows := make([]model.KPIRow, 0, len(accums))
	for key, a := range accums {
		row := model.KPIRow{
			Key:       key,
			NbMatches: len(a.matches),
		}
		if groupBy.playerLevel() {
			row.PlayerName = minString(a.names)
			row.PlayerPosition = minString(a.positions)
			row.TeamID = dominantTeam(a.teams)
		} else {
			row.TeamID = key.TeamID
		}

		if want[KPITotalPasses] || want[KPIShareAccuratePasses] || want[KPITotalPasses90] {
			row.TotalPasses = a.passes
		}
		if want[KPITotalAccuratePasses] || want[KPIShareAccuratePasses] {
			row.TotalAccuratePasses = a.accurate
		}
		if want[KPIShareAccuratePasses] {
			row.ShareAccuratePasses = round2(100 * model.SafeDiv(float64(a.accurate), float64(a.passes)))
		}
		if want[KPIMeanPassLength] && len(a.passLengths) > 0 {
			row.MeanPassLength = stat.Mean(a.passLengths, nil)
		}
		if want[KPITotalShots] {
			row.TotalShots = a.shots
		}
		if want[KPITotalGoals] {
			row.TotalGoals = a.goals
		}
		if want[KPITotalDuels] {
			row.TotalDuels = a.duels
		}
		if want[KPICentroid] && len(a.centroidXs) > 0 {
			row.HasCentroid = true
			row.CentroidX = stat.Mean(a.centroidXs, nil)
			row.CentroidY = stat.Mean(a.centroidYs, nil)
		}
		if m, ok := minutesByKey[key]; ok {
			row.HasMinutes = true
			row.Lineup = m.lineup
			row.SubstituteIn = m.subIn
			row.SubstituteOut = m.subOut
			row.MinutePlayed = m.played
			if want[KPITotalPasses90] {
				row.TotalPasses90 = model.SafeDiv(float64(a.passes), m.played) * 90
			}
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Key, rows[j].Key
		if a.PlayerID != b.PlayerID {
			return a.PlayerID < b.PlayerID
		}
		if a.TeamID != b.TeamID {
			return a.TeamID < b.TeamID
		}
		return a.MatchID < b.MatchID
	})
	return rows, nil
}

// PassPairs counts accurate passes of teamID followed by a different
// teammate's action within the same match period. Pairs are unordered.
// Result is sorted by count descending, then by player ids.
func PassPairs(events []model.Event, teamID int64) []model.PassLink {
	var team []model.Event
	for _, e := range events {
		if e.TeamID == teamID {
			team = append(team, e)
		}
	}
	sort.SliceStable(team, func(i, j int) bool {
		a, b := team[i], team[j]
		if a.MatchID != b.MatchID {
			return a.MatchID < b.MatchID
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.EventSec < b.EventSec
	})

	type pair struct{ p1, p2 int64 }
	counts := make(map[pair]int)
	for i := 0; i+1 < len(team); i++ {
		cur, next := &team[i], &team[i+1]
		if cur.EventName != model.EventPass || !cur.Accurate {
			continue
		}
		if cur.MatchID != next.MatchID || cur.Period != next.Period {
			continue
		}
		if cur.PlayerID == 0 || next.PlayerID == 0 || cur.PlayerID == next.PlayerID {
			continue
		}
		p := pair{cur.PlayerID, next.PlayerID}
		if p.p1 > p.p2 {
			p.p1, p.p2 = p.p2, p.p1
		}
		counts[p]++
	}

	links := make([]model.PassLink, 0, len(counts))
	for p, n := range counts {
		links = append(links, model.PassLink{Player1ID: p.p1, Player2ID: p.p2, TotalPasses: n})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].TotalPasses != links[j].TotalPasses {
			return links[i].TotalPasses > links[j].TotalPasses
		}
		if links[i].Player1ID != links[j].Player1ID {
			return links[i].Player1ID < links[j].Player1ID
		}
		return links[i].Player2ID < links[j].Player2ID
	})
	return links
}

// dominantTeam returns the most frequent team id, the smallest on ties.
func dominantTeam(counts map[int64]int) int64 {
	var best int64
	bestCount := 0
	for id, c := range counts {
		if c > bestCount || (c == bestCount && id < best) {
			best, bestCount = id, c
		}
	}
	return best
}

func minString(set map[string]struct{}) string {
	first := true
	var out string
	for s := range set {
		if first || s < out {
			out, first = s, false
		}
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

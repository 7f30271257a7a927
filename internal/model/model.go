package model

import "math"

// Period is the match period label as found in the event feed.
type Period string

const (
	PeriodFirstHalf   Period = "1H"
	PeriodSecondHalf  Period = "2H"
	PeriodExtraFirst  Period = "E1"
	PeriodExtraSecond Period = "E2"
	PeriodPenalties   Period = "P"
)

// FirstHalfOrientation reports whether teams attack in their kick-off
// direction during this period (home attacks the away goal).
func (p Period) FirstHalfOrientation() bool {
	return p == PeriodFirstHalf || p == PeriodExtraFirst
}

// Event names used by the inference rules and KPIs.
const (
	EventPass         = "Pass"
	EventShot         = "Shot"
	EventDuel         = "Duel"
	EventFoul         = "Foul"
	EventFreeKick     = "Free Kick"
	EventSaveAttempt  = "Save attempt"
	EventInterruption = "Interruption"
	EventOffside      = "Offside"
	EventGoalKick     = "Goal Kick"
	EventOthersOnBall = "Others on the ball"
	EventGKLeaving    = "Goalkeeper leaving line"
)

// KnownEventNames is the event-type vocabulary accepted by phase selectors.
var KnownEventNames = []string{
	EventPass, EventShot, EventDuel, EventFoul, EventFreeKick, EventSaveAttempt,
	EventInterruption, EventOffside, EventGoalKick, EventOthersOnBall, EventGKLeaving,
}

// IsKnownEventName reports whether name belongs to KnownEventNames.
func IsKnownEventName(name string) bool {
	for _, n := range KnownEventNames {
		if n == name {
			return true
		}
	}
	return false
}

// Point is a pitch position in meters.
type Point struct{ X, Y float64 }

// ValidPosition reports whether p is usable: present, finite and not the
// (0,0) sentinel the feed uses for "unknown".
func ValidPosition(p *Point) bool {
	if p == nil {
		return false
	}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return false
	}
	return !(p.X == 0 && p.Y == 0)
}

// SafeDiv returns num/den, or 0 when den is 0.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// ---- Input tables ----

// Event is one atomic match occurrence. Origin and Destination are nil when
// the feed has no usable coordinate.
type Event struct {
	ID           int64
	MatchID      int64
	Period       Period
	EventSec     float64
	EventName    string
	SubEventName string

	TeamID     int64
	HomeTeamID int64
	AwayTeamID int64

	PlayerID       int64 // 0 = no player (team-level event)
	PlayerName     string
	PlayerPosition string

	Origin      *Point
	Destination *Point

	Accurate bool
	Goal     bool
	OwnGoal  bool

	// Predictions holds precomputed goal probabilities keyed by model name.
	Predictions map[string]float64
}

// IsHome reports whether the acting team is the home side.
func (e *Event) IsHome() bool { return e.TeamID == e.HomeTeamID }

// SideLabel returns "Home" or "Away" for the acting team.
func (e *Event) SideLabel() string {
	if e.IsHome() {
		return SideHome
	}
	return SideAway
}

// OpponentID returns the team id of the other side.
func (e *Event) OpponentID() int64 {
	if e.IsHome() {
		return e.AwayTeamID
	}
	return e.HomeTeamID
}

// Formation is one lineup row of the optional formations table.
type Formation struct {
	MatchID       int64
	PlayerID      int64
	TeamID        int64
	Lineup        int
	SubstituteIn  int
	SubstituteOut int
	MinuteStart   float64
	MinuteEnd     float64
	MinutePlayed  float64
}

// ---- Trajectory output ----

// EntityType tags a trajectory frame record.
type EntityType string

const (
	EntityPlayerOwner  EntityType = "PLAYER_OWNER"
	EntityPlayerTarget EntityType = "PLAYER_TARGET"
	EntityBall         EntityType = "BALL"
)

// Team labels used on frames.
const (
	SideHome = "Home"
	SideAway = "Away"
	SideBall = "Ball"
)

// Frame is one record of the pseudo-tracking stream. Several records share a
// frame index: the owner, the optional target and the ball.
type Frame struct {
	Frame      int        `json:"frame"`
	EntityType EntityType `json:"entityType"`
	PlayerID   int64      `json:"playerID,omitempty"` // 0 for the ball
	PlayerName string     `json:"playerName,omitempty"`
	Team       string     `json:"team"`
	X          float64    `json:"xPos"`
	Y          float64    `json:"yPos"`
	EventID    int64      `json:"eventID"`
	EventName  string     `json:"eventName,omitempty"`
}

// ---- Aggregated metrics ----

// GroupKey identifies a KPI row. Only the fields of the requested grouping
// are set; the others stay zero.
type GroupKey struct {
	PlayerID int64
	TeamID   int64
	MatchID  int64
}

// KPIRow is one aggregation result. Which metric fields are meaningful is
// decided by the KPI set the caller requested.
type KPIRow struct {
	Key GroupKey

	// Player groupings only.
	PlayerName     string
	PlayerPosition string
	TeamID         int64 // most frequent acting team

	NbMatches int

	TotalPasses         int
	TotalAccuratePasses int
	ShareAccuratePasses float64 // percent, 2 decimals
	MeanPassLength      float64 // meters
	TotalShots          int
	TotalGoals          int
	TotalDuels          int

	HasCentroid bool
	CentroidX   float64
	CentroidY   float64

	HasMinutes    bool
	Lineup        int
	SubstituteIn  int
	SubstituteOut int
	MinutePlayed  float64
	TotalPasses90 float64
}

// PassLink counts accurate passes exchanged by an unordered player pair.
type PassLink struct {
	Player1ID   int64 // smaller id
	Player2ID   int64
	TotalPasses int
}

// MatchSummary is a lightweight record for list/show commands.
type MatchSummary struct {
	MatchID    int64
	HomeTeamID int64
	AwayTeamID int64
	EventCount int
	SourceHash string
	HomeGoals  int
	AwayGoals  int
}

// PhaseSummary describes a stored phase.
type PhaseSummary struct {
	PhaseID    string
	MatchID    int64
	Period     Period
	StartSec   float64
	EndSec     float64
	Policy     string
	FrameCount int
}

package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gonum.org/v1/gonum/mat"

	"github.com/pable/go-pitch-metrics/internal/aggregator"
	"github.com/pable/go-pitch-metrics/internal/model"
	"github.com/pable/go-pitch-metrics/internal/surface"
	"github.com/pable/go-pitch-metrics/internal/xg"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// PrintMatchSummary prints a one-line summary header for the match.
func PrintMatchSummary(w io.Writer, s model.MatchSummary) {
	fmt.Fprintf(w, "\nMatch: %d  |  Home %d %d – %d Away %d  |  Events: %d  |  Hash: %s\n\n",
		s.MatchID, s.HomeTeamID, s.HomeGoals, s.AwayGoals, s.AwayTeamID, s.EventCount, shortHash(s.SourceHash))
}

// PrintMatchList prints stored matches.
func PrintMatchList(w io.Writer, matches []model.MatchSummary) {
	table := newTable(w)
	table.Header("MATCH", "HOME", "AWAY", "SCORE", "EVENTS", "HASH")
	for _, s := range matches {
		table.Append(
			id(s.MatchID),
			id(s.HomeTeamID),
			id(s.AwayTeamID),
			fmt.Sprintf("%d-%d", s.HomeGoals, s.AwayGoals),
			strconv.Itoa(s.EventCount),
			shortHash(s.SourceHash),
		)
	}
	table.Render()
}

// PrintKPITable prints one row per group with only the requested KPI
// columns.
func PrintKPITable(w io.Writer, rows []model.KPIRow, groupBy aggregator.GroupBy, kpis []string) {
	want := make(map[string]bool, len(kpis))
	for _, k := range kpis {
		want[k] = true
	}

	var header []any
	switch groupBy {
	case aggregator.ByPlayer:
		header = append(header, "PLAYER", "NAME", "POS", "TEAM")
	case aggregator.ByPlayerMatch:
		header = append(header, "PLAYER", "MATCH", "NAME", "POS", "TEAM")
	case aggregator.ByTeam:
		header = append(header, "TEAM")
	case aggregator.ByMatch:
		header = append(header, "MATCH")
	case aggregator.ByTeamMatch:
		header = append(header, "TEAM", "MATCH")
	}
	header = append(header, "MATCHES")
	for _, k := range kpis {
		switch k {
		case aggregator.KPICentroid:
			header = append(header, "CENTROID_X", "CENTROID_Y")
		case aggregator.KPIMinutePlayed:
			header = append(header, "LINEUP", "SUB_IN", "SUB_OUT", "MINUTES")
		default:
			header = append(header, k)
		}
	}

	table := newTable(w)
	table.Header(header...)
	for _, r := range rows {
		var cells []any
		switch groupBy {
		case aggregator.ByPlayer:
			cells = append(cells, id(r.Key.PlayerID), r.PlayerName, r.PlayerPosition, id(r.TeamID))
		case aggregator.ByPlayerMatch:
			cells = append(cells, id(r.Key.PlayerID), id(r.Key.MatchID), r.PlayerName, r.PlayerPosition, id(r.TeamID))
		case aggregator.ByTeam:
			cells = append(cells, id(r.Key.TeamID))
		case aggregator.ByMatch:
			cells = append(cells, id(r.Key.MatchID))
		case aggregator.ByTeamMatch:
			cells = append(cells, id(r.Key.TeamID), id(r.Key.MatchID))
		}
		cells = append(cells, strconv.Itoa(r.NbMatches))
		for _, k := range kpis {
			cells = append(cells, kpiCells(r, k)...)
		}
		table.Append(cells...)
	}
	table.Render()
}

func kpiCells(r model.KPIRow, k string) []any {
	switch k {
	case aggregator.KPITotalPasses:
		return []any{strconv.Itoa(r.TotalPasses)}
	case aggregator.KPITotalAccuratePasses:
		return []any{strconv.Itoa(r.TotalAccuratePasses)}
	case aggregator.KPIShareAccuratePasses:
		return []any{fmt.Sprintf("%.2f%%", r.ShareAccuratePasses)}
	case aggregator.KPIMeanPassLength:
		return []any{fmt.Sprintf("%.1fm", r.MeanPassLength)}
	case aggregator.KPITotalShots:
		return []any{strconv.Itoa(r.TotalShots)}
	case aggregator.KPITotalGoals:
		return []any{strconv.Itoa(r.TotalGoals)}
	case aggregator.KPITotalDuels:
		return []any{strconv.Itoa(r.TotalDuels)}
	case aggregator.KPICentroid:
		if !r.HasCentroid {
			return []any{"—", "—"}
		}
		return []any{fmt.Sprintf("%.1f", r.CentroidX), fmt.Sprintf("%.1f", r.CentroidY)}
	case aggregator.KPIMinutePlayed:
		if !r.HasMinutes {
			return []any{"—", "—", "—", "—"}
		}
		return []any{strconv.Itoa(r.Lineup), strconv.Itoa(r.SubstituteIn), strconv.Itoa(r.SubstituteOut),
			fmt.Sprintf("%.0f", r.MinutePlayed)}
	case aggregator.KPITotalPasses90:
		if !r.HasMinutes {
			return []any{"—"}
		}
		return []any{fmt.Sprintf("%.1f", r.TotalPasses90)}
	}
	return []any{"?"}
}

// PrintTeamOverview prints the two-column overview card of one match from
// team_match KPI rows.
func PrintTeamOverview(w io.Writer, s model.MatchSummary, rows []model.KPIRow) {
	var home, away model.KPIRow
	for _, r := range rows {
		switch r.Key.TeamID {
		case s.HomeTeamID:
			home = r
		case s.AwayTeamID:
			away = r
		}
	}
	table := newTable(w)
	table.Header("", "HOME "+id(s.HomeTeamID), "AWAY "+id(s.AwayTeamID))
	line := func(label string, f func(model.KPIRow) string) {
		table.Append(label, f(home), f(away))
	}
	line("Goals", func(r model.KPIRow) string { return strconv.Itoa(r.TotalGoals) })
	line("Shots", func(r model.KPIRow) string { return strconv.Itoa(r.TotalShots) })
	line("Passes", func(r model.KPIRow) string { return strconv.Itoa(r.TotalPasses) })
	line("Accurate passes", func(r model.KPIRow) string { return fmt.Sprintf("%.2f%%", r.ShareAccuratePasses) })
	line("Mean pass length", func(r model.KPIRow) string { return fmt.Sprintf("%.1fm", r.MeanPassLength) })
	line("Duels", func(r model.KPIRow) string { return strconv.Itoa(r.TotalDuels) })
	table.Render()
}

// PrintMatrix prints a rows=y, cols=x grid with the bucket centers as
// labels. The top line is the far touchline, as on a pitch diagram.
func PrintMatrix(w io.Writer, title string, m *mat.Dense, xCenters, yCenters []float64, format string) {
	fmt.Fprintf(w, "\n%s\n", title)
	rows, cols := m.Dims()

	header := make([]any, 0, cols+1)
	header = append(header, "y \\ x")
	for j := 0; j < cols; j++ {
		header = append(header, fmt.Sprintf("%.1f", xCenters[j]))
	}
	table := newTable(w)
	table.Header(header...)
	for i := rows - 1; i >= 0; i-- {
		cells := make([]any, 0, cols+1)
		cells = append(cells, fmt.Sprintf("%.1f", yCenters[i]))
		for j := 0; j < cols; j++ {
			cells = append(cells, fmt.Sprintf(format, m.At(i, j)))
		}
		table.Append(cells...)
	}
	table.Render()
}

// PrintSurface prints the conversion-rate grid followed by the shot counts.
func PrintSurface(w io.Writer, s *surface.Surface) {
	PrintMatrix(w, "Goal conversion rate (%)", s.Rate, s.XCenters, s.YCenters, "%.2f")
	PrintMatrix(w, "Number of shots", s.Shots, s.XCenters, s.YCenters, "%.0f")
	fmt.Fprintf(w, "\n(%.0f shots, %.0f goals)\n", mat.Sum(s.Shots), mat.Sum(s.Goals))
}

// PrintFilterReport prints the outcome of the outlier-goal filter.
func PrintFilterReport(w io.Writer, rep surface.FilterReport, threshold float64) {
	fmt.Fprintf(w, "\nOutlier filter (decision probability < %.2f)\n", threshold)
	fmt.Fprintf(w, "  goals removed:   %d of %d (%.2f%%)\n", rep.GoalsRemoved, rep.GoalsBefore, rep.ShareRemoved())
	fmt.Fprintf(w, "  share of shots:  %.2f%%\n", 100*model.SafeDiv(float64(rep.GoalsRemoved), float64(rep.Shots)))
}

// PrintPhases prints stored or freshly selected phases.
func PrintPhases(w io.Writer, phases []model.PhaseSummary) {
	table := newTable(w)
	table.Header("PHASE", "MATCH", "PERIOD", "START", "END", "POLICY", "FRAMES")
	for _, p := range phases {
		table.Append(
			shortHash(p.PhaseID),
			id(p.MatchID),
			string(p.Period),
			fmt.Sprintf("%.1fs", p.StartSec),
			fmt.Sprintf("%.1fs", p.EndSec),
			p.Policy,
			strconv.Itoa(p.FrameCount),
		)
	}
	table.Render()
}

// PrintFrameSummary prints how many ball frames each event of a phase
// produced and where the ball ended.
func PrintFrameSummary(w io.Writer, frames []model.Frame) {
	type span struct {
		eventID    int64
		eventName  string
		first      int
		last       int
		endX, endY float64
	}
	var spans []*span
	byEvent := make(map[int64]*span)
	for _, f := range frames {
		s, ok := byEvent[f.EventID]
		if !ok {
			s = &span{eventID: f.EventID, first: f.Frame}
			byEvent[f.EventID] = s
			spans = append(spans, s)
		}
		if f.EntityType == model.EntityPlayerOwner && f.EventName != "" {
			s.eventName = f.EventName
		}
		if f.EntityType == model.EntityBall {
			s.last = f.Frame
			s.endX, s.endY = f.X, f.Y
		}
	}

	table := newTable(w)
	table.Header("EVENT", "TYPE", "FIRST", "LAST", "FRAMES", "BALL_END")
	for _, s := range spans {
		table.Append(
			id(s.eventID),
			s.eventName,
			strconv.Itoa(s.first),
			strconv.Itoa(s.last),
			strconv.Itoa(s.last-s.first+1),
			fmt.Sprintf("(%.1f, %.1f)", s.endX, s.endY),
		)
	}
	table.Render()
}

// PrintPassPairs prints the pass network edges of one team.
func PrintPassPairs(w io.Writer, links []model.PassLink, names map[int64]string) {
	name := func(pid int64) string {
		if n := names[pid]; n != "" {
			return n
		}
		return id(pid)
	}
	table := newTable(w)
	table.Header("PLAYER_1", "PLAYER_2", "PASSES")
	for _, l := range links {
		table.Append(name(l.Player1ID), name(l.Player2ID), strconv.Itoa(l.TotalPasses))
	}
	table.Render()
}

// PrintCalibration prints the reliability table of one model with a 95%
// Wilson interval on the observed rate.
func PrintCalibration(w io.Writer, modelName string, bins []xg.CalibrationBin) {
	fmt.Fprintf(w, "\nCalibration: %s\n", modelName)
	table := newTable(w)
	table.Header("BIN", "N", "MEAN_PRED", "OBSERVED", "CI95", "SAMPLE")
	for _, b := range bins {
		goals := int(math.Round(b.ObservedRate * float64(b.Count)))
		lo, hi := wilsonCI(goals, b.Count)
		table.Append(
			fmt.Sprintf("%.2f-%.2f", b.Lower, b.Upper),
			strconv.Itoa(b.Count),
			fmt.Sprintf("%.1f%%", 100*b.MeanPredicted),
			fmt.Sprintf("%.1f%%", 100*b.ObservedRate),
			fmt.Sprintf("%.0f-%.0f%%", 100*lo, 100*hi),
			sampleFlag(b.Count),
		)
	}
	table.Render()
}

// PrintMetrics prints one classification report per model, sorted by name.
func PrintMetrics(w io.Writer, metrics map[string]xg.Metrics) {
	names := make([]string, 0, len(metrics))
	for n := range metrics {
		names = append(names, n)
	}
	sort.Strings(names)

	table := newTable(w)
	table.Header("MODEL", "N", "LOG_LOSS", "AUC", "PRECISION", "RECALL", "F1", "BAL_ACC", "THRESHOLD")
	for _, n := range names {
		m := metrics[n]
		table.Append(
			n,
			strconv.Itoa(m.N),
			fmt.Sprintf("%.5f", m.LogLoss),
			fmt.Sprintf("%.2f%%", 100*m.AUC),
			fmt.Sprintf("%.2f%%", 100*m.Precision),
			fmt.Sprintf("%.2f%%", 100*m.Recall),
			fmt.Sprintf("%.2f%%", 100*m.F1),
			fmt.Sprintf("%.2f%%", 100*m.BalancedAccuracy),
			fmt.Sprintf("%.2f", m.Threshold),
		)
	}
	table.Render()
}

func sampleFlag(n int) string {
	switch {
	case n >= 50:
		return "OK"
	case n >= 20:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

// wilsonCI computes the 95% Wilson score confidence interval for a proportion.
// Returns (lo, hi) as fractions in [0, 1].
func wilsonCI(hits, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 1
	}
	z := 1.96
	p := float64(hits) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

package event

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syohex/go-texttable"

	"github.com/bobylevd/rosterbot/app/draw"
	"github.com/bobylevd/rosterbot/app/store"
)

// FormatDraw renders both teams side by side followed by the balance report.
func FormatDraw(res store.DrawResult) string {
	teams := &texttable.TextTable{}
	_ = teams.SetHeader("#", "Team A", "Team B")

	rows := max(len(res.TeamA), len(res.TeamB))
	for i := range rows {
		_ = teams.AddRow(strconv.Itoa(i+1), playerAt(res.TeamA, i), playerAt(res.TeamB, i))
	}

	return teams.Draw() + "\n" + FormatBalance(res.Report)
}

// FormatBalance renders the per-position counts of both teams.
func FormatBalance(b draw.Balance) string {
	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("Position", "A", "B")

	for _, pos := range draw.Positions {
		s := b.Positions[pos]
		_ = tbl.AddRow(pos.Name(), strconv.Itoa(s.A), strconv.Itoa(s.B))
	}
	_ = tbl.AddRow("total", strconv.Itoa(b.Power.A), strconv.Itoa(b.Power.B))

	return tbl.Draw()
}

// FormatRoster renders the list of players with a count per position.
func FormatRoster(players []draw.Player) string {
	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("Name", "Position", "Also plays", "Phone")

	counts := map[draw.Position]int{}
	for _, pl := range players {
		counts[pl.Position]++

		also := make([]string, len(pl.Secondary))
		for i, p := range pl.Secondary {
			also[i] = string(p)
		}
		_ = tbl.AddRow(pl.Name, pl.Position.Name(), strings.Join(also, ","), pl.Phone)
	}

	summary := make([]string, 0, len(draw.Positions))
	for _, pos := range draw.Positions {
		summary = append(summary, fmt.Sprintf("%s: %d", pos, counts[pos]))
	}

	return tbl.Draw() + fmt.Sprintf("\n%d players (%s)", len(players), strings.Join(summary, ", "))
}

// FormatMatches renders the schedule. mvps maps player ids to names.
func FormatMatches(matches []store.Match, mvps map[string]string) string {
	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("ID", "Date", "Time", "Location", "Status", "Score", "MVP")

	for _, m := range matches {
		status := "upcoming"
		if m.Completed {
			status = "played"
		}

		mvp := m.MVPID
		if name, ok := mvps[m.MVPID]; ok {
			mvp = name
		}

		_ = tbl.AddRow(m.ID, m.Date, m.Time, m.Location, status, m.Score(), mvp)
	}

	return tbl.Draw()
}

// FormatReminders renders one reminder link per line and the players who
// can't be reminded.
func FormatReminders(rems store.Reminders) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "reminders for the match on %s at %s, %s\n", rems.Match.Date, rems.Match.Time, rems.Match.Location)

	for _, r := range rems.Links {
		fmt.Fprintf(&sb, "%s: <%s>\n", r.Player.Name, r.Link)
	}
	if len(rems.Links) == 0 {
		sb.WriteString("nobody to remind\n")
	}
	if len(rems.NoPhone) > 0 {
		fmt.Fprintf(&sb, "no phone: %s\n", strings.Join(rems.NoPhone, ", "))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func playerAt(team []draw.Player, idx int) string {
	if idx >= len(team) {
		return ""
	}
	return team[idx].String()
}

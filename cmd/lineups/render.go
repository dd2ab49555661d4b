package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
)

// renderLineups prints one table per lineup in slot order.
func renderLineups(w io.Writer, rules platform.Rules, result *optimizer.OptimizerResult) error {
	if len(result.Lineups) == 0 {
		fmt.Fprintln(w, "No lineup satisfies the roster rules.")
		return nil
	}

	for i, roster := range result.Lineups {
		assigned, err := roster.Assign(rules)
		if err != nil {
			return fmt.Errorf("lineup %d: %w", i+1, err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.SetTitle(fmt.Sprintf("%s lineup #%d", rules.Name, i+1))
		t.AppendHeader(table.Row{"Slot", "ID", "Name", "Team", "Pos", "Salary", "Proj"})
		for _, a := range assigned {
			p := a.Player
			t.AppendRow(table.Row{a.Slot, p.ID, p.Name, p.Team, p.Position, p.Salary, fmt.Sprintf("%.2f", p.ProjectedPoints)})
		}
		t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d teams", roster.TeamCount()), "", roster.Spent(), fmt.Sprintf("%.2f", roster.Projected())})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 6, Align: text.AlignRight, AlignFooter: text.AlignRight},
			{Number: 7, Align: text.AlignRight, AlignFooter: text.AlignRight},
		})
		t.Render()
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d lineups from %d players in %d solver calls (%d rejected, %dms)\n",
		len(result.Lineups), result.PoolSize, result.Attempts, result.Rejected, result.OptimizationTime)
	return nil
}

func renderPlatforms(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Platform", "Salary cap", "Roster", "Max/team", "Min teams", "Upload columns"})
	for _, r := range platform.All() {
		minTeams := "-"
		if r.MinTeams > 0 {
			minTeams = fmt.Sprint(r.MinTeams)
		}
		t.AppendRow(table.Row{r.Name, r.SalaryCap, r.RosterSize, r.MaxPerTeam, minTeams, fmt.Sprint(r.Header())})
	}
	t.Render()
}

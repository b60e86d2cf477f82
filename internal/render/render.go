// Package render turns sync and aggregation results into console output.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/marcin-skalski/grove/internal/github"
	"github.com/marcin-skalski/grove/internal/reposync"
)

var (
	clonedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))  // green
	updatedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	upToDateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	divergedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // yellow
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
)

func statusStyle(s reposync.Status) lipgloss.Style {
	switch s {
	case reposync.StatusCloned:
		return clonedStyle
	case reposync.StatusUpdated:
		return updatedStyle
	case reposync.StatusUpToDate:
		return upToDateStyle
	case reposync.StatusSkipped:
		return skippedStyle
	case reposync.StatusDiverged:
		return divergedStyle
	default:
		return failedStyle
	}
}

// SyncReport writes one line per repository outcome.
func SyncReport(w io.Writer, outcomes []reposync.Outcome) {
	for _, out := range outcomes {
		label := statusStyle(out.Status).Render(out.Status.String())
		line := fmt.Sprintf("%-22s %s", label, out.Repo.FullName())
		switch {
		case out.Err != nil:
			line += ": " + out.Err.Error()
		case out.Reason != "":
			line += " (" + out.Reason + ")"
		case out.Status == reposync.StatusDiverged:
			line += fmt.Sprintf(" (ahead %d, behind %d)", out.Ahead, out.Behind)
		}
		fmt.Fprintln(w, line)
		for _, b := range out.Pruned {
			fmt.Fprintf(w, "%-22s %s: deleted merged branch %s\n", "", out.Repo.FullName(), b)
		}
		if out.LinkErr != nil {
			fmt.Fprintf(w, "%-22s %s: %v\n", skippedStyle.Render("link"), out.Repo.FullName(), out.LinkErr)
		}
	}
}

// IssuesTable writes the aggregated issue/PR report as a table.
func IssuesTable(w io.Writer, result *github.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Query", "Issues", "PRs", "Branch", "Release", "URL"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, r := range result.Repos {
		release := r.LatestRelease
		if release == "" {
			release = "-"
		}
		branch := r.DefaultBranch
		if branch == "" {
			branch = "-"
		}
		table.Append([]string{
			r.Label,
			strconv.Itoa(r.OpenIssues),
			strconv.Itoa(r.OpenPRs),
			branch,
			release,
			r.URL,
		})
	}
	table.Render()
}

// Package tui renders classification results in the terminal.
// Simple, streaming, no complex TUI - just clean styled output.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/proclens/proclens/pkg/classify"
	"github.com/proclens/proclens/pkg/matrix"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// PrintHeader prints the banner shown before an analysis run.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  PROCLENS") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Process structuredness classification from event logs"))
	fmt.Println()
}

// PrintResult prints the classification outcome.
func PrintResult(source string, result classify.Result, elapsed time.Duration) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ CLASSIFICATION COMPLETE"))
	fmt.Println()
	if source != "" {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Source:"), titleStyle.Render(source))
	}
	fmt.Printf("  %s %s\n", mutedStyle.Render("Label:"), accentStyle.Render(result.Label.String()))
	if len(result.MatchedRules) > 0 {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Rules:"), titleStyle.Render(strings.Join(result.MatchedRules, ", ")))
	}
	if elapsed > 0 {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Time:"), titleStyle.Render(formatDuration(elapsed)))
	}
	fmt.Println()
}

// PrintRatios prints the combined-relation ratio table sorted by share.
func PrintRatios(ratios matrix.Ratios) {
	if len(ratios) == 0 {
		fmt.Println(mutedStyle.Render("  (no activity pairs)"))
		return
	}

	type row struct {
		name  string
		ratio float64
	}
	rows := make([]row, 0, len(ratios))
	for cell, ratio := range ratios {
		rows = append(rows, row{
			name:  cell.Temporal.String() + " / " + cell.Existential.String(),
			ratio: ratio,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ratio != rows[j].ratio {
			return rows[i].ratio > rows[j].ratio
		}
		return rows[i].name < rows[j].name
	})

	fmt.Println(mutedStyle.Render("  ─────────────────────────────────────"))
	for _, r := range rows {
		bar := strings.Repeat("█", int(r.ratio*20+0.5))
		fmt.Printf("  %-45s %6.2f%% %s\n", r.name, r.ratio*100, accentStyle.Render(bar))
	}
	fmt.Println(mutedStyle.Render("  ─────────────────────────────────────"))
}

// PrintError prints a failure message.
func PrintError(err error) {
	fmt.Println(accentStyle.Render("  ✗ " + err.Error()))
}

// PrintWatchUpdate prints one re-classification pass in watch mode.
func PrintWatchUpdate(path string, label classify.Label, changed bool, at time.Time) {
	marker := mutedStyle.Render("·")
	if changed {
		marker = accentStyle.Render("▸")
	}
	fmt.Printf("  %s %s %s %s\n",
		mutedStyle.Render(at.Format("15:04:05")),
		marker,
		titleStyle.Render(label.String()),
		mutedStyle.Render(path))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// ShowProgress creates a progress bar for file parsing.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

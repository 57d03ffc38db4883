package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/xrayview/internal/scans"
	"github.com/five82/xrayview/internal/xray"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.list.snapshot

	if !snap.Loaded {
		return m.renderConnectingHeader(styles, bg)
	}

	compact := m.width < 100
	var parts []string
	parts = append(parts, bg.Render("xrayview", styles.Logo))

	if snap.IsOffline() {
		parts = append(parts, bg.Render("● "+classifyConnectionError(snap.LastError), styles.DangerText))
	} else {
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	parts = append(parts,
		bg.Render("Scans:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(snap.Scans)), styles.Text),
	)

	if n := activeFilterCount(m.list.filters); n > 0 {
		parts = append(parts,
			bg.Render("Filters:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", n), styles.AccentText),
		)
	}

	if timeStr := formatTimestamp(snap.LastUpdated, time.Now()); timeStr != "" {
		parts = append(parts, bg.Render(timeStr, styles.MutedText))
	}

	if snap.LastError != nil && !compact {
		errText := truncate(snap.LastError.Error(), 60)
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(errText, styles.DangerText),
		)
	}

	if m.flash != "" {
		parts = append(parts,
			bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.flash, 60), styles.WarningText),
		)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

// renderConnectingHeader shows the state before the first successful load.
func (m Model) renderConnectingHeader(styles Styles, bg BgStyle) string {
	sep := bg.Spaces(2)
	snap := m.list.snapshot

	if snap.LastError != nil {
		parts := []string{
			bg.Render("xrayview", styles.Logo),
			bg.Render("API "+classifyConnectionError(snap.LastError), styles.DangerText.Bold(true)),
			bg.Render("r to retry", styles.WarningText.Bold(true)),
		}
		if m.logPath != "" {
			parts = append(parts,
				bg.Render("logs", styles.FaintText)+bg.Space()+
					bg.Render(truncateMiddle(m.logPath, 50), styles.MutedText))
		}
		return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
	}

	return styles.Header.Width(m.width).Render(
		bg.Render("xrayview", styles.Logo) + sep +
			bg.Render("Connecting to scan service...", styles.WarningText.Bold(true)),
	)
}

func activeFilterCount(f scans.FilterState) int {
	n := 0
	if strings.TrimSpace(f.Search) != "" {
		n++
	}
	for _, field := range scans.Fields {
		if _, ok := f.Get(field); ok {
			n++
		}
	}
	return n
}

// formatTimestamp formats the last update time with a relative indicator.
func formatTimestamp(at, now time.Time) string {
	if at.IsZero() {
		return ""
	}

	since := now.Sub(at)
	s := at.Format("15:04:05")
	switch {
	case since < time.Minute:
		s += " (now)"
	case since < time.Hour:
		s += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		s += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return s
}

// classifyConnectionError returns a short description of a failed request.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}

	var se *xray.ServerError
	if errors.As(err, &se) {
		return fmt.Sprintf("HTTP %d", se.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints for the active screen.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.screen {
	case ScreenDetail:
		commands = []cmd{
			{"esc", "Back"},
			{"r", "Retry"},
			{"o", "Open image"},
			{"j/k", "Scroll"},
			{"?", "More"},
		}
	case ScreenUpload:
		commands = []cmd{
			{"tab", "Next field"},
			{"ctrl+o", "Browse"},
			{"ctrl+s", "Submit"},
			{"esc", "Cancel"},
		}
	default:
		commands = []cmd{
			{"/", "Search"},
			{"b/d/n", "Filter"},
			{"c", "Clear"},
			{"enter", "Details"},
			{"u", "Upload"},
			{"r", "Reload"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.screen == ScreenList && m.list.filters.Search != "" && !m.list.searching {
		segments = append(segments, bg.Render("/"+truncate(m.list.filters.Search, 18), styles.AccentText))
	}

	if m.screen != ScreenUpload {
		segments = append(segments,
			bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

package status

import (
	"fmt"

	"github.com/charlontank/wakeguard/internal/application"
	"github.com/charlontank/wakeguard/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

func renderView(status application.Status, listing application.Listing, s styles) string {
	lines := []string{
		s.title.Render("Wakeguard"),
		s.header.Render(fmt.Sprintf("sessions: %d  sleep prevention: %s  safety: %s",
			status.SessionCount,
			onOff(status.ResourceEnabled),
			string(status.SafetyState),
		)),
	}

	if status.SafetyState == domain.SafetyTripped {
		lines = append(lines, s.warning.Render("Thermal safety latch tripped. Sleep prevention is held off until a session registers."))
	}

	if len(listing.Active) == 0 {
		lines = append(lines, s.empty.Render("No active sessions."))
	} else {
		for _, session := range listing.Active {
			lines = append(lines, s.section.Render(renderSession(session, s)))
		}
	}

	if len(listing.Inactive) > 0 {
		lines = append(lines, s.section.Render(
			s.detail.Render(fmt.Sprintf("idle reporters: %s", formatPIDs(listing.Inactive))),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session application.ActiveSession, s styles) string {
	title := fmt.Sprintf("pid %d", session.ID)
	if session.Origin != "" {
		title = fmt.Sprintf("pid %d  %s", session.ID, session.Origin)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		s.session.Render(title),
		s.detail.Render(fmt.Sprintf("age %s  cpu %.1f%%", formatAge(session.AgeSeconds), session.CPU)),
	)
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func formatAge(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh%02dm", seconds/3600, (seconds%3600)/60)
}

func formatPIDs(pids []int) string {
	out := ""
	for i, pid := range pids {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d", pid)
	}
	return out
}

package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Common styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// RenderSnapshot renders a hub snapshot as the status report
func RenderSnapshot(s *Snapshot) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("xAP Hub"))
	b.WriteString("\n\n")
	b.WriteString(renderHealth(s.Health))
	b.WriteString("\n\n")

	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Clients (%d active / %d registered)", s.Health.ActiveClients, len(s.Clients))))
	b.WriteString("\n")
	if len(s.Clients) == 0 {
		b.WriteString(mutedStyle.Render("  no clients have sent a heartbeat"))
	} else {
		b.WriteString(renderClients(s))
	}
	b.WriteString("\n\n")

	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Remote peers (%d)", len(s.Peers))))
	b.WriteString("\n")
	if len(s.Peers) == 0 {
		b.WriteString(mutedStyle.Render("  no remote heartbeats heard"))
	} else {
		b.WriteString(renderPeers(s))
	}
	b.WriteString("\n")

	return b.String()
}

func renderHealth(h HealthInfo) string {
	state := errorStyle.Render(h.State)
	if h.Connected {
		state = successStyle.Render(h.State)
	}

	lines := []string{
		fmt.Sprintf("State:     %s", state),
		fmt.Sprintf("Source:    %s", h.Source),
		fmt.Sprintf("Topology:  %s", h.Topology),
		fmt.Sprintf("Port:      %d", h.Port),
	}
	if h.DefaultIP != "" {
		lines = append(lines, fmt.Sprintf("Interface: %s (broadcast %s)", h.DefaultIP, h.BroadcastIP))
	}
	if h.UptimeSeconds > 0 {
		lines = append(lines, fmt.Sprintf("Uptime:    %s", time.Duration(h.UptimeSeconds)*time.Second))
	}
	return strings.Join(lines, "\n")
}

func renderClients(s *Snapshot) string {
	t := newTable("PORT", "SOURCE", "INTERVAL", "LAST SEEN", "ACTIVE")
	for _, c := range s.Clients {
		active := "no"
		if c.Active {
			active = "yes"
		}
		t.Row(
			strconv.Itoa(c.Port),
			c.Source,
			fmt.Sprintf("%ds", c.Interval),
			since(s.FetchedAt, c.LastSeen),
			active,
		)
	}
	return t.Render()
}

func renderPeers(s *Snapshot) string {
	t := newTable("SOURCE", "ADDRESS", "CLASS", "INTERVAL", "LAST SEEN")
	for _, p := range s.Peers {
		t.Row(
			p.Source,
			p.Address,
			string(p.Class),
			fmt.Sprintf("%ds", p.Interval),
			since(s.FetchedAt, p.LastSeen),
		)
	}
	return t.Render()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func since(now, then time.Time) string {
	if then.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s ago", now.Sub(then).Round(time.Second))
}

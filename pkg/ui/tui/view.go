package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
 ___ _____  _____   _____  _
| _ \_ _\ \/ /_ _\ \ / /   \| |
|  _/| | >  < | | \ V /| |) | |__
|_| |___/_/\_\___| \_/ |___/|____|`

// frame is a consistent copy of the model taken once per render
type frame struct {
	label                         string
	width, height                 int
	showHelp                      bool
	itemsCompleted, itemsFailed   int
	assetsTotal                   int
	assetsCompleted, assetsFailed int
	permitsInFlight, permitsSize  int
	elapsed                       time.Duration
	logs                          []LogMessage
}

func (m *Model) frame() frame {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := make([]LogMessage, len(m.logMessages))
	copy(logs, m.logMessages)
	return frame{
		label:           m.label,
		width:           m.width,
		height:          m.height,
		showHelp:        m.showHelp,
		itemsCompleted:  m.itemsCompleted,
		itemsFailed:     m.itemsFailed,
		assetsTotal:     m.assetsTotal,
		assetsCompleted: m.assetsCompleted,
		assetsFailed:    m.assetsFailed,
		permitsInFlight: m.permitsInFlight,
		permitsSize:     m.permitsSize,
		elapsed:         time.Since(m.sessionStartTime),
		logs:            logs,
	}
}

// View renders the entire TUI
func (m *Model) View() string {
	f := m.frame()
	if f.width == 0 || f.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, logoStyle.Width(f.width).Render(logo))

	columnWidth := (f.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(f, columnWidth),
		m.renderActivePanel(columnWidth),
		m.renderFinishedPanel(columnWidth),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderPermitPanel(f, columnWidth),
		m.renderLogsPanel(f, columnWidth),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if f.showHelp {
		sections = append(sections, renderHelp(f.width))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(f.width).Height(f.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func statLine(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

// renderStatsPanel renders the run counters
func (m *Model) renderStatsPanel(f frame, width int) string {
	title := titleStyle.Render(" " + strings.ToUpper(f.label) + " ")
	rate, eta := m.GetRate()

	stats := []string{
		statLine("Elapsed:", formatDuration(f.elapsed)),
		statLine("Works:", fmt.Sprintf("%d done, %d failed", f.itemsCompleted, f.itemsFailed)),
		statLine("Files:", fmt.Sprintf("%d/%d", f.assetsCompleted+f.assetsFailed, f.assetsTotal)),
		statLine("Rate:", fmt.Sprintf("%.1f files/min", rate)),
		statLine("ETA:", formatDuration(eta)),
	}
	if f.assetsFailed > 0 {
		stats = append(stats, errorStyle.Render(fmt.Sprintf("✗ %d files failed", f.assetsFailed)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

// renderActivePanel renders works still downloading, each with a file bar
func (m *Model) renderActivePanel(width int) string {
	title := titleStyle.Render(" ACTIVE WORKS ")
	active := m.GetActiveItems()

	if len(active) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for works...")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	const shown = 6
	var rows []string
	for i, item := range active {
		if i == shown {
			rows = append(rows, lipgloss.NewStyle().Foreground(dimWhite).Render(fmt.Sprintf("  ... and %d more", len(active)-shown)))
			break
		}
		rows = append(rows, m.renderItem(item, width-4))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

// renderItem renders one active work
func (m *Model) renderItem(item *WorkItem, width int) string {
	files := "resolving"
	if item.Assets > 0 {
		files = fmt.Sprintf("%d/%d files", item.Done+item.Failed, item.Assets)
	}
	info := fmt.Sprintf("%s %s %s",
		m.spinner.View(),
		itemActiveStyle.Render(fmt.Sprintf("%d", item.ID)),
		lipgloss.NewStyle().Foreground(dimWhite).Render(files),
	)

	bar := m.bar
	bar.Width = width - 4
	if bar.Width < 10 {
		bar.Width = 10
	}
	return lipgloss.JoinVertical(lipgloss.Left, info, bar.ViewAs(item.Progress()))
}

// renderFinishedPanel renders the most recent completed and failed works
func (m *Model) renderFinishedPanel(width int) string {
	title := titleStyle.Render(" FINISHED ")
	completed := m.GetCompletedItems()
	failed := m.GetFailedItems()

	var rows []string
	if len(completed) > 0 {
		rows = append(rows, successStyle.Render(fmt.Sprintf("✓ %d completed", len(completed))))
		for _, item := range lastN(completed, 3) {
			rows = append(rows, itemDoneStyle.Render(fmt.Sprintf("✓ %d → %s", item.ID, filepath.Base(item.Dir))))
		}
	}
	if len(failed) > 0 {
		rows = append(rows, "", errorStyle.Render(fmt.Sprintf("✗ %d failed", len(failed))))
		for _, item := range lastN(failed, 3) {
			rows = append(rows, itemFailedStyle.Render(fmt.Sprintf("✗ %d: %v", item.ID, item.Error)))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(dimWhite).Render("Nothing finished yet"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func lastN(items []*WorkItem, n int) []*WorkItem {
	if len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

// renderPermitPanel renders how much of the shared request pool is in use
func (m *Model) renderPermitPanel(f frame, width int) string {
	title := titleStyle.Render(" REQUEST PERMITS ")

	if f.permitsSize == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("No permit pool")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	usage := float64(f.permitsInFlight) / float64(f.permitsSize) * 100
	barWidth := width - 8
	if barWidth < 1 {
		barWidth = 1
	}
	filled := int(usage * float64(barWidth) / 100)
	if filled > barWidth {
		filled = barWidth
	}

	style := GetPermitStyle(usage)
	bar := style.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	content := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("In flight:"),
			style.Render(fmt.Sprintf("%d/%d (%.0f%%)", f.permitsInFlight, f.permitsSize, usage))),
		bar,
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(f frame, width int) string {
	title := titleStyle.Render(" LOG ")

	var logs []string
	for _, log := range lastLogs(f.logs, 10) {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		message := log.Message
		if maxLen := width - 25; maxLen > 3 && len(message) > maxLen {
			message = message[:maxLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(message)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := f.height - 30
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func lastLogs(logs []LogMessage, n int) []LogMessage {
	if len(logs) > n {
		return logs[len(logs)-n:]
	}
	return logs
}

// renderHelp renders the help panel
func renderHelp(width int) string {
	help := `
  Keys:
    q/Q      - Stop the run and quit
    ctrl+l   - Clear the log
    ?        - Toggle this help

  Colors:
    ` + successStyle.Render("Green") + `    - Completed / permits available
    ` + warningStyle.Render("Orange") + `   - Permit pool busy
    ` + errorStyle.Render("Red") + `      - Failed / permit pool saturated
`

	return panelStyle.Width(width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

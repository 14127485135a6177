package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	pixivBlue   = lipgloss.Color("#0096FA")
	skyBlue     = lipgloss.Color("#7FD3FF")
	softGreen   = lipgloss.Color("#4CD787")
	amber       = lipgloss.Color("#FFB347")
	alertRed    = lipgloss.Color("#FF4D4D")
	darkBg      = lipgloss.Color("#10141C")
	panelBg     = lipgloss.Color("#1A2030")
	dimWhite    = lipgloss.Color("#B0B0B0")
	faintGray   = lipgloss.Color("#626262")
	emptyBarBg  = lipgloss.Color("#333333")
	timestampFg = lipgloss.Color("#666666")

	baseStyle = lipgloss.NewStyle().
			Background(darkBg).
			Foreground(dimWhite)

	logoStyle = lipgloss.NewStyle().
			Foreground(pixivBlue).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(pixivBlue).
			Background(panelBg).
			Padding(1, 2)

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(emptyBarBg)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().
			Foreground(softGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(alertRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	itemActiveStyle = lipgloss.NewStyle().
			Foreground(softGreen).
			Bold(true).
			PaddingLeft(2)

	itemDoneStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true).
			PaddingLeft(2)

	itemFailedStyle = lipgloss.NewStyle().
			Foreground(alertRed).
			PaddingLeft(2)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(timestampFg)

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(faintGray).
			Padding(1, 0, 0, 2)

	titleStyle = lipgloss.NewStyle().
			Background(pixivBlue).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	permitNormalStyle = lipgloss.NewStyle().
				Foreground(softGreen)

	permitBusyStyle = lipgloss.NewStyle().
			Foreground(amber)

	permitSaturatedStyle = lipgloss.NewStyle().
				Foreground(alertRed)
)

// GetPermitStyle returns the style for a permit pool usage percentage.
// A saturated pool means requests are queueing for a permit.
func GetPermitStyle(usage float64) lipgloss.Style {
	switch {
	case usage >= 100:
		return permitSaturatedStyle
	case usage >= 70:
		return permitBusyStyle
	default:
		return permitNormalStyle
	}
}

func levelColor(level string) lipgloss.Color {
	switch level {
	case "ERROR":
		return alertRed
	case "WARN":
		return amber
	case "SUCCESS":
		return softGreen
	case "INFO":
		return skyBlue
	}
	return dimWhite
}

package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"pixivdl/pkg/models"
)

// Message types for the TUI

// ItemStartMsg is sent when a worker picks up a work
type ItemStartMsg struct {
	ID uint64
}

// ItemResolvedMsg is sent once a work's files and directory are known
type ItemResolvedMsg struct {
	ID     uint64
	Dir    string
	Assets int
}

// AssetCompleteMsg is sent when a file has been written
type AssetCompleteMsg struct {
	ID   uint64
	File string
}

// AssetErrorMsg is sent when a file failed on every try
type AssetErrorMsg struct {
	ID    uint64
	File  string
	Tries int
	Error error
}

// ItemCompleteMsg is sent when every file of a work has been written
type ItemCompleteMsg struct {
	ID uint64
}

// ItemErrorMsg is sent when a work failed
type ItemErrorMsg struct {
	ID    uint64
	Error error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// FinishMsg ends the dashboard with the run report
type FinishMsg struct {
	Report *models.RunReport
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mu.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.mu.Unlock()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.samplePermits()
		return m, tickCmd()

	case ItemStartMsg:
		m.StartItem(msg.ID)
		return m, nil

	case ItemResolvedMsg:
		m.ResolveItem(msg.ID, msg.Dir, msg.Assets)
		return m, nil

	case AssetCompleteMsg:
		m.CompleteAsset(msg.ID)
		return m, nil

	case AssetErrorMsg:
		m.FailAsset(msg.ID)
		m.AddLogMessage("ERROR", fmt.Sprintf("%s (%d tries): %v", msg.File, msg.Tries, msg.Error))
		return m, nil

	case ItemCompleteMsg:
		m.CompleteItem(msg.ID)
		return m, nil

	case ItemErrorMsg:
		m.FailItem(msg.ID, msg.Error)
		m.AddLogMessage("ERROR", fmt.Sprintf("work %d: %v", msg.ID, msg.Error))
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case FinishMsg:
		m.mu.Lock()
		m.report = msg.Report
		m.mu.Unlock()
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.Report() == nil && m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.mu.Lock()
		m.showHelp = !m.showHelp
		m.mu.Unlock()
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

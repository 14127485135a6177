package tui

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"pixivdl/pkg/models"
	"pixivdl/pkg/ratelimit"
	"pixivdl/pkg/ui"
)

var _ ui.Reporter = (*TUI)(nil)

// TUI is a full-screen download dashboard. It implements ui.Reporter, so a
// run can report into it directly.
type TUI struct {
	program *tea.Program
	model   *Model
	out     io.Writer

	startOnce sync.Once
	done      chan struct{}
	err       error
}

// NewTUI creates a dashboard. out receives the run summary after the
// dashboard closes; onQuit is called if the user quits early.
func NewTUI(label string, permits ratelimit.Limiter, onQuit func(), out io.Writer, opts ...tea.ProgramOption) *TUI {
	model := NewModel(label, permits, onQuit)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}

	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
		out:     out,
		done:    make(chan struct{}),
	}
}

// Start runs the dashboard in the background. Reporter calls block until it
// has been started.
func (t *TUI) Start() {
	t.startOnce.Do(func() {
		go func() {
			defer close(t.done)
			_, t.err = t.program.Run()
		}()
	})
}

// Wait blocks until the dashboard has exited
func (t *TUI) Wait() error {
	<-t.done
	return t.err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) ItemStarted(id uint64) {
	t.Send(ItemStartMsg{ID: id})
}

func (t *TUI) ItemResolved(id uint64, dir string, assets int) {
	t.Send(ItemResolvedMsg{ID: id, Dir: dir, Assets: assets})
}

func (t *TUI) AssetCompleted(id uint64, file string) {
	t.Send(AssetCompleteMsg{ID: id, File: file})
}

func (t *TUI) AssetFailed(id uint64, file string, tries int, err error) {
	t.Send(AssetErrorMsg{ID: id, File: file, Tries: tries, Error: err})
}

func (t *TUI) ItemCompleted(id uint64) {
	t.Send(ItemCompleteMsg{ID: id})
}

func (t *TUI) ItemFailed(id uint64, err error) {
	t.Send(ItemErrorMsg{ID: id, Error: err})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogSuccess logs a success message
func (t *TUI) LogSuccess(format string, args ...interface{}) {
	t.Log("SUCCESS", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}

// Finish closes the dashboard and prints the summary below the shell prompt
func (t *TUI) Finish(report *models.RunReport) {
	t.Start()
	t.Send(FinishMsg{Report: report})
	_ = t.Wait()
	if t.out != nil {
		ui.PrintSummary(t.out, t.model.label, report)
	}
}

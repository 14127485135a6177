package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pixivdl/pkg/models"
	"pixivdl/pkg/ratelimit"
)

// ItemState is the state of one work in the dashboard
type ItemState int

const (
	ItemActive ItemState = iota
	ItemCompleted
	ItemFailed
)

// WorkItem is the dashboard view of one work being downloaded
type WorkItem struct {
	ID        uint64
	Dir       string
	Assets    int
	Done      int
	Failed    int
	State     ItemState
	StartTime time.Time
	Error     error
}

// Progress is the fraction of the work's files that finished
func (w *WorkItem) Progress() float64 {
	if w.Assets == 0 {
		return 0
	}
	p := float64(w.Done+w.Failed) / float64(w.Assets)
	if p > 1 {
		p = 1
	}
	return p
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of the download dashboard
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	label string
	items map[uint64]*WorkItem
	order []uint64

	itemsCompleted  int
	itemsFailed     int
	assetsTotal     int
	assetsCompleted int
	assetsFailed    int

	permits         ratelimit.Limiter
	permitsInFlight int
	permitsSize     int

	sessionStartTime time.Time
	report           *models.RunReport
	onQuit           func()

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// NewModel creates a dashboard model. permits is sampled on every tick and
// may be nil; onQuit is called when the user quits before the run finished.
func NewModel(label string, permits ratelimit.Limiter, onQuit func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(pixivBlue)

	bar := progress.New(progress.WithGradient(string(pixivBlue), string(skyBlue)))
	bar.Width = 40

	m := &Model{
		spinner:          s,
		bar:              bar,
		label:            label,
		items:            make(map[uint64]*WorkItem),
		permits:          permits,
		onQuit:           onQuit,
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
	}
	m.samplePermits()
	return m
}

// Init starts the spinner and the refresh tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// StartItem records a work whose download started
func (m *Model) StartItem(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	m.items[id] = &WorkItem{ID: id, State: ItemActive, StartTime: time.Now()}
}

// ResolveItem records the directory and file count of a work
func (m *Model) ResolveItem(id uint64, dir string, assets int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		item.Dir = dir
		item.Assets = assets
	}
	m.assetsTotal += assets
}

// CompleteAsset counts a finished file
func (m *Model) CompleteAsset(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		item.Done++
	}
	m.assetsCompleted++
}

// FailAsset counts a permanently failed file
func (m *Model) FailAsset(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		item.Failed++
	}
	m.assetsFailed++
}

// CompleteItem marks a work as completed
func (m *Model) CompleteItem(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		item.State = ItemCompleted
	}
	m.itemsCompleted++
}

// FailItem marks a work as failed
func (m *Model) FailItem(id uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		item.State = ItemFailed
		item.Error = err
	}
	m.itemsFailed++
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// samplePermits copies the permit pool gauge into the model
func (m *Model) samplePermits() {
	if m.permits == nil {
		return
	}
	inFlight, size := m.permits.InFlight(), m.permits.Size()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.permitsInFlight = inFlight
	m.permitsSize = size
}

// Report returns the run report once the run finished, nil before
func (m *Model) Report() *models.RunReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report
}

// itemsInState returns the works in state, oldest first
func (m *Model) itemsInState(state ItemState) []*WorkItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*WorkItem
	for _, id := range m.order {
		if item := m.items[id]; item != nil && item.State == state {
			out = append(out, item)
		}
	}
	return out
}

// GetActiveItems returns works that are still downloading
func (m *Model) GetActiveItems() []*WorkItem { return m.itemsInState(ItemActive) }

// GetCompletedItems returns finished works
func (m *Model) GetCompletedItems() []*WorkItem { return m.itemsInState(ItemCompleted) }

// GetFailedItems returns failed works
func (m *Model) GetFailedItems() []*WorkItem { return m.itemsInState(ItemFailed) }

// GetRate returns finished files per minute and the estimated time left for
// files already known
func (m *Model) GetRate() (perMinute float64, eta time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.sessionStartTime)
	if elapsed.Minutes() > 0 {
		perMinute = float64(m.assetsCompleted) / elapsed.Minutes()
	}

	done := m.assetsCompleted + m.assetsFailed
	remaining := m.assetsTotal - done
	if done > 0 && remaining > 0 {
		eta = elapsed / time.Duration(done) * time.Duration(remaining)
	}
	return perMinute, eta
}

package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"pixivdl/pkg/models"
)

// ProgressDisplay provides a clean, minimal progress display. On a terminal
// it redraws a single status line; otherwise it only prints failures, log
// lines and the final summary.
type ProgressDisplay struct {
	mu          sync.Mutex
	out         io.Writer
	label       string
	tracker     *StatusTracker
	current     uint64
	interactive bool
	isDebug     bool
	lineDrawn   bool
}

// NewProgressDisplay creates a progress display writing to out
func NewProgressDisplay(out io.Writer, label string, interactive, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:         out,
		label:       label,
		tracker:     NewStatusTracker(),
		interactive: interactive,
		isDebug:     debug,
	}
}

// Stats returns the counters collected so far
func (p *ProgressDisplay) Stats() RunStats {
	return p.tracker.Snapshot()
}

func (p *ProgressDisplay) ItemStarted(id uint64) {
	p.tracker.ItemStarted()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = id
	p.printProgress()
}

func (p *ProgressDisplay) ItemResolved(id uint64, dir string, assets int) {
	p.tracker.AssetsResolved(assets)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isDebug {
		p.printLine(fmt.Sprintf("%s %d • %d files → %s", Magenta("→"), id, assets, dir))
		return
	}
	p.printProgress()
}

func (p *ProgressDisplay) AssetCompleted(id uint64, file string) {
	p.tracker.AssetCompleted()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isDebug {
		p.printLine(fmt.Sprintf("%s %s", Green("✓"), file))
		return
	}
	p.printProgress()
}

// AssetFailed always prints, so every permanently failed file is visible
func (p *ProgressDisplay) AssetFailed(id uint64, file string, tries int, err error) {
	p.tracker.AssetFailed()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.printLine(fmt.Sprintf("%s %s (%d tries): %v", Red("✗"), file, tries, err))
	p.printProgress()
}

func (p *ProgressDisplay) ItemCompleted(id uint64) {
	p.tracker.ItemCompleted()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.printProgress()
}

// ItemFailed prints the item error, which for partial items is a file count
func (p *ProgressDisplay) ItemFailed(id uint64, err error) {
	p.tracker.ItemFailed()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.printLine(fmt.Sprintf("%s work %d: %v", Red("✗"), id, err))
	p.printProgress()
}

func (p *ProgressDisplay) LogInfo(format string, args ...interface{}) {
	p.log(Cyan("•"), format, args...)
}

func (p *ProgressDisplay) LogSuccess(format string, args ...interface{}) {
	p.log(Green("✓"), format, args...)
}

func (p *ProgressDisplay) LogWarning(format string, args ...interface{}) {
	p.log(Yellow("⚠"), format, args...)
}

func (p *ProgressDisplay) LogError(format string, args ...interface{}) {
	p.log(Red("✗"), format, args...)
}

func (p *ProgressDisplay) log(prefix, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printLine(prefix + " " + fmt.Sprintf(format, args...))
}

// Finish prints the run summary
func (p *ProgressDisplay) Finish(report *models.RunReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lineDrawn {
		fmt.Fprintln(p.out)
		p.lineDrawn = false
	}

	PrintSummary(p.out, p.label, report)
}

// printLine prints a full line, clearing the status line first
func (p *ProgressDisplay) printLine(line string) {
	if p.lineDrawn {
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 120))
		p.lineDrawn = false
	}
	fmt.Fprintln(p.out, line)
}

// printProgress redraws the status line
func (p *ProgressDisplay) printProgress() {
	if !p.interactive || p.isDebug {
		return
	}
	s := p.tracker.Snapshot()

	line := fmt.Sprintf("%s [%s] %d/%d files • %d works • %.1f/min",
		Cyan(p.label),
		renderBar(s.AssetsDone(), s.AssetsTotal, 20),
		s.AssetsDone(),
		s.AssetsTotal,
		s.ItemsDone(),
		p.rate(s),
	)
	if p.current != 0 {
		line += fmt.Sprintf(" • %d", p.current)
	}
	if failed := s.AssetsFailed + s.ItemsFailed; failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", failed)))
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
	p.lineDrawn = true
}

func (p *ProgressDisplay) rate(s RunStats) float64 {
	if s.Elapsed.Minutes() == 0 {
		return 0
	}
	return float64(s.AssetsCompleted) / s.Elapsed.Minutes()
}

// PrintSummary writes the end-of-run summary of report, listing every failure
func PrintSummary(w io.Writer, label string, report *models.RunReport) {
	mark := Green("✓")
	if report.Failed() {
		mark = Red("✗")
	}
	fmt.Fprintf(w, "%s %s: %d works, %d files in %s\n",
		mark,
		label,
		report.ItemsCompleted,
		report.AssetsCompleted,
		formatDuration(report.Duration()),
	)
	if report.ItemsSkipped > 0 {
		fmt.Fprintf(w, "  %s %d already on disk\n", Dim("•"), report.ItemsSkipped)
	}
	if report.ItemsFailed > 0 {
		fmt.Fprintf(w, "  %s %d works failed, %d files failed\n", Dim("•"), report.ItemsFailed, report.AssetsFailed)
		for _, f := range report.Failures {
			if f.File != "" {
				fmt.Fprintf(w, "    %s %s (%d tries): %s\n", Red("✗"), f.File, f.Tries, f.Error)
			} else {
				fmt.Fprintf(w, "    %s work %d: %s\n", Red("✗"), f.ItemID, f.Error)
			}
		}
	}
	if report.DiscoveryError != "" {
		fmt.Fprintf(w, "  %s discovery stopped: %s\n", Red("✗"), report.DiscoveryError)
	}
}

package ui

import "pixivdl/pkg/models"

// Reporter receives the progress of a download run. Implementations must be
// safe for concurrent use; the run calls them from its result loop and from
// engine workers.
type Reporter interface {
	ItemStarted(id uint64)
	ItemResolved(id uint64, dir string, assets int)
	AssetCompleted(id uint64, file string)
	AssetFailed(id uint64, file string, tries int, err error)
	ItemCompleted(id uint64)
	ItemFailed(id uint64, err error)
	LogInfo(format string, args ...interface{})
	LogSuccess(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
	Finish(report *models.RunReport)
}

// NopReporter discards everything
type NopReporter struct{}

func (NopReporter) ItemStarted(uint64)                     {}
func (NopReporter) ItemResolved(uint64, string, int)       {}
func (NopReporter) AssetCompleted(uint64, string)          {}
func (NopReporter) AssetFailed(uint64, string, int, error) {}
func (NopReporter) ItemCompleted(uint64)                   {}
func (NopReporter) ItemFailed(uint64, error)               {}
func (NopReporter) LogInfo(string, ...interface{})         {}
func (NopReporter) LogSuccess(string, ...interface{})      {}
func (NopReporter) LogWarning(string, ...interface{})      {}
func (NopReporter) LogError(string, ...interface{})        {}
func (NopReporter) Finish(*models.RunReport)               {}

package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixivdl/internal/downloader"
	"pixivdl/pkg/checkpoint"
	"pixivdl/pkg/config"
	"pixivdl/pkg/discovery"
	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/storage"
	"pixivdl/pkg/ui"
)

// DefaultQueueSize is the buffer between discovery and the download engine
const DefaultQueueSize = 1024

// API is everything a run needs from the pixiv client
type API interface {
	discovery.API
	downloader.API
	Novel(ctx context.Context, novelID uint64) (*pixiv.Novel, error)
}

// Options configure one run
type Options struct {
	// BaseDir is where collections are created
	BaseDir string
	// Incremental skips works already present under IndexDir, or under
	// BaseDir when IndexDir is empty
	Incremental     bool
	IndexDir        string
	FastIncremental bool
	NamedDir        bool
	// WriteUpdateFile writes a .pixiv_update descriptor after a clean,
	// non-incremental run of a non-individual source
	WriteUpdateFile bool
	QueueSize       int
	PageLimit       int
	Download        downloader.Options
}

// OptionsFromConfig maps the download and output sections of cfg onto run options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := models.ParseDirPolicy(cfg.Download.DirPolicy)
	if err != nil {
		return Options{}, err
	}

	dl := downloader.DefaultOptions()
	dl.Workers = cfg.Client.MaxConcurrentRequests
	dl.MaxTries = cfg.Download.MaxTries
	dl.Timeout = cfg.Download.TransferTimeout
	dl.RetryDelay = cfg.Download.RetryDelay
	dl.DirPolicy = policy
	dl.Ugoira = cfg.Download.Ugoira
	dl.SaveMetadata = cfg.Download.SaveMetadata

	return Options{
		BaseDir:         cfg.Output.BaseDirectory,
		FastIncremental: cfg.Download.FastIncremental,
		NamedDir:        cfg.Download.NamedDir,
		WriteUpdateFile: cfg.Download.WriteUpdateFile,
		Download:        dl,
	}, nil
}

// Scraper runs discovery and downloads against the pixiv API
type Scraper struct {
	api      API
	reporter ui.Reporter
	logger   logger.Logger
}

// New creates a new Scraper instance
func New(api API, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		api:      api,
		reporter: ui.NopReporter{},
		logger:   log,
	}
}

// SetReporter sets where progress is reported; nil discards it
func (s *Scraper) SetReporter(r ui.Reporter) {
	if r == nil {
		r = ui.NopReporter{}
	}
	s.reporter = r
}

// Run discovers every work of src and downloads it. Discovery and downloads
// run concurrently; item and file failures are recorded in the report and do
// not stop the run. A discovery error stops discovery, waits for the items
// already queued and is returned together with the report.
func (s *Scraper) Run(ctx context.Context, src models.Source, opts Options) (*models.RunReport, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := s.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"source": src.String(),
	})

	report := &models.RunReport{
		RunID:     runID,
		Source:    src,
		StartedAt: time.Now(),
	}

	var index *storage.FileIndex
	if opts.Incremental {
		root := opts.IndexDir
		if root == "" {
			root = opts.BaseDir
		}
		idx, err := storage.BuildIndex(root)
		if err != nil {
			return nil, fmt.Errorf("build incremental index of %s: %w", root, err)
		}
		index = idx
		log.InfoWithFields("Incremental index built", map[string]interface{}{
			"root":  root,
			"files": idx.Len(),
		})
	}

	disc := discovery.NewEngine(s.api, discovery.Options{
		Index:           index,
		FastIncremental: opts.FastIncremental,
		NamedDir:        opts.NamedDir,
		PageLimit:       opts.PageLimit,
	}, log)

	dlOpts := opts.Download
	dlOpts.OnEvent = s.forwardEvent
	engine := downloader.NewEngine(s.api, dlOpts, log)

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	queue := make(chan models.WorkItem, queueSize)

	log.Info("Run started")
	s.reporter.LogInfo("Downloading %s", src.String())

	var (
		stats   discovery.Stats
		discErr error
	)
	discDone := make(chan struct{})
	go func() {
		defer close(discDone)
		defer close(queue)
		stats, discErr = disc.Discover(ctx, src, opts.BaseDir, queue)
	}()

	var collection *models.DirFuture
	for result := range engine.Run(ctx, queue) {
		if collection == nil {
			collection = result.Item.Dir
		}
		recordResult(report, result)
	}
	<-discDone

	report.ItemsDiscovered = stats.Emitted
	report.ItemsSkipped = stats.Skipped
	report.FinishedAt = time.Now()

	if discErr != nil {
		report.DiscoveryError = discErr.Error()
		s.reporter.LogError("Discovery stopped: %v", discErr)
	}

	if opts.WriteUpdateFile && !opts.Incremental && src.Kind != models.SourceIndividual && !report.Failed() {
		dir := opts.BaseDir
		if collection != nil {
			if resolved, ok := collection.Resolved(); ok {
				dir = resolved
			}
		}
		if err := checkpoint.NewManager(dir, log).Save(src, dlOpts.DirPolicy); err != nil {
			log.WithError(err).Warn("Failed to write update file")
			s.reporter.LogWarning("Could not write update file: %v", err)
		}
	}

	log.InfoWithFields("Run finished", map[string]interface{}{
		"discovered":       report.ItemsDiscovered,
		"skipped":          report.ItemsSkipped,
		"items_completed":  report.ItemsCompleted,
		"items_failed":     report.ItemsFailed,
		"assets_completed": report.AssetsCompleted,
		"assets_failed":    report.AssetsFailed,
		"duration":         report.Duration().String(),
	})
	s.reporter.Finish(report)

	if discErr != nil {
		return report, fmt.Errorf("discover %s: %w", src.String(), discErr)
	}
	return report, nil
}

// recordResult folds one item outcome into the report
func recordResult(report *models.RunReport, result downloader.ItemResult) {
	report.AssetsCompleted += result.Completed
	report.AssetsFailed += len(result.Failures)
	report.Failures = append(report.Failures, result.Failures...)

	switch {
	case result.Err != nil:
		report.ItemsFailed++
		report.Failures = append(report.Failures, models.Failure{
			ItemID: result.Item.ID,
			Error:  result.Err.Error(),
		})
	case len(result.Failures) > 0:
		report.ItemsFailed++
	default:
		report.ItemsCompleted++
	}
}

// forwardEvent translates engine events into reporter calls
func (s *Scraper) forwardEvent(ev downloader.Event) {
	switch ev.Type {
	case downloader.EventItemStarted:
		s.reporter.ItemStarted(ev.ItemID)
	case downloader.EventItemResolved:
		s.reporter.ItemResolved(ev.ItemID, ev.File, ev.Assets)
	case downloader.EventAssetCompleted:
		s.reporter.AssetCompleted(ev.ItemID, ev.File)
	case downloader.EventAssetFailed:
		s.reporter.AssetFailed(ev.ItemID, ev.File, ev.Tries, ev.Err)
	case downloader.EventItemCompleted:
		s.reporter.ItemCompleted(ev.ItemID)
	case downloader.EventItemFailed:
		s.reporter.ItemFailed(ev.ItemID, ev.Err)
	}
}

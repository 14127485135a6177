package scraper

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixivdl/internal/downloader"
	"pixivdl/internal/pixivtest"
	"pixivdl/pkg/checkpoint"
	"pixivdl/pkg/config"
	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/ratelimit"
)

func newTestScraper(t *testing.T, srv *pixivtest.Server) (*Scraper, *recordingReporter) {
	t.Helper()
	pool := ratelimit.NewPermitPool(4)
	t.Cleanup(pool.Close)

	client := pixiv.NewClient(pixiv.Options{BaseURL: srv.URL()}, pool, logger.NewNopLogger())
	s := New(client, logger.NewNopLogger())
	rec := &recordingReporter{}
	s.SetReporter(rec)
	return s, rec
}

func testOptions(dir string, policy models.DirPolicy) Options {
	dl := downloader.DefaultOptions()
	dl.Workers = 4
	dl.RetryDelay = 0
	dl.Timeout = 5 * time.Second
	dl.DirPolicy = policy
	return Options{
		BaseDir:         dir,
		WriteUpdateFile: true,
		Download:        dl,
	}
}

// recordingReporter counts reporter calls
type recordingReporter struct {
	mu       sync.Mutex
	started  int
	resolved int
	assets   int
	failed   []string
	finished []*models.RunReport
}

func (r *recordingReporter) ItemStarted(uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingReporter) ItemResolved(uint64, string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved++
}

func (r *recordingReporter) AssetCompleted(uint64, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets++
}

func (r *recordingReporter) AssetFailed(_ uint64, file string, _ int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, file)
}

func (r *recordingReporter) ItemCompleted(uint64)              {}
func (r *recordingReporter) ItemFailed(uint64, error)          {}
func (r *recordingReporter) LogInfo(string, ...interface{})    {}
func (r *recordingReporter) LogSuccess(string, ...interface{}) {}
func (r *recordingReporter) LogWarning(string, ...interface{}) {}
func (r *recordingReporter) LogError(string, ...interface{})   {}

func (r *recordingReporter) Finish(report *models.RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, report)
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, path)
	assert.Equal(t, pixivtest.FileContent(filepath.Base(path)), data)
}

func TestRunUserPosts(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(10, 1)
	srv.AddWork(21, 2)
	srv.SetProfile(7, []uint64{21}, []uint64{10})

	dir := t.TempDir()
	s, rec := newTestScraper(t, srv)

	report, err := s.Run(context.Background(), models.UserPosts(7, nil), testOptions(dir, models.DirPolicyAuto))
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.ItemsDiscovered)
	assert.Equal(t, 2, report.ItemsCompleted)
	assert.Equal(t, 3, report.AssetsCompleted)
	assert.False(t, report.Failed())
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	assertFile(t, filepath.Join(dir, "10_p0.png"))
	assertFile(t, filepath.Join(dir, "21", "21_p0.png"))
	assertFile(t, filepath.Join(dir, "21", "21_p1.png"))

	upd, err := checkpoint.NewManager(dir, nil).Load()
	require.NoError(t, err)
	require.NotNil(t, upd)
	assert.Equal(t, models.UserPosts(7, nil), upd.Source)
	assert.Equal(t, models.DirPolicyAuto, upd.DirPolicy)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.started)
	assert.Equal(t, 2, rec.resolved)
	assert.Equal(t, 3, rec.assets)
	require.Len(t, rec.finished, 1)
	assert.Same(t, report, rec.finished[0])
}

func TestRunIndividualWritesNoUpdateFile(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(10, 1)

	dir := t.TempDir()
	s, _ := newTestScraper(t, srv)

	report, err := s.Run(context.Background(), models.Individual(10), testOptions(dir, models.DirPolicyNever))
	require.NoError(t, err)
	assert.Equal(t, 1, report.ItemsCompleted)
	assertFile(t, filepath.Join(dir, "10_p0.png"))
	assert.NoFileExists(t, filepath.Join(dir, checkpoint.FileName))
}

func TestRunIncrementalSkipsPresentWorks(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(10, 1)
	srv.AddWork(21, 1)
	srv.SetProfile(7, []uint64{21, 10}, nil)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10_p0.png"), []byte("old"), 0644))

	s, _ := newTestScraper(t, srv)
	opts := testOptions(dir, models.DirPolicyNever)
	opts.Incremental = true

	report, err := s.Run(context.Background(), models.UserPosts(7, nil), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ItemsDiscovered)
	assert.Equal(t, 1, report.ItemsSkipped)
	assert.Equal(t, 1, report.ItemsCompleted)
	assertFile(t, filepath.Join(dir, "21_p0.png"))

	data, err := os.ReadFile(filepath.Join(dir, "10_p0.png"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assert.Empty(t, srv.Requests("/ajax/illust/10"))
	assert.NoFileExists(t, filepath.Join(dir, checkpoint.FileName), "incremental runs never write an update file")
}

func TestRunRecordsFailuresWithoutStopping(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(10, 1)
	srv.SetWorkError(10, "restricted")
	srv.AddWork(21, 2)
	srv.FailFile("21_p1.png", 10)
	srv.AddWork(32, 1)
	srv.SetProfile(7, []uint64{32, 21, 10}, nil)

	dir := t.TempDir()
	s, rec := newTestScraper(t, srv)

	report, err := s.Run(context.Background(), models.UserPosts(7, nil), testOptions(dir, models.DirPolicyNever))
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Equal(t, 1, report.ItemsCompleted)
	assert.Equal(t, 2, report.ItemsFailed)
	assert.Equal(t, 2, report.AssetsCompleted)
	assert.Equal(t, 1, report.AssetsFailed)

	require.Len(t, report.Failures, 2)
	byItem := map[uint64]models.Failure{}
	for _, f := range report.Failures {
		byItem[f.ItemID] = f
	}
	assert.Equal(t, filepath.Join(dir, "21_p1.png"), byItem[21].File)
	assert.Equal(t, downloader.DefaultMaxTries, byItem[21].Tries)
	assert.Empty(t, byItem[10].File)
	assert.Contains(t, byItem[10].Error, "restricted")

	assertFile(t, filepath.Join(dir, "32_p0.png"))
	assert.NoFileExists(t, filepath.Join(dir, checkpoint.FileName))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{filepath.Join(dir, "21_p1.png")}, rec.failed)
}

func TestRunDiscoveryError(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()

	s, rec := newTestScraper(t, srv)
	report, err := s.Run(context.Background(), models.Series(99), testOptions(t.TempDir(), models.DirPolicyAlways))

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.Application)
	require.NotNil(t, report)
	assert.NotEmpty(t, report.DiscoveryError)
	assert.True(t, report.Failed())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.finished, 1)
}

func TestRunRejectsInvalidSource(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()

	s, _ := newTestScraper(t, srv)
	_, err := s.Run(context.Background(), models.Individual(), testOptions(t.TempDir(), models.DirPolicyAlways))
	assert.Error(t, err)
	assert.Zero(t, srv.RequestCount())
}

func TestRunNamedSeriesWritesUpdateFileInSeriesDir(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(10, 1)
	srv.AddWork(21, 1)
	srv.AddWork(32, 1)
	srv.AddSeries(3, "Foo", 2, 10, 21, 32)

	dir := t.TempDir()
	s, _ := newTestScraper(t, srv)
	opts := testOptions(dir, models.DirPolicyNever)
	opts.NamedDir = true

	report, err := s.Run(context.Background(), models.Series(3), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, report.ItemsCompleted)

	seriesDir := filepath.Join(dir, "Foo")
	for _, name := range []string{"10_p0.png", "21_p0.png", "32_p0.png"} {
		assertFile(t, filepath.Join(seriesDir, name))
	}
	assert.FileExists(t, filepath.Join(seriesDir, checkpoint.FileName))
	assert.NoFileExists(t, filepath.Join(dir, checkpoint.FileName))
}

func TestUpdateReplaysDescriptor(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(10, 2)
	srv.SetProfile(7, []uint64{10}, nil)

	dir := t.TempDir()
	s, _ := newTestScraper(t, srv)

	_, err := s.Run(context.Background(), models.UserPosts(7, nil), testOptions(dir, models.DirPolicyAlways))
	require.NoError(t, err)
	descriptor, err := os.ReadFile(filepath.Join(dir, checkpoint.FileName))
	require.NoError(t, err)

	srv.AddWork(21, 1)
	srv.SetProfile(7, []uint64{21, 10}, nil)

	// the stored policy wins over the one passed in
	report, err := s.Update(context.Background(), dir, testOptions(t.TempDir(), models.DirPolicyNever))
	require.NoError(t, err)
	assert.Equal(t, 1, report.ItemsSkipped)
	assert.Equal(t, 1, report.ItemsCompleted)
	assertFile(t, filepath.Join(dir, "21", "21_p0.png"))

	after, err := os.ReadFile(filepath.Join(dir, checkpoint.FileName))
	require.NoError(t, err)
	assert.Equal(t, descriptor, after, "update leaves the descriptor untouched")
}

func TestUpdateWithoutDescriptor(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()

	s, _ := newTestScraper(t, srv)
	_, err := s.Update(context.Background(), t.TempDir(), testOptions("", models.DirPolicyAlways))
	require.Error(t, err)
	assert.Contains(t, err.Error(), checkpoint.FileName)
}

func TestDownloadNovel(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddNovel(500, "A Tale", "chapter one\nchapter two")

	s, _ := newTestScraper(t, srv)
	dir := t.TempDir()

	path, err := s.DownloadNovel(context.Background(), 500, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "500.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chapter one\nchapter two", string(data))

	named := filepath.Join(dir, "tale.txt")
	path, err = s.DownloadNovel(context.Background(), 500, named)
	require.NoError(t, err)
	assert.Equal(t, named, path)

	_, err = s.DownloadNovel(context.Background(), 501, dir)
	assert.ErrorIs(t, err, errs.Application)
}

func TestFindNotBookmarked(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.SetBookmarks(7, "show", []pixivtest.Bookmark{{ID: 10}})
	srv.SetBookmarks(7, "hide", []pixivtest.Bookmark{{ID: 21, Masked: true}})
	srv.AddWork(43, 1)

	dir := t.TempDir()
	for _, p := range []string{"10_p0.png", "21/21_p0.png", "32_p0.png", "43.json"} {
		path := filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}

	s, _ := newTestScraper(t, srv)

	ids, err := s.FindNotBookmarked(context.Background(), dir, 7, false)
	require.NoError(t, err)
	assert.Equal(t, []uint64{32, 43}, ids)

	// 32 is unknown upstream and is dropped
	ids, err = s.FindNotBookmarked(context.Background(), dir, 7, true)
	require.NoError(t, err)
	assert.Equal(t, []uint64{43}, ids)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = "/data/pixiv"
	cfg.Client.MaxConcurrentRequests = 8
	cfg.Download.DirPolicy = "multiple"
	cfg.Download.NamedDir = true
	cfg.Download.SaveMetadata = true

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/data/pixiv", opts.BaseDir)
	assert.True(t, opts.NamedDir)
	assert.True(t, opts.WriteUpdateFile)
	assert.Equal(t, 8, opts.Download.Workers)
	assert.Equal(t, models.DirPolicyAuto, opts.Download.DirPolicy)
	assert.Equal(t, 3, opts.Download.MaxTries)
	assert.Equal(t, 120*time.Second, opts.Download.Timeout)
	assert.True(t, opts.Download.SaveMetadata)

	cfg.Download.DirPolicy = "sometimes"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

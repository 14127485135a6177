package downloader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixivdl/internal/pixivtest"
	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/logger"
	"pixivdl/pkg/metadata"
	"pixivdl/pkg/models"
)

func testOptions(policy models.DirPolicy) Options {
	opts := DefaultOptions()
	opts.Workers = 4
	opts.DirPolicy = policy
	opts.RetryDelay = 0
	opts.Timeout = 5 * time.Second
	return opts
}

func runItems(t *testing.T, engine *Engine, items ...models.WorkItem) map[uint64]ItemResult {
	t.Helper()
	in := make(chan models.WorkItem, len(items))
	for _, item := range items {
		in <- item
	}
	close(in)

	results := make(map[uint64]ItemResult)
	for res := range engine.Run(context.Background(), in) {
		results[res.Item.ID] = res
	}
	return results
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, path)
	assert.Equal(t, pixivtest.FileContent(filepath.Base(path)), data)
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "%s should not exist", path)
}

func TestEngineDirPolicy(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(10, 1)
	srv.AddWork(11, 2)

	tests := []struct {
		policy models.DirPolicy
		files  []string
	}{
		{models.DirPolicyAuto, []string{"10_p0.png", "11/11_p0.png", "11/11_p1.png"}},
		{models.DirPolicyAlways, []string{"10/10_p0.png", "11/11_p0.png", "11/11_p1.png"}},
		{models.DirPolicyNever, []string{"10_p0.png", "11_p0.png", "11_p1.png"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			dir := t.TempDir()
			engine := NewEngine(newTestClient(t, srv, 4), testOptions(tt.policy), logger.NewNopLogger())

			results := runItems(t, engine, models.NewWorkItem(10, dir), models.NewWorkItem(11, dir))
			require.Len(t, results, 2)
			for _, res := range results {
				assert.False(t, res.Failed())
			}
			for _, f := range tt.files {
				assertFile(t, filepath.Join(dir, filepath.FromSlash(f)))
			}
		})
	}
}

func TestEngineIsolatesItemFailures(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(12, 1)
	srv.SetWorkError(12, "restricted")
	srv.AddWork(13, 1)

	dir := t.TempDir()
	var mu sync.Mutex
	var events []Event
	opts := testOptions(models.DirPolicyNever)
	opts.OnEvent = func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}
	engine := NewEngine(newTestClient(t, srv, 4), opts, logger.NewNopLogger())

	results := runItems(t, engine, models.NewWorkItem(12, dir), models.NewWorkItem(13, dir))

	require.True(t, results[12].Failed())
	assert.ErrorIs(t, results[12].Err, errs.Application)
	assert.False(t, results[13].Failed())
	assertFile(t, filepath.Join(dir, "13_p0.png"))

	mu.Lock()
	defer mu.Unlock()
	counts := map[EventType]int{}
	for _, ev := range events {
		counts[ev.Type]++
	}
	assert.Equal(t, 2, counts[EventItemStarted])
	assert.Equal(t, 1, counts[EventItemResolved])
	assert.Equal(t, 1, counts[EventItemFailed])
	assert.Equal(t, 1, counts[EventItemCompleted])
	assert.Equal(t, 1, counts[EventAssetCompleted])
}

func TestEngineAssetFailureDoesNotCancelSiblings(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(14, 3)
	srv.FailFile("14_p1.png", 10)

	dir := t.TempDir()
	opts := testOptions(models.DirPolicyNever)
	opts.MaxTries = 2
	engine := NewEngine(newTestClient(t, srv, 4), opts, logger.NewNopLogger())

	res := runItems(t, engine, models.NewWorkItem(14, dir))[14]
	require.True(t, res.Failed())
	assert.NoError(t, res.Err)
	assert.Equal(t, 3, res.Assets)
	assert.Equal(t, 2, res.Completed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "14_p1.png"), res.Failures[0].File)
	assert.Equal(t, 2, res.Failures[0].Tries)

	assertFile(t, filepath.Join(dir, "14_p0.png"))
	assertFile(t, filepath.Join(dir, "14_p2.png"))
	assertMissing(t, filepath.Join(dir, "14_p1.png"))
	assertMissing(t, filepath.Join(dir, "._14_p1.png"))
}

func TestEnginePermitPoolBoundsRequests(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.SetDelay("/", 10*time.Millisecond)

	dir := t.TempDir()
	var items []models.WorkItem
	for id := uint64(100); id < 110; id++ {
		srv.AddWork(id, 3)
		items = append(items, models.NewWorkItem(id, dir))
	}

	opts := testOptions(models.DirPolicyNever)
	opts.Workers = 2
	engine := NewEngine(newTestClient(t, srv, 2), opts, logger.NewNopLogger())

	results := runItems(t, engine, items...)
	require.Len(t, results, 10)
	for _, res := range results {
		assert.False(t, res.Failed())
	}
	assert.LessOrEqual(t, srv.PeakInFlight(), 2)
	assert.Equal(t, 40, srv.RequestCount())
}

func TestEngineQueuedAssetsKeepTheirTimeout(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(120, 8)
	srv.SetDelay("/img/", 150*time.Millisecond)

	dir := t.TempDir()
	opts := testOptions(models.DirPolicyNever)
	opts.Workers = 2
	opts.MaxTries = 1
	opts.Timeout = 400 * time.Millisecond
	engine := NewEngine(newTestClient(t, srv, 2), opts, logger.NewNopLogger())

	results := runItems(t, engine, models.NewWorkItem(120, dir))
	res := results[120]
	assert.False(t, res.Failed(), "failures: %v", res.Failures)
	assert.Equal(t, 8, res.Assets)
	assert.Equal(t, 8, res.Completed)
	assert.LessOrEqual(t, srv.PeakInFlight(), 2)
}

func TestEngineWaitsForDirFuture(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(20, 1)
	srv.AddWork(21, 1)

	base := t.TempDir()
	named := filepath.Join(base, "Collection")
	future := models.NewDirFuture()

	in := make(chan models.WorkItem, 2)
	in <- models.WorkItem{ID: 20, Dir: future}
	in <- models.WorkItem{ID: 21, Dir: future}
	close(in)

	engine := NewEngine(newTestClient(t, srv, 4), testOptions(models.DirPolicyNever), logger.NewNopLogger())
	out := engine.Run(context.Background(), in)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.MkdirAll(named, 0755))
	assert.True(t, future.Resolve(named))

	for res := range out {
		assert.False(t, res.Failed())
		assert.Equal(t, named, res.Dir)
	}
	assertFile(t, filepath.Join(named, "20_p0.png"))
	assertFile(t, filepath.Join(named, "21_p0.png"))
}

func TestEngineUgoira(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddUgoira(30)

	dir := t.TempDir()
	opts := testOptions(models.DirPolicyAuto)
	opts.Ugoira = true
	opts.SaveMetadata = true
	engine := NewEngine(newTestClient(t, srv, 4), opts, logger.NewNopLogger())

	res := runItems(t, engine, models.NewWorkItem(30, dir))[30]
	require.False(t, res.Failed())
	assert.Equal(t, 1, res.Assets)
	assertFile(t, filepath.Join(dir, "30_ugoira1920x1080.zip"))

	meta, err := metadata.Load(dir, 30)
	require.NoError(t, err)
	assert.Equal(t, "ugoira", meta.Type)
	assert.Len(t, meta.Frames, 2)
}

func TestEngineUgoiraDisabledUsesPages(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddUgoira(31)

	dir := t.TempDir()
	engine := NewEngine(newTestClient(t, srv, 4), testOptions(models.DirPolicyNever), logger.NewNopLogger())

	res := runItems(t, engine, models.NewWorkItem(31, dir))[31]
	require.False(t, res.Failed())
	assert.Empty(t, srv.Requests("/ajax/illust/31/ugoira_meta"))
	assert.Empty(t, srv.Requests("/ajax/illust/31?"))
}

func TestEngineSavesMetadataOnlyOnSuccess(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(40, 1)
	srv.AddWork(41, 1)
	srv.FailFile("41_p0.png", 10)

	dir := t.TempDir()
	opts := testOptions(models.DirPolicyNever)
	opts.SaveMetadata = true
	opts.MaxTries = 1
	engine := NewEngine(newTestClient(t, srv, 4), opts, logger.NewNopLogger())

	results := runItems(t, engine, models.NewWorkItem(40, dir), models.NewWorkItem(41, dir))
	assert.False(t, results[40].Failed())
	assert.True(t, results[41].Failed())

	assert.True(t, metadata.Exists(dir, 40))
	assert.False(t, metadata.Exists(dir, 41))
}

func TestEngineDefaults(t *testing.T) {
	engine := NewEngine(nil, Options{}, nil)
	assert.Equal(t, 50, engine.Workers())
	assert.Equal(t, models.DirPolicyAlways, engine.opts.DirPolicy)
	assert.Equal(t, 0, engine.QueueSize())
}

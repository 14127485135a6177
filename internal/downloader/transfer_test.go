package downloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixivdl/internal/pixivtest"
	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/logger"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/ratelimit"
)

func newTestClient(t *testing.T, srv *pixivtest.Server, permits int) *pixiv.Client {
	t.Helper()
	pool := ratelimit.NewPermitPool(permits)
	t.Cleanup(pool.Close)
	return pixiv.NewClient(pixiv.Options{BaseURL: srv.URL()}, pool, logger.NewNopLogger())
}

func TestSafeDownloadRecoversFromFailures(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(1, 1)
	srv.FailFile("1_p0.png", 2)

	dir := t.TempDir()
	tr := NewTransfer(newTestClient(t, srv, 4), TransferOptions{MaxTries: 3, Timeout: 5 * time.Second}, logger.NewNopLogger())

	attempt, err := tr.SafeDownload(context.Background(), srv.FileURL("1_p0.png"), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, attempt.Tries)
	assert.Equal(t, filepath.Join(dir, "1_p0.png"), attempt.FinalPath)

	data, err := os.ReadFile(attempt.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, pixivtest.FileContent("1_p0.png"), data)

	_, err = os.Stat(filepath.Join(dir, "._1_p0.png"))
	assert.True(t, os.IsNotExist(err), "temp file must not remain")
}

func TestSafeDownloadExhausted(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(2, 1)
	srv.FailFile("2_p0.png", 10)

	dir := t.TempDir()
	log := logger.NewTestLogger()
	tr := NewTransfer(newTestClient(t, srv, 4), TransferOptions{MaxTries: 3, Timeout: 5 * time.Second}, log)

	attempt, err := tr.SafeDownload(context.Background(), srv.FileURL("2_p0.png"), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.Exhausted)
	assert.ErrorIs(t, err, errs.HTTP)
	assert.Equal(t, 3, attempt.Tries)
	assert.Len(t, srv.Requests("/img/2_p0.png"), 3)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 3, e.Tries)
	assert.Equal(t, filepath.Join(dir, "2_p0.png"), e.File)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "neither the final nor the temp file may remain")
	assert.True(t, log.HasMessage("transfer failed"))
}

func TestSafeDownloadRetriesAttemptTimeout(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(3, 1)
	srv.SetDelay("/img/3_p0.png", 300*time.Millisecond)

	dir := t.TempDir()
	tr := NewTransfer(newTestClient(t, srv, 4), TransferOptions{MaxTries: 2, Timeout: 50 * time.Millisecond}, logger.NewNopLogger())

	attempt, err := tr.SafeDownload(context.Background(), srv.FileURL("3_p0.png"), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.Exhausted)
	assert.Equal(t, 2, attempt.Tries)
	_, statErr := os.Stat(filepath.Join(dir, "3_p0.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSafeDownloadTimeoutExcludesPermitWait(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(6, 1)

	client := newTestClient(t, srv, 1)
	held, err := client.Permits().Acquire(context.Background())
	require.NoError(t, err)
	time.AfterFunc(300*time.Millisecond, held.Release)

	dir := t.TempDir()
	tr := NewTransfer(client, TransferOptions{MaxTries: 1, Timeout: 100 * time.Millisecond}, logger.NewNopLogger())

	attempt, err := tr.SafeDownload(context.Background(), srv.FileURL("6_p0.png"), dir)
	require.NoError(t, err, "waiting for the only permit must not use up the attempt")
	assert.Equal(t, 1, attempt.Tries)
	assert.Len(t, srv.Requests("/img/6_p0.png"), 1)
	data, err := os.ReadFile(attempt.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, pixivtest.FileContent("6_p0.png"), data)
}

func TestSafeDownloadStopsWhenCancelled(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(4, 1)
	srv.FailFile("4_p0.png", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	tr := NewTransfer(newTestClient(t, srv, 4), TransferOptions{MaxTries: 5}, logger.NewNopLogger())

	attempt, err := tr.SafeDownload(ctx, srv.FileURL("4_p0.png"), dir)
	require.Error(t, err)
	assert.Equal(t, 1, attempt.Tries)
	assert.Empty(t, srv.Requests("/img/"))
}

func TestSafeDownloadOverwritesStaleTempFile(t *testing.T) {
	srv := pixivtest.NewServer()
	defer srv.Close()
	srv.AddWork(5, 1)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "._5_p0.png"), []byte("stale partial data that is longer"), 0644))

	tr := NewTransfer(newTestClient(t, srv, 4), TransferOptions{}, logger.NewNopLogger())
	_, err := tr.SafeDownload(context.Background(), srv.FileURL("5_p0.png"), dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "5_p0.png"))
	require.NoError(t, err)
	assert.Equal(t, pixivtest.FileContent("5_p0.png"), data)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://i.pximg.net/img-original/img/2024/01/02/03/04/05/123_p0.png", "123_p0.png", false},
		{"https://i.pximg.net/img-zip-ugoira/img/123_ugoira1920x1080.zip?x=1", "123_ugoira1920x1080.zip", false},
		{"https://i.pximg.net/", "", true},
		{"https://i.pximg.net", "", true},
		{"://bad", "", true},
	}

	for _, tt := range tests {
		got, err := FileName(tt.url)
		if tt.wantErr {
			assert.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got)
	}
}

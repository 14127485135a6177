// Package scraper runs downloads against the pixiv AJAX API.
//
// A run connects a discovery engine to the download engine through a
// buffered queue. Discovery walks the source (individual works, a series,
// a user's posts or bookmarks) and emits work items; the download engine
// resolves each work's files and fetches them with bounded concurrency.
// Both sides share one permit pool through the pixiv client, so the
// number of requests in flight never exceeds the configured limit.
//
// Usage:
//
//	pool := ratelimit.NewPermitPool(cfg.Client.MaxConcurrentRequests)
//	defer pool.Close()
//	client := pixiv.NewClient(pixiv.Options{Cookie: cookie}, pool, log)
//
//	s := scraper.New(client, log)
//	s.SetReporter(ui.NewProgressDisplay(os.Stdout, "series 123", true, false))
//	report, err := s.Run(ctx, models.Series(123), opts)
//
// Failures of single works or files are recorded in the run report and do
// not stop the run. After a clean full run of a collection a .pixiv_update
// descriptor is written next to the files; Update replays it later and
// fetches only works that are not on disk yet.
package scraper

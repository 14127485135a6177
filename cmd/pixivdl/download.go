package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pixivdl/pkg/auth"
	"pixivdl/pkg/config"
	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/scraper"
	"pixivdl/pkg/ui"
	"pixivdl/pkg/ui/tui"
)

// incrementalOutputDir is the value of a bare --incremental: index the output directory
const incrementalOutputDir = "@output"

var (
	// Download command flags
	outputDir    string
	dirPolicy    string
	incremental  string
	fastIncr     bool
	namedDir     bool
	cookieFlag   string
	userFlag     string
	maxTries     int
	timeout      time.Duration
	maxRequests  int
	saveMetadata bool
	ugoira       bool
	noUpdateFile bool
	useTUI       bool

	tagFlag        string
	visibilityFlag string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download works from pixiv",
	Long: `Download every work of a source.

Works are written to the output directory, each in its own <id> directory
unless --dir-policy says otherwise. Series, user posts and bookmarks write a
.pixiv_update file after a complete run so 'pixivdl update' can fetch new
works later.`,
}

var individualCmd = &cobra.Command{
	Use:   "individual <id|url>...",
	Short: "Download single works by id or artwork URL",
	Example: `  pixivdl download individual 44298467
  pixivdl download individual https://www.pixiv.net/en/artworks/44298467 1234567`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uint64, 0, len(args))
		for _, arg := range args {
			id, err := pixiv.ParseIllustID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return runDownload(cmd, models.Individual(ids...))
	},
}

var seriesCmd = &cobra.Command{
	Use:     "series <series-id>",
	Short:   "Download every work of a manga series",
	Example: `  pixivdl download series 12345 --named-dir -o ./manga`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("series id", args[0])
		if err != nil {
			return err
		}
		return runDownload(cmd, models.Series(id))
	},
}

var userPostsCmd = &cobra.Command{
	Use:   "user-posts <user-id>",
	Short: "Download the illustrations and manga of a user",
	Example: `  pixivdl download user-posts 11
  pixivdl download user-posts 11 --tag オリジナル --incremental`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("user id", args[0])
		if err != nil {
			return err
		}
		var tag *string
		if cmd.Flags().Changed("tag") {
			tag = &tagFlag
		}
		return runDownload(cmd, models.UserPosts(id, tag))
	},
}

var userBookmarksCmd = &cobra.Command{
	Use:   "user-bookmarks [user-id]",
	Short: "Download the bookmarks of a user",
	Long: `Download the bookmarks of a user. Without a user id the bookmarks of the
logged in user are downloaded. Private bookmarks are only visible to their owner.`,
	Example: `  pixivdl download user-bookmarks --visibility both
  pixivdl download user-bookmarks 11`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		visibility, err := models.ParseVisibility(visibilityFlag)
		if err != nil {
			return err
		}

		var id uint64
		if len(args) == 1 {
			if id, err = parseID("user id", args[0]); err != nil {
				return err
			}
		}
		return runDownloadWith(cmd, func(sess *session) (models.Source, error) {
			if id == 0 {
				uid, err := auth.UserIDFromCookie(sess.cookie)
				if err != nil {
					return models.Source{}, fmt.Errorf("no user id given and none in the cookie: %w", err)
				}
				id = uid
			}
			return models.UserBookmarks(id, visibility), nil
		})
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.AddCommand(individualCmd, seriesCmd, userPostsCmd, userBookmarksCmd)

	f := downloadCmd.PersistentFlags()
	f.StringVarP(&outputDir, "output", "o", "", "output directory (default: current directory)")
	f.StringVar(&dirPolicy, "dir-policy", "", "when to give a work its own directory: always, never or auto")
	f.StringVar(&incremental, "incremental", "", "skip works already under this directory (bare flag: the output directory)")
	f.Lookup("incremental").NoOptDefVal = incrementalOutputDir
	f.BoolVar(&fastIncr, "fast", false, "stop at the first work already on disk")
	f.BoolVar(&namedDir, "named-dir", false, "download series into a directory named after the series")
	f.StringVar(&cookieFlag, "cookie", "", "session cookie to use instead of a stored user")
	f.StringVarP(&userFlag, "user", "u", "", "stored user whose cookie is used")
	f.IntVar(&maxTries, "max-tries", 0, "attempts per file before giving up")
	f.DurationVar(&timeout, "timeout", 0, "time limit of one file transfer")
	f.IntVar(&maxRequests, "max-requests", 0, "maximum number of requests in flight")
	f.BoolVar(&saveMetadata, "save-metadata", false, "write <id>.json with the metadata of each work")
	f.BoolVar(&ugoira, "ugoira", false, "download animated works as their frame archive")
	f.BoolVar(&noUpdateFile, "no-update-file", false, "do not write a .pixiv_update file")
	f.BoolVar(&useTUI, "tui", false, "show the interactive dashboard")

	userPostsCmd.Flags().StringVar(&tagFlag, "tag", "", "only works with this tag")
	userBookmarksCmd.Flags().StringVar(&visibilityFlag, "visibility", "public", "public, private or both")
}

func parseID(what, s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

// downloadFlags returns the download flags set on the command line, keyed the
// way config.MergeCommandLineFlags expects
func downloadFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags().Changed
	if set("output") {
		flags["output"] = outputDir
	}
	if set("dir-policy") {
		flags["dir-policy"] = dirPolicy
	}
	if set("cookie") {
		flags["cookie"] = cookieFlag
	}
	if set("user") {
		flags["user"] = userFlag
	}
	if set("max-tries") {
		flags["max-tries"] = maxTries
	}
	if set("timeout") {
		flags["timeout"] = timeout
	}
	if set("max-requests") {
		flags["max-requests"] = maxRequests
	}
	if set("fast") {
		flags["fast"] = fastIncr
	}
	if set("named-dir") {
		flags["named-dir"] = namedDir
	}
	if set("save-metadata") {
		flags["save-metadata"] = saveMetadata
	}
	if set("ugoira") {
		flags["ugoira"] = ugoira
	}
	if set("no-update-file") {
		flags["no-update-file"] = noUpdateFile
	}
	return flags
}

func runDownload(cmd *cobra.Command, src models.Source) error {
	return runDownloadWith(cmd, func(*session) (models.Source, error) { return src, nil })
}

// runDownloadWith runs one download. source is called once the session is
// open, so it can depend on the resolved cookie.
func runDownloadWith(cmd *cobra.Command, source func(*session) (models.Source, error)) error {
	cfg, err := loadConfig(cmd, downloadFlags(cmd))
	if err != nil {
		return err
	}

	sess, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	src, err := source(sess)
	if err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return err
	}

	opts, err := scraper.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("incremental") {
		opts.Incremental = true
		if incremental != incrementalOutputDir {
			opts.IndexDir = incremental
		}
	}

	return execute(cfg, sess, src.String(), func(ctx context.Context, s *scraper.Scraper) (*models.RunReport, error) {
		return s.Run(ctx, src, opts)
	})
}

// execute wires a scraper to the selected progress output, runs fn and turns
// the outcome into the exit status
func execute(cfg *config.Config, sess *session, label string, fn func(context.Context, *scraper.Scraper) (*models.RunReport, error)) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := scraper.New(sess.client, nil)
	var dash *tui.TUI
	if useTUI {
		dash = tui.NewTUI(label, sess.client.Permits(), cancel, os.Stdout)
		dash.Start()
		s.SetReporter(dash)
	} else if !ui.IsQuietMode() {
		ui.PrintInfo("Source", label)
		ui.PrintInfo("Output", cfg.Output.BaseDirectory)
		s.SetReporter(ui.NewProgressDisplay(os.Stdout, label, stdoutIsTerminal(), verbose))
	}

	report, err := fn(ctx, s)
	if report == nil && dash != nil {
		// the run never started, so nothing closed the dashboard
		dash.Stop()
		_ = dash.Wait()
	}
	if report != nil && cfg.Notifications.Enabled {
		ui.NewNotifier().NotifyRun(report, cfg.Notifications.OnComplete, cfg.Notifications.OnError)
	}
	if err != nil {
		return err
	}
	if report.Failed() {
		return errRunFailed
	}
	return nil
}

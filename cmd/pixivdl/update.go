package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"pixivdl/pkg/models"
	"pixivdl/pkg/scraper"
)

var updateCmd = &cobra.Command{
	Use:   "update [dir]",
	Short: "Fetch new works of a previously downloaded collection",
	Long: `Read the .pixiv_update file of a directory and download the works of its
source that are not in the directory yet. The directory policy of the
original download is reused. Defaults to the current directory.`,
	Example: `  pixivdl update ./manga/Foo
  pixivdl update --fast`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	f := updateCmd.Flags()
	f.BoolVar(&fastIncr, "fast", false, "stop at the first work already on disk")
	f.StringVar(&cookieFlag, "cookie", "", "session cookie to use instead of a stored user")
	f.StringVarP(&userFlag, "user", "u", "", "stored user whose cookie is used")
	f.IntVar(&maxTries, "max-tries", 0, "attempts per file before giving up")
	f.DurationVar(&timeout, "timeout", 0, "time limit of one file transfer")
	f.IntVar(&maxRequests, "max-requests", 0, "maximum number of requests in flight")
	f.BoolVar(&saveMetadata, "save-metadata", false, "write <id>.json with the metadata of each work")
	f.BoolVar(&ugoira, "ugoira", false, "download animated works as their frame archive")
	f.BoolVar(&useTUI, "tui", false, "show the interactive dashboard")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	flags := downloadFlags(cmd)
	flags["output"] = dir
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	sess, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	opts, err := scraper.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	return execute(cfg, sess, "update "+filepath.Base(dir), func(ctx context.Context, s *scraper.Scraper) (*models.RunReport, error) {
		return s.Update(ctx, dir, opts)
	})
}

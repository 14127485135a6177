package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"pixivdl/pkg/scraper"
)

var ignoreMissing bool

var findNotBookmarkedCmd = &cobra.Command{
	Use:   "find-not-bookmarked [dir]",
	Short: "List downloaded works that are not bookmarked",
	Long: `Print the ids of works found under a directory that are in neither the
public nor the private bookmarks of the current user, one per line.
Defaults to the output directory of the configuration.`,
	Example: `  pixivdl find-not-bookmarked ./bookmarks
  pixivdl find-not-bookmarked --ignore-missing > ids.txt`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationPlain: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := make(map[string]interface{})
		if cmd.Flags().Changed("cookie") {
			flags["cookie"] = cookieFlag
		}
		if cmd.Flags().Changed("user") {
			flags["user"] = userFlag
		}
		cfg, err := loadConfig(cmd, flags)
		if err != nil {
			return err
		}

		dir := cfg.Output.BaseDirectory
		if len(args) == 1 {
			dir = args[0]
		}

		userID, err := userIDOf(cfg)
		if err != nil {
			return err
		}

		sess, err := newSession(cfg)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		ids, err := scraper.New(sess.client, nil).FindNotBookmarked(ctx, dir, userID, ignoreMissing)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findNotBookmarkedCmd)

	findNotBookmarkedCmd.Flags().BoolVar(&ignoreMissing, "ignore-missing", false, "leave out works that no longer exist on pixiv")
	findNotBookmarkedCmd.Flags().StringVar(&cookieFlag, "cookie", "", "session cookie to use instead of a stored user")
	findNotBookmarkedCmd.Flags().StringVarP(&userFlag, "user", "u", "", "stored user whose cookie is used")
}

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"pixivdl/pkg/scraper"
	"pixivdl/pkg/ui"
)

var novelOutput string

var novelCmd = &cobra.Command{
	Use:   "novel <novel-id>",
	Short: "Download the text of a novel",
	Long: `Download the text of a novel to a file. Without -o the text is written to
<id>.txt in the current directory; when -o names a directory the file is
created inside it.`,
	Example: `  pixivdl novel 8552012
  pixivdl novel 8552012 -o story.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("novel id", args[0])
		if err != nil {
			return err
		}

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

		sess, err := newSession(cfg)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		path, err := scraper.New(sess.client, nil).DownloadNovel(ctx, id, novelOutput)
		if err != nil {
			return err
		}
		ui.PrintSuccess("✓ Saved " + path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(novelCmd)

	novelCmd.Flags().StringVarP(&novelOutput, "output", "o", "", "file or directory to write to")
	novelCmd.Flags().StringVar(&cookieFlag, "cookie", "", "session cookie to use instead of a stored user")
	novelCmd.Flags().StringVarP(&userFlag, "user", "u", "", "stored user whose cookie is used")
}

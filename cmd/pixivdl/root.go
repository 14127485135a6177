package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"pixivdl/pkg/logger"
	"pixivdl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	quiet         bool
	verbose       bool
)

// errRunFailed is returned when a run finished but some works or files failed.
// The summary has already been printed, so Execute only sets the exit status.
var errRunFailed = errors.New("download incomplete")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pixivdl",
	Short: "Download illustrations, manga and novels from pixiv",
	Long: `pixivdl downloads works from pixiv through its AJAX API.

Features:
  - Individual works, manga series, user posts and bookmarks
  - Bounded number of concurrent requests shared by discovery and downloads
  - Incremental downloads that skip works already on disk
  - Update files that let a collection be refreshed later
  - Several stored accounts with keychain or encrypted cookie storage
  - Plain progress line or interactive dashboard`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
		ui.SetQuietMode(quiet)

		// Commands whose output is meant for scripts print nothing else
		if _, ok := cmd.Annotations[annotationPlain]; ok {
			ui.SetQuietMode(true)
			return
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// annotationPlain marks commands with machine-readable output
const annotationPlain = "plain"

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			ui.PrintError("Error", err)
		}
		os.Exit(1)
	}
}

func init() {
	logger.Version = version

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.pixivdl.yaml or ~/.config/pixivdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "send a desktop notification when a download finishes")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show log lines next to the progress output")

	rootCmd.SetVersionTemplate(`pixivdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════════╗
    ║  ██████╗ ██╗██╗  ██╗██╗██╗   ██╗██████╗ ██╗               ║
    ║  ██╔══██╗██║╚██╗██╔╝██║██║   ██║██╔══██╗██║               ║
    ║  ██████╔╝██║ ╚███╔╝ ██║██║   ██║██║  ██║██║               ║
    ║  ██╔═══╝ ██║ ██╔██╗ ██║╚██╗ ██╔╝██║  ██║██║               ║
    ║  ██║     ██║██╔╝ ██╗██║ ╚████╔╝ ██████╔╝███████╗          ║
    ║  ╚═╝     ╚═╝╚═╝  ╚═╝╚═╝  ╚═══╝  ╚═════╝ ╚══════╝          ║
    ║            pixiv work downloader                          ║
    ╚═══════════════════════════════════════════════════════════╝
`

var (
	noColor   atomic.Bool
	quietMode atomic.Bool

	// stdout is where the Print helpers write
	stdout io.Writer = os.Stdout
)

// SetNoColor disables ANSI colors in every helper of this package
func SetNoColor(disabled bool) {
	noColor.Store(disabled)
}

// SetQuietMode suppresses the logo, info, success and highlight output.
// Errors and warnings are still printed.
func SetQuietMode(quiet bool) {
	quietMode.Store(quiet)
}

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool {
	return quietMode.Load()
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if noColor.Load() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if IsQuietMode() {
		return
	}
	fmt.Fprint(stdout, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(stdout, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(stdout, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(stdout, Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintf(stdout, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(stdout, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(stdout, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(stdout, Magenta(msg))
}

// Package cmdutil provides small helpers shared by fswatchd's command-line
// entry points: error reporting, graceful termination signal handling, and
// adapting fallible Cobra entry points to Cobra's standard signature.
package cmdutil

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Warning writes a yellow-highlighted warning line to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Error writes an error line to standard error, uncolored so it reads
// cleanly when piped.
func Error(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// Fatal reports err via Error and exits the process with a non-zero status.
// It must only be called from code paths with nothing left to clean up
// manually (Mainify's wrapper, or main itself), since os.Exit skips defers.
func Fatal(err error) {
	Error(err)
	os.Exit(1)
}

// Mainify wraps a Cobra entry point that returns an error, producing a
// standard Cobra entry point. This lets entry points rely on defer-based
// cleanup, which os.Exit would otherwise skip.
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err)
		}
	}
}

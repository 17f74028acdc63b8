// Package logging configures the console logger used for diagnostics.
// Diagnostics go to stderr; verdict output owns stdout.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// New returns a leveled console logger. Quiet by default so hook output
// stays clean; verbose raises the level to debug.
func New(verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		Formatter:       log.TextFormatter,
		ReportTimestamp: false,
		Prefix:          "synapse",
	})
}

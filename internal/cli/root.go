// Package cli implements the synapse command tree.
package cli

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/alex-abrams711/synapse/internal/config"
	"github.com/alex-abrams711/synapse/internal/logging"
)

var version = "dev"

// SetVersion injects the build version from main.
func SetVersion(v string) {
	version = v
}

// ErrBlocked is returned by `synapse verify` on a blocking verdict so main
// can map it to its own exit code, distinct from ordinary failures.
var ErrBlocked = errors.New("verification gate blocked")

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "synapse",
	Short: "synapse — schema-driven task verification gate",
	Long: `synapse parses a project's task checklist through a declarative schema and
decides whether the currently active tasks are QA-verified. Agents call
"synapse verify" before stopping work: a blocking verdict comes with a
directive naming the unverified tasks and the checks left to run.

Schemas can be hand-authored or inferred from an existing task file with
"synapse schema generate". Configuration lives in ./synapse.yaml or
./.synapse/config.yaml.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to gate config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.GateConfig, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

func logger() *log.Logger {
	return logging.New(verbose)
}

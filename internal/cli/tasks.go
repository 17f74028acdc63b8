package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alex-abrams711/synapse/internal/schema"
	"github.com/alex-abrams711/synapse/internal/taskfile"
	"github.com/alex-abrams711/synapse/internal/workingset"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Parse the task file and manage the active working set",
}

var tasksParseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse the task file into structured records (JSON)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.Gate.TaskFile
		if len(args) == 1 {
			path = args[0]
		}

		s, err := schema.Load(cfg.Gate.SchemaFile)
		if err != nil {
			return err
		}
		compiled, result := schema.Compile(s)
		if compiled == nil {
			printIssues(cmd, result)
			return fmt.Errorf("schema has %d validation error(s)", len(result.Errors))
		}

		records, err := taskfile.ParseFile(compiled, path)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal records: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var tasksStartCmd = &cobra.Command{
	Use:   "start CODE...",
	Short: "Add task codes to the active working set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		updated, err := workingset.Add(cfg.Gate.WorkingSetFile, args...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active: %s\n", strings.Join(updated, ", "))
		return nil
	},
}

var tasksFinishCmd = &cobra.Command{
	Use:   "finish CODE...",
	Short: "Remove task codes from the active working set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		updated, err := workingset.Remove(cfg.Gate.WorkingSetFile, args...)
		if err != nil {
			return err
		}
		if len(updated) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "active: (none)")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active: %s\n", strings.Join(updated, ", "))
		return nil
	},
}

var tasksActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List the active working set",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		codes, err := workingset.Load(cfg.Gate.WorkingSetFile)
		if err != nil {
			return err
		}
		if len(codes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(none)")
			return nil
		}
		for _, code := range codes {
			fmt.Fprintln(cmd.OutOrStdout(), code)
		}
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksParseCmd)
	tasksCmd.AddCommand(tasksStartCmd)
	tasksCmd.AddCommand(tasksFinishCmd)
	tasksCmd.AddCommand(tasksActiveCmd)
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alex-abrams711/synapse/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Validate, generate and inspect task schemas",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a task-schema document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := schemaPath(args)
		if err != nil {
			return err
		}

		s, err := schema.Load(path)
		if err != nil {
			return err
		}

		result := schema.Validate(s)
		printIssues(cmd, result)
		if !result.Valid {
			return fmt.Errorf("schema has %d validation error(s)", len(result.Errors))
		}
		cmd.Println("Schema is valid.")
		return nil
	},
}

var (
	generateOutput   string
	generateMaxLines int
)

var schemaGenerateCmd = &cobra.Command{
	Use:   "generate [sample-file]",
	Short: "Infer a task schema from a sample task file",
	Long: `generate reads a sample of an existing task file, infers the list format,
task-code shape and status vocabulary, and writes a schema document. The
generated schema is self-tested by reparsing the sample; the resulting match
rate and confidence are recorded in the document.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		samplePath := cfg.Gate.TaskFile
		if len(args) == 1 {
			samplePath = args[0]
		}
		output := generateOutput
		if output == "" {
			output = cfg.Gate.SchemaFile
		}

		data, err := os.ReadFile(samplePath)
		if err != nil {
			return fmt.Errorf("read sample file: %w", err)
		}

		s := schema.Generate(string(data), schema.GenerateOptions{
			MaxSampleLines: generateMaxLines,
			Source:         samplePath,
		})
		if err := schema.Save(output, s); err != nil {
			return err
		}

		cmd.Printf("Schema written to %s\n", output)
		if s.Metadata != nil {
			cmd.Printf("  format:     %s\n", s.Metadata.Format)
			cmd.Printf("  confidence: %.2f\n", s.Metadata.Confidence)
		}
		if s.Validation != nil {
			cmd.Printf("  tasks:      %d\n", s.Validation.TaskCount)
			cmd.Printf("  match rate: %.2f\n", s.Validation.MatchRate)
			if !s.Validation.Passed {
				cmd.Println("  self-test did not pass; review the schema before relying on it")
			}
		}
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print the schema document as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := schemaPath(args)
		if err != nil {
			return err
		}

		s, err := schema.Load(path)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshalling schema: %w", err)
		}
		cmd.Print(string(data))
		return nil
	},
}

func schemaPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Gate.SchemaFile, nil
}

func printIssues(cmd *cobra.Command, result schema.Result) {
	for _, issue := range result.Errors {
		cmd.Printf("  %s\n", issue)
	}
	for _, issue := range result.Warnings {
		cmd.Printf("  %s\n", issue)
	}
}

func init() {
	schemaGenerateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "where to write the schema (defaults to the configured schema file)")
	schemaGenerateCmd.Flags().IntVar(&generateMaxLines, "max-lines", 0, "maximum sample lines to read (0 = default)")

	schemaCmd.AddCommand(schemaValidateCmd)
	schemaCmd.AddCommand(schemaGenerateCmd)
	schemaCmd.AddCommand(schemaShowCmd)
}

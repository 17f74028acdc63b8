package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alex-abrams711/synapse/internal/config"
	"github.com/alex-abrams711/synapse/internal/gate"
	"github.com/alex-abrams711/synapse/internal/schema"
	"github.com/alex-abrams711/synapse/internal/workingset"
)

var (
	verifyJSON     bool
	verifyQuiet    bool
	verifyTaskFile string
	verifySchema   string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [task-code...]",
	Short: "Decide whether the active tasks are QA-verified",
	Long: `verify evaluates the verification gate: every task code in the working set
must carry a settled QA status ("Verified Success" or a "Verified Failure"
outcome) in the task file.

Codes may be passed as arguments; without arguments the persisted working
set is used. An empty working set always allows.

Exit status: 0 when the verdict is ALLOW, 2 when it is BLOCK, 1 on usage or
configuration errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger()

		taskFile := cfg.Gate.TaskFile
		if verifyTaskFile != "" {
			taskFile = verifyTaskFile
		}
		schemaFile := cfg.Gate.SchemaFile
		if verifySchema != "" {
			schemaFile = verifySchema
		}

		codes := args
		if len(codes) == 0 {
			codes, err = workingset.Load(cfg.Gate.WorkingSetFile)
			if err != nil {
				return err
			}
			log.Debug("loaded working set", "file", cfg.Gate.WorkingSetFile, "codes", len(codes))
		}

		opts := gate.Options{
			RemediationCommands: cfg.Gate.RemediationCommands,
			ReportTemplate:      cfg.Gate.ReportTemplate,
		}
		decision := runGate(cfg, schemaFile, taskFile, codes, opts)

		if verifyJSON {
			data, err := json.MarshalIndent(decision, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal decision: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			printDecision(cmd, codes, decision)
		}

		if decision.Verdict == gate.VerdictBlock {
			return ErrBlocked
		}
		return nil
	},
}

// runGate loads and compiles the schema, then evaluates against the task
// file. Schema problems are not allowed to cost the caller a verdict: they
// resolve through the configured fail mode (fail-closed by default).
func runGate(cfg *config.GateConfig, schemaFile, taskFile string, codes []string, opts gate.Options) gate.Decision {
	failOpen := cfg.Gate.FailMode == config.FailModeAllow
	log := logger()

	if len(codes) == 0 {
		return gate.Evaluate(nil, nil, opts)
	}

	s, err := schema.Load(schemaFile)
	if err != nil {
		log.Error("schema unreadable", "file", schemaFile, "err", err)
		return gate.Fault(codes, fmt.Sprintf("schema %s could not be loaded: %v", schemaFile, err), failOpen)
	}
	compiled, result := schema.Compile(s)
	if compiled == nil {
		for _, issue := range result.Errors {
			log.Error("schema invalid", "location", issue.Location, "msg", issue.Message)
		}
		return gate.Fault(codes, fmt.Sprintf("schema %s failed validation with %d error(s)", schemaFile, len(result.Errors)), failOpen)
	}
	for _, issue := range result.Warnings {
		log.Warn("schema warning", "location", issue.Location, "msg", issue.Message)
	}

	return gate.EvaluateFile(compiled, taskFile, codes, opts)
}

func printDecision(cmd *cobra.Command, codes []string, decision gate.Decision) {
	out := cmd.OutOrStdout()
	if !verifyQuiet {
		fmt.Fprintf(out, "verdict: %s\n", decision.Verdict)
		for _, code := range codes {
			if state, ok := decision.PerTask[code]; ok {
				fmt.Fprintf(out, "  [%s] %s\n", state, code)
			}
		}
	}
	if decision.Directive != "" {
		if !verifyQuiet {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, decision.Directive)
	}
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the full decision as JSON")
	verifyCmd.Flags().BoolVarP(&verifyQuiet, "quiet", "q", false, "print only the directive (hook mode)")
	verifyCmd.Flags().StringVar(&verifyTaskFile, "file", "", "task file to read (overrides config)")
	verifyCmd.Flags().StringVar(&verifySchema, "schema", "", "schema file to use (overrides config)")
}

package cli

import (
	"fmt"

	"github.com/boostv/optimizer-core/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Run tier 0 (structural) and tier 1 (value) checks on an experiment's data points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apply, _ := cmd.Flags().GetBool("apply")
		asJSON, _ := cmd.Flags().GetBool("json")
		out, _ := cmd.Flags().GetString("output")

		e, err := readExperiment(cmd, args[0])
		if err != nil {
			return err
		}

		if apply {
			validated, _ := validator.Validate(e)
			return writeExperiment(cmd, out, validated)
		}

		violations := validator.Detect(e)
		if asJSON {
			return writeJSON(cmd, out, violations)
		}
		result := validator.Report(violations)
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Validating %s...\n", e.Info.Name)
		fmt.Fprintf(w, "  Tier %d: %s\n", result.Tier, formatValidationResult(result))
		if !result.Passed {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func formatValidationResult(r *validator.Result) string {
	if r.Passed {
		return "PASSED"
	}
	result := fmt.Sprintf("FAILED (code %d): %s", r.Code, r.Message)
	for _, d := range r.Details {
		if !d.Passed {
			result += fmt.Sprintf("\n    %s: expected %s, got %s", d.Check, d.Expected, d.Got)
			if d.Fix != "" {
				result += fmt.Sprintf("\n    Fix: %s", d.Fix)
			}
		}
	}
	return result
}

func init() {
	validateCmd.Flags().Bool("apply", false, "Write the experiment with meta.valid set from the checks")
	validateCmd.Flags().Bool("json", false, "Print the violation lists as JSON")
	validateCmd.Flags().StringP("output", "o", "-", "Output file (- for stdout)")
}

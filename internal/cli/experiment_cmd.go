package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/boostv/optimizer-core/internal/converter"
	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/boostv/optimizer-core/internal/logger"
	"github.com/boostv/optimizer-core/internal/reducer"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create an empty experiment document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		e := experiment.New(args[0])
		e.Info.SwVersion = cfg.Settings().SWVersion
		if err := experiment.Validate(e); err != nil {
			return err
		}
		return writeExperiment(cmd, out, e)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Summarize an experiment document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := readExperiment(cmd, args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s (%s)\n", e.Info.Name, e.ID)
		if e.Info.Description != "" {
			fmt.Fprintf(w, "  %s\n", e.Info.Description)
		}
		fmt.Fprintf(w, "  Version: %d (format %s, software %s)\n", e.Info.Version, e.Info.DataFormatVersion, e.Info.SwVersion)

		fmt.Fprintf(w, "\nVariables:\n")
		for _, v := range e.ValueVariables {
			fmt.Fprintf(w, "  %-20s %-11s [%g, %g]%s\n", v.Name, v.Type, v.Min, v.Max, disabled(v.Enabled))
		}
		for _, v := range e.CategoricalVariables {
			fmt.Fprintf(w, "  %-20s %-11s %v%s\n", v.Name, "categorical", v.Options, disabled(v.Enabled))
		}
		for _, v := range e.ScoreVariables {
			fmt.Fprintf(w, "  %-20s %-11s%s\n", v.Name, "score", disabled(v.Enabled))
		}
		for _, c := range e.Constraints {
			fmt.Fprintf(w, "  constraint %s(%v) = %g\n", c.Type, c.Dimensions, c.Value)
		}

		active := experiment.SelectActiveDataPoints(e)
		fmt.Fprintf(w, "\nData points: %d (%d active)\n", len(e.DataPoints), len(active))
		fmt.Fprintf(w, "Optimizer: %s/%s, initial points %d, kappa %g, xi %g\n",
			e.OptimizerConfig.BaseEstimator, e.OptimizerConfig.AcqFunc,
			e.OptimizerConfig.InitialPoints, e.OptimizerConfig.Kappa, e.OptimizerConfig.Xi)
		fmt.Fprintf(w, "Suggestions requested: %d\n", experiment.SelectSuggestionCount(e))
		if experiment.SelectIsInitializing(e) {
			fmt.Fprintf(w, "Status: initializing (%d of %d initial points)\n", len(active), e.OptimizerConfig.InitialPoints)
		}
		if e.ChangedSinceLastEvaluation {
			fmt.Fprintf(w, "Status: changed since last evaluation\n")
		}
		if next := experiment.SelectNextValues(e); len(next) > 0 {
			fmt.Fprintf(w, "\nNext suggestions:\n")
			for i, row := range next {
				fmt.Fprintf(w, "  [%d] %v\n", i, row)
			}
		}
		return nil
	},
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <file> <actions.json|->",
	Short: "Apply one action, or a JSON array of actions, to an experiment",
	Long: `Apply actions to an experiment document and write the result.

An action is {"type": "<kind>", "payload": ...}. Known kinds:
  ` + kindList(),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		e, err := readExperiment(cmd, args[0])
		if err != nil {
			return err
		}
		data, err := readInput(cmd, args[1])
		if err != nil {
			return err
		}
		actions, err := decodeActions(data)
		if err != nil {
			return err
		}

		e, err = newReducer().ReduceAll(e, actions...)
		if err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
		log := logger.Get("cli")
		log.Debug().Int("actions", len(actions)).Int("version", e.Info.Version).Msg("dispatched")
		return writeExperiment(cmd, out, e)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <file>",
	Short: "Upgrade an experiment document to the current data format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		e, err := readExperiment(cmd, args[0])
		if err != nil {
			return err
		}
		return writeExperiment(cmd, out, e)
	},
}

var requestCmd = &cobra.Command{
	Use:   "request <file>",
	Short: "Print the optimizer request for an experiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		hashOnly, _ := cmd.Flags().GetBool("hash")
		e, err := readExperiment(cmd, args[0])
		if err != nil {
			return err
		}
		req := converter.NewRequest(e)
		if hashOnly {
			return writeOutput(cmd, out, []byte(converter.Hash(req)+"\n"))
		}
		return writeJSON(cmd, out, req)
	},
}

// decodeActions accepts a single action object or an array of them.
func decodeActions(data []byte) ([]reducer.Action, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode actions: %w", experiment.ErrSchemaValidation, err)
		}
		actions := make([]reducer.Action, 0, len(raw))
		for i, r := range raw {
			a, err := reducer.DecodeAction(r)
			if err != nil {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
			actions = append(actions, a)
		}
		return actions, nil
	}
	a, err := reducer.DecodeAction(trimmed)
	if err != nil {
		return nil, err
	}
	return []reducer.Action{a}, nil
}

func kindList() string {
	var buf bytes.Buffer
	for i, k := range reducer.Kinds() {
		if i > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteString(string(k))
	}
	return buf.String()
}

func disabled(enabled bool) string {
	if enabled {
		return ""
	}
	return " (disabled)"
}

func init() {
	for _, c := range []*cobra.Command{newCmd, dispatchCmd, migrateCmd, requestCmd} {
		c.Flags().StringP("output", "o", "-", "Output file (- for stdout)")
	}
	requestCmd.Flags().Bool("hash", false, "Print only the evaluation hash")
}

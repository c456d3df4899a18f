package cli

import (
	"fmt"

	"github.com/boostv/optimizer-core/internal/converter"
	"github.com/boostv/optimizer-core/internal/reducer"
	"github.com/spf13/cobra"
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Exchange data points as semicolon separated tables",
}

var csvExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write an experiment's data points as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		e, err := readExperiment(cmd, args[0])
		if err != nil {
			return err
		}
		table, err := converter.DataPointsToCSV(e.DataPoints)
		if err != nil {
			return fmt.Errorf("export %s: %w", args[0], err)
		}
		if table != "" {
			table += "\n"
		}
		return writeOutput(cmd, out, []byte(table))
	},
}

var csvImportCmd = &cobra.Command{
	Use:   "import <file> <table.csv|->",
	Short: "Replace an experiment's data points with the rows of a CSV table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		e, err := readExperiment(cmd, args[0])
		if err != nil {
			return err
		}
		table, err := readInput(cmd, args[1])
		if err != nil {
			return err
		}
		points, err := converter.CSVToDataPoints(string(table), e.ValueVariables, e.CategoricalVariables, e.ScoreVariables)
		if err != nil {
			return fmt.Errorf("import %s: %w", args[1], err)
		}
		e, err = newReducer().Reduce(e, reducer.UpdateDataPoints{DataPoints: points})
		if err != nil {
			return fmt.Errorf("import %s: %w", args[1], err)
		}
		return writeExperiment(cmd, out, e)
	},
}

func init() {
	csvExportCmd.Flags().StringP("output", "o", "-", "Output file (- for stdout)")
	csvImportCmd.Flags().StringP("output", "o", "-", "Output file (- for stdout)")
	csvCmd.AddCommand(csvExportCmd)
	csvCmd.AddCommand(csvImportCmd)
}

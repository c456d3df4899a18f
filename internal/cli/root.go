package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/boostv/optimizer-core/internal/config"
	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/boostv/optimizer-core/internal/logger"
	"github.com/boostv/optimizer-core/internal/migration"
	"github.com/boostv/optimizer-core/internal/queue"
	"github.com/boostv/optimizer-core/internal/reducer"
	"github.com/boostv/optimizer-core/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "boost",
		Short: "Boost: Bayesian optimization experiments from the command line",
		Long: `Boost manages optimization experiments: variables, data points,
optimizer configuration and results, stored as versioned JSON documents.

Create an experiment and edit it through actions:
  boost new "Cookies" -o cookies.json
  boost dispatch cookies.json action.json -o cookies.json

Ask the optimizer for suggestions:
  boost store push cookies.json
  boost queue push <experiment-id>
  boost queue apply`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./boost.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(csvCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(queueCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet BOOST_DATABASE_URL environment variable", err)
	}
	return pool, nil
}

func connectRedis() (*redis.Client, error) {
	client, err := queue.ConnectRedis(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet BOOST_REDIS_URL environment variable", err)
	}
	return client, nil
}

func newReducer() *reducer.Reducer {
	return reducer.New(cfg.Settings())
}

func projectRoot() string {
	return cfg.ProjectRoot
}

func migrationsDir() string {
	return filepath.Join(projectRoot(), "migrations")
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to a file, or stdout when path is "-" or empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readExperiment loads a document from disk, migrating it to the current
// data format.
func readExperiment(cmd *cobra.Command, path string) (experiment.Experiment, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return experiment.Experiment{}, err
	}
	e, err := migration.MigrateJSON(data)
	if err != nil {
		return experiment.Experiment{}, fmt.Errorf("load %s: %w", path, err)
	}
	return e, nil
}

func writeExperiment(cmd *cobra.Command, path string, e experiment.Experiment) error {
	return writeJSON(cmd, path, e)
}

func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return writeOutput(cmd, path, append(data, '\n'))
}

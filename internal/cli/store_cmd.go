package cli

import (
	"context"
	"fmt"

	"github.com/boostv/optimizer-core/internal/store"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Persist experiments in PostgreSQL",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the experiments table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.New(pool).Migrate(ctx, migrationsDir()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PostgreSQL schema applied")
		return nil
	},
}

var storePushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Save an experiment document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := readExperiment(cmd, args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.New(pool).Save(ctx, e); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) at version %d\n", e.Info.Name, e.ID, e.Info.Version)
		return nil
	},
}

var storePullCmd = &cobra.Command{
	Use:   "pull <id>",
	Short: "Load an experiment document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		e, err := store.New(pool).Load(ctx, args[0])
		if err != nil {
			return err
		}
		return writeExperiment(cmd, out, e)
	},
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored experiments",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		summaries, err := store.New(pool).List(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(summaries) == 0 {
			fmt.Fprintln(w, "(none)")
			return nil
		}
		for _, s := range summaries {
			fmt.Fprintf(w, "  %s  %-30s v%-4d format %s  %s\n",
				s.ID, s.Name, s.Version, s.DataFormatVersion, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var storeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored experiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.New(pool).Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	storePullCmd.Flags().StringP("output", "o", "-", "Output file (- for stdout)")
	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storePushCmd)
	storeCmd.AddCommand(storePullCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeDeleteCmd)
}

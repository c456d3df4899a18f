package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/boostv/optimizer-core/internal/queue"
	"github.com/boostv/optimizer-core/internal/store"
	"github.com/boostv/optimizer-core/migrations"
	"github.com/spf13/cobra"
)

var minimal bool

const defaultConfig = `# boost.yaml
# Every key can be overridden with a BOOST_<KEY> environment variable.
database_url: postgres://localhost:5432/boost?sslmode=disable
redis_url: redis://localhost:6379/0
max_rating: 5
log_level: info
log_format: console
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a boost project",
	Long:  "Initialize project: boost.yaml, experiments/, migrations/, PostgreSQL schema, Redis streams",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := projectRoot()
		ctx := context.Background()
		w := cmd.OutOrStdout()

		cfgPath := filepath.Join(root, "boost.yaml")
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := os.WriteFile(cfgPath, []byte(defaultConfig), 0o644); err != nil {
				return fmt.Errorf("create boost.yaml: %w", err)
			}
			fmt.Fprintln(w, "Created boost.yaml")
		} else {
			fmt.Fprintln(w, "boost.yaml already exists")
		}

		if err := os.MkdirAll(filepath.Join(root, "experiments"), 0o755); err != nil {
			return fmt.Errorf("create experiments/: %w", err)
		}
		fmt.Fprintln(w, "Created experiments/")

		written, err := writeMigrations(migrationsDir())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %d migration file(s) to migrations/\n", written)

		if minimal {
			fmt.Fprintln(w, "\nMinimal init complete. Run 'boost init' (without --minimal) to set up PostgreSQL and Redis.")
			return nil
		}

		fmt.Fprintln(w, "Connecting to PostgreSQL...")
		pool, err := connectDB(ctx)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		fmt.Fprintln(w, "Running migrations...")
		if err := store.New(pool).Migrate(ctx, migrationsDir()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(w, "PostgreSQL schema created")

		fmt.Fprintln(w, "Connecting to Redis...")
		rdb, err := connectRedis()
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer rdb.Close()

		q := queue.New(rdb)
		if err := q.EnsureStreams(ctx); err != nil {
			return fmt.Errorf("redis stream setup failed: %w", err)
		}
		fmt.Fprintln(w, "Redis streams created")

		fmt.Fprintln(w, "\nBoost project initialized successfully.")
		fmt.Fprintln(w, "Next steps:")
		fmt.Fprintln(w, "  1. Run: boost new <name> -o experiments/<name>.json")
		fmt.Fprintln(w, "  2. Add variables: boost dispatch experiments/<name>.json action.json")
		fmt.Fprintln(w, "  3. Run: boost store push experiments/<name>.json")
		return nil
	},
}

// writeMigrations copies the bundled SQL files into dir, keeping files that
// already exist.
func writeMigrations(dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create migrations/: %w", err)
	}
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return 0, err
	}
	written := 0
	for _, name := range names {
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		data, err := migrations.FS.ReadFile(name)
		if err != nil {
			return written, fmt.Errorf("read bundled %s: %w", name, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", target, err)
		}
		written++
	}
	return written, nil
}

func init() {
	initCmd.Flags().BoolVar(&minimal, "minimal", false, "Minimal init: boost.yaml + experiments/ + migrations/ only")
}

// Package store persists experiment documents in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/boostv/optimizer-core/internal/logger"
	"github.com/boostv/optimizer-core/internal/migration"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no experiment has the requested id.
	ErrNotFound = errors.New("experiment not found")
	// ErrStale is returned by Save when the stored document has a higher
	// version than the one being saved.
	ErrStale = errors.New("stored experiment is newer")
)

// querier is the subset of *pgxpool.Pool and pgx.Tx the store uses.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Summary is the listing view of a stored experiment.
type Summary struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Version           int       `json:"version"`
	DataFormatVersion string    `json:"dataFormatVersion"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Store reads and writes experiment documents.
type Store struct {
	db querier
}

// New creates a Store backed by a connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Connect creates a connection pool to PostgreSQL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate runs the SQL migration files in migrationsDir in name order.
func (s *Store) Migrate(ctx context.Context, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migration files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migration files in %s", migrationsDir)
	}
	log := logger.Get("store")
	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration file: %w", err)
		}
		if _, err := s.db.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filepath.Base(f), err)
		}
		log.Info().Str("file", filepath.Base(f)).Msg("applied migration")
	}
	return nil
}

// Save inserts e or replaces the stored document with the same id. It fails
// with ErrStale when the stored version is higher than e's.
func (s *Store) Save(ctx context.Context, e experiment.Experiment) error {
	if e.ID == "" {
		return fmt.Errorf("%w: experiment has no id", experiment.ErrSchemaValidation)
	}
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode experiment: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO experiments (id, name, version, data_format_version, evaluation_hash, document)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			data_format_version = EXCLUDED.data_format_version,
			evaluation_hash = EXCLUDED.evaluation_hash,
			document = EXCLUDED.document,
			updated_at = now()
		WHERE experiments.version <= EXCLUDED.version
	`, e.ID, e.Info.Name, e.Info.Version, e.Info.DataFormatVersion, e.LastEvaluationHash, doc)
	if err != nil {
		return fmt.Errorf("save experiment %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save experiment %s at version %d: %w", e.ID, e.Info.Version, ErrStale)
	}
	log := logger.Get("store")
	log.Debug().Str("experiment", e.ID).Int("version", e.Info.Version).Msg("saved experiment")
	return nil
}

// Load returns the stored experiment, migrated to the current data format.
func (s *Store) Load(ctx context.Context, id string) (experiment.Experiment, error) {
	return s.load(ctx, id, false)
}

// Update loads the experiment under a row lock, applies fn and saves the
// result in one transaction. Nothing is written when fn fails.
func (s *Store) Update(ctx context.Context, id string, fn func(experiment.Experiment) (experiment.Experiment, error)) (experiment.Experiment, error) {
	var out experiment.Experiment
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		inTx := &Store{db: tx}
		e, err := inTx.load(ctx, id, true)
		if err != nil {
			return err
		}
		next, err := fn(e)
		if err != nil {
			return err
		}
		if err := inTx.Save(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return experiment.Experiment{}, err
	}
	return out, nil
}

func (s *Store) load(ctx context.Context, id string, forUpdate bool) (experiment.Experiment, error) {
	query := "SELECT document FROM experiments WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	var doc []byte
	err := s.db.QueryRow(ctx, query, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return experiment.Experiment{}, fmt.Errorf("load experiment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return experiment.Experiment{}, fmt.Errorf("load experiment %s: %w", id, err)
	}
	e, err := migration.MigrateJSON(doc)
	if err != nil {
		return experiment.Experiment{}, fmt.Errorf("migrate experiment %s: %w", id, err)
	}
	return e, nil
}

// List returns a summary of every stored experiment, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, version, data_format_version, updated_at
		FROM experiments
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var s Summary
		err := row.Scan(&s.ID, &s.Name, &s.Version, &s.DataFormatVersion, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan experiments: %w", err)
	}
	return summaries, nil
}

// Delete removes the experiment with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM experiments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete experiment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete experiment %s: %w", id, ErrNotFound)
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	doc []byte
	err error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.doc
	return nil
}

type fakeDB struct {
	execs    []string
	args     [][]any
	queries  []string
	affected int64
	execErr  error
	row      row
	tx       *fakeTx
}

type fakeTx struct {
	pgx.Tx
	db         *fakeDB
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{db: f}
	return f.tx, nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 " + strconv.FormatInt(f.affected, 10)), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	return f.row
}

func TestSave(t *testing.T) {
	db := &fakeDB{affected: 1}
	s := &Store{db: db}
	e := experiment.New("Cake")
	e.Info.Version = 3

	require.NoError(t, s.Save(context.Background(), e))
	require.Len(t, db.args, 1)
	args := db.args[0]
	assert.Equal(t, e.ID, args[0])
	assert.Equal(t, "Cake", args[1])
	assert.Equal(t, 3, args[2])
	assert.Equal(t, experiment.DataFormatVersion, args[3])

	var stored experiment.Experiment
	require.NoError(t, json.Unmarshal(args[5].([]byte), &stored))
	assert.Equal(t, e.ID, stored.ID)
}

func TestSaveErrors(t *testing.T) {
	t.Run("stale", func(t *testing.T) {
		s := &Store{db: &fakeDB{affected: 0}}
		err := s.Save(context.Background(), experiment.New("Cake"))
		assert.True(t, errors.Is(err, ErrStale))
	})

	t.Run("no id", func(t *testing.T) {
		s := &Store{db: &fakeDB{affected: 1}}
		e := experiment.New("Cake")
		e.ID = ""
		err := s.Save(context.Background(), e)
		assert.True(t, errors.Is(err, experiment.ErrSchemaValidation))
	})

	t.Run("database", func(t *testing.T) {
		s := &Store{db: &fakeDB{execErr: errors.New("connection reset")}}
		err := s.Save(context.Background(), experiment.New("Cake"))
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestLoadMigrates(t *testing.T) {
	old := `{"id": "e1", "info": {"name": "Old", "dataFormatVersion": "8"},
		"scoreVariables": [{"name": "score", "enabled": true}],
		"optimizerConfig": {"baseEstimator": "GP", "acqFunc": "gp_hedge", "initialPoints": 5, "kappa": 1.96, "xi": 0.01},
		"results": {"next": [1, 2]}}`
	s := &Store{db: &fakeDB{row: row{doc: []byte(old)}}}

	e, err := s.Load(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "Old", e.Info.Name)
	assert.Equal(t, experiment.DataFormatVersion, e.Info.DataFormatVersion)
	assert.Equal(t, [][]any{{1.0, 2.0}}, e.Results.Next)
}

func TestLoadErrors(t *testing.T) {
	s := &Store{db: &fakeDB{row: row{err: pgx.ErrNoRows}}}
	_, err := s.Load(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	s = &Store{db: &fakeDB{row: row{doc: []byte(`{"info": {"dataFormatVersion": "99"}}`)}}}
	_, err = s.Load(context.Background(), "future")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	db := &fakeDB{affected: 1}
	s := &Store{db: db}
	require.NoError(t, s.Delete(context.Background(), "e1"))
	assert.Equal(t, []any{"e1"}, db.args[0])

	s = &Store{db: &fakeDB{affected: 0}}
	assert.True(t, errors.Is(s.Delete(context.Background(), "e1"), ErrNotFound))
}

func TestMigrateRunsFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002_more.sql"), []byte("SELECT 2;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_initial.sql"), []byte("SELECT 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	db := &fakeDB{}
	s := &Store{db: db}
	require.NoError(t, s.Migrate(context.Background(), dir))
	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;"}, db.execs)

	assert.Error(t, s.Migrate(context.Background(), t.TempDir()))
}

func TestMigrationFileApplies(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	require.NoError(t, s.Migrate(context.Background(), filepath.Join("..", "..", "migrations")))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS experiments")
}

func TestUpdate(t *testing.T) {
	e := experiment.New("Cake")
	doc, err := json.Marshal(e)
	require.NoError(t, err)

	db := &fakeDB{affected: 1, row: row{doc: doc}}
	s := &Store{db: db}
	got, err := s.Update(context.Background(), e.ID, func(in experiment.Experiment) (experiment.Experiment, error) {
		in.Info.Name = "Pie"
		in.Info.Version++
		return in, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Pie", got.Info.Name)
	assert.True(t, db.tx.committed)
	assert.Contains(t, db.queries[0], "FOR UPDATE")
	require.Len(t, db.args, 1)
	assert.Equal(t, "Pie", db.args[0][1])
}

func TestUpdateRollsBack(t *testing.T) {
	doc, err := json.Marshal(experiment.New("Cake"))
	require.NoError(t, err)

	db := &fakeDB{affected: 1, row: row{doc: doc}}
	s := &Store{db: db}
	boom := errors.New("boom")
	_, err = s.Update(context.Background(), "id", func(in experiment.Experiment) (experiment.Experiment, error) {
		return in, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, db.tx.rolledBack)
	assert.Empty(t, db.execs)
}

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebindDollar(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", rebindDollar("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT '?' FROM t WHERE a = $1", rebindDollar("SELECT '?' FROM t WHERE a = ?"))

	db := &DB{driver: DriverPostgres}
	assert.Equal(t, "DELETE FROM documents WHERE id = $1", db.Rebind("DELETE FROM documents WHERE id = ?"))
}

func TestUpsertClauseByDialect(t *testing.T) {
	assert.Equal(t, " ON CONFLICT (id) DO UPDATE SET name = excluded.name, slug = excluded.slug",
		(&DB{driver: DriverSQLite}).UpsertClause("name", "slug"))
	assert.Equal(t, " ON DUPLICATE KEY UPDATE name = VALUES(name)",
		(&DB{driver: DriverMySQL}).UpsertClause("name"))
}

func TestDataSource(t *testing.T) {
	driver, dsn, err := dataSource(Config{Driver: DriverLibSQL, TursoURL: "libsql://db.turso.io", TursoAuthToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, DriverLibSQL, driver)
	assert.Equal(t, "libsql://db.turso.io?authToken=tok", dsn)

	_, dsn, err = dataSource(Config{Driver: "sqlite", DSN: "x.db"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "_foreign_keys=on")

	_, _, err = dataSource(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := NewConnection(Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "m.db")}, nil)
	require.NoError(t, err)
	defer db.Close()

	tc := NewTableCreator(nil)
	require.NoError(t, tc.Migrate(ctx, db))
	require.NoError(t, tc.Migrate(ctx, db))
	require.NoError(t, VerifyConnection(ctx, db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n))
	assert.Zero(t, n)
}

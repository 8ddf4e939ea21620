package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/secrets", MigrateURL("postgres://u:p@localhost:5432/secrets"))
	assert.Equal(t, "pgx5://localhost/secrets", MigrateURL("postgresql://localhost/secrets"))
	assert.Equal(t, "pgx5://already", MigrateURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.Glob(MigrationFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	up, err := fs.ReadFile(MigrationFS, "migrations/000001_create_users.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "UNIQUE (username)")
}

func TestMigrateRequiresDSN(t *testing.T) {
	assert.Error(t, Migrate(""))
}

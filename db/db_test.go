package db

import (
	"database/sql"
	"errors"
	"io/fs"
	"regexp"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	err error
}

func (f fakeMigrator) Up() error { return f.err }

func withMigrator(t *testing.T, m migrator, err error) {
	t.Helper()
	orig := newMigrator
	newMigrator = func(*sql.DB) (migrator, error) { return m, err }
	t.Cleanup(func() { newMigrator = orig })
}

func TestMigrate_NoChangeIsSuccess(t *testing.T) {
	withMigrator(t, fakeMigrator{err: migrate.ErrNoChange}, nil)
	assert.NoError(t, Migrate(nil))
}

func TestMigrate_PropagatesFailures(t *testing.T) {
	withMigrator(t, fakeMigrator{err: errors.New("dirty database")}, nil)
	err := Migrate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty database")

	withMigrator(t, nil, errors.New("no driver"))
	assert.Error(t, Migrate(nil))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	up, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS posts")

	_, err = fs.ReadFile(migrationsFS, "migrations/000001_init.down.sql")
	require.NoError(t, err)
}

func TestSchema_DeletesKeepPostHistory(t *testing.T) {
	up, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	schema := string(up)

	for _, column := range []string{"account_id", "page_id", "upload_id"} {
		fk := regexp.MustCompile(`(?m)^\s*` + column + `\s+BIGINT REFERENCES \w+\(id\) ON DELETE SET NULL,`)
		assert.Regexp(t, fk, schema, "posts.%s must survive deletes of its target", column)
	}
	assert.Regexp(t, `account_id\s+BIGINT NOT NULL REFERENCES accounts\(id\) ON DELETE CASCADE`, schema,
		"pages go with their account")
	assert.NotRegexp(t, `REFERENCES pages\(id\) ON DELETE CASCADE`, schema)
}

func TestSchema_OnePendingPostPerUpload(t *testing.T) {
	up, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)

	assert.Regexp(t,
		`CREATE UNIQUE INDEX IF NOT EXISTS posts_pending_upload_idx ON posts \(upload_id\) WHERE status IN \('scheduled', 'publishing'\)`,
		string(up))
}

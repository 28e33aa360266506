package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLFilesLexicalOrderAndFiltering(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_indexes.sql": {Data: []byte("CREATE INDEX IF NOT EXISTS i ON t (a);")},
		"pg/001_schema.sql":  {Data: []byte("  CREATE TABLE IF NOT EXISTS t (a int);\n")},
		"pg/notes.txt":       {Data: []byte("not a migration")},
		"pg/010_later.sql":   {Data: []byte("")},
	}

	files, err := sqlFiles(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "001_schema.sql", files[0].name)
	assert.Equal(t, "002_indexes.sql", files[1].name)
	assert.Equal(t, "010_later.sql", files[2].name)
	// Bodies come back trimmed; empty files survive as empty bodies for
	// the runner to skip.
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS t (a int);", files[0].body)
	assert.Empty(t, files[2].body)
}

func TestSQLFilesMissingDir(t *testing.T) {
	_, err := sqlFiles(fstest.MapFS{}, "nope")
	require.Error(t, err)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	pg, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.NotEmpty(t, pg)

	ch, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.NotEmpty(t, ch)
}

func TestSplitStatements(t *testing.T) {
	input := "-- header comment\nCREATE TABLE a (x int);\n\n-- second\nCREATE TABLE b (y int);\n"
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x int)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y int)", stmts[1])
}

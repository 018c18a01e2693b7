package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := Embedded()
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "001", files[0].Version)
	assert.Equal(t, "comparison_runs", files[0].Name)
	assert.Contains(t, files[0].SQL, "CREATE TABLE IF NOT EXISTS comparison_runs")
	assert.Equal(t, "002", files[1].Version)
	assert.Contains(t, files[1].SQL, "REFERENCES comparison_runs")
	assert.Len(t, files[0].Checksum, 64)
}

func TestFilesSortsAndSkipsInvalidNames(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/010_late.sql":  {Data: []byte("SELECT 10;")},
		"sql/002_early.sql": {Data: []byte("SELECT 2;")},
		"sql/README.md":     {Data: []byte("notes")},
		"sql/noversion.sql": {Data: []byte("SELECT 0;")},
		"sql/003_extra.sql": {Data: []byte("SELECT 3;")},
	}
	files, err := Files(fsys)
	require.NoError(t, err)

	versions := make([]string, len(files))
	for i, f := range files {
		versions[i] = f.Version
	}
	assert.Equal(t, []string{"002", "003", "010"}, versions)
	assert.Equal(t, "early", files[0].Name)
}

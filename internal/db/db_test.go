package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/flaskr-go/flaskr/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(filepath.Join(dir, "flaskr.sqlite")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// a bare file name lives in the working directory
	assert.NoError(t, EnsureDir("flaskr.sqlite"))
}

func TestOpen_LeavesDirectoryAlone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	cfg := config.DatabaseConfig{Path: filepath.Join(dir, "flaskr.sqlite"), BusyTimeout: 1000}

	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpen_PathWithURIDelimiters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "what? #1.sqlite")
	cfg := config.DatabaseConfig{Path: path, BusyTimeout: 1000}

	conn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Exec(`CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file is created under the literal path")

	var fk int
	require.NoError(t, conn.Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)
}

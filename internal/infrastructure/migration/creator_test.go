package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	first, err := Create(dir, "Add Plan Notes!")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "add_plan_notes", first.Name)
	assert.Equal(t, filepath.Join(dir, "000001_add_plan_notes.up.sql"), first.UpPath)
	assert.FileExists(t, first.DownPath)

	second, err := Create(dir, "index visits")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	_, err = Create(dir, "!!!")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_create_visits.up.sql",
		"000002_create_visits.down.sql",
		"000001_create_sales_plans.up.sql",
		"000001_create_sales_plans.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, err := List(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, uint(1), files[0].Version)
	assert.Equal(t, "create_sales_plans", files[0].Name)
	assert.NotEmpty(t, files[0].DownPath)
	assert.Equal(t, "create_visits", files[1].Name)
}

func TestList_ShippedMigrations(t *testing.T) {
	files, err := List(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		assert.NotEmpty(t, f.UpPath, "version %d has no up file", f.Version)
		assert.NotEmpty(t, f.DownPath, "version %d has no down file", f.Version)
	}
}

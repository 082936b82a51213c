// Package testutil holds fixtures shared by package tests: the blog schema
// and dataset under testdata/blog, and deterministic generators.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/quri/internal/schema"
)

// RepoRoot returns the module root, located from this file's path so tests
// in any package find the shared testdata.
func RepoRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// BlogDir is the directory holding the blog CUE schema and blog.sql.
func BlogDir() string {
	return filepath.Join(RepoRoot(), "testdata", "blog")
}

// BlogRegistry loads the blog schema.
func BlogRegistry(t testing.TB) *schema.Registry {
	t.Helper()
	reg, err := schema.LoadDir(BlogDir())
	require.NoError(t, err)
	return reg
}

// Entity loads the blog schema and returns one of its entities.
func Entity(t testing.TB, name string) *schema.Entity {
	t.Helper()
	e, ok := BlogRegistry(t).Get(name)
	require.True(t, ok, "entity %q not in blog schema", name)
	return e
}

// BlogSQL returns the DDL and seed rows of the blog dataset.
func BlogSQL(t testing.TB) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(BlogDir(), "blog.sql"))
	require.NoError(t, err)
	return string(b)
}

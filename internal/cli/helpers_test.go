package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/quri/internal/store"
	"github.com/roach88/quri/internal/testutil"
)

// execute runs the root command with a fixed session id and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithStderr(t, args...)
	return out, err
}

func executeWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := newRootCommand(testutil.NewFixedSessionGenerator(""))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFilter writes a filter document to a temp file.
func writeFilter(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// blogDB creates a SQLite file holding the blog dataset.
func blogDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blog.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.LoadFixtures(t.Context(), testutil.BlogSQL(t)))
	require.NoError(t, st.Close())
	return path
}

const tagsOrFilter = `
connector: OR
operations:
  - {field: tags.name, op: eq, value: go}
  - {field: tags.name, op: eq, value: sql}
`

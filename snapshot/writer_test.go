package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/satrace/types"
)

func TestEncode(t *testing.T) {
	inst := types.Instance{
		NumVars: 2,
		Clauses: []types.Clause{{types.Pos(1), types.Neg(2)}},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "problem.cnf", inst))
	assert.Equal(t, "c problem.cnf\np cnf 2 1\n1 -2 0\n", buf.String())
}

func TestEncodePreservesOrderAndEmptyClauses(t *testing.T) {
	inst := types.Instance{
		NumVars: 3,
		Clauses: []types.Clause{
			{types.Neg(3), types.Pos(1), types.Neg(3)},
			{},
			{types.Pos(2)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "multi\nline  source", inst))
	want := "c multi line source\n" +
		"p cnf 3 3\n" +
		"-3 1 -3 0\n" +
		"0\n" +
		"2 0\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run.simplified")
	inst := types.Instance{
		NumVars: 2,
		Clauses: []types.Clause{{types.Pos(1), types.Neg(2)}},
	}
	require.NoError(t, Write(path, "in.cnf", inst))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c in.cnf\np cnf 2 1\n1 -2 0\n", string(data))

	// No temporary files are left next to the snapshot.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteRejectsInvalidInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.simplified")
	inst := types.Instance{NumVars: 1, Clauses: []types.Clause{{types.Pos(2)}}}

	err := Write(path, "bad.cnf", inst)
	require.ErrorIs(t, err, types.ErrInvalidInstance)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRenameFailureRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the target path makes the final rename fail.
	path := filepath.Join(dir, "run.simplified")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0755))

	inst := types.Instance{NumVars: 1, Clauses: []types.Clause{{types.Pos(1)}}}
	err := Write(path, "in.cnf", inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to move snapshot into place")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run.simplified", entries[0].Name())
}

func TestWriteUnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.Mkdir(dir, 0500))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	inst := types.Instance{NumVars: 1, Clauses: []types.Clause{{types.Pos(1)}}}
	err := Write(filepath.Join(dir, "run.simplified"), "in.cnf", inst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create snapshot file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package atomicfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/atomicfile"
)

func TestWriteCreatesNestedDirectoriesAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "plan.json")

	require.NoError(t, atomicfile.Write(path, []byte(`{"ok":true}`)))

	data, err := atomicfile.Read(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestWriteOverwritesExistingContentWithoutATemporaryFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")

	require.NoError(t, atomicfile.Write(path, []byte("first")))
	require.NoError(t, atomicfile.Write(path, []byte("second")))

	data, err := atomicfile.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppendLineAddsSuccessiveEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task_logs.json")

	require.NoError(t, atomicfile.AppendLine(path, []byte(`{"seq":1}`)))
	require.NoError(t, atomicfile.AppendLine(path, []byte(`{"seq":2}`)))

	data, err := atomicfile.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"seq\":1}\n{\"seq\":2}\n", string(data))
}

func TestReadMissingFileReturnsError(t *testing.T) {
	_, err := atomicfile.Read(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

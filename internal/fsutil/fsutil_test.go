package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data.json")

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, WriteJSON(path, payload{Name: "x", Count: 3}))

	var got payload
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, "x", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestWriteJSONAtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	require.NoError(t, WriteJSON(path, map[string]string{"v": "one"}))
	require.NoError(t, WriteJSON(path, map[string]string{"v": "two"}))

	var got map[string]string
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, "two", got["v"])

	// No temp files may survive the rename
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadJSONMissing(t *testing.T) {
	var got map[string]string
	err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &got)
	assert.Error(t, err)
}

func TestAppendLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "events.log")

	require.NoError(t, AppendLine(path, `{"event":"a"}`))
	require.NoError(t, AppendLine(path, `{"event":"b"}`))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"event":"a"}`, `{"event":"b"}`}, lines)
}

func TestReadLinesMissing(t *testing.T) {
	lines, err := ReadLines(filepath.Join(t.TempDir(), "nope.log"))
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("b"), 0644))

	require.NoError(t, CopyTree(src, dst, nil))

	assert.True(t, Exists(filepath.Join(dst, "a.txt")))
	assert.True(t, Exists(filepath.Join(dst, "sub", "b.txt")))
}

func TestCopyTreeExcludes(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git", "objects"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "HEAD"), []byte("ref"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "src", "main.go"), []byte("package main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "debug.log"), []byte("x"), 0644))

	require.NoError(t, CopyTree(src, dst, []string{".git/**", ".git", "**/*.log"}))

	assert.True(t, Exists(filepath.Join(dst, "src", "main.go")))
	assert.False(t, Exists(filepath.Join(dst, ".git")))
	assert.False(t, Exists(filepath.Join(dst, "debug.log")))
}

func TestCopyTreeMissingSource(t *testing.T) {
	err := CopyTree(filepath.Join(t.TempDir(), "absent"), t.TempDir(), nil)
	assert.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.json")
	dst := filepath.Join(t.TempDir(), "deep", "out.json")

	require.NoError(t, os.WriteFile(src, []byte(`{}`), 0644))
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestRemoveTreeMissing(t *testing.T) {
	assert.NoError(t, RemoveTree(filepath.Join(t.TempDir(), "absent")))
}

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	assert.True(t, Exists(dir))
}

package task

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/ralph/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(config.PathsFor(t.TempDir()))
}

func TestReadIndexDefault(t *testing.T) {
	s := newTestStore(t)

	idx, err := s.ReadIndex()
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", idx.Version)
	assert.Empty(t, idx.Tasks)
	assert.Equal(t, "", idx.ProjectGoal())
	assert.False(t, idx.UpdatedAt.IsZero())
}

func TestWriteIndexStampsUpdatedAt(t *testing.T) {
	s := newTestStore(t)

	idx, err := s.ReadIndex()
	require.NoError(t, err)
	before := idx.UpdatedAt

	require.NoError(t, s.WriteIndex(idx))

	persisted, err := s.ReadIndex()
	require.NoError(t, err)
	assert.False(t, persisted.UpdatedAt.Before(before))
	assert.Equal(t, "1.0.0", persisted.Version)
}

func TestUpsertAndGetTask(t *testing.T) {
	s := newTestStore(t)

	tk := New("auth.login", "implement login", 1)
	tk.Dependencies = []string{"auth.schema"}
	tk.EstimatedMinutes = 30
	require.NoError(t, s.UpsertTask(tk, ""))

	got, err := s.GetTask("auth.login")
	require.NoError(t, err)
	assert.Equal(t, "auth", got.Module)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, []string{"auth.schema"}, got.Dependencies)
	assert.Equal(t, 30, got.EstimatedMinutes)
}

func TestUpsertOverwritesStatus(t *testing.T) {
	s := newTestStore(t)

	tk := New("auth.login", "login", 1)
	require.NoError(t, s.UpsertTask(tk, ""))

	tk.Status = StatusCompleted
	require.NoError(t, s.UpsertTask(tk, ""))

	next, err := s.GetNextTask()
	require.NoError(t, err)
	assert.Equal(t, "", next, "no pending or in_progress tasks remain")
}

func TestUpsertStoresRelativeFilePath(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(config.PathsFor(dir))

	tk := New("auth.login", "login", 1)
	abs := filepath.Join(dir, "tasks", "auth", "login.md")
	require.NoError(t, s.UpsertTask(tk, abs))

	path, err := s.GetTaskFilePath("auth.login")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("auth", "login.md"), path)
}

func TestUpdateTaskStatus(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertTask(New("a.b", "", 1), ""))
	require.NoError(t, s.UpdateTaskStatus("a.b", StatusInProgress))

	got, err := s.GetTask("a.b")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestUpdateTaskStatusNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateTaskStatus("ghost.task", StatusCompleted)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "ghost.task")
}

func TestGetNextTaskLowestPriority(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertTask(New("a.one", "", 10), ""))
	require.NoError(t, s.UpsertTask(New("a.two", "", 1), ""))
	require.NoError(t, s.UpsertTask(New("a.three", "", 5), ""))

	next, err := s.GetNextTask()
	require.NoError(t, err)
	assert.Equal(t, "a.two", next)
}

func TestGetNextTaskPrefersInProgress(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertTask(New("a.pending", "", 1), ""))
	require.NoError(t, s.UpsertTask(New("a.resumed", "", 9), ""))
	require.NoError(t, s.UpdateTaskStatus("a.resumed", StatusInProgress))

	next, err := s.GetNextTask()
	require.NoError(t, err)
	assert.Equal(t, "a.resumed", next, "interrupted task surfaces before new work")
}

func TestGetNextTaskPriorityTieInsertionOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertTask(New("a.first", "", 3), ""))
	require.NoError(t, s.UpsertTask(New("a.second", "", 3), ""))

	next, err := s.GetNextTask()
	require.NoError(t, err)
	assert.Equal(t, "a.first", next)
}

func TestGetNextTaskSkipsTerminal(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertTask(New("a.done", "", 1), ""))
	require.NoError(t, s.UpsertTask(New("a.broken", "", 2), ""))
	require.NoError(t, s.UpsertTask(New("a.todo", "", 3), ""))
	require.NoError(t, s.UpdateTaskStatus("a.done", StatusInProgress))
	require.NoError(t, s.UpdateTaskStatus("a.done", StatusCompleted))
	require.NoError(t, s.UpdateTaskStatus("a.broken", StatusInProgress))
	require.NoError(t, s.UpdateTaskStatus("a.broken", StatusFailed))

	next, err := s.GetNextTask()
	require.NoError(t, err)
	assert.Equal(t, "a.todo", next)
}

func TestGetNextTaskEmpty(t *testing.T) {
	s := newTestStore(t)

	next, err := s.GetNextTask()
	require.NoError(t, err)
	assert.Equal(t, "", next)
}

func TestGetTaskFilePathDerived(t *testing.T) {
	s := newTestStore(t)

	path, err := s.GetTaskFilePath("auth.login")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("auth", "login.md"), path)
}

func TestGetTaskFilePathNoModule(t *testing.T) {
	s := newTestStore(t)

	path, err := s.GetTaskFilePath("setup")
	require.NoError(t, err)
	assert.Equal(t, "setup.md", path)
}

func TestUpdateMetadataMerge(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdateMetadata(map[string]any{"projectGoal": "ship auth"}))
	require.NoError(t, s.UpdateMetadata(map[string]any{"languageConfig": map[string]any{"language": "go"}}))

	idx, err := s.ReadIndex()
	require.NoError(t, err)
	assert.Equal(t, "ship auth", idx.ProjectGoal())
	assert.Contains(t, idx.Metadata, "languageConfig")
}

func TestCompletedIDs(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertTask(New("a.x", "", 1), ""))
	require.NoError(t, s.UpsertTask(New("a.y", "", 2), ""))
	require.NoError(t, s.UpdateTaskStatus("a.x", StatusInProgress))
	require.NoError(t, s.UpdateTaskStatus("a.x", StatusCompleted))

	completed, err := s.CompletedIDs()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a.x": true}, completed)
}

func TestListInsertionOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertTask(New("b.later", "", 1), ""))
	require.NoError(t, s.UpsertTask(New("a.earlier", "", 1), ""))

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.later", "a.earlier"}, ids)
}

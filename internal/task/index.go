package task

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joss/ralph/internal/config"
	"github.com/joss/ralph/internal/fsutil"
	"github.com/joss/ralph/internal/logging"
)

// IndexVersion is the current schema version of tasks/index.json.
const IndexVersion = "1.0.0"

// Record is the per-task summary stored in the index. Order captures
// insertion sequence for deterministic selection tie-breaks.
type Record struct {
	Status           Status   `json:"status"`
	Priority         int      `json:"priority"`
	Module           string   `json:"module"`
	Description      string   `json:"description"`
	Dependencies     []string `json:"dependencies,omitempty"`
	EstimatedMinutes int      `json:"estimatedMinutes,omitempty"`
	FilePath         string   `json:"filePath,omitempty"`
	Order            int      `json:"order"`
}

// Index is the persisted directory of all tasks plus project metadata.
type Index struct {
	Version   string             `json:"version"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Metadata  map[string]any     `json:"metadata"`
	Tasks     map[string]*Record `json:"tasks"`
}

// ProjectGoal returns the metadata project goal, or "".
func (idx *Index) ProjectGoal() string {
	if v, ok := idx.Metadata["projectGoal"].(string); ok {
		return v
	}
	return ""
}

// emptyIndex is the well-defined default for a workspace with no index.
func emptyIndex() *Index {
	return &Index{
		Version:   IndexVersion,
		UpdatedAt: time.Now().UTC(),
		Metadata:  map[string]any{"projectGoal": ""},
		Tasks:     make(map[string]*Record),
	}
}

// Store reads and writes the task index file. The file is the single
// source of truth; no cache is kept across operations.
type Store struct {
	paths  config.Paths
	logger *logging.Logger
}

// NewStore creates a store for the given workspace layout.
func NewStore(paths config.Paths) *Store {
	return &Store{
		paths:  paths,
		logger: logging.New("task-index").WithWorkspace(paths.Workspace),
	}
}

// ReadIndex returns the persisted index, or the empty default when no
// index file exists. "Not found" is never an error.
func (s *Store) ReadIndex() (*Index, error) {
	if !fsutil.Exists(s.paths.IndexFile) {
		return emptyIndex(), nil
	}

	var idx Index
	if err := fsutil.ReadJSON(s.paths.IndexFile, &idx); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if idx.Tasks == nil {
		idx.Tasks = make(map[string]*Record)
	}
	if idx.Metadata == nil {
		idx.Metadata = map[string]any{"projectGoal": ""}
	}
	return &idx, nil
}

// WriteIndex persists the index, always stamping a fresh updatedAt.
func (s *Store) WriteIndex(idx *Index) error {
	idx.UpdatedAt = time.Now().UTC()
	if idx.Version == "" {
		idx.Version = IndexVersion
	}
	if err := fsutil.WriteJSON(s.paths.IndexFile, idx); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	s.logger.Debug("index_written", map[string]interface{}{"tasks": len(idx.Tasks)})
	return nil
}

// UpsertTask inserts or overwrites the summary record for t.ID. filePath,
// when given, is stored relative to the tasks root.
func (s *Store) UpsertTask(t *Task, filePath string) error {
	idx, err := s.ReadIndex()
	if err != nil {
		return err
	}

	rec := &Record{
		Status:           t.Status,
		Priority:         t.Priority,
		Module:           t.Module,
		Description:      t.Description,
		Dependencies:     t.Dependencies,
		EstimatedMinutes: t.EstimatedMinutes,
		Order:            len(idx.Tasks),
	}
	if existing, ok := idx.Tasks[t.ID]; ok {
		rec.Order = existing.Order
		rec.FilePath = existing.FilePath
	}
	if filePath != "" {
		if rel, err := filepath.Rel(s.paths.TasksDir, filePath); err == nil && !strings.HasPrefix(rel, "..") {
			rec.FilePath = rel
		} else {
			rec.FilePath = filePath
		}
	}
	idx.Tasks[t.ID] = rec

	return s.WriteIndex(idx)
}

// UpdateTaskStatus sets the status of an existing task.
func (s *Store) UpdateTaskStatus(id string, status Status) error {
	idx, err := s.ReadIndex()
	if err != nil {
		return err
	}

	rec, ok := idx.Tasks[id]
	if !ok {
		return NewNotFoundError(id)
	}
	rec.Status = status

	return s.WriteIndex(idx)
}

// GetNextTask returns the id of the next eligible task, or "" when no
// pending or in_progress task remains. An interrupted in_progress task is
// surfaced before pending ones; within each group the lowest priority
// value wins, ties broken by insertion order. Dependency blocking is the
// caller's concern.
func (s *Store) GetNextTask() (string, error) {
	idx, err := s.ReadIndex()
	if err != nil {
		return "", err
	}

	type candidate struct {
		id  string
		rec *Record
	}

	var eligible []candidate
	for id, rec := range idx.Tasks {
		if rec.Status == StatusPending || rec.Status == StatusInProgress {
			eligible = append(eligible, candidate{id: id, rec: rec})
		}
	}
	if len(eligible) == 0 {
		return "", nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i].rec, eligible[j].rec
		if (a.Status == StatusInProgress) != (b.Status == StatusInProgress) {
			return a.Status == StatusInProgress
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Order < b.Order
	})

	return eligible[0].id, nil
}

// GetTaskFilePath returns the stored detail-document path for id, or a
// conventional path derived from the id: the dot-prefix becomes a
// directory, the remainder the markdown filename.
func (s *Store) GetTaskFilePath(id string) (string, error) {
	idx, err := s.ReadIndex()
	if err != nil {
		return "", err
	}

	if rec, ok := idx.Tasks[id]; ok && rec.FilePath != "" {
		return rec.FilePath, nil
	}

	if i := strings.Index(id, "."); i > 0 {
		return filepath.Join(id[:i], id[i+1:]+".md"), nil
	}
	return id + ".md", nil
}

// UpdateMetadata shallow-merges partial into the index metadata,
// preserving untouched keys.
func (s *Store) UpdateMetadata(partial map[string]any) error {
	idx, err := s.ReadIndex()
	if err != nil {
		return err
	}

	for k, v := range partial {
		idx.Metadata[k] = v
	}

	return s.WriteIndex(idx)
}

// GetTask returns the full task view reconstructed from the index record.
func (s *Store) GetTask(id string) (*Task, error) {
	idx, err := s.ReadIndex()
	if err != nil {
		return nil, err
	}

	rec, ok := idx.Tasks[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}

	return &Task{
		ID:               id,
		Module:           rec.Module,
		Priority:         rec.Priority,
		Status:           rec.Status,
		Description:      rec.Description,
		Dependencies:     rec.Dependencies,
		EstimatedMinutes: rec.EstimatedMinutes,
		FilePath:         rec.FilePath,
	}, nil
}

// CompletedIDs returns the set of completed task ids, for IsBlocked checks.
func (s *Store) CompletedIDs() (map[string]bool, error) {
	idx, err := s.ReadIndex()
	if err != nil {
		return nil, err
	}

	completed := make(map[string]bool)
	for id, rec := range idx.Tasks {
		if rec.Status == StatusCompleted {
			completed[id] = true
		}
	}
	return completed, nil
}

// List returns all task ids in insertion order.
func (s *Store) List() ([]string, error) {
	idx, err := s.ReadIndex()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(idx.Tasks))
	for id := range idx.Tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return idx.Tasks[ids[i]].Order < idx.Tasks[ids[j]].Order
	})
	return ids, nil
}

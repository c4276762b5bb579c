package healing

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Attempt is one recorded healing attempt.
type Attempt struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	AttemptNumber int       `json:"attempt_number"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	CircuitState  string    `json:"circuit_state"`
	CreatedAt     time.Time `json:"created_at"`
}

// History persists healing attempts across process runs, so operators
// can audit how often a task needed fixing and with what outcome.
type History struct {
	db      *sql.DB
	entropy *rand.Rand
}

// OpenHistory opens (creating if needed) the attempt database at dbPath.
func OpenHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open healing history: %w", err)
	}

	h := &History{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate healing history: %w", err)
	}
	return h, nil
}

func (h *History) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS healing_attempts (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		circuit_state TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_task ON healing_attempts(task_id, created_at);
	`
	_, err := h.db.Exec(schema)
	return err
}

func (h *History) Close() error {
	return h.db.Close()
}

// Record stores one attempt. The generated ulid doubles as insertion
// order across processes.
func (h *History) Record(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = ulid.MustNew(ulid.Timestamp(a.CreatedAt), h.entropy).String()
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO healing_attempts (id, task_id, attempt_number, success, error, circuit_state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.AttemptNumber, a.Success, a.Error, a.CircuitState, a.CreatedAt)
	return err
}

// ListForTask returns a task's attempts, oldest first.
func (h *History) ListForTask(ctx context.Context, taskID string) ([]Attempt, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, task_id, attempt_number, success, error, circuit_state, created_at
		FROM healing_attempts WHERE task_id = ? ORDER BY created_at, id
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var errMsg sql.NullString
		if err := rows.Scan(&a.ID, &a.TaskID, &a.AttemptNumber, &a.Success, &errMsg, &a.CircuitState, &a.CreatedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			a.Error = errMsg.String
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountForTask returns how many attempts are on record for a task.
func (h *History) CountForTask(ctx context.Context, taskID string) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM healing_attempts WHERE task_id = ?`, taskID).Scan(&n)
	return n, err
}

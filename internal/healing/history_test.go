package healing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/joss/ralph/internal/breaker"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "healing.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryRecordAndList(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	attempts := []Attempt{
		{TaskID: "auth.login", AttemptNumber: 1, Success: false, Error: "tests red", CircuitState: "CLOSED", CreatedAt: base},
		{TaskID: "auth.login", AttemptNumber: 2, Success: true, CircuitState: "CLOSED", CreatedAt: base.Add(time.Minute)},
		{TaskID: "db.schema", AttemptNumber: 1, Success: true, CircuitState: "CLOSED", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, a := range attempts {
		if err := h.Record(ctx, a); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := h.ListForTask(ctx, "auth.login")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d attempts", len(got))
	}
	if got[0].AttemptNumber != 1 || got[0].Error != "tests red" || got[0].Success {
		t.Errorf("first attempt = %+v", got[0])
	}
	if got[1].AttemptNumber != 2 || !got[1].Success || got[1].Error != "" {
		t.Errorf("second attempt = %+v", got[1])
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Errorf("ids not unique: %q %q", got[0].ID, got[1].ID)
	}

	n, err := h.CountForTask(ctx, "db.schema")
	if err != nil || n != 1 {
		t.Errorf("count = %d err = %v", n, err)
	}
}

func TestHistoryEmptyTask(t *testing.T) {
	h := openTestHistory(t)

	got, err := h.ListForTask(context.Background(), "nobody.home")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d attempts for unknown task", len(got))
	}
}

func TestServiceWritesHistory(t *testing.T) {
	h := openTestHistory(t)
	svc := NewService(breaker.DefaultConfig(), WithLogger(quietLogger()), WithHistory(h))

	svc.AttemptHealing(context.Background(), "auth.login", &countingOp{healed: true})
	svc.AttemptHealing(context.Background(), "auth.login", &countingOp{healed: false})

	got, err := h.ListForTask(context.Background(), "auth.login")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d attempts", len(got))
	}
	if !got[0].Success || got[1].Success {
		t.Errorf("attempts = %+v", got)
	}
	if got[1].AttemptNumber != 2 {
		t.Errorf("attempt number = %d", got[1].AttemptNumber)
	}
}

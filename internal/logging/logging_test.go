package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoggerCreation(t *testing.T) {
	// Set env vars for testing
	os.Setenv("RALPH_WORKSPACE", "/tmp/ws")
	os.Setenv("RALPH_SESSION_ID", "sess-1")
	defer os.Unsetenv("RALPH_WORKSPACE")
	defer os.Unsetenv("RALPH_SESSION_ID")

	logger := New("test-component")

	if logger.component != "test-component" {
		t.Errorf("expected component 'test-component', got '%s'", logger.component)
	}
	if logger.workspace != "/tmp/ws" {
		t.Errorf("expected workspace '/tmp/ws', got '%s'", logger.workspace)
	}
	if logger.session != "sess-1" {
		t.Errorf("expected session 'sess-1', got '%s'", logger.session)
	}
}

func TestLoggerWithWorkspace(t *testing.T) {
	logger := New("component").WithWorkspace("/my/workspace")

	if logger.workspace != "/my/workspace" {
		t.Errorf("expected workspace '/my/workspace', got '%s'", logger.workspace)
	}
}

func TestEventSerialization(t *testing.T) {
	event := Event{
		Timestamp: "2024-01-01T00:00:00Z",
		Level:     LevelInfo,
		Component: "test",
		Message:   "test_event",
		Workspace: "/ws",
		Duration:  100,
		Extra: map[string]interface{}{
			"key": "value",
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}

	if parsed["level"] != "info" {
		t.Errorf("expected level 'info', got '%v'", parsed["level"])
	}
	if parsed["component"] != "test" {
		t.Errorf("expected component 'test', got '%v'", parsed["component"])
	}
	if parsed["duration_ms"].(float64) != 100 {
		t.Errorf("expected duration_ms 100, got '%v'", parsed["duration_ms"])
	}
}

func TestLoggerInfoOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New("saga").WithOutput(&buf)

	logger.Info("saga_started", map[string]interface{}{"steps": 3})

	output := buf.String()
	if !strings.Contains(output, `"msg":"saga_started"`) {
		t.Errorf("expected saga_started in output, got: %s", output)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed["extra"].(map[string]interface{})["steps"].(float64) != 3 {
		t.Errorf("expected steps=3, got: %v", parsed["extra"])
	}
}

func TestLoggerErrorIncludesError(t *testing.T) {
	var buf bytes.Buffer
	logger := New("healing").WithOutput(&buf)

	logger.Error("heal_failed", map[string]interface{}{"task": "auth.login"}, errors.New("boom"))

	output := buf.String()
	if !strings.Contains(output, `"error":"boom"`) {
		t.Errorf("expected error field in output, got: %s", output)
	}
}

func TestTimedEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := New("cli").WithOutput(&buf)

	start := time.Now().Add(-250 * time.Millisecond)
	logger.TimedEvent("command_ok", start, map[string]interface{}{"action": "status"})

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed["msg"] != "command_ok" {
		t.Errorf("expected command_ok, got: %v", parsed["msg"])
	}
	dur, ok := parsed["duration_ms"].(float64)
	if !ok || dur < 250 {
		t.Errorf("expected duration_ms >= 250, got: %v", parsed["duration_ms"])
	}
	if parsed["extra"].(map[string]interface{})["action"] != "status" {
		t.Errorf("expected action=status, got: %v", parsed["extra"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test").WithOutput(&buf)
	logger.minLevel = LevelWarn

	logger.Debug("hidden", nil)
	logger.Info("also hidden", nil)
	logger.Warn("visible", nil, nil)

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("expected debug/info suppressed, got: %s", output)
	}
	if !strings.Contains(output, "visible") {
		t.Errorf("expected warn to pass filter, got: %s", output)
	}
}

func TestRecoveryHandlerWrapError(t *testing.T) {
	handler := NewRecoveryHandler("test")

	err := handler.WrapError(func() error {
		panic("something broke")
	})

	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if !strings.Contains(err.Error(), "something broke") {
		t.Errorf("expected panic message in error, got: %v", err)
	}
}

func TestRecoveryHandlerWrapNoPanic(t *testing.T) {
	handler := NewRecoveryHandler("test")

	err := handler.WrapError(func() error {
		return nil
	})

	if err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

func TestRecoveryHandlerOnPanicCallback(t *testing.T) {
	handler := NewRecoveryHandler("test")

	var captured interface{}
	handler.OnPanic = func(err interface{}, stack string) {
		captured = err
	}

	handler.Wrap(func() {
		panic("cb test")
	})

	if captured != "cb test" {
		t.Errorf("expected callback with panic value, got: %v", captured)
	}
}

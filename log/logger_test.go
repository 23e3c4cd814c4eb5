package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_SessionFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLoggerWithWriter(Meta{SessionID: "s-1", Component: "proxy"}, &buf)
	l.Info("captured", map[string]any{"path": "/kcsapi/api_port/port"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, buf.String())
	}
	if entry["session_id"] != "s-1" {
		t.Errorf("session_id = %v", entry["session_id"])
	}
	if entry["component"] != "proxy" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["message"] != "captured" || entry["level"] != "info" {
		t.Errorf("unexpected entry %v", entry)
	}
	fields, _ := entry["fields"].(map[string]any)
	if fields["path"] != "/kcsapi/api_port/port" {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestLogger_Named(t *testing.T) {
	var buf bytes.Buffer
	l := newLoggerWithWriter(Meta{}, &buf).Named("world")
	l.Warn("inconsistency", nil)
	if !strings.Contains(buf.String(), `"component":"world"`) {
		t.Errorf("expected component field, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"", "debug", "INFO", "warn", "warning", "error"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logbook.log")
	l, err := New(Meta{SessionID: "s-2"}, Options{Level: "warn", File: path, Quiet: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("dropped by level", nil)
	l.Error("kept", nil)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "dropped by level") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(string(data), `"message":"kept"`) {
		t.Errorf("expected error entry in file, got %s", data)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("ignored", map[string]any{"k": 1})
	if err := l.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

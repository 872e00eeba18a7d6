package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_NoopBeforeInit(t *testing.T) {
	Close()
	Info("dropped %d", 1)
	WithFields(map[string]interface{}{"step": "alert"}).Info("dropped")

	if current() != nil {
		t.Error("no logger should be installed before Init")
	}
	if out := WithFields(nil).Logger.Out; out != io.Discard {
		t.Errorf("entry before Init should discard, got %T", out)
	}
}

func TestLogger_InitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Info("STEP: Tapped on '%s'", "alertViewOKButton")
	Error("boom")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "level=info") || !strings.Contains(out, "alertViewOKButton") {
		t.Errorf("log missing info line: %s", out)
	}
	if !strings.Contains(out, "level=error") {
		t.Errorf("log missing error line: %s", out)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	defer Close()

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	Debug("hidden")
	Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message should be written")
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel should reject unknown levels")
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	defer Close()

	WithFields(map[string]interface{}{"step": "back-stack", "taps": 3}).Info("drained")

	out := buf.String()
	if !strings.Contains(out, "step=back-stack") || !strings.Contains(out, "taps=3") {
		t.Errorf("fields missing from output: %s", out)
	}
}

package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	if err := Init(Config{Level: "debug", OutputFile: path, MaxSize: 1, NoColor: true}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	WithField("component", "test").Info("hello file")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "hello file") || !strings.Contains(string(b), "component=test") {
		t.Fatalf("unexpected log contents: %q", string(b))
	}
	if GetCurrentLogFile() != path {
		t.Fatalf("current log file got=%s want=%s", GetCurrentLogFile(), path)
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	if err := Init(Config{Level: "loud", NoColor: true}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug line should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown 2") {
		t.Fatalf("info line missing: %q", buf.String())
	}
}

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chatd.log")

	logger, err := New(path, "work", "debug")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"msg":"hello"`)) {
		t.Errorf("log file missing message: %s", data)
	}
	if !bytes.Contains(data, []byte(`"profile":"work"`)) {
		t.Errorf("log file missing profile field: %s", data)
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatd.log")

	logger, err := New(path, "main", "loud")
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if bytes.Contains(data, []byte("hidden")) {
		t.Error("debug entry written at info level")
	}
	if !bytes.Contains(data, []byte("shown")) {
		t.Error("info entry missing")
	}
}

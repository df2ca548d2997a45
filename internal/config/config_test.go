package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.Documents.Backend = "redis"
	cfg.Connectivity.Targets = []string{"10.0.0.1:443"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Documents.Backend != "redis" {
		t.Errorf("Documents.Backend = %q, want redis", loaded.Documents.Backend)
	}
	if len(loaded.Connectivity.Targets) != 1 || loaded.Connectivity.Targets[0] != "10.0.0.1:443" {
		t.Errorf("Connectivity.Targets = %v", loaded.Connectivity.Targets)
	}
	if loaded.Upload.JPEGQuality != 70 {
		t.Errorf("Upload.JPEGQuality = %d, want 70", loaded.Upload.JPEGQuality)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "default_profile = \"work\"\n[upload]\ncloud_name = \"demo\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upload.CloudName != "demo" {
		t.Errorf("CloudName = %q, want demo", cfg.Upload.CloudName)
	}
	if cfg.Upload.UploadPreset != "chat_uploads" || cfg.Upload.Folder != "chat_images" {
		t.Errorf("upload defaults lost: %+v", cfg.Upload)
	}
	if cfg.Connectivity.Interval() != 5*time.Second {
		t.Errorf("Interval() = %v, want 5s", cfg.Connectivity.Interval())
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.DefaultProfile != "main" || cfg.Documents.Backend != "mongo" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CHATROOM_DOCUMENTS_URI", "mongodb://db.internal:27017")
	t.Setenv("CHATROOM_UPLOAD_BACKEND", "s3")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Documents.URI != "mongodb://db.internal:27017" {
		t.Errorf("Documents.URI = %q", cfg.Documents.URI)
	}
	if cfg.Upload.Backend != "s3" {
		t.Errorf("Upload.Backend = %q", cfg.Upload.Backend)
	}
}

func TestBreakerThreshold(t *testing.T) {
	tests := []struct {
		max  int
		want uint32
	}{
		{3, 3},
		{0, 5},
		{-1, 5},
	}
	for _, tt := range tests {
		if got := (BreakerConfig{MaxFailures: tt.max}).Threshold(); got != tt.want {
			t.Errorf("Threshold() with max_failures %d = %d, want %d", tt.max, got, tt.want)
		}
	}
}

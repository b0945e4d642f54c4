package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  host: "testdb"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "vidgrab_test"

session:
  maxEntries: 500
  ttl: "10m"
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	if cfg.Database.DBName != "vidgrab_test" {
		t.Errorf("Expected dbname vidgrab_test, got %s", cfg.Database.DBName)
	}

	if cfg.Session.MaxEntries != 500 {
		t.Errorf("Expected 500 session entries, got %d", cfg.Session.MaxEntries)
	}

	if cfg.Session.TTL != 10*time.Minute {
		t.Errorf("Expected 10m session TTL, got %v", cfg.Session.TTL)
	}

	// Defaults fill in everything the file omits
	if cfg.Downloader.YtDlpPath != "yt-dlp" {
		t.Errorf("Expected default yt-dlp path, got %s", cfg.Downloader.YtDlpPath)
	}

	if cfg.Storage.MaxFileSize != 2*1024*1024*1024 {
		t.Errorf("Expected 2GB max file size default, got %d", cfg.Storage.MaxFileSize)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mnemo.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("MNEMO_TEST_DSN", "postgres://real")

	path := writeConfig(t, `{
		"server": {"port": 9090},
		"database": {
			"postgres": {"dsn": "${MNEMO_TEST_DSN}"},
			"redis": {"url": "${MNEMO_TEST_REDIS:redis://localhost:6379}"}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Postgres.DSN != "postgres://real" {
		t.Errorf("dsn = %q, want env value", cfg.Database.Postgres.DSN)
	}
	if cfg.Database.Redis.URL != "redis://localhost:6379" {
		t.Errorf("redis url = %q, want default", cfg.Database.Redis.URL)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Extraction.BatchSize != 20 {
		t.Errorf("batch size = %d, want 20", cfg.Extraction.BatchSize)
	}
	if cfg.Extraction.MinExchangeChars != 150 {
		t.Errorf("min exchange chars = %d, want 150", cfg.Extraction.MinExchangeChars)
	}
	if cfg.Extraction.AgentID != "mnemo-extractor" {
		t.Errorf("agent id = %q, want mnemo-extractor", cfg.Extraction.AgentID)
	}
	if cfg.Recall.DurableCollection != "memories" {
		t.Errorf("durable collection = %q, want memories", cfg.Recall.DurableCollection)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/mnemo.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

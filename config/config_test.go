package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFileBuildsDSNAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  host: db.local
  port: 3306
  username: tutor
  password: secret
  database: roadmaps
  parse_time: true
recommender:
  timeout_sec: 30
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	wantDSN := "tutor:secret@tcp(db.local:3306)/roadmaps?charset=utf8mb4&parseTime=true"
	if cfg.DB.DSN != wantDSN {
		t.Errorf("DSN = %q, want %q", cfg.DB.DSN, wantDSN)
	}
	if cfg.Recommender.Python != "python3" {
		t.Errorf("Python = %q, want python3", cfg.Recommender.Python)
	}
	if got := cfg.Dataset.ModelFiles; len(got) != 2 || got[0] != "roadmap_model.pkl" || got[1] != "scaler.pkl" {
		t.Errorf("ModelFiles = %v", got)
	}
	if cfg.Auth.UserHeader != "X-User-ID" {
		t.Errorf("UserHeader = %q", cfg.Auth.UserHeader)
	}
	// 写超时至少覆盖两次外部进程调用
	if cfg.Timeouts.ResponseSec < 2*cfg.Recommender.TimeoutSec {
		t.Errorf("ResponseSec = %d is shorter than recommender timeout %d", cfg.Timeouts.ResponseSec, cfg.Recommender.TimeoutSec)
	}
}

func TestLoadFromFileEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "from-env")
	t.Setenv("JWT_SECRET", "jwt-from-env")
	t.Setenv("RECOMMENDER_PYTHON", "/usr/bin/python3.12")

	path := writeConfig(t, `
database:
  host: localhost
  port: 3306
  username: tutor
  password: from-file
  database: roadmaps
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.DB.Password != "from-env" {
		t.Errorf("Password = %q, want from-env", cfg.DB.Password)
	}
	if cfg.Auth.JWTSecret != "jwt-from-env" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Recommender.Python != "/usr/bin/python3.12" {
		t.Errorf("Python = %q", cfg.Recommender.Python)
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFromFileForcesParseTime(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.local
  port: 3306
  username: tutor
  password: secret
  database: roadmaps
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if !cfg.DB.ParseTime {
		t.Error("ParseTime should always be enabled")
	}
	wantDSN := "tutor:secret@tcp(db.local:3306)/roadmaps?charset=utf8mb4&parseTime=true"
	if cfg.DB.DSN != wantDSN {
		t.Errorf("DSN = %q, want %q", cfg.DB.DSN, wantDSN)
	}
}

func TestLockTTLCoversCriticalSection(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantTTL int
	}{
		{"default timeout keeps default ttl", "redis:\n  addr: localhost:6379\n", 300},
		{"long timeout raises ttl", "redis:\n  addr: localhost:6379\nrecommender:\n  timeout_sec: 200\n", 460},
		{"explicit ttl raised", "redis:\n  lock_ttl_sec: 100\nrecommender:\n  timeout_sec: 60\n", 180},
		{"explicit larger ttl kept", "redis:\n  lock_ttl_sec: 900\nrecommender:\n  timeout_sec: 60\n", 900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeConfig(t, tt.body))
			if err != nil {
				t.Fatalf("LoadFromFile: %v", err)
			}
			if cfg.Redis.LockTTL != tt.wantTTL {
				t.Errorf("LockTTL = %d, want %d", cfg.Redis.LockTTL, tt.wantTTL)
			}
			// 锁内最多两次进程调用
			if cfg.Redis.LockTTL < 2*cfg.Recommender.TimeoutSec {
				t.Errorf("LockTTL %d shorter than two recommender runs (%d each)", cfg.Redis.LockTTL, cfg.Recommender.TimeoutSec)
			}
		})
	}
}

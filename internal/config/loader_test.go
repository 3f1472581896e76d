package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "db_path: /tmp/bot.sqlite\nlog_level: debug\nweb_server:\n  port: 4100\ntwitch:\n  username: michel\n  channel: moulins\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/bot.sqlite" || cfg.LogLevel != "debug" || cfg.WebServer.Port != 4100 || cfg.Twitch.Username != "michel" || cfg.Twitch.Channel != "moulins" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.WebServer.URI != "http://localhost" {
		t.Fatalf("absent key must keep default, got %q", cfg.WebServer.URI)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"db_path":"/m.sqlite","streams":["obs","overlay"],"gg":{"reward":"r-1"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/m.sqlite" || cfg.GG.Reward != "r-1" || !reflect.DeepEqual(cfg.Streams, []string{"obs", "overlay"}) {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "log_format=\"console\"\n[web_server]\nuri=\"http://bot.local\"\nport=4200\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != "console" || cfg.WebServer.URI != "http://bot.local" || cfg.WebServer.Port != 4200 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "gg:\n  reward: from-file\nweb_server:\n  port: 4100\n")
	t.Setenv("GG_REWARD", "from-env")
	t.Setenv("BOTD_CORS_ORIGINS", "http://a.test,http://b.test")
	cfg, err := Resolve(p, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.GG.Reward != "from-env" {
		t.Fatalf("reward=%q", cfg.GG.Reward)
	}
	if cfg.WebServer.Port != 4100 {
		t.Fatalf("port=%d", cfg.WebServer.Port)
	}
	if !reflect.DeepEqual(cfg.WebServer.CORSOrigins, []string{"http://a.test", "http://b.test"}) {
		t.Fatalf("origins=%v", cfg.WebServer.CORSOrigins)
	}
}

func TestResolve_DotenvFile(t *testing.T) {
	d := t.TempDir()
	envFile := writeTempFile(t, d, ".env", "TWITCH_CLIENT_ID=dotenv-id\nTWITCH_CLIENT_SECRET=dotenv-secret\n")
	// registered with t.Setenv so the test restores them; godotenv leaves set vars alone
	t.Setenv("TWITCH_CLIENT_SECRET", "process-secret")
	t.Setenv("TWITCH_CLIENT_ID", "")
	os.Unsetenv("TWITCH_CLIENT_ID")
	cfg, err := Resolve("", envFile)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Twitch.ClientID != "dotenv-id" {
		t.Fatalf("client id=%q", cfg.Twitch.ClientID)
	}
	if cfg.Twitch.ClientSecret != "process-secret" {
		t.Fatalf("client secret=%q", cfg.Twitch.ClientSecret)
	}
}

func TestResolve_MissingDotenvIgnored(t *testing.T) {
	cfg, err := Resolve("", filepath.Join(t.TempDir(), ".env"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.WebServer.Port != 4000 || cfg.DBPath != "dao/db.sqlite" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vincentbai/browsetrace-server/internal/config"
	"github.com/vincentbai/browsetrace-server/internal/logger"
)

func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	t.Setenv("BROWSETRACE_DB_PATH", "")
	t.Setenv("BROWSETRACE_ADDRESS", "")

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Address = "127.0.0.1:0"
	cfg.LogMode = "production"
	cfg.Database.Path = filepath.Join(dir, "data", "browsetrace.db")
	path := filepath.Join(dir, "config.toml")
	if err := config.Init(path, cfg); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path, cfg
}

func execute(ctx context.Context, args ...string) error {
	configPath = ""
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := execute(context.Background(), "config", "init", "--config", path); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		t.Fatalf("Failed to read written config: %v", err)
	}
	if cfg.Address != config.Default().Address {
		t.Errorf("Expected default address, got %s", cfg.Address)
	}

	if err := execute(context.Background(), "config", "init", "--config", path); err == nil {
		t.Error("Expected error when config already exists")
	}
}

func TestInitDBCommand(t *testing.T) {
	path, cfg := writeTestConfig(t)

	if err := execute(context.Background(), "initdb", "--config", path); err != nil {
		t.Fatalf("initdb error = %v", err)
	}
	if _, err := os.Stat(cfg.Database.Path); err != nil {
		t.Errorf("Expected database file at %s: %v", cfg.Database.Path, err)
	}
}

func TestInitDBCommandRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[database]\ntype = \"oracle\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(context.Background(), "initdb", "--config", path); err == nil {
		t.Error("Expected error for unsupported database type")
	}
}

func TestServeStopsWhenContextDone(t *testing.T) {
	path, _ := writeTestConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := execute(ctx, "serve", "--config", path); err != nil {
		t.Errorf("serve error = %v", err)
	}
}

func TestOpenDatabaseWarnsWithoutCredentials(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{
		Type:            config.DriverPostgres,
		Host:            "127.0.0.1",
		Port:            1,
		Name:            "extension",
		CredentialsPath: filepath.Join(t.TempDir(), "missing.json"),
	}

	// Nothing listens on port 1, so the open fails after the warning.
	if db, err := openDatabase(cfg, log); err == nil {
		db.Close()
		t.Fatal("Expected connection error")
	}
	if logs.FilterMessageSnippet("no database credentials found").Len() != 1 {
		t.Errorf("Expected a missing-credentials warning, got %v", logs.All())
	}
}

func TestOpenDatabaseRejectsMalformedCredentials(t *testing.T) {
	credsPath := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(credsPath, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{
		Type:            config.DriverMySQL,
		Host:            "127.0.0.1",
		Port:            1,
		Name:            "extension",
		CredentialsPath: credsPath,
	}

	_, err := openDatabase(cfg, logger.Nop())
	if err == nil || !strings.Contains(err.Error(), "decode credentials") {
		t.Errorf("Expected credentials decode error, got %v", err)
	}
}

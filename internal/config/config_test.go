package config

import (
    "os"
    "path/filepath"
    "testing"
)

func TestLoadDefaults(t *testing.T) {
    t.Setenv("CONFIG_FILE", "")
    t.Setenv("PORT", "")
    t.Setenv("DATABASE_URL", "")
    t.Setenv("REDIS_URL", "")
    t.Setenv("OPTIMIZE_RPS", "")
    cfg, err := Load()
    if err != nil { t.Fatalf("Load: %v", err) }
    if cfg.Addr != ":8080" { t.Fatalf("addr = %q", cfg.Addr) }
    if cfg.Defaults.PopulationSize != 50 || cfg.Defaults.MutationRate != 0.05 {
        t.Fatalf("engine defaults not applied: %+v", cfg.Defaults)
    }
    if cfg.Defaults.MaxWeight != 45000 || cfg.Defaults.MaxPallets != 25 {
        t.Fatalf("capacity defaults not applied: %+v", cfg.Defaults)
    }
}

func TestLoadFileAndEnvOverride(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "config.yaml")
    data := []byte("addr: \":9000\"\nsyncRecordLimit: 50\ndefaults:\n  populationSize: 120\n  mutationRate: 0.1\n")
    if err := os.WriteFile(path, data, 0o600); err != nil { t.Fatalf("write: %v", err) }
    t.Setenv("CONFIG_FILE", path)
    t.Setenv("PORT", "7000")
    t.Setenv("DATABASE_URL", "")
    t.Setenv("REDIS_URL", "")
    t.Setenv("OPTIMIZE_RPS", "")
    cfg, err := Load()
    if err != nil { t.Fatalf("Load: %v", err) }
    if cfg.Addr != ":7000" { t.Fatalf("env should win over file, addr = %q", cfg.Addr) }
    if cfg.SyncRecordLimit != 50 || cfg.Defaults.PopulationSize != 120 || cfg.Defaults.MutationRate != 0.1 {
        t.Fatalf("file values not applied: %+v", cfg)
    }
}

func TestLoadRateLimitEnvOverrides(t *testing.T) {
    t.Setenv("CONFIG_FILE", "")
    t.Setenv("PORT", "")
    t.Setenv("DATABASE_URL", "")
    t.Setenv("REDIS_URL", "")
    t.Setenv("OPTIMIZE_RPS", "2.5")
    t.Setenv("OPTIMIZE_BURST", "12")
    cfg, err := Load()
    if err != nil { t.Fatalf("Load: %v", err) }
    if cfg.OptimizeRPS != 2.5 { t.Fatalf("rps = %v, want 2.5", cfg.OptimizeRPS) }
    if cfg.OptimizeBurst != 12 { t.Fatalf("burst = %d, want 12", cfg.OptimizeBurst) }
}

func TestLoadBadFile(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "config.yaml")
    if err := os.WriteFile(path, []byte(":\n  - ["), 0o600); err != nil { t.Fatalf("write: %v", err) }
    t.Setenv("CONFIG_FILE", path)
    if _, err := Load(); err == nil { t.Fatal("malformed YAML accepted") }
}

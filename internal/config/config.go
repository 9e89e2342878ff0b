package config

import (
    "fmt"
    "os"
    "strconv"
    "time"

    yaml "gopkg.in/yaml.v3"
)

// Config is the service configuration. Values come from an optional YAML
// file (CONFIG_FILE) overlaid with environment variables; env wins.
type Config struct {
    Addr        string `yaml:"addr"`
    DatabaseURL string `yaml:"databaseUrl"`
    RedisURL    string `yaml:"redisUrl"`

    // Limits on accepted optimize requests
    MaxDemandRecords int `yaml:"maxDemandRecords"`
    MaxGenerations   int `yaml:"maxGenerations"`
    MaxPopulation    int `yaml:"maxPopulation"`
    // SyncRecordLimit: requests above this record count must run async
    SyncRecordLimit int `yaml:"syncRecordLimit"`

    // Rate limiting for POST /v1/optimize, per tenant
    OptimizeRPS   float64 `yaml:"optimizeRps"`
    OptimizeBurst int     `yaml:"optimizeBurst"`

    // Engine defaults applied when the request leaves them zero
    Defaults EngineDefaults `yaml:"defaults"`
}

type EngineDefaults struct {
    PopulationSize int     `yaml:"populationSize"`
    Generations    int     `yaml:"generations"`
    MutationRate   float64 `yaml:"mutationRate"`
    CrossoverRate  float64 `yaml:"crossoverRate"`
    TournamentSize int     `yaml:"tournamentSize"`
    MaxWeight      float64 `yaml:"maxWeight"`
    MaxPallets     float64 `yaml:"maxPallets"`
    TimeBudget     time.Duration `yaml:"timeBudget"`
}

// Load reads CONFIG_FILE if set, then applies env overrides and defaults.
func Load() (Config, error) {
    cfg := Config{}
    if path := os.Getenv("CONFIG_FILE"); path != "" {
        raw, err := os.ReadFile(path)
        if err != nil {
            return Config{}, fmt.Errorf("read config: %w", err)
        }
        if err := yaml.Unmarshal(raw, &cfg); err != nil {
            return Config{}, fmt.Errorf("parse config: %w", err)
        }
    }
    if v := os.Getenv("PORT"); v != "" { cfg.Addr = ":" + v }
    if v := os.Getenv("DATABASE_URL"); v != "" { cfg.DatabaseURL = v }
    if v := os.Getenv("REDIS_URL"); v != "" { cfg.RedisURL = v }
    if v := os.Getenv("OPTIMIZE_RPS"); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 { cfg.OptimizeRPS = f }
    }
    if v := os.Getenv("OPTIMIZE_BURST"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 { cfg.OptimizeBurst = n }
    }
    cfg.applyDefaults()
    return cfg, nil
}

func (c *Config) applyDefaults() {
    if c.Addr == "" { c.Addr = ":8080" }
    if c.MaxDemandRecords <= 0 { c.MaxDemandRecords = 10000 }
    if c.MaxGenerations <= 0 { c.MaxGenerations = 5000 }
    if c.MaxPopulation <= 0 { c.MaxPopulation = 2000 }
    if c.SyncRecordLimit <= 0 { c.SyncRecordLimit = 500 }
    if c.OptimizeRPS <= 0 { c.OptimizeRPS = 1 }
    if c.OptimizeBurst <= 0 { c.OptimizeBurst = 5 }
    d := &c.Defaults
    if d.PopulationSize <= 0 { d.PopulationSize = 50 }
    if d.Generations <= 0 { d.Generations = 100 }
    if d.MutationRate <= 0 { d.MutationRate = 0.05 }
    if d.CrossoverRate <= 0 { d.CrossoverRate = 0.8 }
    if d.TournamentSize <= 0 { d.TournamentSize = 3 }
    if d.MaxWeight <= 0 { d.MaxWeight = 45000 }
    if d.MaxPallets <= 0 { d.MaxPallets = 25 }
}

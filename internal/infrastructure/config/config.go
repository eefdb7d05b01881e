package config

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		UserID        string `toml:"user_id"`
		PrintEverySec int    `toml:"print_every_sec"`
	} `toml:"app"`

	Symbols struct {
		// List filters the seed table; empty means every seeded symbol.
		List []string `toml:"list"`
	} `toml:"symbols"`

	Feed struct {
		TickIntervalMs int     `toml:"tick_interval_ms"`
		Volatility     float64 `toml:"volatility"`
		// DriftProbability is a pointer so an explicit 0 (drift disabled)
		// is distinguishable from an absent key (default applies).
		DriftProbability *float64 `toml:"drift_probability"`
		DriftNudge       float64  `toml:"drift_nudge"`
		Seed             int64    `toml:"seed"`
	} `toml:"feed"`

	SeedSource struct {
		Source    string `toml:"source"` // "static" or "http"
		URL       string `toml:"url"`
		TimeoutMs int    `toml:"timeout_ms"`
	} `toml:"seed_source"`

	Profile struct {
		LoadTimeoutMs  int `toml:"load_timeout_ms"`
		SaveDebounceMs int `toml:"save_debounce_ms"`
	} `toml:"profile"`

	Server struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"server"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Redis struct {
		Enabled     bool   `toml:"enabled"`
		Addr        string `toml:"addr"`
		Password    string `toml:"password"`
		DB          int    `toml:"db"`
		Prefix      string `toml:"prefix"`
		TTLSeconds  int    `toml:"ttl_seconds"`
		TickChannel string `toml:"tick_channel"`
	} `toml:"redis"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Snapshot struct {
		// Cron spec (with seconds field) for the equity snapshot job.
		Cron string `toml:"cron"`
	} `toml:"snapshot"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for running without a
// config file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.App.UserID == "" {
		cfg.App.UserID = "default"
	}
	if cfg.App.PrintEverySec <= 0 {
		cfg.App.PrintEverySec = 60
	}
	if cfg.Feed.TickIntervalMs <= 0 {
		cfg.Feed.TickIntervalMs = 2000
	}
	if cfg.Feed.Volatility <= 0 {
		cfg.Feed.Volatility = 0.002
	}
	if cfg.Feed.DriftProbability == nil {
		p := 0.45
		cfg.Feed.DriftProbability = &p
	}
	if cfg.Feed.DriftNudge <= 0 {
		cfg.Feed.DriftNudge = 0.05
	}
	if cfg.SeedSource.Source == "" {
		cfg.SeedSource.Source = "static"
	}
	if cfg.SeedSource.TimeoutMs <= 0 {
		cfg.SeedSource.TimeoutMs = 1000
	}
	if cfg.Profile.LoadTimeoutMs <= 0 {
		cfg.Profile.LoadTimeoutMs = 4000
	}
	if cfg.Profile.SaveDebounceMs <= 0 {
		cfg.Profile.SaveDebounceMs = 1500
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8480"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/marketsim.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "marketsim"
	}
	if cfg.Snapshot.Cron == "" {
		cfg.Snapshot.Cron = "0 * * * * *" // every minute
	}
}

func validate(cfg *Config) error {
	cfg.Symbols.List = normalizeSymbols(cfg.Symbols.List)

	src := strings.ToLower(strings.TrimSpace(cfg.SeedSource.Source))
	if src != "static" && src != "http" {
		return errors.New("seed_source.source must be \"static\" or \"http\"")
	}
	cfg.SeedSource.Source = src
	if src == "http" && strings.TrimSpace(cfg.SeedSource.URL) == "" {
		return errors.New("seed_source.url empty but source is http")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	if p := *cfg.Feed.DriftProbability; p < 0 || p > 1 {
		return errors.New("feed.drift_probability must be in [0, 1]")
	}
	return nil
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

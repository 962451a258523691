package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.BatchSize)
	}
	if cfg.BechdelRPS != 10 {
		t.Errorf("BechdelRPS = %v, want 10", cfg.BechdelRPS)
	}
	if cfg.JustWatchFuzzyDistance != 5 || cfg.JustWatchExactDistance != 0 {
		t.Errorf("distances = %d/%d, want 0/5", cfg.JustWatchExactDistance, cfg.JustWatchFuzzyDistance)
	}
	if cfg.NetflixCountries["is"] != "denmark" || cfg.NetflixCountries["de"] != "germany" {
		t.Errorf("NetflixCountries = %v", cfg.NetflixCountries)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BATCH_SIZE", "20")
	t.Setenv("CACHE_WRITE_ONLY", "true")
	t.Setenv("BECHDEL_TTL", "2h")
	t.Setenv("NETFLIX_COUNTRIES", "se:sweden, bad, :x")
	t.Setenv("NETFLIX_LOCALE", "se")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://localhost:3000, https://watchlist.example")

	cfg := Load()
	if cfg.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", cfg.BatchSize)
	}
	if !cfg.CacheWriteOnly {
		t.Error("CacheWriteOnly should be true")
	}
	if cfg.BechdelTTL != 2*time.Hour {
		t.Errorf("BechdelTTL = %v", cfg.BechdelTTL)
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[1] != "https://watchlist.example" {
		t.Errorf("CORSAllowOrigins = %v", cfg.CORSAllowOrigins)
	}
	if len(cfg.NetflixCountries) != 1 || cfg.NetflixCountries["se"] != "sweden" {
		t.Errorf("NetflixCountries = %v", cfg.NetflixCountries)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.CacheDriver = "memcached" }},
		{"redis without url", func(c *Config) { c.CacheDriver = CacheDriverRedis }},
		{"postgres without url", func(c *Config) { c.CacheDriver = CacheDriverPostgres }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"fuzzy below exact", func(c *Config) { c.JustWatchExactDistance = 3; c.JustWatchFuzzyDistance = 1 }},
		{"flixlist without placeholder", func(c *Config) { c.FlixlistURL = "http://flixlist.co" }},
		{"unknown locale", func(c *Config) { c.NetflixLocale = "fr" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

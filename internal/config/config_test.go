package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Database: Database{Driver: "sqlite"},
		Auth:     Auth{UserSecret: "u"},
		Session:  Session{TokenSecret: "s", TokenTTL: time.Hour},
		Archive:  Archive{Cipher: "aes-256-gcm", Key: strings.Repeat("ab", 32)},
		Signal:   Signal{Backpressure: "ignore"},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"no user secret":   func(c *Config) { c.Auth.UserSecret = "" },
		"no token secret":  func(c *Config) { c.Session.TokenSecret = "" },
		"zero ttl":         func(c *Config) { c.Session.TokenTTL = 0 },
		"short key":        func(c *Config) { c.Archive.Key = "abcd" },
		"non hex key":      func(c *Config) { c.Archive.Key = strings.Repeat("zz", 32) },
		"unknown driver":   func(c *Config) { c.Database.Driver = "mysql" },
		"unknown pressure": func(c *Config) { c.Signal.Backpressure = "drop" },
		"unknown cipher":   func(c *Config) { c.Archive.Cipher = "des" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing-env")
	t.Setenv("CONFER_AUTH_USER_SECRET", "user")
	t.Setenv("CONFER_SESSION_TOKEN_SECRET", "session")
	t.Setenv("CONFER_ARCHIVE_KEY", strings.Repeat("01", 32))
	t.Setenv("CONFER_PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9191 {
		t.Fatalf("port = %d", cfg.Port)
	}
	if cfg.Session.TokenTTL != 24*time.Hour {
		t.Fatalf("default ttl = %s", cfg.Session.TokenTTL)
	}
	if cfg.Archive.Cipher != "aes-256-gcm" {
		t.Fatalf("default cipher = %s", cfg.Archive.Cipher)
	}
}

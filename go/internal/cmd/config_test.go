package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg.Server)
	}

	reg := cfg.registryConfig()
	if reg.Room.MinPlayers != 2 || reg.Room.MaxPlayers != 6 {
		t.Fatalf("room defaults should apply: %+v", reg.Room)
	}
	if reg.DisconnectGrace != 5*time.Minute {
		t.Fatalf("unexpected disconnect grace %v", reg.DisconnectGrace)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9999"
  log_level: debug
game:
  year_duration: 10m
  tick_interval: 500ms
  countdown_seconds: 5
  starting_balance: 1234
  initial_tax_rate: 0.25
rooms:
  disconnect_grace: 90s
  empty_room_grace: 10s
  max_room_size: 8
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != "9999" || cfg.Server.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg.Server)
	}

	reg := cfg.registryConfig()
	if reg.Room.YearRealDuration != 10*time.Minute {
		t.Fatalf("year duration not applied: %v", reg.Room.YearRealDuration)
	}
	if reg.Room.TickInterval != 500*time.Millisecond {
		t.Fatalf("tick interval not applied: %v", reg.Room.TickInterval)
	}
	if reg.Room.CountdownSeconds != 5 || reg.Room.StartingBalance != 1234 {
		t.Fatalf("game tuning not applied: %+v", reg.Room)
	}
	if reg.Room.InitialTaxRate != 0.25 {
		t.Fatalf("tax rate not applied: %v", reg.Room.InitialTaxRate)
	}
	if reg.DisconnectGrace != 90*time.Second || reg.EmptyRoomGrace != 10*time.Second {
		t.Fatalf("grace tuning not applied: %+v", reg)
	}
	if reg.MaxRoomSize != 8 || reg.Room.MaxPlayers != 8 {
		t.Fatalf("room sizing not applied: max %d players %d", reg.MaxRoomSize, reg.Room.MaxPlayers)
	}

	// Unset fields fall back to production defaults.
	if reg.Room.StartingActions != 20 {
		t.Fatalf("unset fields should keep defaults, got %d", reg.Room.StartingActions)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9999\"\n")
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != "7070" || cfg.Server.LogLevel != "warn" {
		t.Fatalf("env should win over file: %+v", cfg.Server)
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfig(t, "game:\n  tick_interval: soon\n")
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

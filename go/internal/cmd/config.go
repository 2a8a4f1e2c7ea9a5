package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/civicgrid/commonwealth/go/internal/registry"
)

// Duration is a yaml-parseable time.Duration ("30s", "5m", "1h").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the server configuration file shape. Every field has a
// production default; the file and env overrides are both optional.
type Config struct {
	Server struct {
		Port     string `yaml:"port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"server"`

	Game struct {
		YearDuration       Duration `yaml:"year_duration"`
		TickInterval       Duration `yaml:"tick_interval"`
		RankingInterval    Duration `yaml:"ranking_interval"`
		CountdownSeconds   int      `yaml:"countdown_seconds"`
		StartingBalance    float64  `yaml:"starting_balance"`
		StartingActions    int      `yaml:"starting_actions"`
		PregameVotePoints  int      `yaml:"pregame_vote_points"`
		GameplayVotePoints int      `yaml:"gameplay_vote_points"`
		InitialTaxRate     float64  `yaml:"initial_tax_rate"`
	} `yaml:"game"`

	Rooms struct {
		DisconnectGrace Duration `yaml:"disconnect_grace"`
		EmptyRoomGrace  Duration `yaml:"empty_room_grace"`
		TeardownDelay   Duration `yaml:"teardown_delay"`
		MaxRoomSize     int      `yaml:"max_room_size"`
	} `yaml:"rooms"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	config.Server.Port = getEnv("PORT", getEnv("COMMONWEALTH_PORT", defaultStr(config.Server.Port, "8080")))
	config.Server.LogLevel = getEnv("LOG_LEVEL", defaultStr(config.Server.LogLevel, "info"))
	config.Rooms.MaxRoomSize = getEnvAsInt("MAX_ROOM_SIZE", config.Rooms.MaxRoomSize)
	return &config, nil
}

func defaultStr(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

// registryConfig folds the file config over the built-in defaults.
func (c *Config) registryConfig() registry.Config {
	cfg := registry.DefaultConfig()

	if d := time.Duration(c.Rooms.DisconnectGrace); d > 0 {
		cfg.DisconnectGrace = d
	}
	if d := time.Duration(c.Rooms.EmptyRoomGrace); d > 0 {
		cfg.EmptyRoomGrace = d
	}
	if d := time.Duration(c.Rooms.TeardownDelay); d > 0 {
		cfg.Room.TeardownDelay = d
	}
	if c.Rooms.MaxRoomSize > 0 {
		cfg.MaxRoomSize = c.Rooms.MaxRoomSize
		cfg.Room.MaxPlayers = c.Rooms.MaxRoomSize
	}

	if d := time.Duration(c.Game.YearDuration); d > 0 {
		cfg.Room.YearRealDuration = d
	}
	if d := time.Duration(c.Game.TickInterval); d > 0 {
		cfg.Room.TickInterval = d
	}
	if d := time.Duration(c.Game.RankingInterval); d > 0 {
		cfg.Room.RankingInterval = d
	}
	if c.Game.CountdownSeconds > 0 {
		cfg.Room.CountdownSeconds = c.Game.CountdownSeconds
	}
	if c.Game.StartingBalance > 0 {
		cfg.Room.StartingBalance = c.Game.StartingBalance
	}
	if c.Game.StartingActions > 0 {
		cfg.Room.StartingActions = c.Game.StartingActions
	}
	if c.Game.PregameVotePoints > 0 {
		cfg.Room.PregameVotePoints = c.Game.PregameVotePoints
	}
	if c.Game.GameplayVotePoints > 0 {
		cfg.Room.GameplayVotePoints = c.Game.GameplayVotePoints
	}
	if c.Game.InitialTaxRate > 0 {
		cfg.Room.InitialTaxRate = c.Game.InitialTaxRate
	}
	return cfg
}

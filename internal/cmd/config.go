package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cluegrid/cluegrid/internal/game"
)

// Config holds the process-level flags. Game timing and board shape come
// from the optional yaml file; everything infrastructural from flags/env.
type Config struct {
	bind       string
	port       int
	natsURL    string
	catalogURL string
	configPath string
	verbose    bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.natsURL == "" {
		return errors.New("nats-url must not be empty")
	}
	if c.catalogURL == "" {
		return errors.New("catalog-url must not be empty")
	}
	return nil
}

type gameSettingsFile struct {
	Game struct {
		CategoriesPerRound int `yaml:"categories_per_round"`
		CluesPerCategory   int `yaml:"clues_per_category"`
		BaseClueValue      int `yaml:"base_clue_value"`
		DailyDoublesBase   int `yaml:"daily_doubles_base"`
		MinWager           int `yaml:"min_wager"`
		BuzzWindowSec      int `yaml:"buzz_window_sec"`
		ResponseWindowSec  int `yaml:"response_window_sec"`
		WagerWindowSec     int `yaml:"wager_window_sec"`
	} `yaml:"game"`
}

// loadGameSettings reads the game settings yaml, if a path was given, and
// overlays it on the defaults. Zero values in the file keep the default.
func loadGameSettings(path string) (game.GameSettings, error) {
	settings := game.DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read config file: %w", err)
	}

	var file gameSettingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return settings, fmt.Errorf("failed to parse config: %w", err)
	}

	g := file.Game
	if g.CategoriesPerRound > 0 {
		settings.CategoriesPerRound = g.CategoriesPerRound
	}
	if g.CluesPerCategory > 0 {
		settings.CluesPerCategory = g.CluesPerCategory
	}
	if g.BaseClueValue > 0 {
		settings.BaseClueValue = g.BaseClueValue
	}
	if g.DailyDoublesBase > 0 {
		settings.DailyDoublesBase = g.DailyDoublesBase
	}
	if g.MinWager > 0 {
		settings.MinWager = g.MinWager
	}
	if g.BuzzWindowSec > 0 {
		settings.BuzzWindowSec = g.BuzzWindowSec
	}
	if g.ResponseWindowSec > 0 {
		settings.ResponseWindowSec = g.ResponseWindowSec
	}
	if g.WagerWindowSec > 0 {
		settings.WagerWindowSec = g.WagerWindowSec
	}
	return settings, nil
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

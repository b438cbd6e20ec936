package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"franchise-quiz-service/internal/domain"
	"franchise-quiz-service/internal/scoring"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		TTL string `yaml:"ttl"`
	} `yaml:"catalog"`
	Scoring struct {
		DifficultyPoints map[string]int        `yaml:"difficultyPoints"`
		SpeedFloor       float64               `yaml:"speedFloor"`
		StreakBonuses    []scoring.StreakBonus `yaml:"streakBonuses"`
	} `yaml:"scoring"`
	Xp struct {
		RuleVersion int             `yaml:"ruleVersion"`
		Rules       []scoring.Rule  `yaml:"rules"`
		Levels      []scoring.Level `yaml:"levels"`
	} `yaml:"xp"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// ScoringConfig converts the YAML scoring block to the scorer's config,
// falling back to defaults for anything unset.
func (c Config) ScoringConfig() scoring.Config {
	cfg := scoring.DefaultConfig()
	if len(c.Scoring.DifficultyPoints) > 0 {
		points := make(map[domain.Difficulty]int, len(c.Scoring.DifficultyPoints))
		for name, value := range c.Scoring.DifficultyPoints {
			points[domain.Difficulty(name)] = value
		}
		cfg.DifficultyPoints = points
	}
	if c.Scoring.SpeedFloor > 0 {
		cfg.SpeedFloor = c.Scoring.SpeedFloor
	}
	if len(c.Scoring.StreakBonuses) > 0 {
		cfg.StreakBonuses = c.Scoring.StreakBonuses
	}
	return cfg
}

// RuleTable builds the admin-managed XP rule table from config.
func (c Config) RuleTable() *scoring.RuleTable {
	version := c.Xp.RuleVersion
	if version == 0 {
		version = 1
	}
	rules := c.Xp.Rules
	if len(rules) == 0 {
		rules = scoring.DefaultRules()
	}
	return scoring.NewRuleTable(version, rules)
}

// LevelTable builds the XP progression ladder from config.
func (c Config) LevelTable() scoring.LevelTable {
	if len(c.Xp.Levels) == 0 {
		return scoring.DefaultLevels()
	}
	return scoring.NewLevelTable(c.Xp.Levels)
}

package scoring

import "sort"

// Level is one XP progression step. Crossing MinXp earns the level and its
// badge permanently.
type Level struct {
	MinXp int64  `yaml:"minXp"`
	Name  string `yaml:"name"`
}

// LevelTable maps cumulative XP to a level number, display name and badges.
type LevelTable struct {
	levels []Level
}

func NewLevelTable(levels []Level) LevelTable {
	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinXp < sorted[j].MinXp })
	return LevelTable{levels: sorted}
}

// DefaultLevels returns the shipped progression ladder.
func DefaultLevels() LevelTable {
	return NewLevelTable([]Level{
		{MinXp: 0, Name: "Rookie"},
		{MinXp: 500, Name: "Regular"},
		{MinXp: 1500, Name: "Pro"},
		{MinXp: 4000, Name: "Champion"},
		{MinXp: 10000, Name: "Legend"},
	})
}

// ForXp returns the level number (1-based) and name for a cumulative XP total.
func (t LevelTable) ForXp(xp int64) (int, string) {
	level, name := 1, ""
	for i, l := range t.levels {
		if xp < l.MinXp {
			break
		}
		level, name = i+1, l.Name
	}
	return level, name
}

// BadgesForXp lists the badge names earned at or below the given XP total.
func (t LevelTable) BadgesForXp(xp int64) []string {
	var badges []string
	for _, l := range t.levels {
		if xp < l.MinXp {
			break
		}
		badges = append(badges, l.Name)
	}
	return badges
}

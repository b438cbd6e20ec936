package scoring

import (
	"math"
	"sort"

	"franchise-quiz-service/internal/domain"
)

// StreakBonus awards a flat bonus once a streak reaches Streak. Bonuses do
// not stack; only the highest threshold met applies.
type StreakBonus struct {
	Streak int `yaml:"streak"`
	Bonus  int `yaml:"bonus"`
}

// Config holds the scoring constants. These are product-tunable, not hard
// invariants, so they live in configuration.
type Config struct {
	DifficultyPoints map[domain.Difficulty]int
	SpeedFloor       float64
	StreakBonuses    []StreakBonus
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DifficultyPoints: map[domain.Difficulty]int{
			domain.DifficultyEasy:     10,
			domain.DifficultyMedium:   20,
			domain.DifficultyHard:     30,
			domain.DifficultyVeryHard: 50,
		},
		SpeedFloor: 0.3,
		StreakBonuses: []StreakBonus{
			{Streak: 3, Bonus: 5},
			{Streak: 5, Bonus: 10},
			{Streak: 10, Bonus: 20},
		},
	}
}

// Breakdown is the per-answer point split recorded on the answer and later
// summed into the ledger entry. Base is the points guaranteed for a correct
// answer at the multiplier floor; SpeedBonus is everything earned above the
// floor, so Points == Base + SpeedBonus + StreakBonus always holds exactly.
type Breakdown struct {
	Base        int
	SpeedBonus  int
	StreakBonus int
	Points      int
	Multiplier  float64
}

// Scorer converts a single answer into points. Pure and deterministic:
// same inputs always yield the same result, which is what lets duplicate
// submissions be rejected instead of rescored.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	bonuses := make([]StreakBonus, len(cfg.StreakBonuses))
	copy(bonuses, cfg.StreakBonuses)
	sort.Slice(bonuses, func(i, j int) bool { return bonuses[i].Streak < bonuses[j].Streak })
	cfg.StreakBonuses = bonuses
	return &Scorer{cfg: cfg}
}

// Score computes (breakdown, newStreak) for one answer. maxScore caps the
// total for the question when positive; zero means uncapped.
func (s *Scorer) Score(difficulty domain.Difficulty, timeTakenSeconds float64, timeLimitSeconds int, priorStreak int, isCorrect bool, maxScore int) (Breakdown, int, error) {
	if timeTakenSeconds < 0 || timeLimitSeconds <= 0 || priorStreak < 0 {
		return Breakdown{}, priorStreak, domain.ErrInvalidAnswer
	}
	base, ok := s.cfg.DifficultyPoints[difficulty]
	if !ok {
		return Breakdown{}, priorStreak, domain.ErrInvalidAnswer
	}

	if !isCorrect {
		return Breakdown{}, 0, nil
	}

	mult := s.SpeedMultiplier(timeTakenSeconds, timeLimitSeconds)
	adjusted := int(math.Round(float64(base) * mult))
	floorPoints := int(math.Round(float64(base) * s.cfg.SpeedFloor))

	newStreak := priorStreak + 1
	breakdown := Breakdown{
		Base:        floorPoints,
		SpeedBonus:  adjusted - floorPoints,
		StreakBonus: s.streakBonus(newStreak),
		Multiplier:  mult,
	}
	breakdown.Points = breakdown.Base + breakdown.SpeedBonus + breakdown.StreakBonus
	if maxScore > 0 && breakdown.Points > maxScore {
		breakdown = capBreakdown(breakdown, maxScore)
	}
	return breakdown, newStreak, nil
}

// SpeedMultiplier decays linearly from 1.0 (instant) to the configured
// floor as the answer time approaches the limit, clamped to [floor, 1.0].
func (s *Scorer) SpeedMultiplier(timeTakenSeconds float64, timeLimitSeconds int) float64 {
	mult := 1.0 - (timeTakenSeconds/float64(timeLimitSeconds))*(1.0-s.cfg.SpeedFloor)
	if mult < s.cfg.SpeedFloor {
		return s.cfg.SpeedFloor
	}
	if mult > 1.0 {
		return 1.0
	}
	return mult
}

func (s *Scorer) streakBonus(streak int) int {
	bonus := 0
	for _, b := range s.cfg.StreakBonuses {
		if streak >= b.Streak {
			bonus = b.Bonus
		}
	}
	return bonus
}

// capBreakdown trims the total down to maxScore, taking points back from
// the streak bonus first, then the speed bonus, then the base, so the
// component identity survives the cap.
func capBreakdown(b Breakdown, maxScore int) Breakdown {
	excess := b.Points - maxScore
	for _, part := range []*int{&b.StreakBonus, &b.SpeedBonus, &b.Base} {
		if excess <= 0 {
			break
		}
		trim := excess
		if trim > *part {
			trim = *part
		}
		*part -= trim
		excess -= trim
	}
	b.Points = b.Base + b.SpeedBonus + b.StreakBonus
	return b
}

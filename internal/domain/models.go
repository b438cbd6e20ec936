package domain

import "time"

// Difficulty buckets a question into one of four scoring tiers.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
)

// QuizType distinguishes franchise-local quizzes from national (HQ-wide) ones.
type QuizType string

const (
	QuizTypeLocal    QuizType = "local"
	QuizTypeNational QuizType = "national"
)

// SessionStatus is the lifecycle of a live game session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question plus its scoring context. Difficulty,
// time limit and max score are immutable once the question is published.
type Question struct {
	ID               string     `json:"id"`
	Prompt           string     `json:"prompt"`
	Options          []Option   `json:"options"`
	Difficulty       Difficulty `json:"difficulty"`
	TimeLimitSeconds int        `json:"timeLimitSeconds"`
	MaxScore         int        `json:"maxScore"`
}

// Quiz is a published collection of questions owned by a franchise.
type Quiz struct {
	ID          string     `json:"id"`
	FranchiseID string     `json:"franchiseId"`
	Type        QuizType   `json:"type"`
	Category    string     `json:"category"`
	Questions   []Question `json:"questions"`
}

// AnswerSubmission models the scoring signal from clients.
type AnswerSubmission struct {
	QuestionID       string
	OptionID         string
	TimeTakenSeconds float64
}

// AnswerRecord is one submitted answer with the resolved score breakdown.
// Immutable once created.
type AnswerRecord struct {
	QuestionID       string  `json:"questionId"`
	OptionID         string  `json:"optionId"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
	IsCorrect        bool    `json:"isCorrect"`
	ScoreAwarded     int     `json:"scoreAwarded"`
	BaseXP           int     `json:"baseXp"`
	SpeedBonusXP     int     `json:"speedBonusXp"`
	StreakBonusXP    int     `json:"streakBonusXp"`
	SpeedMultiplier  float64 `json:"speedMultiplier"`
}

// SessionPlayer is the per-(session, player) record. Mutated while the
// session is in progress, read-only after completion.
type SessionPlayer struct {
	SessionID     string         `json:"sessionId"`
	PlayerID      string         `json:"playerId"`
	DisplayName   string         `json:"displayName"`
	TotalScore    int            `json:"totalScore"`
	CurrentStreak int            `json:"currentStreak"`
	Answers       []AnswerRecord `json:"answers"`
	JoinedAt      time.Time      `json:"joinedAt"`
	LeftAt        *time.Time     `json:"leftAt,omitempty"`
}

// TotalAnswerSeconds sums response time across all answers; used as the
// first ranking tie-breaker.
func (p SessionPlayer) TotalAnswerSeconds() float64 {
	total := 0.0
	for _, a := range p.Answers {
		total += a.TimeTakenSeconds
	}
	return total
}

// RankedPlayer is a player's final position in a completed session.
type RankedPlayer struct {
	PlayerID   string `json:"playerId"`
	Rank       int    `json:"rank"`
	TotalScore int    `json:"totalScore"`
}

// Award names a session-end distinction. Tied winners are all recorded.
type Award struct {
	Name      string   `json:"name"`
	PlayerIDs []string `json:"playerIds"`
	Value     float64  `json:"value"`
}

const (
	AwardFastestOverall = "fastest_overall"
	AwardHighestStreak  = "highest_streak"
)

// SessionResult is the outcome of completing a session.
type SessionResult struct {
	SessionID   string         `json:"sessionId"`
	Ranked      []RankedPlayer `json:"ranked"`
	Podium      []RankedPlayer `json:"podium"`
	Awards      []Award        `json:"awards"`
	CompletedAt time.Time      `json:"completedAt"`
}

// XpLedgerEntry is the append-only XP transaction for one player in one
// completed session. The numeric breakdown is resolved at creation time so
// later rule-table edits never alter it. Processed transitions false->true
// exactly once.
type XpLedgerEntry struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	PlayerID       string    `json:"playerId"`
	QuizID         string    `json:"quizId"`
	FranchiseID    string    `json:"franchiseId"`
	QuizType       QuizType  `json:"quizType"`
	Category       string    `json:"category"`
	BaseXP         int       `json:"baseXp"`
	SpeedBonusXP   int       `json:"speedBonusXp"`
	StreakBonusXP  int       `json:"streakBonusXp"`
	RankBonusXP    int       `json:"rankBonusXp"`
	TotalEarnedXP  int       `json:"totalEarnedXp"`
	MultiplierUsed float64   `json:"multiplierUsed"`
	RuleVersion    int       `json:"ruleVersion"`
	QuestionCount  int       `json:"questionCount"`
	CorrectAnswers int       `json:"correctAnswers"`
	AccuracyRate   float64   `json:"accuracyRate"`
	FinalRank      int       `json:"finalRank"`
	XpLevelBefore  int       `json:"xpLevelBefore"`
	XpLevelAfter   int       `json:"xpLevelAfter"`
	Processed      bool      `json:"processed"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LeaderboardScope selects one of the three accumulator families.
type LeaderboardScope string

const (
	ScopeLocal      LeaderboardScope = "local"
	ScopeNational   LeaderboardScope = "national"
	ScopeFranchisee LeaderboardScope = "franchisee"
)

// LeaderboardAccumulator is a monotonically incremented rollup row. Local
// and National are keyed by player only; Franchisee also carries the
// franchise key.
type LeaderboardAccumulator struct {
	PlayerID             string `json:"playerId"`
	FranchiseID          string `json:"franchiseId,omitempty"`
	TotalXp              int64  `json:"totalXp"`
	TotalGamesPlayed     int64  `json:"totalGamesPlayed"`
	TotalFirstPlaceWins  int64  `json:"totalFirstPlaceWins"`
	TotalSecondPlaceWins int64  `json:"totalSecondPlaceWins"`
	TotalThirdPlaceWins  int64  `json:"totalThirdPlaceWins"`
	IsActive             bool   `json:"isActive"`
}

// FranchiseXp is the per-franchise slice of a player's cumulative record.
type FranchiseXp struct {
	FranchiseID string `json:"franchiseId"`
	Xp          int64  `json:"xp"`
	GamesPlayed int64  `json:"gamesPlayed"`
}

// CategoryStat tracks per-category answer accuracy for a player.
type CategoryStat struct {
	Category  string `json:"category"`
	Questions int64  `json:"questions"`
	Correct   int64  `json:"correct"`
}

// Accuracy returns the category hit rate as a percentage.
func (c CategoryStat) Accuracy() float64 {
	if c.Questions == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Questions) * 100
}

// PlayerCumulativeStat is the per-player rollup derived from the ledger
// stream. Counter fields come straight from the store; FavoriteFranchiseID,
// TopCategories, Level, LevelName and Badges are derived at read time.
type PlayerCumulativeStat struct {
	PlayerID            string                  `json:"playerId"`
	TotalXp             int64                   `json:"totalXp"`
	TotalGamesPlayed    int64                   `json:"totalGamesPlayed"`
	XpByFranchise       []FranchiseXp           `json:"xpByFranchise"`
	Categories          map[string]CategoryStat `json:"categories"`
	FavoriteFranchiseID string                  `json:"favoriteFranchiseId,omitempty"`
	TopCategories       []string                `json:"topCategories,omitempty"`
	Level               int                     `json:"level"`
	LevelName           string                  `json:"levelName,omitempty"`
	Badges              []string                `json:"badges,omitempty"`
}

// LiveLeaderboardEntry is a snapshot-friendly view of an in-session player.
type LiveLeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Streak      int    `json:"streak"`
}

// LiveLeaderboard captures the ordered in-session scoreboard pushed to
// connected clients while a session runs.
type LiveLeaderboard struct {
	SessionID string                 `json:"sessionId"`
	Entries   []LiveLeaderboardEntry `json:"entries"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

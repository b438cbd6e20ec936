package app

import (
	"context"
	"log"
	"sort"
	"time"

	"franchise-quiz-service/internal/domain"
	"franchise-quiz-service/internal/scoring"
)

// SessionRepository abstracts how live sessions are stored (in-memory, Redis-backed, etc).
type SessionRepository interface {
	GetOrCreate(sessionID, quizID string) *Session
	Get(sessionID string) (*Session, bool)
	DeleteIfEmpty(sessionID string)
}

// CatalogRepository loads published quiz content (from cache/backing store).
// The catalog is read-only to this service.
type CatalogRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// GameService contains the live-session and scoring use cases: answers are
// scored as they arrive, completion resolves ranks and writes one ledger
// entry per player, and aggregation folds processed entries into the three
// leaderboard scopes.
type GameService struct {
	sessions   SessionRepository
	catalog    CatalogRepository
	scorer     *scoring.Scorer
	rules      *scoring.RuleTable
	levels     scoring.LevelTable
	ledger     LedgerStore
	boards     LeaderboardStore
	aggregator *Aggregator
	builder    *LedgerBuilder
	clock      func() time.Time
}

func NewGameService(sessions SessionRepository, catalog CatalogRepository, scorer *scoring.Scorer, rules *scoring.RuleTable, levels scoring.LevelTable, ledger LedgerStore, boards LeaderboardStore) *GameService {
	return &GameService{
		sessions:   sessions,
		catalog:    catalog,
		scorer:     scorer,
		rules:      rules,
		levels:     levels,
		ledger:     ledger,
		boards:     boards,
		aggregator: NewAggregator(ledger, boards),
		builder:    NewLedgerBuilder(levels),
		clock:      time.Now,
	}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(sessionID, quizID string) *Session {
	return newSession(sessionID, quizID)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(sessionID, quizID string, now func() time.Time) *Session {
	return newSessionWithClock(sessionID, quizID, now)
}

// Join registers or refreshes a player in a session, creating the session on
// first join. Players cannot join sessions for unknown quizzes.
func (s *GameService) Join(ctx context.Context, sessionID, quizID, playerID, displayName string) (domain.LiveLeaderboard, error) {
	if _, err := s.catalog.GetQuiz(ctx, quizID); err != nil {
		return domain.LiveLeaderboard{}, err
	}

	session := s.sessions.GetOrCreate(sessionID, quizID)
	return session.join(playerID, displayName)
}

// SubmitAnswer validates and scores one answer for a player. A question may
// be answered at most once per player per session; duplicates are rejected,
// never rescored.
func (s *GameService) SubmitAnswer(ctx context.Context, sessionID, playerID string, submission domain.AnswerSubmission) (domain.LiveLeaderboard, domain.AnswerRecord, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.LiveLeaderboard{}, domain.AnswerRecord{}, domain.ErrSessionNotFound
	}

	quiz, err := s.catalog.GetQuiz(ctx, session.QuizID())
	if err != nil {
		return domain.LiveLeaderboard{}, domain.AnswerRecord{}, err
	}

	question, option, err := findSubmission(quiz, submission)
	if err != nil {
		return domain.LiveLeaderboard{}, domain.AnswerRecord{}, err
	}

	return session.submitAnswer(playerID, question.ID, func(priorStreak int) (domain.AnswerRecord, int, error) {
		breakdown, newStreak, err := s.scorer.Score(question.Difficulty, submission.TimeTakenSeconds, question.TimeLimitSeconds, priorStreak, option.Correct, question.MaxScore)
		if err != nil {
			return domain.AnswerRecord{}, 0, err
		}
		return domain.AnswerRecord{
			QuestionID:       question.ID,
			OptionID:         option.ID,
			TimeTakenSeconds: submission.TimeTakenSeconds,
			IsCorrect:        option.Correct,
			ScoreAwarded:     breakdown.Points,
			BaseXP:           breakdown.Base,
			SpeedBonusXP:     breakdown.SpeedBonus,
			StreakBonusXP:    breakdown.StreakBonus,
			SpeedMultiplier:  breakdown.Multiplier,
		}, newStreak, nil
	})
}

// CompleteSession runs the end-of-session pipeline: barrier, rank/podium/
// award resolution, one ledger entry per player, then aggregation. The
// session is complete and ranked even if aggregation is still pending;
// aggregation failures are logged and left for ReconcileUnprocessed.
func (s *GameService) CompleteSession(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}

	quiz, err := s.catalog.GetQuiz(ctx, session.QuizID())
	if err != nil {
		return domain.SessionResult{}, err
	}

	// Snapshot the rule table before resolving anything so admin edits
	// mid-completion cannot split the session across two rule versions.
	rules := s.rules.Snapshot()

	players, err := session.complete()
	if err != nil {
		return domain.SessionResult{}, err
	}

	result := ResolveRanks(sessionID, players, s.clock())

	byID := make(map[string]domain.SessionPlayer, len(players))
	for _, p := range players {
		byID[p.PlayerID] = p
	}

	entries := make([]domain.XpLedgerEntry, 0, len(result.Ranked))
	for _, ranked := range result.Ranked {
		player := byID[ranked.PlayerID]

		currentXp := int64(0)
		if acc, err := s.boards.GetLocal(ctx, player.PlayerID); err == nil {
			currentXp = acc.TotalXp
		}

		entry, err := s.builder.Build(quiz, player, ranked.Rank, rules, currentXp)
		if err != nil {
			return domain.SessionResult{}, err
		}
		if err := s.ledger.Insert(ctx, &entry); err != nil {
			if err == domain.ErrLedgerEntryExists {
				continue
			}
			return domain.SessionResult{}, err
		}
		entries = append(entries, entry)
	}

	for _, entry := range entries {
		if err := s.aggregator.Apply(ctx, entry); err != nil {
			log.Printf("aggregation pending for entry %s: %v", entry.ID, err)
		}
	}

	return result, nil
}

// ReconcileUnprocessed replays every pending ledger entry; see Aggregator.
func (s *GameService) ReconcileUnprocessed(ctx context.Context) (int, error) {
	return s.aggregator.ReconcileUnprocessed(ctx)
}

// Subscribe returns a channel that receives live leaderboard updates for a
// session. The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, sessionID string) (<-chan domain.LiveLeaderboard, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave marks a player as gone and drops the session once everyone left.
func (s *GameService) Leave(_ context.Context, sessionID, playerID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.leave(playerID)
	if session.isEmpty() {
		s.sessions.DeleteIfEmpty(sessionID)
	}
}

// GetLocal reads the cross-franchise accumulator for a player.
func (s *GameService) GetLocal(ctx context.Context, playerID string) (domain.LeaderboardAccumulator, error) {
	return s.boards.GetLocal(ctx, playerID)
}

// GetNational reads the HQ-wide accumulator for a player.
func (s *GameService) GetNational(ctx context.Context, playerID string) (domain.LeaderboardAccumulator, error) {
	return s.boards.GetNational(ctx, playerID)
}

// GetFranchisee reads the per-franchise accumulator for a player.
func (s *GameService) GetFranchisee(ctx context.Context, playerID, franchiseID string) (domain.LeaderboardAccumulator, error) {
	return s.boards.GetFranchisee(ctx, playerID, franchiseID)
}

// PlayerStat reads the cumulative stat counters and derives the display
// fields: favorite franchise (most games played), top categories by
// accuracy, level and badges.
func (s *GameService) PlayerStat(ctx context.Context, playerID string) (domain.PlayerCumulativeStat, error) {
	stat, err := s.boards.GetPlayerStat(ctx, playerID)
	if err != nil {
		return domain.PlayerCumulativeStat{}, err
	}

	var favorite domain.FranchiseXp
	for _, fr := range stat.XpByFranchise {
		if fr.GamesPlayed > favorite.GamesPlayed ||
			(fr.GamesPlayed == favorite.GamesPlayed && fr.Xp > favorite.Xp) {
			favorite = fr
		}
	}
	stat.FavoriteFranchiseID = favorite.FranchiseID

	categories := make([]domain.CategoryStat, 0, len(stat.Categories))
	for _, c := range stat.Categories {
		if c.Questions > 0 {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Accuracy() != categories[j].Accuracy() {
			return categories[i].Accuracy() > categories[j].Accuracy()
		}
		return categories[i].Category < categories[j].Category
	})
	top := len(categories)
	if top > 3 {
		top = 3
	}
	for _, c := range categories[:top] {
		stat.TopCategories = append(stat.TopCategories, c.Category)
	}

	stat.Level, stat.LevelName = s.levels.ForXp(stat.TotalXp)
	stat.Badges = s.levels.BadgesForXp(stat.TotalXp)
	return stat, nil
}

// findSubmission validates the submission against quiz content.
func findSubmission(quiz domain.Quiz, submission domain.AnswerSubmission) (domain.Question, domain.Option, error) {
	var question *domain.Question
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == submission.QuestionID {
			question = &quiz.Questions[i]
			break
		}
	}
	if question == nil {
		return domain.Question{}, domain.Option{}, domain.ErrQuestionNotFound
	}

	for _, opt := range question.Options {
		if opt.ID == submission.OptionID {
			return *question, opt, nil
		}
	}
	return domain.Question{}, domain.Option{}, domain.ErrOptionNotFound
}

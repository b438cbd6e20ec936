package app

import (
	"sort"
	"sync"
	"time"

	"franchise-quiz-service/internal/domain"
)

// Session is the in-memory representation of one live game session. All
// mutation happens under the session mutex, which doubles as the completion
// barrier: once complete() flips the status, no answer write can still be
// in flight and later writes are rejected.
type Session struct {
	id          string
	quizID      string
	createdAt   time.Time
	now         func() time.Time
	mu          sync.RWMutex
	status      domain.SessionStatus
	players     map[string]*domain.SessionPlayer
	answered    map[string]map[string]struct{}
	subscribers map[chan domain.LiveLeaderboard]struct{}
}

func newSession(id, quizID string) *Session {
	return newSessionWithClock(id, quizID, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id, quizID string, now func() time.Time) *Session {
	return &Session{
		id:          id,
		quizID:      quizID,
		createdAt:   now(),
		now:         now,
		status:      domain.StatusInProgress,
		players:     make(map[string]*domain.SessionPlayer),
		answered:    make(map[string]map[string]struct{}),
		subscribers: make(map[chan domain.LiveLeaderboard]struct{}),
	}
}

// QuizID returns the quiz this session plays.
func (s *Session) QuizID() string { return s.quizID }

func (s *Session) join(playerID, displayName string) (domain.LiveLeaderboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress {
		return domain.LiveLeaderboard{}, domain.ErrSessionCompleted
	}

	now := s.now()
	if player, ok := s.players[playerID]; ok {
		player.DisplayName = displayName
		player.LeftAt = nil
	} else {
		s.players[playerID] = &domain.SessionPlayer{
			SessionID:   s.id,
			PlayerID:    playerID,
			DisplayName: displayName,
			JoinedAt:    now,
		}
		s.answered[playerID] = make(map[string]struct{})
	}
	return s.broadcastLocked(), nil
}

// submitAnswer records one scored answer for a player. The score callback
// runs under the session lock so the prior streak it reads cannot be stale.
func (s *Session) submitAnswer(playerID, questionID string, score func(priorStreak int) (domain.AnswerRecord, int, error)) (domain.LiveLeaderboard, domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress {
		return domain.LiveLeaderboard{}, domain.AnswerRecord{}, domain.ErrSessionCompleted
	}
	player, ok := s.players[playerID]
	if !ok {
		return domain.LiveLeaderboard{}, domain.AnswerRecord{}, domain.ErrPlayerNotFound
	}
	if _, dup := s.answered[playerID][questionID]; dup {
		return domain.LiveLeaderboard{}, domain.AnswerRecord{}, domain.ErrDuplicateSubmission
	}

	record, newStreak, err := score(player.CurrentStreak)
	if err != nil {
		return domain.LiveLeaderboard{}, domain.AnswerRecord{}, err
	}

	s.answered[playerID][questionID] = struct{}{}
	player.Answers = append(player.Answers, record)
	player.TotalScore += record.ScoreAwarded
	player.CurrentStreak = newStreak

	return s.broadcastLocked(), record, nil
}

// complete flips the session to Completed and returns a finalized snapshot
// of every player record. A second call is rejected; that idempotency
// boundary sits here as well as at the ledger.
func (s *Session) complete() ([]domain.SessionPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusCompleted {
		return nil, domain.ErrAlreadyCompleted
	}
	s.status = domain.StatusCompleted

	players := make([]domain.SessionPlayer, 0, len(s.players))
	for _, p := range s.players {
		snapshot := *p
		snapshot.Answers = append([]domain.AnswerRecord(nil), p.Answers...)
		players = append(players, snapshot)
	}
	return players, nil
}

func (s *Session) leave(playerID string) domain.LiveLeaderboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if player, ok := s.players[playerID]; ok && player.LeftAt == nil {
		left := s.now()
		player.LeftAt = &left
	}
	return s.broadcastLocked()
}

func (s *Session) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.LeftAt == nil {
			return false
		}
	}
	return true
}

// IsEmpty reports whether every player has left the session.
func (s *Session) IsEmpty() bool {
	return s.isEmpty()
}

func (s *Session) subscribe() (<-chan domain.LiveLeaderboard, func()) {
	ch := make(chan domain.LiveLeaderboard, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.LiveLeaderboard {
	lb := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale update so a slow client never blocks broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return lb
}

func (s *Session) snapshotLocked() domain.LiveLeaderboard {
	entries := make([]domain.LiveLeaderboardEntry, 0, len(s.players))
	for _, player := range s.players {
		entries = append(entries, domain.LiveLeaderboardEntry{
			PlayerID:    player.PlayerID,
			DisplayName: player.DisplayName,
			Score:       player.TotalScore,
			Streak:      player.CurrentStreak,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		pi := s.players[entries[i].PlayerID]
		pj := s.players[entries[j].PlayerID]
		ti, tj := pi.TotalAnswerSeconds(), pj.TotalAnswerSeconds()
		if ti != tj {
			return ti < tj
		}
		return pi.JoinedAt.Before(pj.JoinedAt)
	})

	return domain.LiveLeaderboard{
		SessionID: s.id,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}

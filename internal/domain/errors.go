package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session has not been initialized.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrPlayerNotFound is returned when a player tries to act before joining.
	ErrPlayerNotFound = errors.New("player not found in session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidAnswer rejects malformed scoring input (negative time, unknown difficulty).
	ErrInvalidAnswer = errors.New("invalid answer submission")
	// ErrDuplicateSubmission rejects a second answer to the same question by the same player.
	ErrDuplicateSubmission = errors.New("question already answered")
	// ErrSessionCompleted rejects answer writes after the completion barrier.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrAlreadyCompleted rejects a second completion of the same session.
	ErrAlreadyCompleted = errors.New("session result already resolved")
	// ErrRuleNotFound means the XP rule table has no row for a rank name; a
	// session cannot be scored without it, so this is fatal at completion time.
	ErrRuleNotFound = errors.New("xp rule not found")
	// ErrLedgerEntryExists guards the one-entry-per-(player, session) invariant.
	ErrLedgerEntryExists = errors.New("ledger entry already recorded for player and session")
	// ErrLedgerEntryNotFound indicates an unknown ledger entry ID.
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")
)

package scoring

import (
	"franchise-quiz-service/internal/domain"
)

// Rank names are locale-independent identifiers; display labels live with
// the localization tables and never participate in lookup.
const (
	RankFirstPlace    = "first_place"
	RankSecondPlace   = "second_place"
	RankThirdPlace    = "third_place"
	RankParticipation = "participation"
)

// RankName maps a final session rank to its rule-table identifier.
func RankName(rank int) string {
	switch rank {
	case 1:
		return RankFirstPlace
	case 2:
		return RankSecondPlace
	case 3:
		return RankThirdPlace
	default:
		return RankParticipation
	}
}

// Rule is one admin-managed row of the XP rule table.
type Rule struct {
	RankName string          `yaml:"rank"`
	QuizType domain.QuizType `yaml:"quizType"`
	Xp       int             `yaml:"xp"`
}

type ruleKey struct {
	rank     string
	quizType domain.QuizType
}

// RuleTable resolves rankName -> XP for a quiz type. The table is versioned;
// ledger entries store the resolved numbers plus the version at creation
// time, so later edits never change historical entries. Code that scores a
// session must take a Snapshot up front and use only that.
type RuleTable struct {
	version int
	rules   map[ruleKey]int
}

func NewRuleTable(version int, rules []Rule) *RuleTable {
	t := &RuleTable{version: version, rules: make(map[ruleKey]int, len(rules))}
	for _, r := range rules {
		t.rules[ruleKey{rank: r.RankName, quizType: r.QuizType}] = r.Xp
	}
	return t
}

// DefaultRules returns the shipped rank bonus values.
func DefaultRules() []Rule {
	return []Rule{
		{RankName: RankFirstPlace, QuizType: domain.QuizTypeLocal, Xp: 100},
		{RankName: RankSecondPlace, QuizType: domain.QuizTypeLocal, Xp: 50},
		{RankName: RankThirdPlace, QuizType: domain.QuizTypeLocal, Xp: 25},
		{RankName: RankParticipation, QuizType: domain.QuizTypeLocal, Xp: 10},
		{RankName: RankFirstPlace, QuizType: domain.QuizTypeNational, Xp: 250},
		{RankName: RankSecondPlace, QuizType: domain.QuizTypeNational, Xp: 125},
		{RankName: RankThirdPlace, QuizType: domain.QuizTypeNational, Xp: 60},
		{RankName: RankParticipation, QuizType: domain.QuizTypeNational, Xp: 20},
	}
}

func (t *RuleTable) Version() int { return t.version }

// Lookup resolves the XP bonus for a rank name. A miss is a configuration
// error: the session cannot be scored, so it is never defaulted to zero.
func (t *RuleTable) Lookup(rankName string, quizType domain.QuizType) (int, error) {
	xp, ok := t.rules[ruleKey{rank: rankName, quizType: quizType}]
	if !ok {
		return 0, domain.ErrRuleNotFound
	}
	return xp, nil
}

// Snapshot returns an independent copy. Admin edits to the live table after
// the snapshot is taken cannot affect a completion already in flight.
func (t *RuleTable) Snapshot() *RuleTable {
	rules := make(map[ruleKey]int, len(t.rules))
	for k, v := range t.rules {
		rules[k] = v
	}
	return &RuleTable{version: t.version, rules: rules}
}

// scenario/scenario.go
package scenario

import (
	"errors"
	"fmt"
)

var ErrScenarioNotFound = errors.New("scenario not found")

// RoundKind distinguishes a normal question round from an auction round,
// where the right to answer first is sold before the questions begin.
type RoundKind string

const (
	RoundStandard RoundKind = "standard"
	RoundAuction  RoundKind = "auction"
)

// Provider is the external content source. Round and Question behaviors
// treat scenarios as read-only.
type Provider interface {
	GetScenario(scenarioID string) (*Scenario, error)
}

type Scenario struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	IntroMediaURL string     `json:"intro_media_url,omitempty"`
	Rounds        []Round    `json:"rounds"`
	ShopItems     []ShopItem `json:"shop_items,omitempty"`
}

type Round struct {
	Title     string     `json:"title"`
	Kind      RoundKind  `json:"kind"`
	Questions []Question `json:"questions"`
	// Intermission flags: which phases follow this round's stats screen.
	VotingAfter bool `json:"voting_after,omitempty"`
	ShopAfter   bool `json:"shop_after,omitempty"`
}

type Question struct {
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Points      int      `json:"points"`
	TimeLimitMS int64    `json:"time_limit_ms,omitempty"`
}

type ShopItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// Validate checks that a scenario is playable.
func (s *Scenario) Validate() error {
	if len(s.Rounds) == 0 {
		return fmt.Errorf("scenario %s has no rounds", s.ID)
	}
	for i, r := range s.Rounds {
		if len(r.Questions) == 0 {
			return fmt.Errorf("scenario %s round %d has no questions", s.ID, i)
		}
		for j, q := range r.Questions {
			if q.Answer < 0 || q.Answer >= len(q.Options) {
				return fmt.Errorf("scenario %s round %d question %d answer index out of range", s.ID, i, j)
			}
		}
	}
	return nil
}

// Cursor walks a scenario round by round, question by question.
type Cursor struct {
	RoundIndex    int `json:"round_index"`
	QuestionIndex int `json:"question_index"`
}

func (s *Scenario) CurrentRound(c Cursor) *Round {
	if c.RoundIndex < 0 || c.RoundIndex >= len(s.Rounds) {
		return nil
	}
	return &s.Rounds[c.RoundIndex]
}

func (s *Scenario) CurrentQuestion(c Cursor) *Question {
	r := s.CurrentRound(c)
	if r == nil || c.QuestionIndex < 0 || c.QuestionIndex >= len(r.Questions) {
		return nil
	}
	return &r.Questions[c.QuestionIndex]
}

// QuestionsRemain reports whether the current round has unasked questions
// at or after the cursor position.
func (s *Scenario) QuestionsRemain(c Cursor) bool {
	return s.CurrentQuestion(c) != nil
}

// RoundsRemain reports whether any round follows the cursor's round.
func (s *Scenario) RoundsRemain(c Cursor) bool {
	return c.RoundIndex+1 < len(s.Rounds)
}

// NextQuestion advances within the current round.
func (c Cursor) NextQuestion() Cursor {
	return Cursor{RoundIndex: c.RoundIndex, QuestionIndex: c.QuestionIndex + 1}
}

// NextRound moves to the first question of the following round.
func (c Cursor) NextRound() Cursor {
	return Cursor{RoundIndex: c.RoundIndex + 1, QuestionIndex: 0}
}

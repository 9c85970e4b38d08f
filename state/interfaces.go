// state/interfaces.go
package state

import (
	"time"

	"github.com/wfunc/triviashow/config"
	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/scenario"
)

// Context is the view of a session that phase behaviors operate through.
// It is implemented by the lifecycle service and backed by the session
// service, which is the only component allowed to mutate session data.
// This interface also breaks the import cycle between state and game.
type Context interface {
	SessionID() string
	Config() config.GameConfig
	Scenario() *scenario.Scenario
	Cursor() scenario.Cursor

	// Cursor mutation, applied by the session service.
	AdvanceQuestion()
	AdvanceRound()

	ConnectedPlayers() int
	TotalPlayers() int
	Nickname(playerID string) string
	PlayerIDByNickname(nickname string) string
	Scoreboard() []models.PlayerInfo

	// AwardPoints routes through the session service; behaviors never
	// touch scores directly.
	AwardPoints(playerID string, delta int)

	Scratch() *Scratch
	StartedAt() time.Time
}

// Answer is one player's submission for the current question.
type Answer struct {
	Option int
	At     time.Time
}

// Scratch is the per-phase working data of a session. Behaviors fill it
// during a phase and finalize it in OnExit; the next phase's OnEnter may
// read what the previous one left behind.
type Scratch struct {
	Answers   map[string]Answer   // playerID -> answer
	Bids      map[string]int      // playerID -> auction bid
	Votes     map[string]string   // playerID -> choice
	Purchases map[string][]string // playerID -> shop item ids

	AuctionWinner string // playerID, empty when nobody bid
	AuctionBid    int

	// Set by Stats.OnExit so a Voting intermission knows whether a shop
	// window follows it.
	PendingShop bool

	LastReveal  *models.RevealPayload
	LastVote    *models.VotingResultPayload
	LastAuction *models.AuctionResultPayload
}

func NewScratch() *Scratch {
	return &Scratch{
		Answers:   make(map[string]Answer),
		Bids:      make(map[string]int),
		Votes:     make(map[string]string),
		Purchases: make(map[string][]string),
	}
}

// ResetQuestion clears question-scoped data between questions.
func (s *Scratch) ResetQuestion() {
	s.Answers = make(map[string]Answer)
}

// ResetAuction clears the auction winner once the auctioned question closed.
func (s *Scratch) ResetAuction() {
	s.Bids = make(map[string]int)
	s.AuctionWinner = ""
	s.AuctionBid = 0
}

// game/service.go
package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/triviashow/scenario"
	"github.com/wfunc/triviashow/state"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrDuplicatePlayer = errors.New("player already in session")
	ErrDuplicateAnswer = errors.New("answer already submitted")
	ErrDuplicateBid    = errors.New("bid already placed")
	ErrBidTooLow       = errors.New("bid below the auction minimum")
	ErrDuplicateVote   = errors.New("vote already cast")
	ErrNotEnoughPoints = errors.New("not enough points")
)

// PlayerSeed describes a contestant at session creation time.
type PlayerSeed struct {
	ID       string
	Nickname string
	RackID   string
}

// Service owns every session aggregate. It is the single mutator of
// session and player records; callers invoke it only from the session's
// serialized command path.
type Service struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewService() *Service {
	return &Service{sessions: make(map[string]*Session)}
}

// CreateSession builds a session with its initial roster. Players start
// disconnected; terminals bind later via MarkConnected.
func (s *Service) CreateSession(id, hostID string, scn *scenario.Scenario, seeds []PlayerSeed) (*Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}

	sess := newSession(id, hostID, scn)
	for _, seed := range seeds {
		if _, dup := sess.players[seed.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, seed.ID)
		}
		sess.players[seed.ID] = &Player{
			ID:       seed.ID,
			Nickname: seed.Nickname,
			RackID:   seed.RackID,
			JoinedAt: time.Now(),
		}
		sess.order = append(sess.order, seed.ID)
	}
	s.sessions[id] = sess
	return sess, nil
}

func (s *Service) Get(sessionID string) (*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	sess, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// Remove drops the session from the registry. The aggregate stays valid
// for whoever still holds it (final stats, archiving).
func (s *Service) Remove(sessionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.sessions, sessionID)
}

// List returns the live session ids.
func (s *Service) List() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *Service) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

// SetPhase records the machine's current phase on the aggregate.
func (s *Service) SetPhase(sessionID string, phase state.Phase) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	sess.mutex.Lock()
	defer sess.mutex.Unlock()
	sess.Phase = phase
	sess.PhaseEnteredAt = time.Now()
	return nil
}

// MarkConnected binds a terminal connection to a player. Reconnecting
// within the grace window restores the same player record, score and rack
// included.
func (s *Service) MarkConnected(sessionID, playerID, connectionID string) (*Player, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mutex.Lock()
	defer sess.mutex.Unlock()
	p, exists := sess.players[playerID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	p.ConnectionID = connectionID
	p.Connected = true
	p.Left = false
	return p, nil
}

// MarkDisconnected unbinds the terminal but keeps the player record.
func (s *Service) MarkDisconnected(sessionID, playerID string) (*Player, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mutex.Lock()
	defer sess.mutex.Unlock()
	p, exists := sess.players[playerID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	p.ConnectionID = ""
	p.Connected = false
	return p, nil
}

// MarkLeft flags a player whose grace window expired. Score history stays;
// the player just stops counting as connected.
func (s *Service) MarkLeft(sessionID, playerID string) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	sess.mutex.Lock()
	defer sess.mutex.Unlock()
	p, exists := sess.players[playerID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if p.Connected {
		// Reconnected before the grace timer was reaped; nothing to do.
		return nil
	}
	p.Left = true
	return nil
}

// AddScore accumulates points. Negative deltas (auction escrow, shop
// purchases) may not take a player below zero.
func (s *Service) AddScore(sessionID, playerID string, delta int) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	sess.mutex.Lock()
	defer sess.mutex.Unlock()
	p, exists := sess.players[playerID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if delta < 0 && p.Score+delta < 0 {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrNotEnoughPoints, p.Nickname, p.Score, -delta)
	}
	p.Score += delta
	return nil
}

// RecordAnswer stores a player's submission for the open question. The
// second submission from the same player is a duplicate and is rejected.
func (s *Service) RecordAnswer(sessionID, playerID string, option int) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	if _, exists := sess.Player(playerID); !exists {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if _, dup := sess.Scratch.Answers[playerID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateAnswer, playerID)
	}
	sess.Scratch.Answers[playerID] = state.Answer{Option: option, At: time.Now()}
	return nil
}

// RecordBid stores an auction bid, one per player per auction.
func (s *Service) RecordBid(sessionID, playerID string, amount int) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	p, exists := sess.Player(playerID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if _, dup := sess.Scratch.Bids[playerID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateBid, playerID)
	}
	if amount < state.AuctionMinBid {
		return fmt.Errorf("%w: bid %d, minimum %d", ErrBidTooLow, amount, state.AuctionMinBid)
	}
	if amount > p.Score {
		return fmt.Errorf("%w: bid %d over score %d", ErrNotEnoughPoints, amount, p.Score)
	}
	sess.Scratch.Bids[playerID] = amount
	return nil
}

// RecordVote stores a player's vote, one per player per voting window.
func (s *Service) RecordVote(sessionID, playerID, choice string) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	if _, exists := sess.Player(playerID); !exists {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if _, dup := sess.Scratch.Votes[playerID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateVote, playerID)
	}
	sess.Scratch.Votes[playerID] = choice
	return nil
}

// RecordPurchase charges a shop item immediately and remembers it for the
// modifiers screen.
func (s *Service) RecordPurchase(sessionID, playerID, itemID string) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	var item *scenario.ShopItem
	for i := range sess.Scenario.ShopItems {
		if sess.Scenario.ShopItems[i].ID == itemID {
			item = &sess.Scenario.ShopItems[i]
			break
		}
	}
	if item == nil {
		return fmt.Errorf("unknown shop item %s", itemID)
	}
	if err := s.AddScore(sessionID, playerID, -item.Price); err != nil {
		return err
	}
	sess.Scratch.Purchases[playerID] = append(sess.Scratch.Purchases[playerID], item.Name)
	return nil
}

// AdvanceQuestion moves the scenario cursor within the current round.
func (s *Service) AdvanceQuestion(sessionID string) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	sess.Cursor = sess.Cursor.NextQuestion()
	return nil
}

// AdvanceRound moves the cursor to the next round's first question.
func (s *Service) AdvanceRound(sessionID string) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	sess.Cursor = sess.Cursor.NextRound()
	return nil
}

// game/session.go
package game

import (
	"sync"
	"time"

	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/scenario"
	"github.com/wfunc/triviashow/state"
)

// Player is one contestant. Players are created on session join and kept
// across disconnects: a reconnect within the grace window gets the same
// score and rack back, and even a permanently left player keeps their
// score for the final stats.
type Player struct {
	ID           string
	Nickname     string
	RackID       string
	ConnectionID string // empty while disconnected
	Score        int
	Connected    bool
	Left         bool // grace window expired
	JoinedAt     time.Time
}

// Session is one running game show: one scenario, one set of players, one
// current phase. Mutation happens only through Service, from the session's
// serialized command path.
type Session struct {
	ID         string
	HostID     string
	ScenarioID string
	Scenario   *scenario.Scenario

	Phase          state.Phase
	PhaseEnteredAt time.Time
	Cursor         scenario.Cursor
	Scratch        *state.Scratch

	StartedAt time.Time

	players map[string]*Player
	order   []string // join order, for stable scoreboards
	mutex   sync.RWMutex
}

func newSession(id, hostID string, scn *scenario.Scenario) *Session {
	return &Session{
		ID:         id,
		HostID:     hostID,
		ScenarioID: scn.ID,
		Scenario:   scn,
		Phase:      state.PhaseNotStarted,
		Scratch:    state.NewScratch(),
		StartedAt:  time.Now(),
		players:    make(map[string]*Player),
	}
}

func (s *Session) Player(playerID string) (*Player, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	p, exists := s.players[playerID]
	return p, exists
}

// PlayerByNickname resolves the terminal-facing name to a player.
func (s *Session) PlayerByNickname(nickname string) (*Player, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, p := range s.players {
		if p.Nickname == nickname {
			return p, true
		}
	}
	return nil, false
}

// ConnectedCount counts players currently online. Players whose grace
// window expired never count, even if a stale flag said otherwise.
func (s *Session) ConnectedCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	n := 0
	for _, p := range s.players {
		if p.Connected && !p.Left {
			n++
		}
	}
	return n
}

func (s *Session) PlayerCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.players)
}

// Snapshot returns the scoreboard in join order. It is a copy; callers can
// hold it without racing the session.
func (s *Session) Snapshot() []models.PlayerInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	board := make([]models.PlayerInfo, 0, len(s.order))
	for _, id := range s.order {
		p := s.players[id]
		board = append(board, models.PlayerInfo{
			Nickname:  p.Nickname,
			RackID:    p.RackID,
			Score:     p.Score,
			Connected: p.Connected && !p.Left,
		})
	}
	return board
}

// ConnectedIDs returns the ids of online players.
func (s *Session) ConnectedIDs() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var ids []string
	for _, id := range s.order {
		p := s.players[id]
		if p.Connected && !p.Left {
			ids = append(ids, id)
		}
	}
	return ids
}

// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/triviashow/network"
)

// Session is one connected player terminal. It binds a transport
// connection to a game and a player once the terminal joins.
type Session struct {
	ID         string
	Conn       network.Connection
	GameID     string
	PlayerID   string
	Nickname   string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Bind attaches the terminal to a player in a game.
func (s *Session) Bind(gameID, playerID, nickname string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.GameID = gameID
	s.PlayerID = playerID
	s.Nickname = nickname
}

// Binding returns the game/player pair, empty strings while unbound.
func (s *Session) Binding() (gameID, playerID string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.GameID, s.PlayerID
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

func (s *Session) SendJSON(msgID uint16, v interface{}) error {
	s.LastActive = time.Now()
	return s.Conn.SendJSON(msgID, v)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager is the terminal connection registry.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByGameID returns every terminal bound to a game session.
func (m *Manager) GetByGameID(gameID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GameID == gameID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

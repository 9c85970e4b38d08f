// manager/connections.go
package manager

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/triviashow/game"
	"github.com/wfunc/triviashow/lifecycle"
	"github.com/wfunc/triviashow/lights"
	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/session"
	"github.com/wfunc/triviashow/timer"
)

var (
	ErrAlreadyConnected = errors.New("player already has a connected terminal")
	ErrPlayerLeft       = errors.New("player left the game")
)

// binding maps a transport connection to its player.
type binding struct {
	sessionID string
	playerID  string
}

// ConnectionHandler tracks terminal connect/disconnect, binds connections
// to players and racks, and runs the reconnect grace window. All methods
// except Lookup must be called on the session worker.
type ConnectionHandler struct {
	sessions *game.Service
	lights   *lights.Controller
	timers   *timer.Manager
	notifier lifecycle.Notifier
	grace    time.Duration

	// expire is called on the session worker when a grace window runs out.
	expire func(sessionID, playerID string)

	mutex    sync.RWMutex
	bindings map[string]binding // connection id -> player
	pending  map[string]int64   // sessionID/playerID -> grace timer id
}

func NewConnectionHandler(sessions *game.Service, lc *lights.Controller, timers *timer.Manager, notifier lifecycle.Notifier, grace time.Duration) *ConnectionHandler {
	return &ConnectionHandler{
		sessions: sessions,
		lights:   lc,
		timers:   timers,
		notifier: notifier,
		grace:    grace,
		bindings: make(map[string]binding),
		pending:  make(map[string]int64),
	}
}

func (h *ConnectionHandler) setExpire(fn func(sessionID, playerID string)) {
	h.expire = fn
}

func graceKey(sessionID, playerID string) string {
	return sessionID + "/" + playerID
}

// Connected binds a terminal to a player. A reconnect inside the grace
// window cancels the pending expiry and restores the existing player
// record; score and rack binding are untouched.
func (h *ConnectionHandler) Connected(sess *game.Session, term *session.Session, nickname string) (*game.Player, error) {
	player, exists := sess.PlayerByNickname(nickname)
	if !exists {
		return nil, fmt.Errorf("%w: %s", game.ErrPlayerNotFound, nickname)
	}
	if player.Left {
		return nil, fmt.Errorf("%w: %s", ErrPlayerLeft, nickname)
	}
	if player.Connected {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyConnected, nickname)
	}

	h.cancelGrace(sess.ID, player.ID)

	if _, err := h.sessions.MarkConnected(sess.ID, player.ID, term.ID); err != nil {
		return nil, err
	}
	term.Bind(sess.ID, player.ID, nickname)

	h.mutex.Lock()
	h.bindings[term.ID] = binding{sessionID: sess.ID, playerID: player.ID}
	h.mutex.Unlock()

	h.lights.HighlightPlayer(nickname, player.RackID)
	h.notifier.NotifyEvent(sess.ID, "player_connection", models.PlayerConnectionEvent{
		Nickname:  nickname,
		Connected: true,
	})
	logger.Log.Infof("Player %s connected to session %s on rack %s", nickname, sess.ID, player.RackID)
	return player, nil
}

// Disconnected unbinds a terminal, marks the player offline and starts the
// grace window. The expiry callback re-enters through the session worker.
func (h *ConnectionHandler) Disconnected(connectionID string) {
	h.mutex.Lock()
	b, exists := h.bindings[connectionID]
	delete(h.bindings, connectionID)
	h.mutex.Unlock()
	if !exists {
		return
	}

	player, err := h.sessions.MarkDisconnected(b.sessionID, b.playerID)
	if err != nil {
		logger.Log.Warnf("Disconnect of %s in session %s: %v", b.playerID, b.sessionID, err)
		return
	}

	h.lights.PlayerHasDisconnected(player.Nickname)
	h.notifier.NotifyEvent(b.sessionID, "player_connection", models.PlayerConnectionEvent{
		Nickname:  player.Nickname,
		Connected: false,
	})

	sessionID, playerID := b.sessionID, b.playerID
	timerID := h.timers.Schedule(h.grace, func() {
		h.expire(sessionID, playerID)
	})
	h.mutex.Lock()
	h.pending[graceKey(sessionID, playerID)] = timerID
	h.mutex.Unlock()

	logger.Log.Infof("Player %s disconnected from session %s, grace window %v", player.Nickname, sessionID, h.grace)
}

// Expire marks a player permanently left once the grace window ran out
// without a reconnect. Score history stays for the final stats.
func (h *ConnectionHandler) Expire(sessionID, playerID string) {
	h.mutex.Lock()
	delete(h.pending, graceKey(sessionID, playerID))
	h.mutex.Unlock()

	if err := h.sessions.MarkLeft(sessionID, playerID); err != nil {
		logger.Log.Warnf("Grace expiry of %s in session %s: %v", playerID, sessionID, err)
		return
	}
	logger.Log.Infof("Player %s grace window expired in session %s", playerID, sessionID)
}

// Lookup resolves a connection id to its player binding.
func (h *ConnectionHandler) Lookup(connectionID string) (sessionID, playerID string, ok bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	b, exists := h.bindings[connectionID]
	return b.sessionID, b.playerID, exists
}

func (h *ConnectionHandler) cancelGrace(sessionID, playerID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	key := graceKey(sessionID, playerID)
	if timerID, exists := h.pending[key]; exists {
		h.timers.Cancel(timerID)
		delete(h.pending, key)
	}
}

// dropSession cancels every pending grace timer of a session at teardown.
func (h *ConnectionHandler) dropSession(sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	prefix := sessionID + "/"
	for key, timerID := range h.pending {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			h.timers.Cancel(timerID)
			delete(h.pending, key)
		}
	}
	for connID, b := range h.bindings {
		if b.sessionID == sessionID {
			delete(h.bindings, connID)
		}
	}
}

// manager/manager.go
package manager

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/triviashow/config"
	"github.com/wfunc/triviashow/game"
	"github.com/wfunc/triviashow/lifecycle"
	"github.com/wfunc/triviashow/lights"
	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/monitor"
	"github.com/wfunc/triviashow/persistence"
	"github.com/wfunc/triviashow/services"
	"github.com/wfunc/triviashow/session"
	"github.com/wfunc/triviashow/state"
	"github.com/wfunc/triviashow/timer"
)

var (
	ErrNotEntitled = errors.New("host is not entitled to start a game")
	ErrWrongPhase  = errors.New("action not valid in current phase")
)

// GameManager is the single entry point for external commands. It owns
// the per-session workers: every mutation for a session, manual or
// timer-triggered, runs on that session's worker in arrival order.
type GameManager struct {
	cfg       *config.Config
	sessions  *game.Service
	life      *lifecycle.Service
	provider  *state.Provider
	terminals *session.Manager
	handler   *ConnectionHandler
	notifier  lifecycle.Notifier
	db        persistence.Database
	records   *services.GameRecordService
	archive   persistence.StateArchive
	lights    *lights.Controller
	timers    *timer.Manager
	mon       *monitor.Monitor

	mutex   sync.RWMutex
	workers map[string]*worker
}

func NewGameManager(
	cfg *config.Config,
	sessions *game.Service,
	life *lifecycle.Service,
	provider *state.Provider,
	terminals *session.Manager,
	notifier lifecycle.Notifier,
	db persistence.Database,
	records *services.GameRecordService,
	archive persistence.StateArchive,
	lightsCtl *lights.Controller,
	timers *timer.Manager,
	mon *monitor.Monitor,
) *GameManager {
	m := &GameManager{
		cfg:       cfg,
		sessions:  sessions,
		life:      life,
		provider:  provider,
		terminals: terminals,
		notifier:  notifier,
		db:        db,
		records:   records,
		archive:   archive,
		lights:    lightsCtl,
		timers:    timers,
		mon:       mon,
		workers:   make(map[string]*worker),
	}

	m.handler = NewConnectionHandler(sessions, lightsCtl, timers, notifier, cfg.Game.ReconnectGrace)
	m.handler.setExpire(func(sessionID, playerID string) {
		m.enqueue(sessionID, func() {
			m.handler.Expire(sessionID, playerID)
		})
	})

	// Deadline timers re-enter the serialized path here.
	life.SetDispatcher(m.enqueue)

	// The game-duration watchdog ends through the full finish path so the
	// record still gets archived. Already on the worker when called.
	life.SetExpiryHandler(func(sessionID string) {
		if err := m.finish(sessionID); err != nil {
			logger.Log.Errorf("Forced finish of session %s failed: %v", sessionID, err)
		}
		m.teardown(sessionID)
	})

	return m
}

// StartGame checks entitlement, loads the scenario, creates the session
// and moves it into the lobby. Any failure leaves no session behind.
func (m *GameManager) StartGame(hostID, scenarioID string, seeds []game.PlayerSeed) (string, error) {
	started := time.Now()
	defer m.observe(started)

	if err := m.db.CheckLicense(hostID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotEntitled, err)
	}

	scn, err := m.db.GetScenario(scenarioID)
	if err != nil {
		return "", err
	}
	if err := scn.Validate(); err != nil {
		return "", err
	}

	sessionID := uuid.New().String()
	sess, err := m.sessions.CreateSession(sessionID, hostID, scn, seeds)
	if err != nil {
		return "", err
	}

	m.mutex.Lock()
	m.workers[sessionID] = newWorker()
	m.mutex.Unlock()

	if err := m.do(sessionID, func() error {
		return m.life.Start(sess)
	}); err != nil {
		m.teardown(sessionID)
		return "", err
	}

	m.mon.SetActiveSessions(m.sessions.Count())
	logger.Log.Infof("Session %s started: scenario %s, %d players", sessionID, scenarioID, len(seeds))
	return sessionID, nil
}

// PlayerConnected binds a freshly joined terminal to its player.
func (m *GameManager) PlayerConnected(sessionID, nickname string, term *session.Session) error {
	started := time.Now()
	defer m.observe(started)

	return m.do(sessionID, func() error {
		sess, err := m.sessions.Get(sessionID)
		if err != nil {
			return err
		}
		if _, err := m.handler.Connected(sess, term, nickname); err != nil {
			return err
		}
		m.mon.IncConnectedPlayers()
		m.archiveState(sess)

		// A full lobby starts the show without waiting for the host.
		if phase, _ := m.life.CurrentPhase(sessionID); phase == state.PhaseWaitingForPlayers {
			if err := m.life.Advance(sessionID, lifecycle.TriggerPlayerAction); err != nil &&
				!errors.Is(err, lifecycle.ErrCannotAdvance) {
				logger.Log.Warnf("Lobby advance of session %s failed: %v", sessionID, err)
			}
		}
		return nil
	})
}

// PlayerDisconnected is called by the transport when a terminal drops.
func (m *GameManager) PlayerDisconnected(connectionID string) {
	sessionID, _, ok := m.handler.Lookup(connectionID)
	if !ok {
		return
	}
	m.mon.DecConnectedPlayers()
	m.enqueue(sessionID, func() {
		m.handler.Disconnected(connectionID)
	})
}

// SubmitAnswer records a player's answer to the open question. The phase
// advances early once every connected player has answered.
func (m *GameManager) SubmitAnswer(sessionID, playerID string, option int) error {
	started := time.Now()
	defer m.observe(started)

	return m.do(sessionID, func() error {
		sess, err := m.requirePhase(sessionID, state.PhaseQuestion)
		if err != nil {
			return err
		}
		if err := m.sessions.RecordAnswer(sessionID, playerID, option); err != nil {
			return err
		}

		player, _ := sess.Player(playerID)
		if player != nil {
			m.lights.HighlightPlayers(player.Nickname)
			m.notifier.NotifyEvent(sessionID, "player_answered", models.PlayerAnsweredEvent{
				Nickname: player.Nickname,
				Answered: len(sess.Scratch.Answers),
				Expected: sess.ConnectedCount(),
			})
		}

		if m.allConnectedDone(sess, answerDone) {
			return m.life.Advance(sessionID, lifecycle.TriggerPlayerAction)
		}
		return nil
	})
}

// PlaceBid records an auction bid; the window closes early once every
// connected player has bid.
func (m *GameManager) PlaceBid(sessionID, playerID string, amount int) error {
	started := time.Now()
	defer m.observe(started)

	return m.do(sessionID, func() error {
		sess, err := m.requirePhase(sessionID, state.PhaseAuction)
		if err != nil {
			return err
		}
		if err := m.sessions.RecordBid(sessionID, playerID, amount); err != nil {
			return err
		}

		if player, _ := sess.Player(playerID); player != nil {
			m.notifier.NotifyEvent(sessionID, "bid_placed", models.BidPlacedEvent{
				Nickname: player.Nickname,
				Bid:      amount,
			})
		}

		if m.allConnectedDone(sess, bidDone) {
			return m.life.Advance(sessionID, lifecycle.TriggerPlayerAction)
		}
		return nil
	})
}

// CastVote records a vote during a voting intermission.
func (m *GameManager) CastVote(sessionID, playerID, choice string) error {
	started := time.Now()
	defer m.observe(started)

	return m.do(sessionID, func() error {
		sess, err := m.requirePhase(sessionID, state.PhaseVoting)
		if err != nil {
			return err
		}
		if err := m.sessions.RecordVote(sessionID, playerID, choice); err != nil {
			return err
		}
		if m.allConnectedDone(sess, voteDone) {
			return m.life.Advance(sessionID, lifecycle.TriggerPlayerAction)
		}
		return nil
	})
}

// BuyItem charges a shop purchase during a shop window.
func (m *GameManager) BuyItem(sessionID, playerID, itemID string) error {
	started := time.Now()
	defer m.observe(started)

	return m.do(sessionID, func() error {
		sess, err := m.requirePhase(sessionID, state.PhaseShop)
		if err != nil {
			return err
		}
		if err := m.sessions.RecordPurchase(sessionID, playerID, itemID); err != nil {
			return err
		}
		if player, _ := sess.Player(playerID); player != nil {
			items := sess.Scratch.Purchases[playerID]
			m.notifier.NotifyEvent(sessionID, "item_purchased", models.PurchaseEvent{
				Nickname: player.Nickname,
				ItemName: items[len(items)-1],
			})
		}
		return nil
	})
}

// AdvancePhase is the host's "next" button.
func (m *GameManager) AdvancePhase(sessionID string) error {
	started := time.Now()
	defer m.observe(started)

	return m.do(sessionID, func() error {
		err := m.life.Advance(sessionID, lifecycle.TriggerExternal)
		if err == nil {
			if sess, serr := m.sessions.Get(sessionID); serr == nil {
				m.archiveState(sess)
			}
		}
		return err
	})
}

func (m *GameManager) PauseGame(sessionID string) error {
	started := time.Now()
	defer m.observe(started)

	return m.do(sessionID, func() error {
		return m.life.Pause(sessionID)
	})
}

func (m *GameManager) ResumeGame(sessionID string) error {
	started := time.Now()
	defer m.observe(started)

	return m.do(sessionID, func() error {
		return m.life.Resume(sessionID)
	})
}

// EndGame forces the session to Finish, archives the result and tears the
// session down.
func (m *GameManager) EndGame(sessionID string) error {
	started := time.Now()
	defer m.observe(started)

	err := m.do(sessionID, func() error {
		return m.finish(sessionID)
	})
	if err != nil {
		return err
	}
	m.teardown(sessionID)
	return nil
}

// Sessions lists live sessions for the admin surface.
func (m *GameManager) Sessions() []SessionInfo {
	var infos []SessionInfo
	for _, id := range m.sessions.List() {
		sess, err := m.sessions.Get(id)
		if err != nil {
			continue
		}
		phase, _ := m.life.CurrentPhase(id)
		infos = append(infos, SessionInfo{
			SessionID:  id,
			ScenarioID: sess.ScenarioID,
			Phase:      phase.String(),
			Players:    sess.PlayerCount(),
			Connected:  sess.ConnectedCount(),
		})
	}
	return infos
}

// SessionInfo is the admin view of one session.
type SessionInfo struct {
	SessionID  string
	ScenarioID string
	Phase      string
	Players    int
	Connected  int
}

// finish runs on the session worker: ends the machine, persists the
// record. Persistence failures are logged; the game still ends.
func (m *GameManager) finish(sessionID string) error {
	sess, err := m.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if err := m.life.End(sessionID); err != nil {
		return err
	}

	record := buildRecord(sess)
	if err := m.records.SaveResult(record); err != nil {
		logger.Log.Errorf("Archiving session %s failed: %v", sessionID, err)
	}
	m.archiveState(sess)
	return nil
}

// teardown removes the worker, the session aggregate and every pending
// grace timer. Runs outside the worker.
func (m *GameManager) teardown(sessionID string) {
	m.mutex.Lock()
	if w, exists := m.workers[sessionID]; exists {
		w.stop()
		delete(m.workers, sessionID)
	}
	m.mutex.Unlock()

	m.handler.dropSession(sessionID)
	m.sessions.Remove(sessionID)
	m.mon.SetActiveSessions(m.sessions.Count())
}

// requirePhase guards gameplay actions against the wrong phase.
func (m *GameManager) requirePhase(sessionID string, want state.Phase) (*game.Session, error) {
	sess, err := m.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	phase, err := m.life.CurrentPhase(sessionID)
	if err != nil {
		return nil, err
	}
	if phase != want {
		return nil, fmt.Errorf("%w: in %s, want %s", ErrWrongPhase, phase, want)
	}
	return sess, nil
}

func answerDone(sess *game.Session, playerID string) bool {
	_, done := sess.Scratch.Answers[playerID]
	return done
}

func bidDone(sess *game.Session, playerID string) bool {
	_, done := sess.Scratch.Bids[playerID]
	return done
}

func voteDone(sess *game.Session, playerID string) bool {
	_, done := sess.Scratch.Votes[playerID]
	return done
}

// allConnectedDone reports whether every online player finished the
// current input window.
func (m *GameManager) allConnectedDone(sess *game.Session, done func(*game.Session, string) bool) bool {
	ids := sess.ConnectedIDs()
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !done(sess, id) {
			return false
		}
	}
	return true
}

// archiveState writes the crash-recovery snapshot, best effort.
func (m *GameManager) archiveState(sess *game.Session) {
	if m.archive == nil {
		return
	}
	phase, _ := m.life.CurrentPhase(sess.ID)
	snapshot := map[string]interface{}{
		"cursor":     sess.Cursor,
		"scoreboard": sess.Snapshot(),
	}
	go func() {
		if err := m.archive.SaveSessionState(sess.ID, phase.String(), snapshot); err != nil {
			logger.Log.Warnf("State archive of session %s failed: %v", sess.ID, err)
		}
	}()
}

func (m *GameManager) observe(started time.Time) {
	m.mon.ObserveCommandLatency(time.Since(started))
}

func buildRecord(sess *game.Session) *models.GameRecord {
	board := sess.Snapshot()
	winner, best := "", 0
	for _, p := range board {
		if p.Score > best {
			winner, best = p.Nickname, p.Score
		}
	}

	record := &models.GameRecord{
		SessionID:  sess.ID,
		ScenarioID: sess.ScenarioID,
		Winner:     winner,
		StartedAt:  sess.StartedAt,
		FinishedAt: time.Now(),
	}
	for _, p := range board {
		outcome := "lose"
		if p.Nickname == winner {
			outcome = "win"
		}
		playerID := ""
		if pl, exists := sess.PlayerByNickname(p.Nickname); exists {
			playerID = pl.ID
		}
		record.Players = append(record.Players, models.PlayerResult{
			PlayerID: playerID,
			Nickname: p.Nickname,
			RackID:   p.RackID,
			Points:   p.Score,
			Outcome:  outcome,
		})
	}
	return record
}

// lifecycle/lifecycle.go
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/triviashow/config"
	"github.com/wfunc/triviashow/game"
	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/state"
	"github.com/wfunc/triviashow/timer"
)

var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrAlreadyPaused  = errors.New("session already paused")
	ErrNotPaused      = errors.New("session is not paused")
	ErrCannotAdvance  = errors.New("phase cannot advance yet")
	ErrFinished       = errors.New("session is finished")
)

// Trigger is the reason an advance was requested.
type Trigger string

const (
	TriggerTimeout      Trigger = "timeout"
	TriggerPlayerAction Trigger = "player_action"
	TriggerExternal     Trigger = "external"
)

// Notifier pushes phase and event payloads to a session's terminals.
// Implemented by the broadcast package; failures are the notifier's
// problem and never surface here.
type Notifier interface {
	NotifyPhaseEntered(sessionID string, phase state.Phase, payload interface{})
	NotifyEvent(sessionID string, event string, payload interface{})
}

// Dispatcher runs a function on a session's serialized command path.
// Deadline timers fire on the timer goroutine and must re-enter through
// it, so that timer-driven and manual advances never interleave.
type Dispatcher func(sessionID string, fn func())

// deadline is one armed phase timeout.
type deadline struct {
	timerID    int64
	generation uint64
	dueAt      time.Time
}

// Service drives sessions through the phase machine: Start, Advance,
// Pause/Resume, End, and the timer plumbing between them. Every method
// except the timer callbacks must be called from the session's worker.
type Service struct {
	cfg       config.GameConfig
	sessions  *game.Service
	provider  *state.Provider
	notifier  Notifier
	timers    *timer.Manager
	dispatch  Dispatcher
	onExpired func(sessionID string)

	mutex     sync.Mutex
	pending   map[string]*deadline         // armed phase deadline per session
	watchdogs map[string]int64             // whole-game timers
	lastEnter map[string]state.EnterResult // re-pushed on resume
	frozen    map[string]time.Duration     // remaining budget while paused
}

func NewService(cfg config.GameConfig, sessions *game.Service, provider *state.Provider, notifier Notifier, timers *timer.Manager) *Service {
	return &Service{
		cfg:       cfg,
		sessions:  sessions,
		provider:  provider,
		notifier:  notifier,
		timers:    timers,
		pending:   make(map[string]*deadline),
		watchdogs: make(map[string]int64),
		lastEnter: make(map[string]state.EnterResult),
		frozen:    make(map[string]time.Duration),
	}
}

// SetDispatcher wires the per-session serializer. Must be set before any
// session starts; the game manager owns the workers.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatch = d
}

// SetExpiryHandler wires the whole-game watchdog to the manager's finish
// path, so a forced end still archives the result.
func (s *Service) SetExpiryHandler(fn func(sessionID string)) {
	s.onExpired = fn
}

// Start moves a freshly created session out of NotStarted into the lobby
// and arms the whole-game watchdog.
func (s *Service) Start(sess *game.Session) error {
	machine := s.provider.GetOrCreate(sess.ID)
	if machine.Current() != state.PhaseNotStarted {
		return fmt.Errorf("%w: %s in %s", ErrAlreadyStarted, sess.ID, machine.Current())
	}

	if err := s.transition(sess, machine, state.PhaseWaitingForPlayers); err != nil {
		return err
	}

	sessionID := sess.ID
	watchdogID := s.timers.Schedule(s.cfg.DefaultGameDuration, func() {
		s.dispatch(sessionID, func() {
			logger.Log.Warnf("Session %s hit the game duration limit, forcing finish", sessionID)
			if s.onExpired != nil {
				s.onExpired(sessionID)
				return
			}
			if err := s.End(sessionID); err != nil {
				logger.Log.Errorf("Watchdog end of session %s failed: %v", sessionID, err)
			}
		})
	})

	s.mutex.Lock()
	s.watchdogs[sessionID] = watchdogID
	s.mutex.Unlock()
	return nil
}

// Advance asks the current behavior where to go and applies the
// transition. ErrCannotAdvance means the behavior is still waiting for
// something (players, answers) and nothing was mutated.
func (s *Service) Advance(sessionID string, trigger Trigger) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	machine, exists := s.provider.Get(sessionID)
	if !exists {
		return fmt.Errorf("%w: no machine for %s", game.ErrSessionNotFound, sessionID)
	}
	if machine.Current().Terminal() {
		return fmt.Errorf("%w: %s", ErrFinished, sessionID)
	}

	ctx := s.contextFor(sess)
	next := machine.Behavior().AllowedNext(ctx)
	if len(next) == 0 {
		return fmt.Errorf("%w: %s in %s (%s)", ErrCannotAdvance, sessionID, machine.Current(), trigger)
	}

	target := next[0]
	logger.Log.Infof("Session %s advancing %s -> %s (%s)", sessionID, machine.Current(), target, trigger)
	return s.transition(sess, machine, target)
}

// Pause bookmarks the current phase and freezes its remaining deadline
// budget. The paused phase is not exited; Resume picks it back up.
func (s *Service) Pause(sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	machine, exists := s.provider.Get(sessionID)
	if !exists {
		return fmt.Errorf("%w: no machine for %s", game.ErrSessionNotFound, sessionID)
	}
	current := machine.Current()
	if current == state.PhasePause {
		return fmt.Errorf("%w: %s", ErrAlreadyPaused, sessionID)
	}
	if current.Terminal() || current == state.PhaseNotStarted {
		return fmt.Errorf("%w: cannot pause %s", state.ErrTransitionNotAllowed, current)
	}

	remaining := s.cancelDeadline(sessionID)
	if err := s.transition(sess, machine, state.PhasePause); err != nil {
		// Put the deadline back; the pause did not happen.
		if remaining > 0 {
			s.arm(sessionID, machine.Generation(), remaining)
		}
		return err
	}

	s.mutex.Lock()
	s.frozen[sessionID] = remaining
	s.mutex.Unlock()
	return nil
}

// Resume restores the bookmarked phase and re-arms exactly the frozen
// remainder. The phase's OnEnter is not replayed; terminals get the
// stored entry payload again so they can re-render.
func (s *Service) Resume(sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	machine, exists := s.provider.Get(sessionID)
	if !exists {
		return fmt.Errorf("%w: no machine for %s", game.ErrSessionNotFound, sessionID)
	}
	if machine.Current() != state.PhasePause {
		return fmt.Errorf("%w: %s", ErrNotPaused, sessionID)
	}

	ctx := s.contextFor(sess)
	target, err := machine.Resume(ctx)
	if err != nil {
		return err
	}
	if err := s.sessions.SetPhase(sessionID, target); err != nil {
		return err
	}

	s.mutex.Lock()
	remaining := s.frozen[sessionID]
	delete(s.frozen, sessionID)
	last := s.lastEnter[sessionID]
	s.mutex.Unlock()

	s.notifier.NotifyPhaseEntered(sessionID, target, last.Payload)
	if remaining > 0 {
		s.arm(sessionID, machine.Generation(), remaining)
	}
	logger.Log.Infof("Session %s resumed into %s with %v left", sessionID, target, remaining)
	return nil
}

// End forces the session into Finish, cancels every pending timer and
// releases the machine. Idempotent: ending a finished session is a no-op.
func (s *Service) End(sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	machine, exists := s.provider.Get(sessionID)
	if !exists {
		return nil
	}

	s.cancelDeadline(sessionID)
	s.mutex.Lock()
	if id, ok := s.watchdogs[sessionID]; ok {
		s.timers.Cancel(id)
		delete(s.watchdogs, sessionID)
	}
	delete(s.frozen, sessionID)
	s.mutex.Unlock()

	if !machine.Current().Terminal() {
		if err := s.transition(sess, machine, state.PhaseFinish); err != nil {
			return err
		}
	}

	s.provider.Release(sessionID)
	s.mutex.Lock()
	delete(s.lastEnter, sessionID)
	s.mutex.Unlock()
	return nil
}

// CurrentPhase reports a session's phase for read-only surfaces.
func (s *Service) CurrentPhase(sessionID string) (state.Phase, error) {
	machine, exists := s.provider.Get(sessionID)
	if !exists {
		sess, err := s.sessions.Get(sessionID)
		if err != nil {
			return "", err
		}
		return sess.Phase, nil
	}
	return machine.Current(), nil
}

// transition applies one machine step and emits the phase notification as
// one logical unit on the session's serialized path.
func (s *Service) transition(sess *game.Session, machine *state.Machine, target state.Phase) error {
	s.cancelDeadline(sess.ID)

	ctx := s.contextFor(sess)
	res, err := machine.Step(ctx, target)
	if err != nil {
		return err
	}
	if err := s.sessions.SetPhase(sess.ID, target); err != nil {
		return err
	}

	// The pause entry is never re-pushed on resume; terminals need the
	// bookmarked phase's own payload to re-render.
	if target != state.PhasePause {
		s.mutex.Lock()
		s.lastEnter[sess.ID] = res
		s.mutex.Unlock()
	}

	s.notifier.NotifyPhaseEntered(sess.ID, target, res.Payload)

	// Results finalized by the previous phase's OnExit ride along right
	// after the entry push.
	if vote := sess.Scratch.LastVote; vote != nil {
		s.notifier.NotifyEvent(sess.ID, "voting_result", *vote)
		sess.Scratch.LastVote = nil
	}
	if auction := sess.Scratch.LastAuction; auction != nil {
		s.notifier.NotifyEvent(sess.ID, "auction_result", *auction)
		sess.Scratch.LastAuction = nil
	}

	if res.Deadline > 0 {
		s.arm(sess.ID, machine.Generation(), res.Deadline)
	}
	return nil
}

// arm schedules the phase deadline. The callback re-enters through the
// dispatcher and checks the captured generation, so a timer that lost a
// race with a manual advance fizzles instead of double-firing.
func (s *Service) arm(sessionID string, generation uint64, d time.Duration) {
	timerID := s.timers.Schedule(d, func() {
		s.dispatch(sessionID, func() {
			s.handleTimeout(sessionID, generation)
		})
	})
	s.mutex.Lock()
	s.pending[sessionID] = &deadline{
		timerID:    timerID,
		generation: generation,
		dueAt:      time.Now().Add(d),
	}
	s.mutex.Unlock()
}

// cancelDeadline disarms the pending deadline and returns its remaining
// budget.
func (s *Service) cancelDeadline(sessionID string) time.Duration {
	s.mutex.Lock()
	dl, exists := s.pending[sessionID]
	delete(s.pending, sessionID)
	s.mutex.Unlock()

	if !exists {
		return 0
	}
	s.timers.Cancel(dl.timerID)
	remaining := time.Until(dl.dueAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (s *Service) handleTimeout(sessionID string, generation uint64) {
	machine, exists := s.provider.Get(sessionID)
	if !exists {
		return
	}
	if machine.Generation() != generation {
		// A manual advance or a re-arm won the race; this firing belongs
		// to a phase instance that no longer exists.
		return
	}
	if err := s.Advance(sessionID, TriggerTimeout); err != nil {
		if errors.Is(err, ErrCannotAdvance) {
			logger.Log.Warnf("Session %s deadline fired but phase cannot advance: %v", sessionID, err)
			return
		}
		logger.Log.Errorf("Session %s timeout advance failed: %v", sessionID, err)
	}
}

// state/machine.go
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/triviashow/models"
)

// Machine is one session's live state machine. All stepping happens on the
// session's serialized command path; the mutex only protects read access
// from outside it (admin RPC, metrics).
type Machine struct {
	sessionID  string
	graph      *TransitionGraph
	behaviors  map[Phase]Behavior
	current    Phase
	pausedFrom Phase
	generation uint64
	enteredAt  time.Time
	mutex      sync.RWMutex
}

func NewMachine(sessionID string, graph *TransitionGraph, behaviors map[Phase]Behavior) *Machine {
	return &Machine{
		sessionID: sessionID,
		graph:     graph,
		behaviors: behaviors,
		current:   PhaseNotStarted,
		enteredAt: time.Now(),
	}
}

func (m *Machine) SessionID() string {
	return m.sessionID
}

func (m *Machine) Current() Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Generation counts applied transitions. Deadline timers capture it when
// armed; a fired timer whose generation is stale must be ignored, which
// makes every phase instance leave at most once.
func (m *Machine) Generation() uint64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.generation
}

func (m *Machine) EnteredAt() time.Time {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.enteredAt
}

// PausedFrom returns the bookmarked phase while the machine sits in Pause.
func (m *Machine) PausedFrom() Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.pausedFrom
}

// Behavior returns the bound behavior of the current phase.
func (m *Machine) Behavior() Behavior {
	return m.behaviors[m.Current()]
}

// Step applies one transition: graph check, target precondition, OnExit of
// the old phase, OnEnter of the new one. The exit/enter pair is atomic with
// respect to the session because callers run on the session worker.
func (m *Machine) Step(ctx Context, to Phase) (EnterResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	from := m.current
	if !m.graph.Allowed(from, to) {
		return EnterResult{}, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}

	target := m.behaviors[to]
	if err := target.Validate(ctx); err != nil {
		return EnterResult{}, err
	}

	if to == PhasePause {
		// Pausing freezes the current phase: no OnExit, so its scratch
		// state survives until Resume.
		m.pausedFrom = from
	} else {
		m.behaviors[from].OnExit(ctx)
		m.pausedFrom = ""
	}

	m.current = to
	m.generation++
	m.enteredAt = time.Now()

	res := target.OnEnter(ctx)
	if to == PhasePause {
		// Only the machine knows the bookmark.
		res.Payload = models.PausePayload{PausedFrom: from.String()}
	}
	return res, nil
}

// Resume leaves Pause back to the bookmarked phase without re-running its
// OnEnter: the paused phase was never exited, so re-entering it would
// replay entry side effects and reset its deadline budget.
func (m *Machine) Resume(ctx Context) (Phase, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.current != PhasePause {
		return "", fmt.Errorf("%w: resume from %s", ErrTransitionNotAllowed, m.current)
	}
	target := m.pausedFrom
	if target == "" || !m.graph.Allowed(PhasePause, target) {
		return "", fmt.Errorf("%w: no resume bookmark", ErrTransitionNotAllowed)
	}

	m.behaviors[PhasePause].OnExit(ctx)
	m.current = target
	m.pausedFrom = ""
	m.generation++
	m.enteredAt = time.Now()
	return target, nil
}

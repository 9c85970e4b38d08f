// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/network"
	"github.com/wfunc/triviashow/session"
	"github.com/wfunc/triviashow/state"
)

// phaseEnvelope frames a phase-entered push.
type phaseEnvelope struct {
	Phase   string      `json:"phase"`
	Payload interface{} `json:"payload,omitempty"`
}

// eventEnvelope frames an in-phase event push.
type eventEnvelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// FailureSink observes delivery failures, for metrics. Optional.
type FailureSink interface {
	NotificationFailed()
}

// GameNotifier pushes phase and event payloads to every terminal of a
// game session. Callers invoke it from the session's serialized path, so
// for any phase instance the phase-entered push is enqueued before any of
// its event pushes. Delivery failures are logged and skipped, never
// propagated: a dead terminal must not block a phase transition.
type GameNotifier struct {
	terminals *session.Manager
	failures  FailureSink
}

func NewGameNotifier(terminals *session.Manager, failures FailureSink) *GameNotifier {
	return &GameNotifier{terminals: terminals, failures: failures}
}

func (n *GameNotifier) NotifyPhaseEntered(sessionID string, phase state.Phase, payload interface{}) {
	n.push(sessionID, network.MsgTypePhaseEntered, phaseEnvelope{
		Phase:   phase.String(),
		Payload: payload,
	})
}

func (n *GameNotifier) NotifyEvent(sessionID string, event string, payload interface{}) {
	n.push(sessionID, network.MsgTypeGameEvent, eventEnvelope{
		Event:   event,
		Payload: payload,
	})
}

func (n *GameNotifier) push(sessionID string, msgID uint16, envelope interface{}) {
	terminals := n.terminals.GetByGameID(sessionID)
	for _, t := range terminals {
		if err := t.SendJSON(msgID, envelope); err != nil {
			logger.Log.Warnf("Push to terminal %s of session %s failed: %v", t.ID, sessionID, err)
			if n.failures != nil {
				n.failures.NotificationFailed()
			}
			continue
		}
	}
}

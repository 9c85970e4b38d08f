// manager/notifier.go
package manager

import (
	"github.com/wfunc/triviashow/lifecycle"
	"github.com/wfunc/triviashow/monitor"
	"github.com/wfunc/triviashow/state"
)

// InstrumentedNotifier decorates a notifier with transition metrics.
type InstrumentedNotifier struct {
	inner lifecycle.Notifier
	mon   *monitor.Monitor
}

func NewInstrumentedNotifier(inner lifecycle.Notifier, mon *monitor.Monitor) *InstrumentedNotifier {
	return &InstrumentedNotifier{inner: inner, mon: mon}
}

func (n *InstrumentedNotifier) NotifyPhaseEntered(sessionID string, phase state.Phase, payload interface{}) {
	n.mon.PhaseEntered(phase.String())
	n.inner.NotifyPhaseEntered(sessionID, phase, payload)
}

func (n *InstrumentedNotifier) NotifyEvent(sessionID string, event string, payload interface{}) {
	n.inner.NotifyEvent(sessionID, event, payload)
}

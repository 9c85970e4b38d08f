package state

import (
	"errors"
	"time"
)

var (
	// ErrTransitionNotAllowed is returned when a requested transition is
	// outside the current phase's allowed successors.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	// ErrPreconditionFailed is returned when a target phase's entry
	// precondition does not hold. Nothing is mutated.
	ErrPreconditionFailed = errors.New("phase precondition failed")
)

// EnterResult is what a behavior produces when its phase is entered: the
// payload to broadcast to the session's terminals and, for timer-bound
// phases, the deadline after which the machine advances automatically.
// A zero Deadline means the phase advances only on explicit events.
type EnterResult struct {
	Payload  interface{}
	Deadline time.Duration
}

// Behavior is the per-phase strategy. The thirteen variants form a closed
// family resolved once at boot into a phase -> behavior table.
type Behavior interface {
	Phase() Phase

	// Successors is the static edge set used to build and validate the
	// transition graph. AllowedNext must always return a subset of it.
	Successors() []Phase

	// AllowedNext narrows Successors based on live session data, in
	// preference order. An empty result means the phase cannot be left
	// by a regular advance yet.
	AllowedNext(ctx Context) []Phase

	// Validate checks the entry precondition. It runs before any
	// mutation; a failure rejects the transition.
	Validate(ctx Context) error

	OnEnter(ctx Context) EnterResult
	OnExit(ctx Context)
}

// behaviorBase provides the no-op defaults shared by the variants.
type behaviorBase struct {
	phase Phase
}

func (b behaviorBase) Phase() Phase               { return b.phase }
func (b behaviorBase) Validate(ctx Context) error { return nil }
func (b behaviorBase) OnExit(ctx Context)         {}

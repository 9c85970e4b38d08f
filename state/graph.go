// state/graph.go
package state

import (
	"fmt"
)

// TransitionGraph is the process-wide phase adjacency. It is built once at
// boot, validated, and shared read-only by every session afterwards.
type TransitionGraph struct {
	edges map[Phase]map[Phase]bool
}

// Allowed reports whether from -> to is a graph edge.
func (g *TransitionGraph) Allowed(from, to Phase) bool {
	return g.edges[from][to]
}

// SuccessorsOf returns the edge set of a phase.
func (g *TransitionGraph) SuccessorsOf(from Phase) []Phase {
	var out []Phase
	for _, p := range AllPhases {
		if g.edges[from][p] {
			out = append(out, p)
		}
	}
	return out
}

// Configurator assembles the behavior table and the transition graph from
// the closed behavior set. Build failures are boot-time invariant
// violations: the process must not start on them.
type Configurator struct {
	behaviors map[Phase]Behavior
}

// NewConfigurator registers the full behavior set.
func NewConfigurator(behaviors ...Behavior) (*Configurator, error) {
	table := make(map[Phase]Behavior, len(behaviors))
	for _, b := range behaviors {
		if _, dup := table[b.Phase()]; dup {
			return nil, fmt.Errorf("phase %s bound twice", b.Phase())
		}
		table[b.Phase()] = b
	}
	return &Configurator{behaviors: table}, nil
}

// DefaultBehaviors is the production behavior set, one variant per tag.
func DefaultBehaviors() []Behavior {
	return []Behavior{
		NewNotStartedBehavior(),
		NewPauseBehavior(),
		NewWaitingForPlayersBehavior(),
		NewMediaBehavior(),
		NewRoundBehavior(),
		NewQuestionBehavior(),
		NewRevealBehavior(),
		NewAuctionBehavior(),
		NewStatsBehavior(),
		NewVotingBehavior(),
		NewShopBehavior(),
		NewModifiersBehavior(),
		NewFinishBehavior(),
	}
}

// Build produces the validated transition graph:
//   - every phase tag has exactly one bound behavior
//   - every non-terminal phase can be paused and force-finished
//   - Pause can return to any non-terminal phase (resume bookmark)
//   - Finish has no outgoing edges
//   - no non-terminal phase is a dead end
//   - NotStarted is the unique initial phase, reachable from nowhere
func (c *Configurator) Build() (*TransitionGraph, map[Phase]Behavior, error) {
	for _, p := range AllPhases {
		if _, ok := c.behaviors[p]; !ok {
			return nil, nil, fmt.Errorf("phase %s has no bound behavior", p)
		}
	}
	if len(c.behaviors) != len(AllPhases) {
		return nil, nil, fmt.Errorf("behavior table has %d entries, want %d", len(c.behaviors), len(AllPhases))
	}

	edges := make(map[Phase]map[Phase]bool, len(AllPhases))
	for _, p := range AllPhases {
		edges[p] = make(map[Phase]bool)
	}

	for phase, behavior := range c.behaviors {
		for _, next := range behavior.Successors() {
			if _, ok := c.behaviors[next]; !ok {
				return nil, nil, fmt.Errorf("phase %s declares unknown successor %s", phase, next)
			}
			edges[phase][next] = true
		}
	}

	// Edge-case policy: Pause is reachable from any non-terminal phase and
	// returns to the paused-from phase; Finish is reachable from anywhere
	// via the end-game command.
	for _, p := range AllPhases {
		if p.Terminal() {
			continue
		}
		edges[p][PhaseFinish] = true
		if p != PhasePause && p != PhaseNotStarted {
			edges[p][PhasePause] = true
			edges[PhasePause][p] = true
		}
	}

	for _, p := range AllPhases {
		if p.Terminal() {
			if len(edges[p]) != 0 {
				return nil, nil, fmt.Errorf("terminal phase %s has successors", p)
			}
			continue
		}
		if len(edges[p]) == 0 {
			return nil, nil, fmt.Errorf("phase %s is a dead end", p)
		}
	}

	for from, to := range edges {
		if to[PhaseNotStarted] {
			return nil, nil, fmt.Errorf("phase %s transitions into initial phase %s", from, PhaseNotStarted)
		}
	}

	return &TransitionGraph{edges: edges}, c.behaviors, nil
}

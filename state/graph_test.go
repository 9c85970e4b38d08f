package state

import (
	"testing"
)

func buildDefault(t *testing.T) (*TransitionGraph, map[Phase]Behavior) {
	t.Helper()
	c, err := NewConfigurator(DefaultBehaviors()...)
	if err != nil {
		t.Fatalf("NewConfigurator failed: %v", err)
	}
	graph, behaviors, err := c.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return graph, behaviors
}

func TestConfigurator_BuildDefault(t *testing.T) {
	graph, behaviors := buildDefault(t)

	if len(behaviors) != len(AllPhases) {
		t.Fatalf("Expected %d behaviors, got %d", len(AllPhases), len(behaviors))
	}

	edges := []struct {
		from, to Phase
	}{
		{PhaseNotStarted, PhaseWaitingForPlayers},
		{PhaseWaitingForPlayers, PhaseMedia},
		{PhaseWaitingForPlayers, PhaseRound},
		{PhaseMedia, PhaseRound},
		{PhaseRound, PhaseAuction},
		{PhaseRound, PhaseQuestion},
		{PhaseAuction, PhaseQuestion},
		{PhaseQuestion, PhaseReveal},
		{PhaseReveal, PhaseQuestion},
		{PhaseReveal, PhaseStats},
		{PhaseStats, PhaseVoting},
		{PhaseStats, PhaseShop},
		{PhaseStats, PhaseRound},
		{PhaseStats, PhaseFinish},
		{PhaseVoting, PhaseShop},
		{PhaseVoting, PhaseRound},
		{PhaseShop, PhaseModifiers},
		{PhaseShop, PhaseRound},
		{PhaseModifiers, PhaseRound},
	}
	for _, e := range edges {
		if !graph.Allowed(e.from, e.to) {
			t.Errorf("Expected edge %s -> %s", e.from, e.to)
		}
	}
}

func TestConfigurator_PauseAndFinishEdges(t *testing.T) {
	graph, _ := buildDefault(t)

	for _, p := range AllPhases {
		if p.Terminal() || p == PhaseNotStarted || p == PhasePause {
			continue
		}
		if !graph.Allowed(p, PhasePause) {
			t.Errorf("Expected %s -> pause edge", p)
		}
		if !graph.Allowed(PhasePause, p) {
			t.Errorf("Expected pause -> %s edge for resume", p)
		}
		if !graph.Allowed(p, PhaseFinish) {
			t.Errorf("Expected %s -> finish edge", p)
		}
	}
}

func TestConfigurator_TerminalHasNoSuccessors(t *testing.T) {
	graph, _ := buildDefault(t)

	if succ := graph.SuccessorsOf(PhaseFinish); len(succ) != 0 {
		t.Errorf("Finish should have no successors, got %v", succ)
	}
}

func TestConfigurator_InitialPhaseUnreachable(t *testing.T) {
	graph, _ := buildDefault(t)

	for _, p := range AllPhases {
		if graph.Allowed(p, PhaseNotStarted) {
			t.Errorf("Phase %s must not transition into %s", p, PhaseNotStarted)
		}
	}
}

func TestConfigurator_MissingBehaviorFails(t *testing.T) {
	partial := DefaultBehaviors()[:5]
	c, err := NewConfigurator(partial...)
	if err != nil {
		t.Fatalf("NewConfigurator failed: %v", err)
	}
	if _, _, err := c.Build(); err == nil {
		t.Fatal("Build should fail when a phase has no bound behavior")
	}
}

func TestConfigurator_DuplicateBehaviorFails(t *testing.T) {
	behaviors := append(DefaultBehaviors(), NewRoundBehavior())
	if _, err := NewConfigurator(behaviors...); err == nil {
		t.Fatal("NewConfigurator should reject a phase bound twice")
	}
}

func TestBehaviors_AllowedNextWithinSuccessors(t *testing.T) {
	_, behaviors := buildDefault(t)
	ctx := newTestContext(testScenario(), 2)

	for phase, b := range behaviors {
		static := make(map[Phase]bool)
		for _, s := range b.Successors() {
			static[s] = true
		}
		for _, next := range b.AllowedNext(ctx) {
			if !static[next] {
				t.Errorf("Phase %s: AllowedNext returned %s outside Successors", phase, next)
			}
		}
	}
}

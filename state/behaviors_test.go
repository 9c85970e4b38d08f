package state

import (
	"testing"
	"time"

	"github.com/wfunc/triviashow/models"
)

// advance steps the machine along the current behavior's first allowed
// successor, the way the lifecycle service does.
func advance(t *testing.T, m *Machine, ctx Context) (Phase, EnterResult) {
	t.Helper()
	next := m.Behavior().AllowedNext(ctx)
	if len(next) == 0 {
		t.Fatalf("Phase %s cannot advance", m.Current())
	}
	res, err := m.Step(ctx, next[0])
	if err != nil {
		t.Fatalf("Step %s -> %s failed: %v", m.Current(), next[0], err)
	}
	return m.Current(), res
}

func TestLobby_HoldsUntilEnoughPlayers(t *testing.T) {
	m := newTestMachine(t)
	ctx := newTestContext(testScenario(), 1)
	ctx.addPlayer("p1", "alice", 0)

	if _, err := m.Step(ctx, PhaseWaitingForPlayers); err != nil {
		t.Fatalf("Step to lobby failed: %v", err)
	}
	if next := m.Behavior().AllowedNext(ctx); next != nil {
		t.Fatalf("Underfull lobby must not advance, got %v", next)
	}

	ctx.connected = 2
	if next := m.Behavior().AllowedNext(ctx); len(next) != 1 || next[0] != PhaseRound {
		t.Fatalf("Full lobby should advance to round, got %v", next)
	}
}

func TestLobby_MediaRouteWhenIntroPresent(t *testing.T) {
	scn := testScenario()
	scn.IntroMediaURL = "https://cdn.example.com/intro.mp4"
	m := newTestMachine(t)
	ctx := newTestContext(scn, 2)
	ctx.addPlayer("p1", "alice", 0)
	ctx.addPlayer("p2", "bob", 0)

	if _, err := m.Step(ctx, PhaseWaitingForPlayers); err != nil {
		t.Fatalf("Step to lobby failed: %v", err)
	}

	phase, res := advance(t, m, ctx)
	if phase != PhaseMedia {
		t.Fatalf("Expected media phase, got %s", phase)
	}
	payload, ok := res.Payload.(models.MediaPayload)
	if !ok {
		t.Fatalf("Expected MediaPayload, got %T", res.Payload)
	}
	if payload.URL != scn.IntroMediaURL {
		t.Errorf("Expected media URL %s, got %s", scn.IntroMediaURL, payload.URL)
	}
	if res.Deadline != ctx.cfg.MediaDuration {
		t.Errorf("Expected media deadline %v, got %v", ctx.cfg.MediaDuration, res.Deadline)
	}

	if phase, _ := advance(t, m, ctx); phase != PhaseRound {
		t.Fatalf("Expected round after media, got %s", phase)
	}
}

func TestQuestion_ValidateRejectsExhaustedQueue(t *testing.T) {
	m := newTestMachine(t)
	ctx := newTestContext(testScenario(), 2)
	ctx.addPlayer("p1", "alice", 0)
	ctx.addPlayer("p2", "bob", 0)
	ctx.cursor.QuestionIndex = 99

	for _, target := range []Phase{PhaseWaitingForPlayers, PhaseRound} {
		if _, err := m.Step(ctx, target); err != nil {
			t.Fatalf("Step to %s failed: %v", target, err)
		}
	}
	if _, err := m.Step(ctx, PhaseQuestion); err == nil {
		t.Fatal("Question entry must fail when the queue is exhausted")
	}
}

// TestShow_FullSequence walks an entire two-round show through the machine
// and checks the phase order, the scoring, the auction and the
// intermissions along the way.
func TestShow_FullSequence(t *testing.T) {
	m := newTestMachine(t)
	ctx := newTestContext(testScenario(), 2)
	ctx.addPlayer("p1", "alice", 0)
	ctx.addPlayer("p2", "bob", 0)

	if _, err := m.Step(ctx, PhaseWaitingForPlayers); err != nil {
		t.Fatalf("Step to lobby failed: %v", err)
	}

	// Round 1, question 1: alice answers correctly first, bob is wrong.
	if phase, _ := advance(t, m, ctx); phase != PhaseRound {
		t.Fatalf("Expected round, got %s", phase)
	}
	phase, res := advance(t, m, ctx)
	if phase != PhaseQuestion {
		t.Fatalf("Expected question, got %s", phase)
	}
	qp := res.Payload.(models.QuestionPayload)
	if qp.QuestionNumber != 1 || qp.Points != 100 {
		t.Fatalf("Unexpected question payload: %+v", qp)
	}

	now := time.Now()
	ctx.scratch.Answers["p1"] = Answer{Option: 1, At: now}
	ctx.scratch.Answers["p2"] = Answer{Option: 0, At: now.Add(time.Second)}

	phase, res = advance(t, m, ctx)
	if phase != PhaseReveal {
		t.Fatalf("Expected reveal, got %s", phase)
	}
	// 100 for the correct answer plus the 50 speed bonus.
	if ctx.scores["p1"] != 150 {
		t.Errorf("Expected alice at 150, got %d", ctx.scores["p1"])
	}
	if ctx.scores["p2"] != 0 {
		t.Errorf("Expected bob at 0, got %d", ctx.scores["p2"])
	}
	reveal := res.Payload.(models.RevealPayload)
	if reveal.Answer != 1 || reveal.SpeedWinner != "alice" || reveal.CorrectCount != 1 {
		t.Errorf("Unexpected reveal payload: %+v", reveal)
	}

	// Round 1, question 2: both correct, bob faster.
	phase, res = advance(t, m, ctx)
	if phase != PhaseQuestion {
		t.Fatalf("Expected second question, got %s", phase)
	}
	qp = res.Payload.(models.QuestionPayload)
	if qp.QuestionNumber != 2 {
		t.Fatalf("Expected question 2, got %d", qp.QuestionNumber)
	}
	if qp.TimeLimitMS != 8000 || res.Deadline != 8*time.Second {
		t.Errorf("Expected the question's own time limit, got %dms / %v", qp.TimeLimitMS, res.Deadline)
	}

	now = time.Now()
	ctx.scratch.Answers["p1"] = Answer{Option: 0, At: now.Add(time.Second)}
	ctx.scratch.Answers["p2"] = Answer{Option: 0, At: now}

	if phase, _ = advance(t, m, ctx); phase != PhaseReveal {
		t.Fatalf("Expected reveal, got %s", phase)
	}
	if ctx.scores["p1"] != 250 {
		t.Errorf("Expected alice at 250, got %d", ctx.scores["p1"])
	}
	if ctx.scores["p2"] != 150 {
		t.Errorf("Expected bob at 150, got %d", ctx.scores["p2"])
	}

	// Round over: stats, then the voting and shop intermissions.
	phase, res = advance(t, m, ctx)
	if phase != PhaseStats {
		t.Fatalf("Expected stats, got %s", phase)
	}
	if res.Payload.(models.StatsPayload).FinalRound {
		t.Error("Round 1 stats must not be flagged final")
	}

	if phase, _ = advance(t, m, ctx); phase != PhaseVoting {
		t.Fatalf("Expected voting, got %s", phase)
	}
	if ctx.cursor.RoundIndex != 1 || ctx.cursor.QuestionIndex != 0 {
		t.Fatalf("Stats exit should advance the round cursor, got %+v", ctx.cursor)
	}

	ctx.scratch.Votes["p1"] = "bob"
	ctx.scratch.Votes["p2"] = "bob"

	if phase, _ = advance(t, m, ctx); phase != PhaseShop {
		t.Fatalf("Expected shop, got %s", phase)
	}
	// Audience favorite bonus went to bob.
	if ctx.scores["p2"] != 175 {
		t.Errorf("Expected bob at 175 after the favorite bonus, got %d", ctx.scores["p2"])
	}
	if ctx.scratch.LastVote == nil || ctx.scratch.LastVote.Winner != "bob" {
		t.Errorf("Expected vote result for bob, got %+v", ctx.scratch.LastVote)
	}

	ctx.scratch.Purchases["p1"] = []string{"Hint"}

	phase, res = advance(t, m, ctx)
	if phase != PhaseModifiers {
		t.Fatalf("Expected modifiers after a purchase, got %s", phase)
	}
	applied := res.Payload.(models.ModifiersPayload).Applied
	if len(applied["alice"]) != 1 || applied["alice"][0] != "Hint" {
		t.Errorf("Unexpected applied modifiers: %+v", applied)
	}

	// Round 2 is an auction round.
	if phase, _ = advance(t, m, ctx); phase != PhaseRound {
		t.Fatalf("Expected round 2, got %s", phase)
	}
	if len(ctx.scratch.Purchases) != 0 {
		t.Error("Modifiers exit should clear the purchases")
	}

	if phase, _ = advance(t, m, ctx); phase != PhaseAuction {
		t.Fatalf("Expected auction, got %s", phase)
	}
	ctx.scratch.Bids["p1"] = 50
	ctx.scratch.Bids["p2"] = 30

	phase, res = advance(t, m, ctx)
	if phase != PhaseQuestion {
		t.Fatalf("Expected auctioned question, got %s", phase)
	}
	// The winning bid is escrowed win-or-lose.
	if ctx.scores["p1"] != 200 {
		t.Errorf("Expected alice at 200 after the 50 escrow, got %d", ctx.scores["p1"])
	}
	if ctx.scores["p2"] != 175 {
		t.Errorf("Losing bidder must not be charged, got %d", ctx.scores["p2"])
	}
	if la := ctx.scratch.LastAuction; la == nil || la.Winner != "alice" || la.Bid != 50 {
		t.Errorf("Unexpected auction result: %+v", la)
	}
	qp = res.Payload.(models.QuestionPayload)
	if qp.PriorityPlayer != "alice" {
		t.Errorf("Expected alice as priority player, got %s", qp.PriorityPlayer)
	}

	// The auction winner answers correctly and scores double.
	ctx.scratch.Answers["p1"] = Answer{Option: 1, At: time.Now()}

	if phase, _ = advance(t, m, ctx); phase != PhaseReveal {
		t.Fatalf("Expected reveal, got %s", phase)
	}
	// 200 + double points (400) + speed bonus (100).
	if ctx.scores["p1"] != 700 {
		t.Errorf("Expected alice at 700 after the doubled auction question, got %d", ctx.scores["p1"])
	}

	// No questions and no rounds left: stats flags the final round and the
	// show closes.
	phase, res = advance(t, m, ctx)
	if phase != PhaseStats {
		t.Fatalf("Expected final stats, got %s", phase)
	}
	if !res.Payload.(models.StatsPayload).FinalRound {
		t.Error("Final stats must be flagged final")
	}

	phase, res = advance(t, m, ctx)
	if phase != PhaseFinish {
		t.Fatalf("Expected finish, got %s", phase)
	}
	finish := res.Payload.(models.FinishPayload)
	if finish.Winner != "alice" {
		t.Errorf("Expected alice to win, got %s", finish.Winner)
	}
	if m.Behavior().AllowedNext(ctx) != nil {
		t.Error("Finish must have no way out")
	}
}

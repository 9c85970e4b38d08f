package game

import (
	"errors"
	"testing"

	"github.com/wfunc/triviashow/scenario"
	"github.com/wfunc/triviashow/state"
)

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		ID:    "scn-1",
		Title: "Quiz Night",
		Rounds: []scenario.Round{
			{
				Title: "Round one",
				Kind:  scenario.RoundStandard,
				Questions: []scenario.Question{
					{Text: "q1", Options: []string{"a", "b"}, Answer: 0, Points: 100},
				},
			},
		},
		ShopItems: []scenario.ShopItem{
			{ID: "hint", Name: "Hint", Price: 50},
		},
	}
}

func newTestService(t *testing.T) (*Service, *Session) {
	t.Helper()
	svc := NewService()
	sess, err := svc.CreateSession("s1", "host-1", testScenario(), []PlayerSeed{
		{ID: "p1", Nickname: "alice", RackID: "rack-1"},
		{ID: "p2", Nickname: "bob", RackID: "rack-2"},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return svc, sess
}

func TestCreateSession(t *testing.T) {
	svc, sess := newTestService(t)

	if sess.PlayerCount() != 2 {
		t.Errorf("Expected 2 players, got %d", sess.PlayerCount())
	}
	if sess.ConnectedCount() != 0 {
		t.Errorf("Players must start disconnected, got %d connected", sess.ConnectedCount())
	}

	if _, err := svc.CreateSession("s1", "host-1", testScenario(), nil); !errors.Is(err, ErrSessionExists) {
		t.Errorf("Expected ErrSessionExists, got %v", err)
	}
	if _, err := svc.CreateSession("s2", "host-1", testScenario(), []PlayerSeed{
		{ID: "p1", Nickname: "a"},
		{ID: "p1", Nickname: "b"},
	}); !errors.Is(err, ErrDuplicatePlayer) {
		t.Errorf("Expected ErrDuplicatePlayer, got %v", err)
	}
}

func TestMarkConnected_Reconnect(t *testing.T) {
	svc, sess := newTestService(t)

	p, err := svc.MarkConnected("s1", "p1", "conn-1")
	if err != nil {
		t.Fatalf("MarkConnected failed: %v", err)
	}
	if !p.Connected || p.ConnectionID != "conn-1" {
		t.Fatalf("Unexpected player state after connect: %+v", p)
	}
	if sess.ConnectedCount() != 1 {
		t.Errorf("Expected 1 connected, got %d", sess.ConnectedCount())
	}

	if err := svc.AddScore("s1", "p1", 150); err != nil {
		t.Fatalf("AddScore failed: %v", err)
	}
	if _, err := svc.MarkDisconnected("s1", "p1"); err != nil {
		t.Fatalf("MarkDisconnected failed: %v", err)
	}
	if sess.ConnectedCount() != 0 {
		t.Errorf("Expected 0 connected after disconnect, got %d", sess.ConnectedCount())
	}

	// A reconnect binds a new connection to the same record: score and
	// rack survive.
	p, err = svc.MarkConnected("s1", "p1", "conn-2")
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if p.Score != 150 || p.RackID != "rack-1" {
		t.Errorf("Reconnect must restore score and rack, got %+v", p)
	}
}

func TestMarkLeft(t *testing.T) {
	svc, sess := newTestService(t)

	if err := svc.MarkLeft("s1", "p1"); err != nil {
		t.Fatalf("MarkLeft failed: %v", err)
	}
	p, _ := sess.Player("p1")
	if !p.Left {
		t.Error("Player should be flagged left")
	}
	if sess.ConnectedCount() != 0 {
		t.Error("A left player must not count as connected")
	}

	// Reconnect before the expiry was reaped: MarkLeft is a no-op for a
	// connected player.
	if _, err := svc.MarkConnected("s1", "p2", "conn-2"); err != nil {
		t.Fatalf("MarkConnected failed: %v", err)
	}
	if err := svc.MarkLeft("s1", "p2"); err != nil {
		t.Fatalf("MarkLeft on a connected player failed: %v", err)
	}
	p, _ = sess.Player("p2")
	if p.Left {
		t.Error("MarkLeft must not flag a player who reconnected in time")
	}
}

func TestAddScore_Floor(t *testing.T) {
	svc, sess := newTestService(t)

	if err := svc.AddScore("s1", "p1", 30); err != nil {
		t.Fatalf("AddScore failed: %v", err)
	}
	if err := svc.AddScore("s1", "p1", -50); !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("Expected ErrNotEnoughPoints, got %v", err)
	}
	p, _ := sess.Player("p1")
	if p.Score != 30 {
		t.Errorf("A rejected deduction must not touch the score, got %d", p.Score)
	}
	if err := svc.AddScore("s1", "p1", -30); err != nil {
		t.Fatalf("Deduction to exactly zero should pass: %v", err)
	}
}

func TestRecordAnswer_Duplicate(t *testing.T) {
	svc, sess := newTestService(t)

	if err := svc.RecordAnswer("s1", "p1", 0); err != nil {
		t.Fatalf("RecordAnswer failed: %v", err)
	}
	if err := svc.RecordAnswer("s1", "p1", 1); !errors.Is(err, ErrDuplicateAnswer) {
		t.Fatalf("Expected ErrDuplicateAnswer, got %v", err)
	}
	// The first submission stands.
	if a := sess.Scratch.Answers["p1"]; a.Option != 0 {
		t.Errorf("Expected the first answer to stand, got option %d", a.Option)
	}
	if err := svc.RecordAnswer("s1", "ghost", 0); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}
}

func TestRecordBid(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.AddScore("s1", "p1", 40); err != nil {
		t.Fatalf("AddScore failed: %v", err)
	}
	if err := svc.RecordBid("s1", "p1", 100); !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("Expected ErrNotEnoughPoints for a bid over the score, got %v", err)
	}
	if err := svc.RecordBid("s1", "p1", state.AuctionMinBid-1); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("Expected ErrBidTooLow for a bid under the minimum, got %v", err)
	}
	if err := svc.RecordBid("s1", "p1", 40); err != nil {
		t.Fatalf("RecordBid failed: %v", err)
	}
	if err := svc.RecordBid("s1", "p1", 10); !errors.Is(err, ErrDuplicateBid) {
		t.Fatalf("Expected ErrDuplicateBid, got %v", err)
	}
}

func TestRecordVote_Duplicate(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.RecordVote("s1", "p1", "bob"); err != nil {
		t.Fatalf("RecordVote failed: %v", err)
	}
	if err := svc.RecordVote("s1", "p1", "alice"); !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("Expected ErrDuplicateVote, got %v", err)
	}
}

func TestRecordPurchase(t *testing.T) {
	svc, sess := newTestService(t)

	if err := svc.RecordPurchase("s1", "p1", "hint"); !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("Expected ErrNotEnoughPoints for a broke player, got %v", err)
	}

	if err := svc.AddScore("s1", "p1", 100); err != nil {
		t.Fatalf("AddScore failed: %v", err)
	}
	if err := svc.RecordPurchase("s1", "p1", "hint"); err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}
	p, _ := sess.Player("p1")
	if p.Score != 50 {
		t.Errorf("Expected the price charged, got score %d", p.Score)
	}
	items := sess.Scratch.Purchases["p1"]
	if len(items) != 1 || items[0] != "Hint" {
		t.Errorf("Unexpected purchases: %+v", items)
	}

	if err := svc.RecordPurchase("s1", "p1", "nonsense"); err == nil {
		t.Error("Unknown shop item should be rejected")
	}
}

func TestSnapshot_JoinOrder(t *testing.T) {
	svc, sess := newTestService(t)

	if err := svc.AddScore("s1", "p2", 500); err != nil {
		t.Fatalf("AddScore failed: %v", err)
	}
	board := sess.Snapshot()
	if len(board) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(board))
	}
	// Join order, not score order.
	if board[0].Nickname != "alice" || board[1].Nickname != "bob" {
		t.Errorf("Expected join order alice, bob; got %s, %s", board[0].Nickname, board[1].Nickname)
	}
	if board[1].Score != 500 {
		t.Errorf("Expected bob at 500, got %d", board[1].Score)
	}
}

func TestCursorAdvance(t *testing.T) {
	svc, sess := newTestService(t)

	if err := svc.AdvanceQuestion("s1"); err != nil {
		t.Fatalf("AdvanceQuestion failed: %v", err)
	}
	if sess.Cursor.QuestionIndex != 1 {
		t.Errorf("Expected question index 1, got %d", sess.Cursor.QuestionIndex)
	}
	if err := svc.AdvanceRound("s1"); err != nil {
		t.Fatalf("AdvanceRound failed: %v", err)
	}
	if sess.Cursor.RoundIndex != 1 || sess.Cursor.QuestionIndex != 0 {
		t.Errorf("Expected cursor at round 1 question 0, got %+v", sess.Cursor)
	}
}

package manager

import (
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/triviashow/game"
	"github.com/wfunc/triviashow/lights"
	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/network"
	"github.com/wfunc/triviashow/scenario"
	"github.com/wfunc/triviashow/session"
	"github.com/wfunc/triviashow/state"
	"github.com/wfunc/triviashow/timer"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error       { return nil }
func (m *MockConnection) SendJSON(msgID uint16, v interface{}) error { return nil }
func (m *MockConnection) Close() error                               { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                       { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)        {}
func (m *MockConnection) ReadPacket() (*network.Packet, error)       { return nil, nil }

// eventRecorder is a test double for the lifecycle.Notifier interface.
type eventRecorder struct {
	mutex  sync.Mutex
	events []string
}

func (r *eventRecorder) NotifyPhaseEntered(sessionID string, phase state.Phase, payload interface{}) {
}

func (r *eventRecorder) NotifyEvent(sessionID string, event string, payload interface{}) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) count(event string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func connectionFixture(t *testing.T, grace time.Duration) (*ConnectionHandler, *game.Service, *game.Session, *eventRecorder) {
	t.Helper()

	sessions := game.NewService()
	sess, err := sessions.CreateSession("s1", "host-1", &scenario.Scenario{
		ID: "scn-1",
		Rounds: []scenario.Round{
			{Questions: []scenario.Question{{Options: []string{"a"}, Answer: 0, Points: 10}}},
		},
	}, []game.PlayerSeed{
		{ID: "p1", Nickname: "alice", RackID: "rack-1"},
		{ID: "p2", Nickname: "bob", RackID: "rack-2"},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	timers := timer.NewManager()
	t.Cleanup(timers.Close)

	notifier := &eventRecorder{}
	handler := NewConnectionHandler(sessions, lights.NewController(lights.NoopSink{}), timers, notifier, grace)
	// In production the expiry re-enters through the session worker; the
	// tests run it directly.
	handler.setExpire(handler.Expire)

	return handler, sessions, sess, notifier
}

func newTerminal(id string) *session.Session {
	return session.NewSession(id, &MockConnection{})
}

func TestConnected_BindsTerminal(t *testing.T) {
	handler, _, sess, notifier := connectionFixture(t, time.Hour)

	player, err := handler.Connected(sess, newTerminal("conn-1"), "alice")
	if err != nil {
		t.Fatalf("Connected failed: %v", err)
	}
	if !player.Connected || player.ConnectionID != "conn-1" {
		t.Fatalf("Unexpected player state: %+v", player)
	}

	sessionID, playerID, ok := handler.Lookup("conn-1")
	if !ok || sessionID != "s1" || playerID != "p1" {
		t.Fatalf("Lookup returned %q/%q/%v", sessionID, playerID, ok)
	}
	if notifier.count("player_connection") != 1 {
		t.Errorf("Expected 1 connection event, got %d", notifier.count("player_connection"))
	}

	if _, err := handler.Connected(sess, newTerminal("conn-2"), "ghost"); !errors.Is(err, game.ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound for an unknown nickname, got %v", err)
	}
	if _, err := handler.Connected(sess, newTerminal("conn-3"), "alice"); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("Expected ErrAlreadyConnected, got %v", err)
	}
}

func TestDisconnected_ReconnectWithinGrace(t *testing.T) {
	handler, sessions, sess, _ := connectionFixture(t, 150*time.Millisecond)

	if _, err := handler.Connected(sess, newTerminal("conn-1"), "alice"); err != nil {
		t.Fatalf("Connected failed: %v", err)
	}
	if err := sessions.AddScore("s1", "p1", 300); err != nil {
		t.Fatalf("AddScore failed: %v", err)
	}

	handler.Disconnected("conn-1")
	if _, _, ok := handler.Lookup("conn-1"); ok {
		t.Fatal("Lookup should not find the dropped connection")
	}
	if sess.ConnectedCount() != 0 {
		t.Fatalf("Expected 0 connected, got %d", sess.ConnectedCount())
	}

	// Reconnect well inside the grace window: same record, same score,
	// same rack, and the pending expiry is cancelled.
	player, err := handler.Connected(sess, newTerminal("conn-2"), "alice")
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if player.Score != 300 || player.RackID != "rack-1" {
		t.Fatalf("Reconnect must restore score and rack, got %+v", player)
	}

	time.Sleep(400 * time.Millisecond)
	player, _ = sess.Player("p1")
	if player.Left {
		t.Error("The cancelled grace expiry must not mark the player left")
	}
	if !player.Connected {
		t.Error("Player should still be connected")
	}
}

func TestDisconnected_GraceExpiry(t *testing.T) {
	handler, _, sess, _ := connectionFixture(t, 80*time.Millisecond)

	if _, err := handler.Connected(sess, newTerminal("conn-1"), "alice"); err != nil {
		t.Fatalf("Connected failed: %v", err)
	}
	handler.Disconnected("conn-1")

	time.Sleep(400 * time.Millisecond)
	player, _ := sess.Player("p1")
	if !player.Left {
		t.Fatal("Grace expiry should mark the player left")
	}

	// A left player cannot come back.
	if _, err := handler.Connected(sess, newTerminal("conn-2"), "alice"); !errors.Is(err, ErrPlayerLeft) {
		t.Fatalf("Expected ErrPlayerLeft, got %v", err)
	}
	// But their score survives for the final stats.
	if sess.PlayerCount() != 2 {
		t.Errorf("The left player's record must stay, got %d players", sess.PlayerCount())
	}
}

func TestDropSession_CancelsGraceTimers(t *testing.T) {
	handler, _, sess, _ := connectionFixture(t, 80*time.Millisecond)

	if _, err := handler.Connected(sess, newTerminal("conn-1"), "alice"); err != nil {
		t.Fatalf("Connected failed: %v", err)
	}
	handler.Disconnected("conn-1")
	handler.dropSession("s1")

	time.Sleep(400 * time.Millisecond)
	player, _ := sess.Player("p1")
	if player.Left {
		t.Error("Teardown must cancel pending grace expiries")
	}
}

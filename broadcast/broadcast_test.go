package broadcast

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/network"
	"github.com/wfunc/triviashow/session"
	"github.com/wfunc/triviashow/state"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type sent struct {
	msgID uint16
	data  []byte
}

// MockConnection records what was pushed to it; fail makes every send
// error, simulating a dead terminal.
type MockConnection struct {
	fail     bool
	messages []sent
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	if m.fail {
		return errors.New("connection gone")
	}
	m.messages = append(m.messages, sent{msgID: msgID, data: data})
	return nil
}

func (m *MockConnection) SendJSON(msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.Send(msgID, data)
}

func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

type countingSink struct {
	failures int
}

func (c *countingSink) NotificationFailed() { c.failures++ }

func bindTerminal(manager *session.Manager, termID, gameID string, conn network.Connection) {
	term := session.NewSession(termID, conn)
	term.Bind(gameID, "p-"+termID, termID)
	manager.Add(term)
}

func TestNotifyPhaseEntered(t *testing.T) {
	terminals := session.NewManager()
	conn1 := &MockConnection{}
	conn2 := &MockConnection{}
	other := &MockConnection{}
	bindTerminal(terminals, "t1", "game-1", conn1)
	bindTerminal(terminals, "t2", "game-1", conn2)
	bindTerminal(terminals, "t3", "game-2", other)

	n := NewGameNotifier(terminals, nil)
	n.NotifyPhaseEntered("game-1", state.PhaseRound, map[string]int{"round_number": 1})

	for i, conn := range []*MockConnection{conn1, conn2} {
		if len(conn.messages) != 1 {
			t.Fatalf("Terminal %d: expected 1 push, got %d", i, len(conn.messages))
		}
		msg := conn.messages[0]
		if msg.msgID != network.MsgTypePhaseEntered {
			t.Errorf("Terminal %d: expected msg id %d, got %d", i, network.MsgTypePhaseEntered, msg.msgID)
		}
		var envelope struct {
			Phase   string          `json:"phase"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(msg.data, &envelope); err != nil {
			t.Fatalf("Terminal %d: envelope did not unmarshal: %v", i, err)
		}
		if envelope.Phase != "round" {
			t.Errorf("Terminal %d: expected phase round, got %s", i, envelope.Phase)
		}
	}

	if len(other.messages) != 0 {
		t.Errorf("Terminal of another game must not receive the push, got %d", len(other.messages))
	}
}

func TestNotifyEvent(t *testing.T) {
	terminals := session.NewManager()
	conn := &MockConnection{}
	bindTerminal(terminals, "t1", "game-1", conn)

	n := NewGameNotifier(terminals, nil)
	n.NotifyEvent("game-1", "player_answered", map[string]string{"nickname": "alice"})

	if len(conn.messages) != 1 {
		t.Fatalf("Expected 1 push, got %d", len(conn.messages))
	}
	if conn.messages[0].msgID != network.MsgTypeGameEvent {
		t.Errorf("Expected msg id %d, got %d", network.MsgTypeGameEvent, conn.messages[0].msgID)
	}
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(conn.messages[0].data, &envelope); err != nil {
		t.Fatalf("Envelope did not unmarshal: %v", err)
	}
	if envelope.Event != "player_answered" {
		t.Errorf("Expected event player_answered, got %s", envelope.Event)
	}
}

func TestPush_SkipsFailedTerminals(t *testing.T) {
	terminals := session.NewManager()
	dead := &MockConnection{fail: true}
	alive := &MockConnection{}
	bindTerminal(terminals, "t1", "game-1", dead)
	bindTerminal(terminals, "t2", "game-1", alive)

	sink := &countingSink{}
	n := NewGameNotifier(terminals, sink)
	n.NotifyPhaseEntered("game-1", state.PhaseQuestion, nil)

	// The dead terminal is skipped, the live one is still served.
	if len(alive.messages) != 1 {
		t.Fatalf("Live terminal should receive the push, got %d messages", len(alive.messages))
	}
	if sink.failures != 1 {
		t.Errorf("Expected 1 recorded failure, got %d", sink.failures)
	}
}

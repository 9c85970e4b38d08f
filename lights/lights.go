// lights/lights.go
package lights

import (
	"fmt"
	"net"
	"time"

	"github.com/wfunc/triviashow/logger"
)

// Sink is the transport to the physical buzzer-rack light controller.
type Sink interface {
	Highlight(rackID, nickname string) error
	Dim(nickname string) error
}

// Controller mirrors player highlight events onto the racks. Everything
// here is best effort: a dead light controller is logged and ignored, it
// never blocks a phase transition or a score update.
type Controller struct {
	sink Sink
}

func NewController(sink Sink) *Controller {
	return &Controller{sink: sink}
}

// HighlightPlayers lights the racks of the given nicknames, rack ids
// unknown. The sink resolves the mapping on its side.
func (c *Controller) HighlightPlayers(nicknames ...string) {
	go func() {
		for _, nickname := range nicknames {
			if err := c.sink.Highlight("", nickname); err != nil {
				logger.Log.Warnf("Light highlight for %s failed: %v", nickname, err)
			}
		}
	}()
}

// HighlightPlayer lights a specific rack for a player.
func (c *Controller) HighlightPlayer(nickname, rackID string) {
	go func() {
		if err := c.sink.Highlight(rackID, nickname); err != nil {
			logger.Log.Warnf("Light highlight for %s on rack %s failed: %v", nickname, rackID, err)
		}
	}()
}

// PlayerHasDisconnected dims the player's rack.
func (c *Controller) PlayerHasDisconnected(nickname string) {
	go func() {
		if err := c.sink.Dim(nickname); err != nil {
			logger.Log.Warnf("Light dim for %s failed: %v", nickname, err)
		}
	}()
}

// TCPSink speaks the controller's line protocol over a short-lived TCP
// connection per command.
type TCPSink struct {
	address string
	timeout time.Duration
}

func NewTCPSink(address string) *TCPSink {
	return &TCPSink{address: address, timeout: 2 * time.Second}
}

func (s *TCPSink) Highlight(rackID, nickname string) error {
	return s.send(fmt.Sprintf("HIGHLIGHT %s %s\n", rackID, nickname))
}

func (s *TCPSink) Dim(nickname string) error {
	return s.send(fmt.Sprintf("DIM %s\n", nickname))
}

func (s *TCPSink) send(line string) error {
	conn, err := net.DialTimeout("tcp", s.address, s.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(s.timeout))
	_, err = conn.Write([]byte(line))
	return err
}

// NoopSink is used when no light hardware is configured.
type NoopSink struct{}

func (NoopSink) Highlight(rackID, nickname string) error { return nil }
func (NoopSink) Dim(nickname string) error               { return nil }

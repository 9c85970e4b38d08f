package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat    = 1
	MsgTypeJoinGame     = 101
	MsgTypeSubmitAnswer = 201
	MsgTypePlaceBid     = 202
	MsgTypeCastVote     = 203
	MsgTypeBuyItem      = 204
)

// send frames and sends one packet to the server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func sendJSON(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return send(c, msgID, data)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	sessionID := flag.String("session", "", "session id to join")
	nickname := flag.String("nick", "", "player nickname")
	flag.Parse()

	if *sessionID == "" || *nickname == "" {
		log.Fatal("Usage: client -session <id> -nick <nickname> [-addr host:port]")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	log.Printf("Joining session %s as %s...", *sessionID, *nickname)
	if err := sendJSON(c, MsgTypeJoinGame, map[string]string{
		"session_id": *sessionID,
		"nickname":   *nickname,
	}); err != nil {
		log.Println("Write error:", err)
		return
	}

	// Heartbeats keep the connection out of the reconnect grace window.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := send(c, MsgTypeHeartbeat, []byte{}); err != nil {
					return
				}
			}
		}
	}()

	log.Println("Commands: 'answer <option>', 'bid <amount>', 'vote <nickname>', 'buy <item>'")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) != 2 {
				continue
			}

			var err error
			switch fields[0] {
			case "answer":
				option, convErr := strconv.Atoi(fields[1])
				if convErr != nil {
					log.Println("Answer option must be a number")
					continue
				}
				err = sendJSON(c, MsgTypeSubmitAnswer, map[string]int{"option": option})
			case "bid":
				amount, convErr := strconv.Atoi(fields[1])
				if convErr != nil {
					log.Println("Bid amount must be a number")
					continue
				}
				err = sendJSON(c, MsgTypePlaceBid, map[string]int{"amount": amount})
			case "vote":
				err = sendJSON(c, MsgTypeCastVote, map[string]string{"choice": fields[1]})
			case "buy":
				err = sendJSON(c, MsgTypeBuyItem, map[string]string{"item_id": fields[1]})
			default:
				log.Printf("Unknown command %q", fields[0])
				continue
			}
			if err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s %s", fields[0], fields[1])
		}
	}
}

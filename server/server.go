package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/manager"
	"github.com/wfunc/triviashow/monitor"
	"github.com/wfunc/triviashow/network"
	triviarpc "github.com/wfunc/triviashow/rpc"
	"github.com/wfunc/triviashow/session"
)

// GameServer is the websocket front door for player terminals. All game
// logic lives behind the GameManager; this layer only frames packets and
// routes them.
type GameServer struct {
	addr         string
	upgrader     websocket.Upgrader
	terminals    *session.Manager
	manager      *manager.GameManager
	mon          *monitor.Monitor
	rpcServer    *triviarpc.Server
	shutdownChan chan struct{}
}

func NewGameServer(addr string, terminals *session.Manager, gm *manager.GameManager, mon *monitor.Monitor, admin *triviarpc.AdminService, rpcAddr string) (*GameServer, error) {
	s := &GameServer{
		addr:         addr,
		terminals:    terminals,
		manager:      gm,
		mon:          mon,
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // terminals connect from the venue LAN
			},
		},
	}

	rpcServer, err := triviarpc.NewServer(rpcAddr)
	if err != nil {
		return nil, err
	}
	s.rpcServer = rpcServer
	if err := rpc.Register(admin); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

type joinRequest struct {
	SessionID string `json:"session_id"`
	Nickname  string `json:"nickname"`
}

type errorReply struct {
	Error string `json:"error"`
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	term := session.NewSession(uuid.New().String(), wsConn)
	s.terminals.Add(term)

	logger.Log.Infof("New terminal from %s, connection ID: %s", wsConn.RemoteAddr(), term.GetID())

	defer func() {
		logger.Log.Infof("Terminal closed from %s, connection ID: %s", wsConn.RemoteAddr(), term.GetID())
		s.manager.PlayerDisconnected(term.GetID())
		s.terminals.Remove(term.GetID())
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(term, packet)
		}
	}
}

func (s *GameServer) handlePacket(term *session.Session, packet *network.Packet) {
	started := time.Now()
	defer func() {
		s.mon.ObserveCommandLatency(time.Since(started))
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		term.LastActive = time.Now()
	case network.MsgTypeJoinGame:
		s.handleJoin(term, packet)
	case network.MsgTypeLeaveGame:
		s.manager.PlayerDisconnected(term.GetID())
	case network.MsgTypeSubmitAnswer:
		s.handleAnswer(term, packet)
	case network.MsgTypePlaceBid:
		s.handleBid(term, packet)
	case network.MsgTypeCastVote:
		s.handleVote(term, packet)
	case network.MsgTypeBuyItem:
		s.handleBuy(term, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleJoin(term *session.Session, packet *network.Packet) {
	var req joinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(term, "malformed join request")
		return
	}

	if err := s.manager.PlayerConnected(req.SessionID, req.Nickname, term); err != nil {
		logger.Log.Warnf("Join of %s to session %s rejected: %v", req.Nickname, req.SessionID, err)
		s.sendError(term, err.Error())
		return
	}

	term.SendJSON(network.MsgTypeJoined, map[string]string{
		"session_id": req.SessionID,
		"nickname":   req.Nickname,
	})
}

func (s *GameServer) handleAnswer(term *session.Session, packet *network.Packet) {
	gameID, playerID := term.Binding()
	if gameID == "" {
		s.sendError(term, "not joined")
		return
	}
	var req struct {
		Option int `json:"option"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(term, "malformed answer")
		return
	}
	if err := s.manager.SubmitAnswer(gameID, playerID, req.Option); err != nil {
		s.sendError(term, err.Error())
	}
}

func (s *GameServer) handleBid(term *session.Session, packet *network.Packet) {
	gameID, playerID := term.Binding()
	if gameID == "" {
		s.sendError(term, "not joined")
		return
	}
	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(term, "malformed bid")
		return
	}
	if err := s.manager.PlaceBid(gameID, playerID, req.Amount); err != nil {
		s.sendError(term, err.Error())
	}
}

func (s *GameServer) handleVote(term *session.Session, packet *network.Packet) {
	gameID, playerID := term.Binding()
	if gameID == "" {
		s.sendError(term, "not joined")
		return
	}
	var req struct {
		Choice string `json:"choice"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(term, "malformed vote")
		return
	}
	if err := s.manager.CastVote(gameID, playerID, req.Choice); err != nil {
		s.sendError(term, err.Error())
	}
}

func (s *GameServer) handleBuy(term *session.Session, packet *network.Packet) {
	gameID, playerID := term.Binding()
	if gameID == "" {
		s.sendError(term, "not joined")
		return
	}
	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(term, "malformed purchase")
		return
	}
	if err := s.manager.BuyItem(gameID, playerID, req.ItemID); err != nil {
		s.sendError(term, err.Error())
	}
}

func (s *GameServer) sendError(term *session.Session, msg string) {
	term.SendJSON(network.MsgTypeError, errorReply{Error: msg})
}

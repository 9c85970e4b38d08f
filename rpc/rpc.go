package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/triviashow/game"
	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/manager"
	"github.com/wfunc/triviashow/services"
)

// Server manages the RPC listener for the admin surface.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operator commands over net/rpc.
type AdminService struct {
	manager *manager.GameManager
	records *services.GameRecordService
}

func NewAdminService(m *manager.GameManager, records *services.GameRecordService) *AdminService {
	return &AdminService{manager: m, records: records}
}

type PlayerSeedArg struct {
	ID       string
	Nickname string
	RackID   string
}

type StartSessionArgs struct {
	HostID     string
	ScenarioID string
	Players    []PlayerSeedArg
}

type StartSessionReply struct {
	SessionID string
}

func (a *AdminService) StartSession(args *StartSessionArgs, reply *StartSessionReply) error {
	seeds := make([]game.PlayerSeed, 0, len(args.Players))
	for _, p := range args.Players {
		seeds = append(seeds, game.PlayerSeed{ID: p.ID, Nickname: p.Nickname, RackID: p.RackID})
	}
	sessionID, err := a.manager.StartGame(args.HostID, args.ScenarioID, seeds)
	if err != nil {
		return err
	}
	reply.SessionID = sessionID
	return nil
}

type PauseSessionArgs struct {
	SessionID string
	Resume    bool
}

type PauseSessionReply struct{}

func (a *AdminService) PauseSession(args *PauseSessionArgs, reply *PauseSessionReply) error {
	if args.Resume {
		return a.manager.ResumeGame(args.SessionID)
	}
	return a.manager.PauseGame(args.SessionID)
}

type AdvanceSessionArgs struct {
	SessionID string
}

type AdvanceSessionReply struct{}

func (a *AdminService) AdvanceSession(args *AdvanceSessionArgs, reply *AdvanceSessionReply) error {
	return a.manager.AdvancePhase(args.SessionID)
}

type ListSessionsArgs struct{}

type ListSessionsReply struct {
	Sessions []manager.SessionInfo
}

func (a *AdminService) ListSessions(args *ListSessionsArgs, reply *ListSessionsReply) error {
	reply.Sessions = a.manager.Sessions()
	return nil
}

type EndSessionArgs struct {
	SessionID string
}

type EndSessionReply struct {
	Ended bool
}

func (a *AdminService) EndSession(args *EndSessionArgs, reply *EndSessionReply) error {
	if err := a.manager.EndGame(args.SessionID); err != nil {
		return err
	}
	reply.Ended = true
	return nil
}

type PlayerStatsArgs struct {
	PlayerID string
}

type PlayerStatsReply struct {
	TotalGames  int
	Wins        int
	TotalPoints int64
}

func (a *AdminService) GetPlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	stats, err := a.records.PlayerStats(args.PlayerID)
	if err != nil {
		return err
	}
	reply.TotalGames = stats.TotalGames
	reply.Wins = stats.Wins
	reply.TotalPoints = stats.TotalPoints
	return nil
}

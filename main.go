package main

import (
	"github.com/wfunc/triviashow/broadcast"
	"github.com/wfunc/triviashow/config"
	"github.com/wfunc/triviashow/game"
	"github.com/wfunc/triviashow/lifecycle"
	"github.com/wfunc/triviashow/lights"
	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/manager"
	"github.com/wfunc/triviashow/monitor"
	"github.com/wfunc/triviashow/persistence"
	"github.com/wfunc/triviashow/rpc"
	"github.com/wfunc/triviashow/server"
	"github.com/wfunc/triviashow/services"
	"github.com/wfunc/triviashow/session"
	"github.com/wfunc/triviashow/state"
	"github.com/wfunc/triviashow/timer"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Build and validate the transition graph. A malformed graph is a
	// boot-time invariant failure: the process must not start.
	configurator, err := state.NewConfigurator(state.DefaultBehaviors()...)
	if err != nil {
		logger.Log.Fatalf("Behavior registration failed: %v", err)
	}
	graph, behaviors, err := configurator.Build()
	if err != nil {
		logger.Log.Fatalf("Transition graph validation failed: %v", err)
	}
	logger.Log.Info("Transition graph validated.")

	// Initialize Database
	db, err := persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	// The state archive is a loss-tolerant side channel; a failure here
	// degrades crash recovery, not gameplay.
	var archive persistence.StateArchive
	if pq, err := persistence.NewPQArchive(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	); err != nil {
		logger.Log.Warnf("State archive unavailable: %v", err)
	} else {
		archive = pq
	}

	// Hardware light sink
	var sink lights.Sink = lights.NoopSink{}
	if cfg.Lights.Enabled {
		sink = lights.NewTCPSink(cfg.Lights.Address)
	}
	lightsCtl := lights.NewController(sink)

	// Monitoring
	mon := monitor.NewMonitor("triviashow")
	mon.StartServer(cfg.Server.MonitorAddress)

	// Core services
	terminals := session.NewManager()
	sessions := game.NewService()
	provider := state.NewProvider(graph, behaviors)
	timers := timer.NewManager()
	notifier := manager.NewInstrumentedNotifier(broadcast.NewGameNotifier(terminals, mon), mon)
	life := lifecycle.NewService(cfg.Game, sessions, provider, notifier, timers)
	records := services.NewGameRecordService(db)

	gm := manager.NewGameManager(cfg, sessions, life, provider, terminals, notifier, db, records, archive, lightsCtl, timers, mon)
	admin := rpc.NewAdminService(gm, records)

	gameServer, err := server.NewGameServer(cfg.Server.HTTPAddress, terminals, gm, mon, admin, cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create game server: %v", err)
	}

	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

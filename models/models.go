// models/models.go
package models

import (
	"time"
)

// GameRecord is the archived result of a finished session.
type GameRecord struct {
	SessionID  string         `json:"session_id"`
	ScenarioID string         `json:"scenario_id"`
	Players    []PlayerResult `json:"players"`
	Winner     string         `json:"winner,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// PlayerResult is one player's line in a game record.
type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	RackID   string `json:"rack_id"`
	Points   int    `json:"points"`
	Outcome  string `json:"outcome"` // win/lose
}

// PlayerStats is the cumulative per-player tally across games.
type PlayerStats struct {
	TotalGames  int   `json:"total_games"`
	Wins        int   `json:"wins"`
	TotalPoints int64 `json:"total_points"`
	PlayTime    int   `json:"play_time"` // minutes
}

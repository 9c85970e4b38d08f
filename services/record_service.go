// services/record_service.go
package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/persistence"
)

// GameRecordService persists finished games and keeps the cumulative
// per-player tallies in step, inside one transaction.
type GameRecordService struct {
	db persistence.Database
}

func NewGameRecordService(db persistence.Database) *GameRecordService {
	return &GameRecordService{db: db}
}

// SaveResult archives the final scoreboard and updates every player's
// stats row atomically.
func (s *GameRecordService) SaveResult(record *models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		row := models.GormGameRecord{
			SessionID:  record.SessionID,
			ScenarioID: record.ScenarioID,
			Players:    string(players),
			Winner:     record.Winner,
			Duration:   int(record.FinishedAt.Sub(record.StartedAt).Seconds()),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		for _, p := range record.Players {
			var row models.GormPlayerStats
			err := tx.Where("player_id = ?", p.PlayerID).First(&row).Error
			if err != nil {
				if err != gorm.ErrRecordNotFound {
					return err
				}
				row = models.GormPlayerStats{
					PlayerID: p.PlayerID,
					Nickname: p.Nickname,
				}
			}

			row.TotalGames++
			row.TotalPoints += int64(p.Points)
			if p.Outcome == "win" {
				row.Wins++
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PlayerStats exposes the cumulative tally for the admin surface.
func (s *GameRecordService) PlayerStats(playerID string) (*models.PlayerStats, error) {
	return s.db.GetPlayerStats(playerID)
}

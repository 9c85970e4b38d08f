// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/scenario"
)

// GormPostgreSQL is the primary Database implementation.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.GormScenario{},
		&models.GormGameRecord{},
		&models.GormPlayerStats{},
		&models.GormLicense{},
	); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// GetScenario loads and decodes a scenario document.
func (g *GormPostgreSQL) GetScenario(scenarioID string) (*scenario.Scenario, error) {
	var row models.GormScenario
	err := g.db.Where("scenario_id = ? AND enabled = ?", scenarioID, true).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", scenario.ErrScenarioNotFound, scenarioID)
		}
		return nil, err
	}

	var scn scenario.Scenario
	if err := json.Unmarshal([]byte(row.Content), &scn); err != nil {
		return nil, fmt.Errorf("scenario %s content malformed: %w", scenarioID, err)
	}
	scn.ID = row.ScenarioID
	if scn.Title == "" {
		scn.Title = row.Title
	}
	return &scn, nil
}

// CheckLicense verifies the host holds a live license. A negative result
// rejects game creation before any session state exists.
func (g *GormPostgreSQL) CheckLicense(hostID string) error {
	var row models.GormLicense
	err := g.db.Where("host_id = ?", hostID).Order("expires_at DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrNoLicense, hostID)
		}
		return err
	}
	if row.Revoked || row.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("%w: %s", ErrLicenseExpired, hostID)
	}
	return nil
}

func (g *GormPostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}
	row := models.GormGameRecord{
		SessionID:  record.SessionID,
		ScenarioID: record.ScenarioID,
		Players:    string(players),
		Winner:     record.Winner,
		Duration:   int(record.FinishedAt.Sub(record.StartedAt).Seconds()),
	}
	return g.db.Create(&row).Error
}

func (g *GormPostgreSQL) GetPlayerStats(playerID string) (*models.PlayerStats, error) {
	var row models.GormPlayerStats
	err := g.db.Where("player_id = ?", playerID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &models.PlayerStats{
		TotalGames:  row.TotalGames,
		Wins:        row.Wins,
		TotalPoints: row.TotalPoints,
	}, nil
}

func (g *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return g.db.Transaction(fn)
}

func (g *GormPostgreSQL) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

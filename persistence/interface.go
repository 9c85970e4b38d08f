// persistence/interface.go
package persistence

import (
	"errors"

	"gorm.io/gorm"

	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/scenario"
)

// Database is the durable store: scenario content, licenses, finished
// game records and cumulative player stats.
type Database interface {
	GetScenario(scenarioID string) (*scenario.Scenario, error)
	CheckLicense(hostID string) error
	SaveGameRecord(record *models.GameRecord) error
	GetPlayerStats(playerID string) (*models.PlayerStats, error)
	Transaction(fn func(tx *gorm.DB) error) error
	Close() error
}

// StateArchive is the crash-recovery side channel: a best-effort snapshot
// of each session's current phase, written on every transition. Separate
// from Database because it is append-heavy and loss-tolerant.
type StateArchive interface {
	SaveSessionState(sessionID, phase string, snapshot interface{}) error
	LoadSessionState(sessionID string, result interface{}) (phase string, err error)
	Close() error
}

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrLicenseExpired = errors.New("license expired or revoked")
	ErrNoLicense      = errors.New("no license for host")
)

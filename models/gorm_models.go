// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormScenario stores scenario content as a jsonb document keyed by
// scenario id. Content is authored elsewhere; the server only reads it.
type GormScenario struct {
	gorm.Model
	ScenarioID string `gorm:"uniqueIndex;size:64;not null"`
	Title      string `gorm:"not null"`
	Content    string `gorm:"type:jsonb;not null"`
	Enabled    bool   `gorm:"default:true"`
}

// GormGameRecord archives a finished session.
type GormGameRecord struct {
	gorm.Model
	SessionID  string `gorm:"uniqueIndex;size:64;not null"`
	ScenarioID string `gorm:"index;size:64;not null"`
	Players    string `gorm:"type:jsonb;not null"`
	Winner     string `gorm:"size:64"`
	Duration   int    `gorm:"default:0"` // seconds
}

// GormPlayerStats is the cumulative tally row per player.
type GormPlayerStats struct {
	gorm.Model
	PlayerID    string `gorm:"uniqueIndex;size:64;not null"`
	Nickname    string `gorm:"not null"`
	TotalGames  int    `gorm:"default:0"`
	Wins        int    `gorm:"default:0"`
	TotalPoints int64  `gorm:"default:0"`
}

// GormLicense gates session creation: a host may only start games while a
// non-expired license row exists.
type GormLicense struct {
	gorm.Model
	LicenseKey string    `gorm:"uniqueIndex;size:64;not null"`
	HostID     string    `gorm:"index;size:64;not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	Revoked    bool      `gorm:"default:false"`
}

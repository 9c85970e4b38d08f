// persistence/archive.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PQArchive is the raw-SQL StateArchive implementation. Phase snapshots
// are written fire-and-forget on every transition; a lost write only costs
// crash-recovery fidelity, never gameplay.
type PQArchive struct {
	db *sql.DB
}

const archiveTimeout = 5 * time.Second

func NewPQArchive(host string, port int, user, password, dbname string) (*PQArchive, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initArchiveTable(db); err != nil {
		return nil, err
	}
	return &PQArchive{db: db}, nil
}

func initArchiveTable(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS session_states (
            id SERIAL PRIMARY KEY,
            session_id VARCHAR(64) UNIQUE NOT NULL,
            phase VARCHAR(32) NOT NULL,
            snapshot JSONB,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	return err
}

func (a *PQArchive) SaveSessionState(sessionID, phase string, snapshot interface{}) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	query := `
        INSERT INTO session_states (session_id, phase, snapshot)
        VALUES ($1, $2, $3)
        ON CONFLICT (session_id)
        DO UPDATE SET phase = $2, snapshot = $3, updated_at = CURRENT_TIMESTAMP
    `
	_, err = a.db.ExecContext(ctx, query, sessionID, phase, data)
	return err
}

func (a *PQArchive) LoadSessionState(sessionID string, result interface{}) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	var phase string
	var data []byte
	query := `SELECT phase, snapshot FROM session_states WHERE session_id = $1`
	err := a.db.QueryRowContext(ctx, query, sessionID).Scan(&phase, &data)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrRecordNotFound
		}
		return "", err
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return "", err
		}
	}
	return phase, nil
}

func (a *PQArchive) Close() error {
	return a.db.Close()
}

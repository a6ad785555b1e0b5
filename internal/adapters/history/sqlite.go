package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// SQLiteStore is a SQLite implementation of the OutcomeRepository
// interface
type SQLiteStore struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteStore creates a new SQLite outcome store
func NewSQLiteStore(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS filter_outcomes (
			message_id TEXT PRIMARY KEY,
			rule_name TEXT,
			matched BOOLEAN,
			confidence REAL,
			action TEXT,
			processed_at TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_outcomes_expires_at ON filter_outcomes(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	store := &SQLiteStore{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go store.startCleanupTask()

	return store, nil
}

// Get retrieves the record for a message id
func (s *SQLiteStore) Get(ctx context.Context, messageID string) (*core.OutcomeRecord, error) {
	record := &core.OutcomeRecord{MessageID: messageID}
	var processedAt, expiresAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT rule_name, matched, confidence, action, processed_at, expires_at
		FROM filter_outcomes
		WHERE message_id = ? AND expires_at > datetime('now')
	`, messageID).Scan(&record.RuleName, &record.Matched, &record.Confidence,
		&record.Action, &processedAt, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query outcome record: %w", err)
	}

	if record.ProcessedAt, err = time.Parse(time.RFC3339, processedAt); err != nil {
		return nil, fmt.Errorf("failed to parse processed_at timestamp: %w", err)
	}
	if record.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to parse expires_at timestamp: %w", err)
	}

	return record, nil
}

// Set stores a record
func (s *SQLiteStore) Set(ctx context.Context, record *core.OutcomeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO filter_outcomes
			(message_id, rule_name, matched, confidence, action, processed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.MessageID, record.RuleName, record.Matched, record.Confidence, record.Action,
		record.ProcessedAt.UTC().Format(time.RFC3339), record.ExpiresAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert outcome record: %w", err)
	}
	return nil
}

// Delete removes a record
func (s *SQLiteStore) Delete(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM filter_outcomes
		WHERE message_id = ?
	`, messageID)

	if err != nil {
		return fmt.Errorf("failed to delete outcome record: %w", err)
	}
	return nil
}

// Cleanup removes expired records
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM filter_outcomes
		WHERE expires_at <= datetime('now')
	`)

	if err != nil {
		return fmt.Errorf("failed to clean up expired records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired outcome records", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

func (s *SQLiteStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up outcome records", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database
func (s *SQLiteStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}

package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// MySQLStore is a MySQL implementation of the OutcomeRepository
// interface
type MySQLStore struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLStore creates a new MySQL outcome store
func NewMySQLStore(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS filter_outcomes (
			message_id VARCHAR(255) PRIMARY KEY,
			rule_name VARCHAR(255),
			matched BOOLEAN,
			confidence FLOAT,
			action VARCHAR(255),
			processed_at TIMESTAMP,
			expires_at TIMESTAMP,
			INDEX idx_outcomes_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	store := &MySQLStore{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go store.startCleanupTask()

	return store, nil
}

// Get retrieves the record for a message id
func (s *MySQLStore) Get(ctx context.Context, messageID string) (*core.OutcomeRecord, error) {
	record := &core.OutcomeRecord{}
	var processedAt, expiresAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT message_id, rule_name, matched, confidence, action, processed_at, expires_at
		FROM filter_outcomes
		WHERE message_id = ? AND expires_at > NOW()
	`, messageID).Scan(&record.MessageID, &record.RuleName, &record.Matched,
		&record.Confidence, &record.Action, &processedAt, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query outcome record: %w", err)
	}

	if record.ProcessedAt, err = time.Parse("2006-01-02 15:04:05", processedAt); err != nil {
		return nil, fmt.Errorf("failed to parse processed_at timestamp: %w", err)
	}
	if record.ExpiresAt, err = time.Parse("2006-01-02 15:04:05", expiresAt); err != nil {
		return nil, fmt.Errorf("failed to parse expires_at timestamp: %w", err)
	}

	return record, nil
}

// Set stores a record
func (s *MySQLStore) Set(ctx context.Context, record *core.OutcomeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO filter_outcomes
			(message_id, rule_name, matched, confidence, action, processed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			rule_name = VALUES(rule_name),
			matched = VALUES(matched),
			confidence = VALUES(confidence),
			action = VALUES(action),
			processed_at = VALUES(processed_at),
			expires_at = VALUES(expires_at)
	`, record.MessageID, record.RuleName, record.Matched, record.Confidence, record.Action,
		record.ProcessedAt.UTC().Format("2006-01-02 15:04:05"),
		record.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))

	if err != nil {
		return fmt.Errorf("failed to upsert outcome record: %w", err)
	}
	return nil
}

// Delete removes a record
func (s *MySQLStore) Delete(ctx context.Context, messageID string) error {
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
func (s *MySQLStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM filter_outcomes
		WHERE expires_at <= NOW()
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

func (s *MySQLStore) startCleanupTask() {
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
func (s *MySQLStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}

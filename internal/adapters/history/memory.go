package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// ErrNotFound is returned when no record exists for a message id
var ErrNotFound = errors.New("outcome record not found")

// MemoryStore is an in-memory implementation of the OutcomeRepository
// interface
type MemoryStore struct {
	records     map[string]*core.OutcomeRecord
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMemoryStore creates a new in-memory outcome store
func NewMemoryStore(logger *zap.Logger, cleanupFreq time.Duration) *MemoryStore {
	store := &MemoryStore{
		records:     make(map[string]*core.OutcomeRecord),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go store.startCleanupTask()

	return store
}

// Get retrieves the record for a message id
func (s *MemoryStore) Get(ctx context.Context, messageID string) (*core.OutcomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, ErrNotFound
	}

	copied := *record
	return &copied, nil
}

// Set stores a record
func (s *MemoryStore) Set(ctx context.Context, record *core.OutcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[record.MessageID] = &copied
	return nil
}

// Delete removes a record
func (s *MemoryStore) Delete(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, messageID)
	return nil
}

// Cleanup removes expired records
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expiredCount := 0

	for key, record := range s.records {
		if now.After(record.ExpiresAt) {
			delete(s.records, key)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired outcome records", zap.Int("expired_count", expiredCount))
	return nil
}

func (s *MemoryStore) startCleanupTask() {
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

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}

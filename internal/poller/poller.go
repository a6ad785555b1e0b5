package poller

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// Poller runs the unread-message batch on a cron schedule
type Poller struct {
	service    *core.FilterService
	schedule   string
	maxResults int
	logger     *zap.Logger

	cron *cron.Cron
	mu   sync.Mutex
	busy bool
}

// New creates a new poller. schedule uses cron syntax, including the
// "@every 5m" shorthand.
func New(service *core.FilterService, schedule string, maxResults int, logger *zap.Logger) *Poller {
	return &Poller{
		service:    service,
		schedule:   schedule,
		maxResults: maxResults,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start registers the batch job and starts the scheduler
func (p *Poller) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.runBatch); err != nil {
		return err
	}
	p.cron.Start()
	p.logger.Info("Poller started", zap.String("schedule", p.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running batch to finish
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.logger.Info("Poller stopped")
}

// runBatch processes one batch of unread messages. Overlapping runs
// are skipped so a slow batch never stacks up behind the schedule.
func (p *Poller) runBatch() {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		p.logger.Warn("Skipping batch, previous run still in progress")
		return
	}
	p.busy = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	outcomes, err := p.service.ProcessUnreadMessages(context.Background(), p.maxResults)
	if err != nil {
		p.logger.Error("Batch processing failed", zap.Error(err))
		return
	}

	matched := 0
	for _, outcome := range outcomes {
		if outcome.IsMatch {
			matched++
		}
	}
	p.logger.Info("Batch processed",
		zap.Int("messages", len(outcomes)),
		zap.Int("matched", matched))
}

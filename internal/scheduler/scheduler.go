package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"go.uber.org/zap"
)

const auditJobName = "tally-audit"

// Manager runs the periodic background jobs of the server.
type Manager struct {
	scheduler gocron.Scheduler
	tally     ports.TallyService
	logger    *zap.Logger
}

func NewManager(tally ports.TallyService, logger *zap.Logger) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{scheduler: s, tally: tally, logger: logger}, nil
}

// RegisterAudit runs the tally audit every interval. Overlapping runs are
// skipped rather than queued.
func (m *Manager) RegisterAudit(interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(m.runAudit),
		gocron.WithName(auditJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", auditJobName, err)
	}
	return nil
}

func (m *Manager) Start() {
	m.scheduler.Start()
	m.logger.Info("scheduler started")
}

func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		m.logger.Error("failed to shutdown scheduler", zap.Error(err))
		return
	}
	m.logger.Info("scheduler stopped")
}

func (m *Manager) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reports, err := m.tally.Audit(ctx)
	if err != nil {
		m.logger.Error("tally audit failed", zap.Error(err))
		return
	}

	inconsistent := 0
	for _, r := range reports {
		if !r.Consistent() {
			inconsistent++
		}
	}
	m.logger.Info("tally audit completed",
		zap.Int("contests", len(reports)),
		zap.Int("inconsistent", inconsistent),
	)
}

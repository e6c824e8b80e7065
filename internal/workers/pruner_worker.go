package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type NotificationPruner interface {
	PruneNotifications(ctx context.Context, before time.Time) (int64, error)
}

// PruneWorker deletes reminder claims older than the retention period.
type PruneWorker struct {
	store     NotificationPruner
	retention time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewPruneWorker(store NotificationPruner, retentionDays int, log zerolog.Logger) *PruneWorker {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &PruneWorker{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		log:       log.With().Str("worker", "prune").Logger(),
		now:       time.Now,
	}
}

func (pw *PruneWorker) Name() string { return "Notification Pruner" }

func (pw *PruneWorker) Interval() time.Duration { return 6 * time.Hour }

func (pw *PruneWorker) Run(ctx context.Context) error {
	n, err := pw.store.PruneNotifications(ctx, pw.now().Add(-pw.retention))
	if err != nil {
		return fmt.Errorf("failed to prune notifications: %w", err)
	}
	if n > 0 {
		pw.log.Info().Int64("deleted", n).Msg("🧹 old reminder claims pruned")
	}
	return nil
}

// Package retention implements the data retention policy for the
// Framer backend. A cron-scheduled janitor marks long-idle active
// conversations abandoned, purges abandoned conversations past the
// retention window, and heals the secondary frame index.
//
// Sweeps are conservative: purge failures are logged and retried on the
// next cycle, never escalated.
package retention

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/framerhq/framer/internal/besteffort"
	"github.com/framerhq/framer/internal/config"
	"github.com/framerhq/framer/internal/index"
	"github.com/framerhq/framer/internal/store"
	"github.com/framerhq/framer/pkg/models"
)

// SweepStats tracks what happened in a single retention sweep.
type SweepStats struct {
	Abandoned int
	Purged    int
}

// Janitor runs retention sweeps on a cron schedule.
type Janitor struct {
	store store.Store
	idx   *index.Index // nil when the index is disabled
	cfg   config.RetentionConfig
	cron  *cron.Cron
}

// NewJanitor creates a retention janitor. idx may be nil.
func NewJanitor(s store.Store, idx *index.Index, cfg config.RetentionConfig) *Janitor {
	return &Janitor{store: s, idx: idx, cfg: cfg}
}

// Start schedules sweeps per the configured cron expression.
func (j *Janitor) Start() error {
	j.cron = cron.New()
	_, err := j.cron.AddFunc(j.cfg.Schedule, func() {
		j.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	log.Info().
		Str("schedule", j.cfg.Schedule).
		Str("stale_after", j.cfg.StaleAfter.String()).
		Str("purge_after", j.cfg.PurgeAfter.String()).
		Msg("Retention janitor started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	log.Info().Msg("Retention janitor stopped")
}

// Sweep performs one retention pass.
func (j *Janitor) Sweep(ctx context.Context) SweepStats {
	var stats SweepStats
	now := time.Now().UTC()

	active, err := j.store.ListConversations(ctx, store.ConversationFilter{Status: models.ConversationActive})
	if err != nil {
		log.Error().Err(err).Msg("Retention sweep: list active conversations")
		return stats
	}
	for _, conv := range active {
		if now.Sub(conv.UpdatedAt) < j.cfg.StaleAfter {
			continue
		}
		if err := j.store.UpdateConversationStatus(ctx, conv.ID, models.ConversationAbandoned); err != nil {
			log.Warn().Err(err).Str("conversation", conv.ID).Msg("Retention sweep: abandon failed")
			continue
		}
		stats.Abandoned++
	}

	abandoned, err := j.store.ListConversations(ctx, store.ConversationFilter{Status: models.ConversationAbandoned})
	if err != nil {
		log.Error().Err(err).Msg("Retention sweep: list abandoned conversations")
		return stats
	}
	for _, conv := range abandoned {
		if now.Sub(conv.UpdatedAt) < j.cfg.PurgeAfter {
			continue
		}
		if err := j.store.DeleteConversation(ctx, conv.ID); err != nil {
			log.Warn().Err(err).Str("conversation", conv.ID).Msg("Retention sweep: purge failed")
			continue
		}
		stats.Purged++
	}

	if j.idx != nil {
		besteffort.Do("retention index rebuild", func() error {
			return j.idx.Rebuild(ctx, j.store)
		})
	}

	if stats.Abandoned > 0 || stats.Purged > 0 {
		log.Info().
			Int("abandoned", stats.Abandoned).
			Int("purged", stats.Purged).
			Msg("Retention sweep completed")
	}
	return stats
}

package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/san928811-pixel/Auto-sender-boat/internal/config"
	logx "github.com/san928811-pixel/Auto-sender-boat/pkg/logx"
)

// startPruneJob schedules deletion of cooldown records older than
// storage.retention. Disabled (the source behavior: records persist
// forever) unless retention is set.
func (a *App) startPruneJob(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		return
	}
	retention, err := config.ParseDurationField("storage.retention", cfg.Storage.Retention)
	if err != nil || retention <= 0 {
		return
	}
	schedule := cfg.Storage.PruneSchedule
	if schedule == "" {
		schedule = config.DefaultPruneSchedule
	}

	log := a.log.With(logx.String("component", "prune"))
	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		cutoff := time.Now().Add(-retention)
		n, err := a.store.PruneBefore(pctx, cutoff)
		if err != nil {
			log.Error("prune failed", logx.Err(err))
			return
		}
		if n > 0 {
			log.Info("stale cooldown records pruned", logx.Int64("removed", n), logx.Time("cutoff", cutoff))
		}
	})
	if err != nil {
		log.Error("invalid prune schedule", logx.String("schedule", schedule), logx.Err(err))
		return
	}

	c.Start()
	log.Info("prune job scheduled", logx.String("schedule", schedule), logx.Duration("retention", retention))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()
		<-c.Stop().Done()
	}()
}

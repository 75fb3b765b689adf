package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/clock"
	obsmetrics "github.com/xhoantran/HotelMS-server/internal/observability/metrics"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	recalcdomain "github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const jobTimeTriggers = "time_triggers"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Recalc  recalcdomain.Service
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
	Config  Config                       `optional:"true"`
}

// Scheduler fires time rules once per property-local day after their hour.
type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	recalc  recalcdomain.Service
	metrics *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Recalc == nil {
		return nil, ErrInvalidConfig
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Scheduler()
	}
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		recalc:  p.Recalc,
		metrics: metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	run := s.newJobRun(name, batchSize)
	s.logJobStart(ctx, run)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx, run)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	// deadline and cancellation are soft: the next tick picks up the rest
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, jobTimeTriggers, s.cfg.BatchSize, s.cfg.JobTimeout, s.TimeTriggersJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// dueSetting collects the handles of one property that are due today.
type dueSetting struct {
	settingID snowflake.ID
	today     time.Time
	handles   []pricingdomain.TriggerHandle
}

func (d *dueSetting) maxDayAhead() int {
	days := 0
	for _, h := range d.handles {
		if h.DayAhead > days {
			days = h.DayAhead
		}
	}
	return days
}

// TimeTriggersJob recalculates every property with a time rule whose hour has
// passed in the property timezone and which has not fired yet today.
func (s *Scheduler) TimeTriggersJob(ctx context.Context, run *jobRun) error {
	now := s.clock.Now()
	due := make(map[snowflake.ID]*dueSetting)
	var jobErr error

	var afterID snowflake.ID
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		handles, err := s.fetchHandlesForWork(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(handles) == 0 {
			break
		}
		for _, h := range handles {
			today, ok, err := isDue(h, now)
			if err != nil {
				s.logSchedulerError(ctx, run, "scheduler.time_trigger.invalid_timezone", err,
					zap.String("handle_id", h.ID.String()),
					zap.String("timezone", h.Timezone),
				)
				continue
			}
			if !ok {
				continue
			}
			entry, exists := due[h.SettingID]
			if !exists {
				entry = &dueSetting{settingID: h.SettingID, today: today}
				due[h.SettingID] = entry
			}
			entry.handles = append(entry.handles, h)
		}
		afterID = handles[len(handles)-1].ID
		if len(handles) < s.cfg.BatchSize {
			break
		}
	}

	settingIDs := make([]snowflake.ID, 0, len(due))
	for id := range due {
		settingIDs = append(settingIDs, id)
	}
	sort.Slice(settingIDs, func(i, j int) bool { return settingIDs[i] < settingIDs[j] })

	fired := 0
	for _, id := range settingIDs {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		ok, err := s.fireSetting(ctx, run, due[id], now)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		if ok {
			fired++
		}
	}
	run.AddProcessed(fired)
	s.metrics.AddBatchProcessed(jobTimeTriggers, "setting", fired)
	return jobErr
}

// isDue reports whether h should fire at now, with the property-local date.
func isDue(h pricingdomain.TriggerHandle, now time.Time) (time.Time, bool, error) {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s", pricingdomain.ErrInvalidTimezone, h.Timezone)
	}
	local := now.In(loc)
	today := pricingdomain.DateOf(local)
	if local.Hour() < h.Hour {
		return today, false, nil
	}
	if h.LastFiredOn != nil && !pricingdomain.DateOf(*h.LastFiredOn).Before(today) {
		return today, false, nil
	}
	return today, true, nil
}

func (s *Scheduler) fireSetting(ctx context.Context, run *jobRun, entry *dueSetting, now time.Time) (bool, error) {
	claimed := make([]pricingdomain.TriggerHandle, 0, len(entry.handles))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, h := range entry.handles {
			ok, err := s.claimHandle(ctx, tx, h.ID, entry.today, now)
			if err != nil {
				return err
			}
			if ok {
				claimed = append(claimed, h)
			}
		}
		return nil
	})
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.time_trigger.claim_failed", err,
			zap.String("setting_id", entry.settingID.String()),
		)
		return false, err
	}
	if len(claimed) == 0 {
		return false, nil
	}
	entry.handles = claimed

	to := entry.today.AddDate(0, 0, entry.maxDayAhead())
	report, err := s.recalc.RecalculateDates(ctx, entry.settingID, entry.today, to, recalcdomain.TriggerTime)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.time_trigger.recalculate_failed", err,
			zap.String("setting_id", entry.settingID.String()),
		)
		for _, h := range claimed {
			if releaseErr := s.releaseClaim(context.WithoutCancel(ctx), h.ID, h.LastFiredOn); releaseErr != nil {
				s.logSchedulerError(ctx, run, "scheduler.time_trigger.release_failed", releaseErr,
					zap.String("handle_id", h.ID.String()),
				)
			}
		}
		return false, err
	}

	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.String("setting_id", entry.settingID.String()),
		zap.Int("handles", len(claimed)),
		zap.Time("from", entry.today),
		zap.Time("to", to),
	}
	if report != nil {
		fields = append(fields, zap.Int("changes", len(report.Changes)), zap.Bool("skipped", report.Skipped))
	}
	s.logger(ctx).Info("scheduler.time_trigger.fired", fields...)
	return true, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/clock"
	"github.com/xhoantran/HotelMS-server/internal/config"
	"github.com/xhoantran/HotelMS-server/internal/logger"
	obsmetrics "github.com/xhoantran/HotelMS-server/internal/observability/metrics"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/internal/ratesync"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "github.com/xhoantran/HotelMS-server/internal/recalculation"

// Locker serializes recalculation of one setting.
type Locker interface {
	Lock(ctx context.Context, settingID snowflake.ID) (func(), error)
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Pricing      *config.PricingConfigHolder
	Snapshots    pricingdomain.SnapshotReader
	Invalidator  pricingdomain.Invalidator
	Lock         Locker
	Occupancy    domain.OccupancySource
	Restrictions domain.RestrictionStore
	Directory    domain.RatePlanDirectory
	Publisher    ratesync.Publisher
	Metrics      *obsmetrics.PricingMetrics `optional:"true"`
}

// Runner recalculates and persists restriction rates for one setting at a time.
type Runner struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	pricing      *config.PricingConfigHolder
	snapshots    pricingdomain.SnapshotReader
	invalidator  pricingdomain.Invalidator
	lock         Locker
	occupancy    domain.OccupancySource
	restrictions domain.RestrictionStore
	directory    domain.RatePlanDirectory
	publisher    ratesync.Publisher
	metrics      *obsmetrics.PricingMetrics
	tracer       trace.Tracer
}

func New(p Params) *Runner {
	return &Runner{
		db:           p.DB,
		log:          p.Log.Named("recalculation.service"),
		clock:        p.Clock,
		pricing:      p.Pricing,
		snapshots:    p.Snapshots,
		invalidator:  p.Invalidator,
		lock:         p.Lock,
		occupancy:    p.Occupancy,
		restrictions: p.Restrictions,
		directory:    p.Directory,
		publisher:    p.Publisher,
		metrics:      p.Metrics,
		tracer:       otel.Tracer(tracerName),
	}
}

var _ domain.Service = (*Runner)(nil)

// RecalculateAll covers every room type from today to the configured horizon.
func (r *Runner) RecalculateAll(ctx context.Context, settingID snowflake.ID) (*domain.Report, error) {
	return r.Recalculate(ctx, domain.Request{SettingID: settingID, Trigger: domain.TriggerAll})
}

// RecalculateDates covers every room type over an inclusive date range.
func (r *Runner) RecalculateDates(ctx context.Context, settingID snowflake.ID, from, to time.Time, trigger domain.Trigger) (*domain.Report, error) {
	return r.Recalculate(ctx, domain.Request{
		SettingID: settingID,
		From:      from,
		To:        to,
		Trigger:   trigger,
	})
}

// HandleOccupancyChange reprices the room types whose bookings changed.
func (r *Runner) HandleOccupancyChange(ctx context.Context, settingID snowflake.ID, roomTypeIDs []snowflake.ID, from, to time.Time) (*domain.Report, error) {
	if len(roomTypeIDs) == 0 {
		return nil, domain.ErrNoRoomTypes
	}
	return r.Recalculate(ctx, domain.Request{
		SettingID:   settingID,
		RoomTypeIDs: roomTypeIDs,
		From:        from,
		To:          to,
		Trigger:     domain.TriggerOccupancy,
	})
}

// Recalculate runs the pipeline under the setting lock, persists the changed
// rows in one transaction and then publishes them. Zero From or To mean today
// and the horizon end. The range is clamped to that window.
func (r *Runner) Recalculate(ctx context.Context, req domain.Request) (*domain.Report, error) {
	if req.SettingID == 0 {
		return nil, fmt.Errorf("%w: setting id is required", pricingdomain.ErrInvalidInput)
	}
	if !req.From.IsZero() && !req.To.IsZero() && pricingdomain.DateOf(req.To).Before(pricingdomain.DateOf(req.From)) {
		return nil, domain.ErrInvalidRange
	}
	if req.Trigger == "" {
		req.Trigger = domain.TriggerManual
	}

	ctx, span := r.tracer.Start(ctx, "recalculation.Recalculate", trace.WithAttributes(
		attribute.String("setting_id", req.SettingID.String()),
		attribute.String("trigger", string(req.Trigger)),
	))
	defer span.End()

	start := r.clock.Now()
	report, err := r.recalculate(ctx, req)
	outcome := outcomeOf(report, err)
	r.metrics.ObserveRecalculation(string(req.Trigger), outcome, r.clock.Now().Sub(start))

	log := logger.WithContext(ctx, r.log).With(
		zap.String("setting_id", req.SettingID.String()),
		zap.String("trigger", string(req.Trigger)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("recalculation failed", zap.Error(err))
		return report, err
	}

	r.metrics.AddRowsChanged(len(report.Changes))
	r.metrics.AddUnsynced(len(report.Unsynced))
	span.SetAttributes(
		attribute.Int("changes", len(report.Changes)),
		attribute.Int("unsynced", len(report.Unsynced)),
	)
	log.Info("recalculation finished",
		zap.String("outcome", outcome),
		zap.Int("changes", len(report.Changes)),
		zap.Int("unsynced", len(report.Unsynced)),
		zap.Int("published", report.Published),
	)
	return report, nil
}

// staleSnapshotError reports synced rate plans in scope that the snapshot has
// no factor for, typically rows inserted after the snapshot was cached.
type staleSnapshotError struct {
	ratePlanIDs []snowflake.ID
}

func (e *staleSnapshotError) Error() string {
	return fmt.Sprintf("snapshot has no factor for rate plans %v", e.ratePlanIDs)
}

func (e *staleSnapshotError) Unwrap() error { return pricingdomain.ErrInvalidInput }

func (r *Runner) recalculate(ctx context.Context, req domain.Request) (*domain.Report, error) {
	release, err := r.lock.Lock(ctx, req.SettingID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Read after the lock so a run never prices with rules older than the
	// previous run.
	snap, err := r.snapshots.Get(ctx, req.SettingID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	report, out, err := r.persist(ctx, req, snap, true)
	var stale *staleSnapshotError
	if errors.As(err, &stale) {
		logger.WithContext(ctx, r.log).Warn("snapshot is missing rate plan factors, reloading",
			zap.String("setting_id", snap.SettingID().String()),
			zap.Any("rate_plan_ids", stale.ratePlanIDs),
		)
		if err := r.invalidator.Invalidate(ctx, req.SettingID); err != nil {
			return nil, fmt.Errorf("invalidate snapshot: %w", err)
		}
		if snap, err = r.snapshots.Get(ctx, req.SettingID); err != nil {
			return nil, fmt.Errorf("reload snapshot: %w", err)
		}
		report, out, err = r.persist(ctx, req, snap, false)
	}
	if err != nil {
		return nil, err
	}
	if report.Skipped || len(report.Changes) == 0 {
		return report, nil
	}
	if out.propertyExternalID == "" {
		logger.WithContext(ctx, r.log).Warn("property has no channel manager id, rates not published",
			zap.String("setting_id", req.SettingID.String()),
		)
		return report, nil
	}

	updates := make([]ratesync.RateUpdate, 0, len(report.Changes))
	for _, c := range report.Changes {
		updates = append(updates, ratesync.NewRateUpdate(out.propertyExternalID, out.synced[c.RatePlanID].ExternalID, c.Date, c.Rate))
	}
	report.Published, err = r.publisher.Publish(ctx, updates)
	if err != nil {
		return report, fmt.Errorf("publish rates: %w", err)
	}
	return report, nil
}

type persisted struct {
	propertyExternalID string
	synced             map[snowflake.ID]domain.RatePlanRef
}

// persist prices the scope with snap and applies the changed rows in one
// transaction. With checkStale it rolls back with a staleSnapshotError
// before pricing when snap lacks a factor a synced row needs.
func (r *Runner) persist(ctx context.Context, req domain.Request, snap *pricingdomain.Snapshot, checkStale bool) (*domain.Report, persisted, error) {
	var out persisted
	report := &domain.Report{SettingID: req.SettingID}
	if !snap.Setting.Enabled {
		report.Skipped = true
		return report, out, nil
	}

	now := r.clock.Now()
	report.From, report.To = r.window(snap, req, now)
	if report.To.Before(report.From) {
		return report, out, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomTypes, err := r.roomTypes(ctx, tx, req)
		if err != nil {
			return err
		}
		scope := domain.Scope{RoomTypeIDs: roomTypes, From: report.From, To: report.To}

		occ, err := r.occupancy.Load(ctx, tx, scope)
		if err != nil {
			return err
		}
		rows, err := r.restrictions.List(ctx, tx, scope)
		if err != nil {
			return err
		}
		out.synced, err = r.directory.Synced(ctx, tx, roomTypes)
		if err != nil {
			return err
		}
		if checkStale {
			if missing := missingRatePlanFactors(snap, rows, out.synced); len(missing) > 0 {
				return &staleSnapshotError{ratePlanIDs: missing}
			}
		}

		res, err := pipeline.Run(snap, domain.Input{
			RoomTypeIDs:  roomTypes,
			From:         scope.From,
			To:           scope.To,
			Occupancy:    occ,
			Restrictions: rows,
			Synced:       out.synced,
			Now:          now,
		})
		if err != nil {
			return err
		}
		report.Changes = res.Changes
		report.Unsynced = res.Unsynced
		if len(res.Changes) == 0 {
			return nil
		}

		if err := r.restrictions.Apply(ctx, tx, res.Changes); err != nil {
			return err
		}
		out.propertyExternalID, err = r.directory.PropertyExternalID(ctx, tx, req.SettingID)
		return err
	})
	if err != nil {
		return nil, out, err
	}
	return report, out, nil
}

// missingRatePlanFactors lists the synced rate plans of rows that snap has no
// factor for. It is empty when the rate plan dimension is off.
func missingRatePlanFactors(snap *pricingdomain.Snapshot, rows []domain.RestrictionRow, synced map[snowflake.ID]domain.RatePlanRef) []snowflake.ID {
	if !snap.Setting.Dimensions.RatePlan {
		return nil
	}
	seen := make(map[snowflake.ID]struct{})
	var missing []snowflake.ID
	for _, row := range rows {
		if _, ok := synced[row.RatePlanID]; !ok {
			continue
		}
		if _, ok := seen[row.RatePlanID]; ok {
			continue
		}
		seen[row.RatePlanID] = struct{}{}
		if _, ok := snap.RatePlanPercentage(row.RatePlanID); !ok {
			missing = append(missing, row.RatePlanID)
		}
	}
	return missing
}

// window clamps the requested range to [today, today+horizon] in the property zone.
func (r *Runner) window(snap *pricingdomain.Snapshot, req domain.Request, now time.Time) (time.Time, time.Time) {
	today := pricingdomain.Today(now, snap.Location())
	horizon := today.AddDate(0, 0, r.pricing.Get().HorizonDays)

	from, to := today, horizon
	if !req.From.IsZero() && pricingdomain.DateOf(req.From).After(today) {
		from = pricingdomain.DateOf(req.From)
	}
	if !req.To.IsZero() && pricingdomain.DateOf(req.To).Before(horizon) {
		to = pricingdomain.DateOf(req.To)
	}
	return from, to
}

func (r *Runner) roomTypes(ctx context.Context, tx *gorm.DB, req domain.Request) ([]snowflake.ID, error) {
	owned, err := r.directory.RoomTypes(ctx, tx, req.SettingID)
	if err != nil {
		return nil, err
	}
	if len(req.RoomTypeIDs) == 0 {
		return owned, nil
	}

	set := make(map[snowflake.ID]struct{}, len(owned))
	for _, id := range owned {
		set[id] = struct{}{}
	}
	for _, id := range req.RoomTypeIDs {
		if _, ok := set[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrRoomTypeUnknown, id)
		}
	}
	return req.RoomTypeIDs, nil
}

func outcomeOf(report *domain.Report, err error) string {
	switch {
	case err != nil:
		return obsmetrics.RecalcOutcomeFailed
	case report.Skipped:
		return obsmetrics.RecalcOutcomeDisabled
	case len(report.Changes) == 0:
		return obsmetrics.RecalcOutcomeNoChange
	default:
		return obsmetrics.RecalcOutcomeApplied
	}
}

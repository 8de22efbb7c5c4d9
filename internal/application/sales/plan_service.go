package sales

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MetricsRecorder receives one call per recalculation
type MetricsRecorder interface {
	RecordRecalculation(ctx context.Context, country, trigger, outcome string, elapsed time.Duration, orders int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRecalculation(context.Context, string, string, string, time.Duration, int) {}

// PlanService handles sales plans and their progress
type PlanService struct {
	plans       sales.PlanRepository
	progress    sales.ProgressStore
	orders      sales.OrderSource
	logger      *zap.Logger
	metrics     MetricsRecorder
	concurrency int
	today       func() time.Time
}

// PlanServiceOption configures a PlanService
type PlanServiceOption func(*PlanService)

// WithMetrics reports recalculations to m
func WithMetrics(m MetricsRecorder) PlanServiceOption {
	return func(s *PlanService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithBatchConcurrency bounds the parallel recalculations of RecalculateActive
func WithBatchConcurrency(n int) PlanServiceOption {
	return func(s *PlanService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewPlanService creates a PlanService
func NewPlanService(
	plans sales.PlanRepository,
	progress sales.ProgressStore,
	orders sales.OrderSource,
	logger *zap.Logger,
	opts ...PlanServiceOption,
) *PlanService {
	s := &PlanService{
		plans:       plans,
		progress:    progress,
		orders:      orders,
		logger:      logger,
		metrics:     nopRecorder{},
		concurrency: 4,
		today:       shared.Today,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new plan. A plan with the same salesperson,
// target client, period and date range is rejected.
func (s *PlanService) Create(ctx context.Context, country string, req CreatePlanRequest) (*PlanResponse, error) {
	ctx = shared.WithCountry(ctx, country)

	start, err := shared.ParseDate(req.StartDate, time.Time{})
	if err != nil {
		return nil, err
	}
	end, err := shared.ParseDate(req.EndDate, time.Time{})
	if err != nil {
		return nil, err
	}

	in := sales.NewPlanInput{
		SalespersonID:  req.SalespersonID,
		TargetClientID: req.TargetClientID,
		ProductIDs:     req.ProductIDs,
		Period:         req.Period,
		Territory:      req.Territory,
		GoalUnits:      req.GoalUnits,
		GoalClients:    req.GoalClients,
		StartDate:      start,
		EndDate:        end,
	}
	if req.GoalAmount != nil {
		in.GoalAmount = decimal.NewNullDecimal(*req.GoalAmount)
	}

	plan, err := sales.NewSalesPlan(in)
	if err != nil {
		return nil, shared.InvalidInput(err)
	}

	dup, err := s.plans.ExistsDuplicate(ctx, plan)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, shared.AlreadyExists("A sales plan with the same salesperson, client, period and dates already exists")
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info("Sales plan created",
		zap.String("plan_id", plan.ID),
		zap.String("country", shared.CountryFromContext(ctx)),
		zap.String("salesperson_id", plan.SalespersonID),
		zap.Int("products", len(plan.ProductIDs)),
	)
	return ToPlanResponse(plan), nil
}

// Get returns a plan or NotFound
func (s *PlanService) Get(ctx context.Context, country, id string) (*PlanResponse, error) {
	plan, err := s.plans.FindByID(shared.WithCountry(ctx, country), id)
	if err != nil {
		return nil, err
	}
	return ToPlanResponse(plan), nil
}

// List returns all plans, or those of one salesperson
func (s *PlanService) List(ctx context.Context, country, salespersonID string) ([]PlanResponse, error) {
	plans, err := s.plans.FindAll(shared.WithCountry(ctx, country), sales.PlanFilter{SalespersonID: salespersonID})
	if err != nil {
		return nil, err
	}
	out := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, *ToPlanResponse(&plans[i]))
	}
	return out, nil
}

// ListProgress returns the snapshots of a plan ordered by date
func (s *PlanService) ListProgress(ctx context.Context, country, planID string) ([]ProgressResponse, error) {
	ctx = shared.WithCountry(ctx, country)
	if _, err := s.plans.FindByID(ctx, planID); err != nil {
		return nil, err
	}

	snaps, err := s.progress.FindByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	out := make([]ProgressResponse, 0, len(snaps))
	for i := range snaps {
		out = append(out, *ToProgressResponse(&snaps[i]))
	}
	return out, nil
}

// Recalculate aggregates the orders of date for a plan and overwrites the
// plan's snapshot for that day. A zero date means today in UTC.
func (s *PlanService) Recalculate(ctx context.Context, country, planID string, date time.Time) (*ProgressResponse, error) {
	ctx = shared.WithCountry(ctx, country)
	if date.IsZero() {
		date = s.today()
	}

	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		s.metrics.RecordRecalculation(ctx, shared.CountryFromContext(ctx), triggerFrom(ctx), outcomeOf(err), 0, 0)
		return nil, err
	}

	snap, err := s.recalculate(ctx, plan, date)
	if err != nil {
		return nil, err
	}
	return ToProgressResponse(snap), nil
}

func (s *PlanService) recalculate(ctx context.Context, plan *sales.SalesPlan, date time.Time) (snap *sales.ProgressSnapshot, err error) {
	country := shared.CountryFromContext(ctx)
	ctx, span := telemetry.StartSpan(ctx, "sales.plan.recalculate",
		attribute.String("plan_id", plan.ID),
		attribute.String("country", country),
		attribute.String("date", date.Format(shared.DateLayout)),
	)
	started := time.Now()
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		orders := 0
		if snap != nil {
			orders = snap.OrderCount
		}
		s.metrics.RecordRecalculation(ctx, country, triggerFrom(ctx), outcomeOf(err), time.Since(started), orders)
	}()

	labels := telemetry.OperationLabels("recalculate_plan", map[string]string{
		telemetry.ProfilingLabelCountry: country,
		telemetry.ProfilingLabelTrigger: triggerFrom(ctx),
	})
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		var result sales.AggregateResult
		if result, err = sales.Recalculate(ctx, plan, date, s.orders); err != nil {
			return
		}
		snap, err = s.progress.Upsert(ctx, plan.ID, date, result)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recalculation completed",
		zap.String("plan_id", plan.ID),
		zap.String("country", country),
		zap.String("date", snap.Date.Format(shared.DateLayout)),
		zap.String("amount", snap.Amount.StringFixed(sales.AmountScale)),
		zap.Int64("units", snap.Units),
		zap.Int("clients", snap.DistinctClients),
		zap.Int("orders", snap.OrderCount),
	)
	return snap, nil
}

// RecalculateActive recalculates every active plan covering date. Failures
// do not stop the run. The returned error is non-nil when listing plans
// failed or when some plan failed for a transient reason, so the caller can
// retry the whole run; upserts make that safe.
func (s *PlanService) RecalculateActive(ctx context.Context, country string, date time.Time) (*BatchResult, error) {
	ctx = shared.WithCountry(ctx, country)
	if date.IsZero() {
		date = s.today()
	}
	date = sales.NormalizeDate(date)

	plans, err := s.plans.FindActiveOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list active plans: %w", err)
	}

	res := &BatchResult{Country: shared.CountryFromContext(ctx), Date: date, Total: len(plans)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range plans {
		plan := &plans[i]
		g.Go(func() error {
			_, err := s.recalculate(gctx, plan, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failures = append(res.Failures, PlanFailure{PlanID: plan.ID, Err: err})
				s.logger.Warn("Plan recalculation failed",
					zap.String("plan_id", plan.ID),
					zap.String("country", res.Country),
					zap.Error(err),
				)
				return nil
			}
			res.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Active plans recalculated",
		zap.String("country", res.Country),
		zap.String("date", date.Format(shared.DateLayout)),
		zap.Int("total", res.Total),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", len(res.Failures)),
	)

	var transient []error
	for _, f := range res.Failures {
		if shared.IsTransient(f.Err) {
			transient = append(transient, fmt.Errorf("plan %s: %w", f.PlanID, f.Err))
		}
	}
	if len(transient) > 0 {
		return res, fmt.Errorf("%d of %d plans failed: %w", len(transient), res.Total, errors.Join(transient...))
	}
	return res, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, shared.ErrNotFound):
		return telemetry.OutcomeNotFound
	case errors.Is(err, shared.ErrInvalidInput):
		return telemetry.OutcomeInvalid
	case shared.IsTransient(err):
		return telemetry.OutcomeUpstream
	default:
		return telemetry.OutcomeError
	}
}

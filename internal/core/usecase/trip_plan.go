package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

const (
	runStatusSuccess    = "success"
	runStatusOverBudget = "over_budget"
	runStatusFailed     = "failed"
)

type TripPlanOptions struct {
	// ThreadTravelers uses the request's traveler count for per-person totals
	// instead of domain.DefaultCostTravelers.
	ThreadTravelers bool
	Logger          *slog.Logger
	Metrics         ports.AgentMetrics
}

var (
	_ ports.TripPlanner   = (*TripPlanUseCase)(nil)
	_ ports.TripReader    = (*TripPlanUseCase)(nil)
	_ ports.TripProcessor = (*TripPlanUseCase)(nil)
	_ ports.TripExporter  = (*TripPlanUseCase)(nil)
)

// TripPlanUseCase drives one request through planning, execution, activity
// selection and synthesis, and persists the outcome.
type TripPlanUseCase struct {
	planner         *Planner
	executor        *Executor
	selector        *ActivitySelector
	synthesizer     *Synthesizer
	repo            ports.TripRepository
	queue           ports.TripQueue
	exporter        ports.ItineraryExporter
	threadTravelers bool
	logger          *slog.Logger
	metrics         ports.AgentMetrics
}

func NewTripPlanUseCase(
	planner *Planner,
	executor *Executor,
	selector *ActivitySelector,
	synthesizer *Synthesizer,
	repo ports.TripRepository,
	queue ports.TripQueue,
	exporter ports.ItineraryExporter,
	opts TripPlanOptions,
) *TripPlanUseCase {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	return &TripPlanUseCase{
		planner:         planner,
		executor:        executor,
		selector:        selector,
		synthesizer:     synthesizer,
		repo:            repo,
		queue:           queue,
		exporter:        exporter,
		threadTravelers: opts.ThreadTravelers,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
	}
}

// Plan runs the full pipeline synchronously and stores the finished trip.
func (uc *TripPlanUseCase) Plan(ctx context.Context, req domain.UserRequest) (*domain.Trip, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	trip := newTrip(req, domain.TripStatusPlanning)
	if err := uc.repo.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}

	if err := uc.runAndStore(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// Enqueue stores a queued trip and hands its id to the worker queue.
func (uc *TripPlanUseCase) Enqueue(ctx context.Context, req domain.UserRequest) (*domain.Trip, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if uc.queue == nil {
		return nil, domain.WrapError(domain.ErrTemporary, "enqueue trip", errors.New("async planning is not configured"))
	}

	trip := newTrip(req, domain.TripStatusQueued)
	if err := uc.repo.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}

	if err := uc.queue.PublishTripRequested(ctx, trip.ID); err != nil {
		publishErr := fmt.Errorf("publish trip request: %w", err)
		if failErr := uc.markFailed(ctx, trip, publishErr); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", publishErr, failErr)
		}
		return nil, publishErr
	}
	return trip, nil
}

// ProcessByID plans a queued trip. Already finished trips are left untouched
// so redelivered messages are harmless.
func (uc *TripPlanUseCase) ProcessByID(ctx context.Context, tripID string) error {
	trip, err := uc.repo.GetByID(ctx, tripID)
	if err != nil {
		return fmt.Errorf("fetch trip by id: %w", err)
	}
	if trip.Status == domain.TripStatusReady {
		uc.logger.Info("trip_already_planned", "trip_id", trip.ID)
		return nil
	}

	trip.Status = domain.TripStatusPlanning
	trip.ErrorMessage = ""
	trip.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, trip); err != nil {
		return fmt.Errorf("set status=planning: %w", err)
	}

	return uc.runAndStore(ctx, trip)
}

func (uc *TripPlanUseCase) GetByID(ctx context.Context, tripID string) (*domain.Trip, error) {
	return uc.repo.GetByID(ctx, tripID)
}

func (uc *TripPlanUseCase) ExportByID(ctx context.Context, tripID string) ([]byte, error) {
	if uc.exporter == nil {
		return nil, domain.WrapError(domain.ErrTemporary, "export trip", errors.New("exporter is not configured"))
	}
	trip, err := uc.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusReady || trip.Itinerary == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "export trip", fmt.Errorf("trip %s is %s", trip.ID, trip.Status))
	}

	payload, err := uc.exporter.Export(ctx, trip)
	if err != nil {
		return nil, fmt.Errorf("export trip: %w", err)
	}
	return payload, nil
}

func (uc *TripPlanUseCase) runAndStore(ctx context.Context, trip *domain.Trip) error {
	state, itinerary, issues, err := uc.Run(ctx, trip.Request)
	if err != nil {
		if failErr := uc.markFailed(ctx, trip, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	trip.State = state
	trip.Itinerary = itinerary
	trip.Issues = issues
	trip.Status = domain.TripStatusReady
	trip.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, trip); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

// Run executes planning through synthesis without touching storage. Issues
// are reported, not fatal; only cancellation of ctx fails the run.
func (uc *TripPlanUseCase) Run(ctx context.Context, req domain.UserRequest) (*domain.AgentState, *domain.Itinerary, []string, error) {
	state := uc.planner.CreatePlan(ctx, req)
	if uc.threadTravelers && req.Travelers > 0 {
		state.CostTravelers = req.Travelers
	}
	issues := ValidatePlan(state)

	uc.executor.ExecutePlan(ctx, state)
	uc.selector.SelectActivities(state, req.Interests, req.Destination)
	if err := ctx.Err(); err != nil {
		uc.metrics.RecordRun(runStatusFailed, state.BudgetRemaining)
		return nil, nil, nil, domain.WrapError(domain.ErrTemporary, "run planning", err)
	}

	issues = append(issues, ValidateSelections(state)...)
	itinerary := uc.synthesizer.CreateItinerary(ctx, state, req)

	status := runStatusSuccess
	if state.BudgetRemaining < 0 {
		status = runStatusOverBudget
	}
	uc.metrics.RecordRun(status, state.BudgetRemaining)
	uc.logger.Info("trip_planned",
		"destination", req.Destination,
		"steps", len(state.Plan),
		"issues", len(issues),
		"budget_remaining", state.BudgetRemaining,
	)
	return state, itinerary, issues, nil
}

func (uc *TripPlanUseCase) markFailed(ctx context.Context, trip *domain.Trip, cause error) error {
	trip.Status = domain.TripStatusFailed
	trip.ErrorMessage = cause.Error()
	trip.UpdatedAt = time.Now().UTC()
	return uc.repo.Update(ctx, trip)
}

func newTrip(req domain.UserRequest, status domain.TripStatus) *domain.Trip {
	now := time.Now().UTC()
	return &domain.Trip{
		ID:        uuid.NewString(),
		Status:    status,
		Request:   req,
		Issues:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

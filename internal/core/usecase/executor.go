package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

const (
	flyingThresholdMiles   = 500.0
	flightMinPerPerson     = 300.0
	flightMaxPerPerson     = 500.0
	flightCostPerMile      = 0.15
	budgetConstraintFloor  = 100.0
	defaultPlacesLimit     = 10
	defaultLodgingLimit    = 10
	tracerName             = "github.com/kirillkom/itinerary-agent/internal/core/usecase"
	statusReadyToSynthesis = "ready_for_synthesis"
)

// StepOutcome is the result of dispatching one step: a payload or a typed error.
type StepOutcome struct {
	Output domain.ToolOutput
	Err    error
}

type stepHandler func(ctx context.Context, state *domain.AgentState, params domain.StepParams) (domain.ToolOutput, error)

type ExecutorOptions struct {
	StepTimeout time.Duration
	Logger      *slog.Logger
	Metrics     ports.AgentMetrics
	Tracer      trace.Tracer
}

// Executor walks a plan in order, dispatching each step and applying its result.
type Executor struct {
	gateway     ports.ToolGateway
	planner     *Planner
	handlers    map[domain.ToolID]stepHandler
	stepTimeout time.Duration
	logger      *slog.Logger
	metrics     ports.AgentMetrics
	tracer      trace.Tracer
}

func NewExecutor(gateway ports.ToolGateway, planner *Planner, opts ExecutorOptions) *Executor {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	e := &Executor{
		gateway:     gateway,
		planner:     planner,
		stepTimeout: opts.StepTimeout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
	}
	e.handlers = map[domain.ToolID]stepHandler{
		domain.ToolFindDirections:   e.findDirections,
		domain.ToolSearchLodging:    e.searchLodging,
		domain.ToolLodgingPlanB:     e.searchLodgingPlanB,
		domain.ToolForecastWeather:  e.forecastWeather,
		domain.ToolSearchPlaces:     e.searchPlaces,
		domain.ToolFilterByLocation: e.filterByLocation,
		domain.ToolSynthesis:        e.synthesisReady,
	}
	return e
}

// ExecutePlan runs every step of state.Plan, including steps inserted while
// running. A failed step is recorded and skipped; it never aborts the plan.
func (e *Executor) ExecutePlan(ctx context.Context, state *domain.AgentState) *domain.AgentState {
	for cursor := 0; cursor < len(state.Plan); cursor++ {
		step := state.Plan[cursor]
		outcome := e.dispatch(ctx, state, step)

		if outcome.Err != nil {
			e.metrics.RecordToolCall(string(step.Tool), domain.StatusError)
			e.logger.Warn("step_failed",
				"cursor", cursor,
				"tool", string(step.Tool),
				"error", outcome.Err,
			)
			state.Record(domain.ToolResult{
				Tool:   step.Tool,
				Input:  step.Params,
				Output: domain.ToolOutput{Status: domain.StatusError, Error: outcome.Err.Error()},
				Notes:  fmt.Sprintf("Tool execution failed: %v", outcome.Err),
			})
			continue
		}

		result := e.interpret(state, step, outcome.Output)
		state.Record(result)
		e.metrics.RecordToolCall(string(step.Tool), toolCallStatus(outcome.Output))
		e.logger.Info("step_executed",
			"cursor", cursor,
			"tool", string(step.Tool),
			"cost", result.NetCost(),
			"budget_remaining", state.BudgetRemaining,
		)

		e.checkConstraints(state, cursor, step, result)
	}
	return state
}

func (e *Executor) dispatch(ctx context.Context, state *domain.AgentState, step domain.PlanStep) StepOutcome {
	handler, ok := e.handlers[step.Tool]
	if !ok {
		return StepOutcome{Err: domain.WrapError(domain.ErrUnknownTool, "dispatch", fmt.Errorf("tool %q", step.Tool))}
	}

	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	stepCtx, span := e.tracer.Start(stepCtx, "itinerary.step",
		trace.WithAttributes(
			attribute.String("itinerary.tool", string(step.Tool)),
			attribute.String("itinerary.phase", string(step.Phase)),
		),
	)
	defer span.End()

	output, err := handler(stepCtx, state, step.Params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step dispatch failed")
		return StepOutcome{Err: err}
	}
	return StepOutcome{Output: output}
}

func (e *Executor) findDirections(ctx context.Context, _ *domain.AgentState, params domain.StepParams) (domain.ToolOutput, error) {
	if strings.TrimSpace(params.Origin) == "" || strings.TrimSpace(params.Destination) == "" {
		return domain.ToolOutput{}, missingParam("maps.find_directions", "origin/destination")
	}
	route, err := e.gateway.FindRoute(ctx, params.Origin, params.Destination)
	if err != nil {
		return domain.ToolOutput{}, err
	}
	return domain.ToolOutput{Route: &route, Status: route.Status}, nil
}

func (e *Executor) searchLodging(ctx context.Context, _ *domain.AgentState, params domain.StepParams) (domain.ToolOutput, error) {
	start, end, err := stayDates("hotels.search", params)
	if err != nil {
		return domain.ToolOutput{}, err
	}
	if strings.TrimSpace(params.City) == "" {
		return domain.ToolOutput{}, missingParam("hotels.search", "city")
	}
	maxPrice := params.MaxPrice
	if maxPrice <= 0 {
		maxPrice = domain.DefaultLodgingMaxPrice
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultLodgingLimit
	}

	options, err := e.gateway.SearchLodging(ctx, ports.LodgingQuery{
		City:       params.City,
		StartDate:  start,
		EndDate:    end,
		MaxNightly: maxPrice,
		Near:       params.Near,
		Limit:      limit,
	})
	if err != nil {
		return domain.ToolOutput{}, err
	}
	return domain.ToolOutput{Lodging: options, Status: domain.StatusSuccess}, nil
}

func (e *Executor) searchLodgingPlanB(ctx context.Context, _ *domain.AgentState, params domain.StepParams) (domain.ToolOutput, error) {
	start, end, err := stayDates("hotels.find_plan_b", params)
	if err != nil {
		return domain.ToolOutput{}, err
	}
	if strings.TrimSpace(params.City) == "" {
		return domain.ToolOutput{}, missingParam("hotels.find_plan_b", "city")
	}
	if params.RemainingBudget == nil {
		return domain.ToolOutput{}, missingParam("hotels.find_plan_b", "remaining_budget")
	}
	original := params.OriginalMaxPrice
	if original <= 0 {
		original = domain.DefaultLodgingMaxPrice
	}

	options, err := e.gateway.SearchLodgingFallback(ctx, ports.LodgingFallbackQuery{
		City:             params.City,
		StartDate:        start,
		EndDate:          end,
		OriginalMaxPrice: original,
		RemainingBudget:  *params.RemainingBudget,
	})
	if err != nil {
		return domain.ToolOutput{}, err
	}
	return domain.ToolOutput{Lodging: options, PlanB: true, Status: domain.StatusSuccess}, nil
}

func (e *Executor) forecastWeather(ctx context.Context, _ *domain.AgentState, params domain.StepParams) (domain.ToolOutput, error) {
	if strings.TrimSpace(params.City) == "" {
		return domain.ToolOutput{}, missingParam("weather.forecast", "city")
	}
	var start, end domain.Date
	if params.StartDate != "" {
		parsed, err := domain.ParseDate(params.StartDate)
		if err != nil {
			return domain.ToolOutput{}, domain.WrapError(domain.ErrMissingParam, "weather.forecast", err)
		}
		start = parsed
	}
	if params.EndDate != "" {
		parsed, err := domain.ParseDate(params.EndDate)
		if err != nil {
			return domain.ToolOutput{}, domain.WrapError(domain.ErrMissingParam, "weather.forecast", err)
		}
		end = parsed
	}

	forecast, err := e.gateway.ForecastWeather(ctx, params.City, start, end)
	if err != nil {
		return domain.ToolOutput{}, err
	}
	return domain.ToolOutput{Forecast: &forecast, Status: forecast.Status}, nil
}

func (e *Executor) searchPlaces(ctx context.Context, _ *domain.AgentState, params domain.StepParams) (domain.ToolOutput, error) {
	if strings.TrimSpace(params.Query) == "" || strings.TrimSpace(params.Near) == "" {
		return domain.ToolOutput{}, missingParam("places.search", "query/near")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPlacesLimit
	}
	places, err := e.gateway.SearchPlaces(ctx, params.Query, params.Near, limit)
	if err != nil {
		return domain.ToolOutput{}, err
	}
	if places == nil {
		places = []domain.Place{}
	}
	return domain.ToolOutput{Places: places, Status: domain.StatusSuccess}, nil
}

// filterByLocation narrows already-collected places to a radius around a center.
func (e *Executor) filterByLocation(_ context.Context, state *domain.AgentState, params domain.StepParams) (domain.ToolOutput, error) {
	if params.CenterLat == nil || params.CenterLng == nil {
		return domain.ToolOutput{}, missingParam("places.filter_by_location", "center_lat/center_lng")
	}
	center := domain.GeoPoint{Lat: *params.CenterLat, Lng: *params.CenterLng}
	radius := params.MaxDistanceMiles
	if radius <= 0 {
		radius = geoRefineMiles
	}

	places := placesWithin(dedupePlaces(collectPlaces(state.Log)), center, radius)
	return domain.ToolOutput{Places: places, Status: domain.StatusSuccess}, nil
}

func (e *Executor) synthesisReady(context.Context, *domain.AgentState, domain.StepParams) (domain.ToolOutput, error) {
	return domain.ToolOutput{Status: statusReadyToSynthesis}, nil
}

func stayDates(tool string, params domain.StepParams) (domain.Date, domain.Date, error) {
	if params.StartDate == "" || params.EndDate == "" {
		return domain.Date{}, domain.Date{}, missingParam(tool, "start_date/end_date")
	}
	start, err := domain.ParseDate(params.StartDate)
	if err != nil {
		return domain.Date{}, domain.Date{}, domain.WrapError(domain.ErrMissingParam, tool, err)
	}
	end, err := domain.ParseDate(params.EndDate)
	if err != nil {
		return domain.Date{}, domain.Date{}, domain.WrapError(domain.ErrMissingParam, tool, err)
	}
	return start, end, nil
}

func missingParam(tool, name string) error {
	return domain.WrapError(domain.ErrMissingParam, tool, fmt.Errorf("%s is required", name))
}

// interpret turns a raw output into a log entry and updates selections.
// Budget changes are applied by AgentState.Record from the returned entry.
func (e *Executor) interpret(state *domain.AgentState, step domain.PlanStep, output domain.ToolOutput) domain.ToolResult {
	result := domain.ToolResult{
		Tool:   step.Tool,
		Input:  step.Params,
		Output: output,
	}

	switch step.Tool {
	case domain.ToolFindDirections:
		e.interpretRoute(state, &result)
	case domain.ToolSearchLodging, domain.ToolLodgingPlanB:
		e.interpretLodging(state, step, &result)
	case domain.ToolForecastWeather:
		if f := output.Forecast; f != nil && f.Status == domain.StatusSuccess {
			result.Notes = fmt.Sprintf("Weather: %s, %d°F/%d°F, %d%% rain", f.Summary, f.HighF, f.LowF, int(f.RainChance*100))
		} else if f != nil {
			result.Notes = fmt.Sprintf("Weather lookup failed: %s", f.Error)
		}
	case domain.ToolSearchPlaces:
		result.Notes = fmt.Sprintf("Found %d places for '%s'", len(output.Places), step.Params.Query)
	case domain.ToolFilterByLocation:
		result.Notes = fmt.Sprintf("Kept %d nearby places within %.1f miles", len(output.Places), step.Params.MaxDistanceMiles)
	case domain.ToolSynthesis:
		result.Notes = "Ready for synthesis"
	}
	return result
}

// TransportFor applies the drive-or-fly rule to a successful route.
func TransportFor(route domain.RouteResult, travelers int) domain.TransportSelection {
	if route.DistanceMiles > flyingThresholdMiles {
		perPerson := math.Min(flightMaxPerPerson, math.Max(flightMinPerPerson, route.DistanceMiles*flightCostPerMile))
		return domain.TransportSelection{
			Mode:            domain.TransportFlying,
			Cost:            perPerson * float64(travelers),
			DurationMinutes: int((2 + route.DistanceMiles/flyingThresholdMiles) * 60),
			DistanceMiles:   route.DistanceMiles,
		}
	}
	return domain.TransportSelection{
		Mode:            domain.TransportDriving,
		Cost:            route.GasEstimate,
		DurationMinutes: route.DurationMinutes,
		DistanceMiles:   route.DistanceMiles,
	}
}

func (e *Executor) interpretRoute(state *domain.AgentState, result *domain.ToolResult) {
	route := result.Output.Route
	if route == nil || route.Status != domain.StatusSuccess {
		reason := "no route returned"
		if route != nil && route.Error != "" {
			reason = route.Error
		}
		result.Notes = "Route lookup failed: " + reason
		return
	}

	transport := TransportFor(*route, state.Travelers())
	if prev := state.Selections.Transport; prev != nil {
		result.Credit = prev.Cost
	}
	state.Selections.Transport = &transport
	result.CostEstimate = transport.Cost

	if transport.Mode == domain.TransportFlying {
		result.Thinking = fmt.Sprintf("Distance %.0f miles exceeds %.0f, flying is faster despite the higher cost.", route.DistanceMiles, flyingThresholdMiles)
		result.Notes = fmt.Sprintf("Flying route: %.0f miles, ~%dh %dm total time (including airport), $%.2f for %d travelers",
			route.DistanceMiles, transport.DurationMinutes/60, transport.DurationMinutes%60, transport.Cost, state.Travelers())
		return
	}
	result.Thinking = fmt.Sprintf("Distance %.0f miles is within %.0f, driving is cost-effective.", route.DistanceMiles, flyingThresholdMiles)
	result.Notes = fmt.Sprintf("Driving route: %.0f miles, %d min, $%.2f gas", route.DistanceMiles, route.DurationMinutes, route.GasEstimate)
}

func (e *Executor) interpretLodging(state *domain.AgentState, step domain.PlanStep, result *domain.ToolResult) {
	options := result.Output.Lodging
	if len(options) == 0 {
		result.Notes = "No hotels found within budget"
		result.Thinking = "No lodging matched the nightly cap."
		return
	}

	best := options[0]
	if len(options) > 1 {
		var reference *domain.GeoPoint
		if point, ok := domain.LookupCity(step.Params.City); ok {
			reference = &point
		}
		best = SelectBestHotel(options, state.BudgetRemaining, reference)
	}

	hotel := domain.HotelSelection{
		Name:          best.Name,
		PricePerNight: best.PricePerNight,
		TotalPrice:    best.TotalPrice,
		Rating:        best.Rating,
		Lat:           best.Lat,
		Lng:           best.Lng,
		Link:          best.Link,
		Address:       best.Address,
		PlanB:         result.Output.PlanB,
	}
	if prev := state.Selections.Hotel; prev != nil {
		result.Credit = prev.TotalPrice
	}
	state.Selections.Hotel = &hotel
	result.CostEstimate = best.TotalPrice
	result.Thinking = fmt.Sprintf("Rating %.1f/5 at $%.2f/night, $%.2f remaining after booking.",
		best.Rating, best.PricePerNight, state.BudgetRemaining-result.NetCost())

	if result.Output.PlanB {
		result.Notes = fmt.Sprintf("Plan B hotel selected: %s - $%.2f total", best.Name, best.TotalPrice)
		return
	}
	result.Notes = fmt.Sprintf("Top hotel selected: %s - $%.2f total ($%.2f/night)", best.Name, best.TotalPrice, best.PricePerNight)
}

// ScoreHotel weighs rating, price band and proximity into a 0..1 score.
func ScoreHotel(option domain.LodgingOption, reference *domain.GeoPoint) float64 {
	rating := option.Rating
	if rating <= 0 {
		rating = 4.0
	}

	var priceScore float64
	switch price := option.PricePerNight; {
	case price < 60:
		priceScore = 0.6
	case price < 100:
		priceScore = 1.0
	case price < 150:
		priceScore = 0.8
	default:
		priceScore = 0.6
	}

	locationScore := 0.5
	if reference != nil {
		switch d := domain.DistanceMiles(*reference, domain.GeoPoint{Lat: option.Lat, Lng: option.Lng}); {
		case d < 2:
			locationScore = 1.0
		case d < 5:
			locationScore = 0.8
		case d < 10:
			locationScore = 0.6
		default:
			locationScore = 0.4
		}
	}

	score := rating/5*0.4 + priceScore*0.4 + locationScore*0.2
	return math.Round(score*100) / 100
}

// SelectBestHotel ranks candidates by score adjusted for budget fit.
func SelectBestHotel(options []domain.LodgingOption, budgetRemaining float64, reference *domain.GeoPoint) domain.LodgingOption {
	type scored struct {
		option domain.LodgingOption
		score  float64
	}
	ranked := make([]scored, 0, len(options))
	for _, option := range options {
		score := ScoreHotel(option, reference)
		switch after := budgetRemaining - option.TotalPrice; {
		case after > 200:
			score += 0.1
		case after < 50:
			score -= 0.2
		}
		ranked = append(ranked, scored{option: option, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	return ranked[0].option
}

func (e *Executor) checkConstraints(state *domain.AgentState, cursor int, step domain.PlanStep, result domain.ToolResult) {
	if e.planner == nil {
		return
	}

	if step.Tool == domain.ToolSearchLodging && !result.Output.PlanB && result.CostEstimate > 0 &&
		state.BudgetRemaining < budgetConstraintFloor {
		originalMax := step.Params.MaxPrice
		if originalMax <= 0 {
			originalMax = domain.DefaultLodgingMaxPrice
		}
		nights := 1
		if start, end, err := stayDates(string(step.Tool), step.Params); err == nil {
			nights = max(1, start.DaysUntil(end))
		}
		e.applyConstraint(state, cursor, domain.ConstraintBudget, ConstraintDetails{
			City:             step.Params.City,
			StartDate:        step.Params.StartDate,
			EndDate:          step.Params.EndDate,
			OriginalMaxPrice: originalMax,
			RemainingBudget:  state.BudgetRemaining,
			Nights:           nights,
		})
	}

	if step.Tool == domain.ToolForecastWeather {
		if f := result.Output.Forecast; f != nil && f.Rainy() {
			e.applyConstraint(state, cursor, domain.ConstraintWeather, ConstraintDetails{
				City:       step.Params.City,
				RainChance: f.RainChance,
			})
		}
	}
}

func (e *Executor) applyConstraint(state *domain.AgentState, cursor int, kind domain.ConstraintKind, details ConstraintDetails) {
	if _, err := e.planner.UpdatePlanWithConstraints(state, cursor, kind, details); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, errInsertBehindCursor) {
			level = slog.LevelError
		}
		e.logger.Log(context.Background(), level, "constraint_rejected", "constraint", string(kind), "error", err)
	}
}

// ValidateSelections lists informational problems with the final selections.
func ValidateSelections(state *domain.AgentState) []string {
	issues := make([]string, 0)
	if state.Selections.Transport == nil {
		issues = append(issues, "No transport option selected")
	}
	if state.Selections.Hotel == nil {
		issues = append(issues, "No hotel selected")
	}
	if len(state.Selections.Activities) == 0 {
		issues = append(issues, "No activities selected")
	}
	if state.BudgetRemaining < 0 {
		issues = append(issues, fmt.Sprintf("Budget exceeded by $%.2f", -state.BudgetRemaining))
	}
	return issues
}

// toolCallStatus reports upstream failures that arrive as payloads, such as a
// route or forecast with status "error".
func toolCallStatus(output domain.ToolOutput) string {
	if output.Status == domain.StatusError {
		return domain.StatusError
	}
	return domain.StatusSuccess
}

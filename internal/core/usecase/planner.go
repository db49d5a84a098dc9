package usecase

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

//go:embed schema/plan.json
var planSchemaJSON []byte

const (
	planSourceGenerated = "generated"
	planSourceFallback  = "fallback"

	maxInterestSearches = 3
	indoorQuery         = "indoor museum coffee restaurant"
	allocationSlack     = 1.2
	geoRefineMiles      = 3.0
)

var errInsertBehindCursor = errors.New("plan insertion behind execution cursor")

// toolAliases maps loose tool names a generator tends to emit onto plannable tools.
var toolAliases = map[string]domain.ToolID{
	"google maps":  domain.ToolFindDirections,
	"maps":         domain.ToolFindDirections,
	"directions":   domain.ToolFindDirections,
	"booking.com":  domain.ToolSearchLodging,
	"hotels":       domain.ToolSearchLodging,
	"hotel search": domain.ToolSearchLodging,
	"weather.com":  domain.ToolForecastWeather,
	"weather":      domain.ToolForecastWeather,
	"forecast":     domain.ToolForecastWeather,
	"yelp":         domain.ToolSearchPlaces,
	"places":       domain.ToolSearchPlaces,
	"search":       domain.ToolSearchPlaces,
	"activities":   domain.ToolSearchPlaces,
}

type PlannerOptions struct {
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics ports.AgentMetrics
}

// Planner builds the initial plan and mutates it when constraints fire.
type Planner struct {
	generator ports.PlanGenerator
	schema    *jsonschema.Schema
	timeout   time.Duration
	logger    *slog.Logger
	metrics   ports.AgentMetrics
}

// NewPlanner accepts a nil generator, in which case every plan is the rule-based one.
func NewPlanner(generator ports.PlanGenerator, opts PlannerOptions) (*Planner, error) {
	schema, err := compilePlanSchema()
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	return &Planner{
		generator: generator,
		schema:    schema,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

func compilePlanSchema() (*jsonschema.Schema, error) {
	var schemaDoc any
	if err := json.Unmarshal(planSchemaJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal plan schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("plan.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add plan schema resource: %w", err)
	}
	schema, err := c.Compile("plan.json")
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	return schema, nil
}

// CreatePlan never fails: any generation problem degrades to the rule-based plan.
func (p *Planner) CreatePlan(ctx context.Context, req domain.UserRequest) *domain.AgentState {
	steps, allocations, err := p.generatePlan(ctx, req)
	source := planSourceGenerated
	if err != nil {
		source = planSourceFallback
		p.logger.Warn("plan_fallback", "reason", fallbackReason(err), "error", err)
		steps, allocations = FallbackPlan(req)
	}
	p.metrics.RecordPlanSource(source)

	state := domain.NewAgentState(req.BudgetTotal, steps, &allocations)
	p.logger.Info("plan_created",
		"source", source,
		"steps", len(steps),
		"estimated_minutes", EstimatePlanDuration(steps),
		"transport_allocation", allocations.Transport,
		"lodging_target", allocations.LodgingTarget,
		"activities_buffer", allocations.ActivitiesBuffer,
	)
	return state
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errNoGenerator):
		return "no_generator"
	case errors.Is(err, domain.ErrUnknownTool):
		return "unknown_tool"
	case errors.Is(err, domain.ErrPlanRejected):
		return "plan_rejected"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "generator_error"
	}
}

var errNoGenerator = errors.New("no plan generator configured")

func (p *Planner) generatePlan(ctx context.Context, req domain.UserRequest) ([]domain.PlanStep, domain.BudgetAllocation, error) {
	if p.generator == nil {
		return nil, domain.BudgetAllocation{}, errNoGenerator
	}

	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	raw, err := p.generator.GeneratePlan(genCtx, buildPlanningPrompt(req), planSchemaJSON)
	cancel()
	if err != nil {
		return nil, domain.BudgetAllocation{}, fmt.Errorf("generate plan: %w", err)
	}
	return p.parseGeneratedPlan(raw, req)
}

type generatedPlan struct {
	Steps       []domain.PlanStep        `json:"steps"`
	Allocations *domain.BudgetAllocation `json:"allocations"`
}

func (p *Planner) parseGeneratedPlan(raw string, req domain.UserRequest) ([]domain.PlanStep, domain.BudgetAllocation, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &doc); err != nil {
		return nil, domain.BudgetAllocation{}, domain.WrapError(domain.ErrPlanRejected, "parse plan", err)
	}

	rawSteps, _ := doc["steps"].([]any)
	for _, item := range rawSteps {
		step, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := step["tool"].(string)
		tool, err := repairToolName(name)
		if err != nil {
			return nil, domain.BudgetAllocation{}, err
		}
		if string(tool) != name {
			p.logger.Warn("plan_tool_repaired", "from", name, "to", tool)
		}
		step["tool"] = string(tool)
	}

	if err := p.schema.Validate(doc); err != nil {
		return nil, domain.BudgetAllocation{}, domain.WrapError(domain.ErrPlanRejected, "validate plan schema", err)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, domain.BudgetAllocation{}, domain.WrapError(domain.ErrPlanRejected, "encode plan", err)
	}
	var plan generatedPlan
	if err := json.Unmarshal(encoded, &plan); err != nil {
		return nil, domain.BudgetAllocation{}, domain.WrapError(domain.ErrPlanRejected, "decode plan", err)
	}

	for i := range plan.Steps {
		pinRequestParams(&plan.Steps[i], req)
	}
	if issues := planIssues(plan.Steps); len(issues) > 0 {
		return nil, domain.BudgetAllocation{}, domain.WrapError(domain.ErrPlanRejected, "check plan", errors.New(strings.Join(issues, "; ")))
	}

	allocations := domain.AllocateBudget(req.BudgetTotal)
	if plan.Allocations != nil {
		allocations = *plan.Allocations
	}
	return plan.Steps, allocations, nil
}

func repairToolName(name string) (domain.ToolID, error) {
	if alias, ok := toolAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return alias, nil
	}
	tool := domain.ToolID(name)
	if !tool.Plannable() {
		return "", domain.WrapError(domain.ErrUnknownTool, "repair plan", fmt.Errorf("tool %q", name))
	}
	return tool, nil
}

// pinRequestParams overwrites location and date parameters with the request's values.
func pinRequestParams(step *domain.PlanStep, req domain.UserRequest) {
	switch step.Tool {
	case domain.ToolFindDirections:
		step.Params.Origin = req.Origin
		step.Params.Destination = req.Destination
	case domain.ToolSearchLodging, domain.ToolLodgingPlanB, domain.ToolForecastWeather:
		step.Params.City = req.Destination
		step.Params.StartDate = req.StartDate.String()
		step.Params.EndDate = req.EndDate.String()
	case domain.ToolSearchPlaces:
		step.Params.Near = req.Destination
	}
}

// FallbackPlan is the deterministic rule-based plan and allocation for a request.
func FallbackPlan(req domain.UserRequest) ([]domain.PlanStep, domain.BudgetAllocation) {
	steps := []domain.PlanStep{
		{
			Phase:       domain.PhaseTransport,
			Description: fmt.Sprintf("Find driving directions from %s to %s", req.Origin, req.Destination),
			Tool:        domain.ToolFindDirections,
			Params: domain.StepParams{
				Origin:      req.Origin,
				Destination: req.Destination,
			},
		},
		{
			Phase:       domain.PhaseLodging,
			Description: fmt.Sprintf("Search for hotels in %s", req.Destination),
			Tool:        domain.ToolSearchLodging,
			Params: domain.StepParams{
				City:      req.Destination,
				StartDate: req.StartDate.String(),
				EndDate:   req.EndDate.String(),
				MaxPrice:  domain.DefaultLodgingMaxPrice,
				Limit:     5,
			},
		},
		{
			Phase:       domain.PhaseActivities,
			Description: fmt.Sprintf("Check weather forecast for %s", req.Destination),
			Tool:        domain.ToolForecastWeather,
			Params: domain.StepParams{
				City:      req.Destination,
				StartDate: req.StartDate.String(),
				EndDate:   req.EndDate.String(),
			},
		},
	}

	for i, interest := range req.Interests {
		if i == maxInterestSearches {
			break
		}
		steps = append(steps, domain.PlanStep{
			Phase:       domain.PhaseActivities,
			Description: fmt.Sprintf("Search for %s activities in %s", interest, req.Destination),
			Tool:        domain.ToolSearchPlaces,
			Params: domain.StepParams{
				Query: interest,
				Near:  req.Destination,
				Limit: 10,
			},
		})
	}

	steps = append(steps, domain.PlanStep{
		Phase:       domain.PhaseSynthesis,
		Description: "Create final itinerary with selected activities and budget breakdown",
		Tool:        domain.ToolSynthesis,
	})

	for i := range steps {
		pinRequestParams(&steps[i], req)
	}
	return steps, domain.AllocateBudget(req.BudgetTotal)
}

// ConstraintDetails carries the context a constraint mutation needs.
type ConstraintDetails struct {
	City             string
	StartDate        string
	EndDate          string
	OriginalMaxPrice float64
	RemainingBudget  float64
	Nights           int
	RainChance       float64
	Center           *domain.GeoPoint
}

// UpdatePlanWithConstraints inserts a mitigation step for the given constraint.
// cursor is the index of the step that just executed; insertion never lands at
// or before it. It reports whether the plan changed.
func (p *Planner) UpdatePlanWithConstraints(state *domain.AgentState, cursor int, kind domain.ConstraintKind, details ConstraintDetails) (bool, error) {
	var (
		step   domain.PlanStep
		target int
	)

	switch kind {
	case domain.ConstraintBudget:
		anchor := lastStepAtOrBefore(state.Plan, cursor, func(s domain.PlanStep) bool {
			return s.Tool == domain.ToolSearchLodging && s.Mitigates == ""
		})
		if anchor < 0 {
			return false, nil
		}
		remaining := details.RemainingBudget
		step = domain.PlanStep{
			Phase:       domain.PhaseLodging,
			Description: "Search for cheaper hotel options (Plan B)",
			Tool:        domain.ToolLodgingPlanB,
			Params: domain.StepParams{
				City:             details.City,
				StartDate:        details.StartDate,
				EndDate:          details.EndDate,
				MaxPrice:         domain.PlanBNightlyCap(details.OriginalMaxPrice, remaining, details.Nights),
				OriginalMaxPrice: details.OriginalMaxPrice,
				RemainingBudget:  &remaining,
			},
			Mitigates: domain.ConstraintBudget,
		}
		target = anchor + 1

	case domain.ConstraintWeather:
		if details.RainChance <= domain.RainThreshold {
			return false, nil
		}
		anchor := lastStepAtOrBefore(state.Plan, cursor, func(s domain.PlanStep) bool {
			return s.Tool == domain.ToolForecastWeather
		})
		if anchor < 0 {
			return false, nil
		}
		step = domain.PlanStep{
			Phase:       domain.PhaseActivities,
			Description: "Search for indoor activities due to rain",
			Tool:        domain.ToolSearchPlaces,
			Params: domain.StepParams{
				Query: indoorQuery,
				Near:  details.City,
				Limit: 8,
			},
			Mitigates: domain.ConstraintWeather,
		}
		target = anchor + 1

	case domain.ConstraintGeo:
		if details.Center == nil {
			return false, nil
		}
		lat, lng := details.Center.Lat, details.Center.Lng
		step = domain.PlanStep{
			Phase:       domain.PhaseActivities,
			Description: "Find activities closer to hotel",
			Tool:        domain.ToolFilterByLocation,
			Params: domain.StepParams{
				CenterLat:        &lat,
				CenterLng:        &lng,
				MaxDistanceMiles: geoRefineMiles,
			},
			Mitigates: domain.ConstraintGeo,
		}
		target = len(state.Plan)
		if target > 0 && state.Plan[target-1].Mitigates == domain.ConstraintGeo {
			return false, nil
		}

	default:
		return false, fmt.Errorf("unsupported constraint %q", kind)
	}

	if target <= cursor {
		return false, fmt.Errorf("%w: target=%d cursor=%d", errInsertBehindCursor, target, cursor)
	}
	if target < len(state.Plan) && state.Plan[target].Mitigates == kind {
		return false, nil
	}

	state.Plan = append(state.Plan, domain.PlanStep{})
	copy(state.Plan[target+1:], state.Plan[target:])
	state.Plan[target] = step

	p.metrics.RecordReplan(string(kind))
	p.logger.Info("constraint_triggered",
		"constraint", string(kind),
		"inserted_tool", string(step.Tool),
		"position", target,
		"plan_steps", len(state.Plan),
	)
	return true, nil
}

func lastStepAtOrBefore(plan []domain.PlanStep, cursor int, match func(domain.PlanStep) bool) int {
	for i := min(cursor, len(plan)-1); i >= 0; i-- {
		if match(plan[i]) {
			return i
		}
	}
	return -1
}

// ValidatePlan reports structural problems with the state's plan and
// allocations that overshoot the remaining budget by more than 20%.
func ValidatePlan(state *domain.AgentState) []string {
	issues := planIssues(state.Plan)
	if a := state.Allocations; a != nil {
		if a.Transport+a.LodgingTarget+a.ActivitiesBuffer > state.BudgetRemaining*allocationSlack {
			issues = append(issues, "Budget allocation exceeds available budget")
		}
	}
	return issues
}

func planIssues(steps []domain.PlanStep) []string {
	issues := make([]string, 0)
	present := make(map[domain.Phase]bool, 4)
	for _, step := range steps {
		present[step.Phase] = true
	}

	missing := make([]string, 0)
	for _, phase := range []domain.Phase{domain.PhaseTransport, domain.PhaseLodging, domain.PhaseActivities, domain.PhaseSynthesis} {
		if !present[phase] {
			missing = append(missing, string(phase))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		issues = append(issues, "Missing required phases: "+strings.Join(missing, ", "))
	}

	if len(steps) > 0 {
		if steps[0].Phase != domain.PhaseTransport {
			issues = append(issues, "Plan should start with transport phase")
		}
		if present[domain.PhaseSynthesis] && steps[len(steps)-1].Phase != domain.PhaseSynthesis {
			issues = append(issues, "Synthesis should be the final phase")
		}
	}
	return issues
}

// EstimatePlanDuration is a rough wall-clock estimate in minutes.
func EstimatePlanDuration(steps []domain.PlanStep) int {
	total := 0
	for _, step := range steps {
		switch step.Tool {
		case domain.ToolFindDirections, domain.ToolSearchPlaces:
			total += 2
		case domain.ToolSearchLodging:
			total += 3
		case domain.ToolForecastWeather:
			total++
		case domain.ToolSynthesis:
			total += 5
		default:
			total += 2
		}
	}
	return total
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

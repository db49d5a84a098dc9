// Package mcpadapter exposes trip planning as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

const (
	ServerName    = "itinerary-agent"
	ServerVersion = "1.0.0"

	toolPlanTrip = "plan_trip"
	toolGetTrip  = "get_trip"
)

type Handler struct {
	planner ports.TripPlanner
	reader  ports.TripReader
	logger  *slog.Logger
}

func NewHandler(planner ports.TripPlanner, reader ports.TripReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{planner: planner, reader: reader, logger: logger}
}

// NewServer registers the trip tools on a fresh MCP server.
func (h *Handler) NewServer() *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false))
	s.AddTool(planTripTool(), h.PlanTrip)
	s.AddTool(getTripTool(), h.GetTrip)
	return s
}

func planTripTool() mcp.Tool {
	return mcp.NewTool(toolPlanTrip,
		mcp.WithDescription("Plan a budget-aware road or air trip: transport, lodging, weather-aware activities and a day-by-day schedule."),
		mcp.WithString("origin", mcp.Required(), mcp.Description("Departure city, e.g. \"Dallas, TX\".")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("Destination city, e.g. \"Austin, TX\".")),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("Arrival date, YYYY-MM-DD.")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("Departure date, YYYY-MM-DD, after start_date.")),
		mcp.WithNumber("budget_total", mcp.Required(), mcp.Description("Total budget in USD."), mcp.Min(0)),
		mcp.WithNumber("travelers", mcp.Description("Number of travelers, defaults to 1."), mcp.Min(1)),
		mcp.WithArray("interests", mcp.Description("Ordered interests such as food or museums."), mcp.WithStringItems()),
	)
}

func getTripTool() mcp.Tool {
	return mcp.NewTool(toolGetTrip,
		mcp.WithDescription("Fetch a previously planned trip by id."),
		mcp.WithString("trip_id", mcp.Required(), mcp.Description("Trip id returned by plan_trip.")),
	)
}

func (h *Handler) PlanTrip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := userRequestFromArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	trip, err := h.planner.Plan(ctx, req)
	if err != nil {
		return h.toolError(toolPlanTrip, err), nil
	}
	return tripResult(trip)
}

func (h *Handler) GetTrip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tripID, err := request.RequireString("trip_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	trip, err := h.reader.GetByID(ctx, strings.TrimSpace(tripID))
	if err != nil {
		return h.toolError(toolGetTrip, err), nil
	}
	return tripResult(trip)
}

func userRequestFromArgs(request mcp.CallToolRequest) (domain.UserRequest, error) {
	var req domain.UserRequest
	var err error
	if req.Origin, err = request.RequireString("origin"); err != nil {
		return req, err
	}
	if req.Destination, err = request.RequireString("destination"); err != nil {
		return req, err
	}
	rawStart, err := request.RequireString("start_date")
	if err != nil {
		return req, err
	}
	rawEnd, err := request.RequireString("end_date")
	if err != nil {
		return req, err
	}
	if req.StartDate, err = domain.ParseDate(rawStart); err != nil {
		return req, err
	}
	if req.EndDate, err = domain.ParseDate(rawEnd); err != nil {
		return req, err
	}
	if req.BudgetTotal, err = request.RequireFloat("budget_total"); err != nil {
		return req, err
	}
	req.Travelers = request.GetInt("travelers", 1)
	req.Interests = request.GetStringSlice("interests", []string{})
	return req, nil
}

// toolError reports input problems to the model and hides internal failures.
func (h *Handler) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrTripNotFound), domain.IsKind(err, domain.ErrTemporary):
		return mcp.NewToolResultError(err.Error())
	default:
		h.logger.Error("mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError("internal error")
	}
}

func tripResult(trip *domain.Trip) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(trip)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}

package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

func buildPlanningPrompt(req domain.UserRequest) string {
	interests := "none given"
	if len(req.Interests) > 0 {
		interests = strings.Join(req.Interests, ", ")
	}

	return fmt.Sprintf(`You are a travel planning agent. Produce an ordered execution plan for this trip.

Trip request:
- Origin: %s
- Destination: %s
- Dates: %s to %s (%d nights)
- Travelers: %d
- Total budget: $%.2f
- Interests: %s

Plan phases in order: transport, lodging, activities, synthesis.
Use only these tools:
- "maps.find_directions" (transport). Params: {"origin": string, "destination": string}
- "hotels.search" (lodging). Params: {"city": string, "start_date": "YYYY-MM-DD", "end_date": "YYYY-MM-DD", "max_price": number, "limit": number}
- "weather.forecast" (activities). Params: {"city": string, "start_date": "YYYY-MM-DD", "end_date": "YYYY-MM-DD"}
- "places.search" (activities). Params: {"query": string, "near": string, "limit": number}
- "synthesis.none" (synthesis). Params: {}

Rules:
- Start with transport and end with exactly one synthesis step.
- Add at most one places.search step per interest.
- Include "allocations" with transport, lodging_target and activities_buffer amounts that fit the budget.
- Respond with a single JSON object matching the provided schema and nothing else.`,
		req.Origin,
		req.Destination,
		req.StartDate.String(),
		req.EndDate.String(),
		req.Nights(),
		req.Travelers,
		req.BudgetTotal,
		interests,
	)
}

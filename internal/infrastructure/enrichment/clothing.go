package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

var seasonalWardrobe = map[string][]string{
	"spring": {"Light sweater", "Chinos or jeans", "Denim jacket", "Sneakers", "Sunglasses"},
	"summer": {"Breathable T-shirts", "Shorts", "Linen shirt", "Sandals", "Sunglasses"},
	"fall":   {"Flannel or knit layers", "Jeans", "Light jacket", "Ankle boots", "Scarf"},
	"winter": {"Wool sweater", "Thermal base layer", "Insulated coat", "Boots", "Beanie"},
}

var seasonalPalette = map[string][]string{
	"spring": {"Sage", "Blush", "Cream", "Sky blue"},
	"summer": {"White", "Coral", "Sand", "Turquoise"},
	"fall":   {"Olive", "Rust", "Camel", "Burgundy"},
	"winter": {"Charcoal", "Navy", "Camel", "Forest green"},
}

// ClothingAdvisor suggests a packing list. With an LLM attached it asks the
// model first and keeps the rule-based list as a fallback.
type ClothingAdvisor struct {
	llm    Completer
	logger *slog.Logger
}

func NewClothingAdvisor(llm Completer, logger *slog.Logger) *ClothingAdvisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClothingAdvisor{llm: llm, logger: logger}
}

var _ ports.ClothingAdvisor = (*ClothingAdvisor)(nil)

func (a *ClothingAdvisor) SuggestClothing(ctx context.Context, input ports.ClothingInput) (*domain.ClothingAdvice, error) {
	season := normalizeSeason(input.Season)
	expected := expectedConditions(input.Destination, season, input.Forecast)

	if a.llm != nil {
		advice, err := a.suggestWithLLM(ctx, input, season, expected)
		if err == nil {
			return advice, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("clothing_llm_failed", "destination", input.Destination, "error", err)
	}
	return ruleBasedClothing(season, expected, input.Days), nil
}

type clothingCompletion struct {
	Items   []string `json:"items"`
	Palette []string `json:"palette"`
}

func (a *ClothingAdvisor) suggestWithLLM(ctx context.Context, input ports.ClothingInput, season string, expected conditions) (*domain.ClothingAdvice, error) {
	prompt := fmt.Sprintf(
		"Suggest a packing list for a %d-day %s trip to %s. Expected weather: %s. "+
			`Return JSON {"items": [8 to 12 short clothing or accessory names], "palette": [3 or 4 color names]}.`,
		max(1, input.Days), season, input.Destination, expected,
	)
	var completion clothingCompletion
	if err := completeInto(ctx, a.llm, prompt, &completion); err != nil {
		return nil, err
	}
	items := cleanList(completion.Items, 12)
	if len(items) == 0 {
		return nil, errors.New("completion has no items")
	}
	palette := cleanList(completion.Palette, 4)
	if len(palette) == 0 {
		palette = seasonalPalette[season]
	}
	return &domain.ClothingAdvice{
		Season:     season,
		Conditions: expected.String(),
		Items:      items,
		Palette:    palette,
		Source:     SourceLLM,
	}, nil
}

func ruleBasedClothing(season string, expected conditions, days int) *domain.ClothingAdvice {
	items := append([]string(nil), seasonalWardrobe[season]...)
	if expected.rainy() {
		items = append(items, "Compact umbrella", "Waterproof rain jacket", "Water-resistant shoes")
	}
	if expected.HighF >= 85 {
		items = append(items, "Sun hat", "Sunscreen", "Reusable water bottle")
	}
	if expected.LowF <= 45 {
		items = append(items, "Warm mid-layer", "Gloves")
	}
	if days >= 5 {
		items = append(items, "Travel laundry bag")
	}
	return &domain.ClothingAdvice{
		Season:     season,
		Conditions: expected.String(),
		Items:      cleanList(items, 0),
		Palette:    append([]string(nil), seasonalPalette[season]...),
		Source:     SourceFallback,
	}
}

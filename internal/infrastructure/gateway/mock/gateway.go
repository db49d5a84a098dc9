// Package mock serves deterministic tool results from embedded fixtures.
package mock

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

const (
	WeatherSunny = "sunny"
	WeatherRainy = "rainy"

	cityPlaceholder = "{city}"
	mapsSearchURL   = "https://www.google.com/maps/search/?api=1&query="
	planBCandidates = 5
)

type Gateway struct {
	fixtures    fixtures
	weatherMode string
	logger      *slog.Logger
}

var _ ports.ToolGateway = (*Gateway)(nil)

// New parses the embedded fixtures. weatherMode "rainy" replaces every
// forecast with the rainy fixture so the weather re-plan path can be demoed.
func New(weatherMode string, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var fx fixtures
	if err := yaml.Unmarshal(fixturesYAML, &fx); err != nil {
		return nil, fmt.Errorf("parse mock fixtures: %w", err)
	}
	mode := strings.ToLower(strings.TrimSpace(weatherMode))
	if mode != WeatherRainy {
		mode = WeatherSunny
	}
	return &Gateway{fixtures: fx, weatherMode: mode, logger: logger}, nil
}

func (g *Gateway) FindRoute(ctx context.Context, origin, destination string) (domain.RouteResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RouteResult{}, err
	}
	from := strings.ToLower(origin)
	to := strings.ToLower(destination)

	leg := g.fixtures.DefaultRoute
	for _, route := range g.fixtures.Routes {
		if route.connects(from, to) {
			leg = route.routeLeg
			break
		}
	}
	return domain.RouteResult{
		Status:          domain.StatusSuccess,
		DurationMinutes: leg.DurationMinutes,
		DistanceMiles:   leg.DistanceMiles,
		GasEstimate:     leg.GasEstimate,
		Polyline:        "mock_polyline_data",
	}, nil
}

func (g *Gateway) SearchLodging(ctx context.Context, query ports.LodgingQuery) ([]domain.LodgingOption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.lodging(query.City, query.Nights(), query.MaxNightly, query.Limit), nil
}

func (g *Gateway) SearchLodgingFallback(ctx context.Context, query ports.LodgingFallbackQuery) ([]domain.LodgingOption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nights := query.Nights()
	maxNightly := domain.PlanBNightlyCap(query.OriginalMaxPrice, query.RemainingBudget, nights)
	g.logger.Info("mock_plan_b_search", "city", query.City, "max_nightly", maxNightly)
	return g.lodging(query.City, nights, maxNightly, planBCandidates), nil
}

func (g *Gateway) ForecastWeather(ctx context.Context, city string, _, _ domain.Date) (domain.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return domain.Forecast{}, err
	}
	day := g.fixtures.Weather.Default
	if g.weatherMode == WeatherRainy {
		day = g.fixtures.Weather.Rainy
	} else if known, ok := g.fixtures.Weather.Cities[cityKey(city)]; ok {
		day = known
	}
	return domain.Forecast{
		Status:     domain.StatusSuccess,
		Summary:    day.Summary,
		HighF:      day.HighF,
		LowF:       day.LowF,
		RainChance: day.RainChance,
	}, nil
}

// SearchPlaces matches the query against fixture keywords. Cities with their
// own catalogue use it; every other city gets the templates placed around
// its center.
func (g *Gateway) SearchPlaces(ctx context.Context, query, near string, limit int) ([]domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	key := cityKey(near)

	var catalogue []domain.Place
	if fixed, ok := g.fixtures.Places.Cities[key]; ok {
		for _, p := range fixed {
			if p.matches(q) {
				catalogue = append(catalogue, p.place())
			}
		}
	} else {
		center := domain.GeocodeCity(near)
		city := displayCity(near)
		for i, tpl := range g.fixtures.Places.Templates {
			if tpl.matches(q) {
				catalogue = append(catalogue, tpl.placeAround(city, center, i))
			}
		}
	}

	out := make([]domain.Place, 0, len(catalogue))
	seen := make(map[string]struct{}, len(catalogue))
	for _, p := range catalogue {
		if _, dup := seen[p.PlaceID]; dup {
			continue
		}
		seen[p.PlaceID] = struct{}{}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// lodging ranks the first limit fixture hotels under the nightly cap and
// returns the best rated one, cheaper first on ties.
func (g *Gateway) lodging(cityQuery string, nights int, maxNightly float64, limit int) []domain.LodgingOption {
	city := displayCity(cityQuery)
	center := domain.GeocodeCity(cityQuery)
	slug := strings.ReplaceAll(cityKey(cityQuery), " ", "_")

	hotels := g.fixtures.Hotels
	if limit > 0 && len(hotels) > limit {
		hotels = hotels[:limit]
	}
	options := make([]domain.LodgingOption, 0, len(hotels))
	for i, h := range hotels {
		if maxNightly > 0 && h.PricePerNight > maxNightly {
			continue
		}
		name := strings.ReplaceAll(h.Name, cityPlaceholder, city)
		options = append(options, domain.LodgingOption{
			Name:          name,
			PricePerNight: h.PricePerNight,
			TotalPrice:    h.PricePerNight * float64(nights),
			Rating:        h.Rating,
			Lat:           center.Lat + h.DLat,
			Lng:           center.Lng + h.DLng,
			Link:          mapsSearchURL + url.QueryEscape(name),
			Address:       h.Street + ", " + city,
			PlaceID:       fmt.Sprintf("mock_hotel_%s_%d", slug, i),
		})
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Rating != options[j].Rating {
			return options[i].Rating > options[j].Rating
		}
		return options[i].PricePerNight < options[j].PricePerNight
	})
	if len(options) > 1 {
		options = options[:1]
	}
	return options
}

func cityKey(location string) string {
	return strings.ToLower(domain.CityName(location))
}

func displayCity(location string) string {
	name := domain.CityName(location)
	if name == "" {
		return "Downtown"
	}
	return name
}

package live

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/resilience"
)

const (
	metersToMiles  = 0.000621371
	gasPerGallon   = 3.50
	milesPerGallon = 25.0

	defaultPlaceRating   = 4.0
	planBLodgingLimit    = 5
	defaultNightlyByTier = 100.0
)

var activityPriceByLevel = map[int]float64{0: 0, 1: 10, 2: 20, 3: 35, 4: 50}

var nightlyPriceByLevel = map[int]float64{0: 50, 1: 80, 2: 120, 3: 180, 4: 250}

type googleStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// err maps the API status field onto transport semantics so throttling is
// classified like an HTTP 429.
func (s googleStatus) err(operation string) error {
	switch s.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT":
		return &resilience.StatusError{Service: "google", Operation: operation, StatusCode: http.StatusTooManyRequests, Status: s.Status, Body: s.ErrorMessage}
	case "UNKNOWN_ERROR":
		return &resilience.StatusError{Service: "google", Operation: operation, StatusCode: http.StatusBadGateway, Status: s.Status, Body: s.ErrorMessage}
	default:
		return fmt.Errorf("google %s status %s: %s", operation, s.Status, s.ErrorMessage)
	}
}

type directionsResponse struct {
	googleStatus
	Routes []struct {
		Legs []struct {
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

func (g *Gateway) FindRoute(ctx context.Context, origin, destination string) (domain.RouteResult, error) {
	if g.mapsKey == "" {
		return domain.RouteResult{}, missingKey("google directions")
	}
	query := url.Values{
		"origin":      {origin},
		"destination": {destination},
		"units":       {"imperial"},
		"key":         {g.mapsKey},
	}
	var resp directionsResponse
	if err := g.getJSON(ctx, "google", "directions", g.mapsURL+"/directions/json", query, &resp); err != nil {
		return domain.RouteResult{}, err
	}
	if err := resp.err("directions"); err != nil {
		return domain.RouteResult{}, domain.WrapError(domain.ErrGatewayFailed, "google directions", err)
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return domain.RouteResult{}, domain.WrapError(domain.ErrGatewayFailed, "google directions", fmt.Errorf("no route from %s to %s", origin, destination))
	}

	route := resp.Routes[0]
	leg := route.Legs[0]
	miles := leg.Distance.Value * metersToMiles
	return domain.RouteResult{
		Status:          domain.StatusSuccess,
		DurationMinutes: leg.Duration.Value / 60,
		DistanceMiles:   round(miles, 1),
		GasEstimate:     round(miles/milesPerGallon*gasPerGallon, 2),
		Polyline:        route.OverviewPolyline.Points,
	}, nil
}

type placeResult struct {
	Name             string   `json:"name"`
	Types            []string `json:"types"`
	Rating           *float64 `json:"rating"`
	PriceLevel       *int     `json:"price_level"`
	PlaceID          string   `json:"place_id"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         struct {
		Location *struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type textSearchResponse struct {
	googleStatus
	Results []placeResult `json:"results"`
}

func (g *Gateway) textSearch(ctx context.Context, operation string, query url.Values) ([]placeResult, error) {
	if g.mapsKey == "" {
		return nil, missingKey("google places")
	}
	query.Set("key", g.mapsKey)
	var resp textSearchResponse
	if err := g.getJSON(ctx, "google", operation, g.mapsURL+"/place/textsearch/json", query, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(operation); err != nil {
		return nil, domain.WrapError(domain.ErrGatewayFailed, "google "+operation, err)
	}
	return resp.Results, nil
}

func (g *Gateway) SearchPlaces(ctx context.Context, query, near string, limit int) ([]domain.Place, error) {
	results, err := g.textSearch(ctx, "places", url.Values{"query": {query + " in " + near}})
	if err != nil {
		return nil, err
	}
	places := make([]domain.Place, 0, len(results))
	for _, r := range results {
		if limit > 0 && len(places) >= limit {
			break
		}
		if r.Geometry.Location == nil {
			continue
		}
		rating := defaultPlaceRating
		if r.Rating != nil {
			rating = *r.Rating
		}
		places = append(places, domain.Place{
			Name:    r.Name,
			Tags:    r.Types,
			Rating:  rating,
			Price:   ActivityPrice(r.PriceLevel),
			Lat:     r.Geometry.Location.Lat,
			Lng:     r.Geometry.Location.Lng,
			PlaceID: r.PlaceID,
			Link:    "https://maps.google.com/?place_id=" + r.PlaceID,
			Address: r.FormattedAddress,
		})
	}
	g.logger.Debug("places_search", "query", query, "near", near, "results", len(places))
	return places, nil
}

func (g *Gateway) SearchLodging(ctx context.Context, query ports.LodgingQuery) ([]domain.LodgingOption, error) {
	return g.searchHotels(ctx, query.City, query.Nights(), query.MaxNightly, query.Limit)
}

func (g *Gateway) SearchLodgingFallback(ctx context.Context, query ports.LodgingFallbackQuery) ([]domain.LodgingOption, error) {
	nights := query.Nights()
	maxNightly := domain.PlanBNightlyCap(query.OriginalMaxPrice, query.RemainingBudget, nights)
	g.logger.Info("plan_b_hotel_search", "city", query.City, "max_nightly", maxNightly, "remaining_budget", query.RemainingBudget)
	return g.searchHotels(ctx, query.City, nights, maxNightly, planBLodgingLimit)
}

// searchHotels ranks the first limit rated hotels under the nightly cap, best
// rated first and cheaper first on ties, and returns only the top pick.
func (g *Gateway) searchHotels(ctx context.Context, city string, nights int, maxNightly float64, limit int) ([]domain.LodgingOption, error) {
	results, err := g.textSearch(ctx, "hotels", url.Values{
		"query": {"hotels in " + city},
		"type":  {"lodging"},
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	options := make([]domain.LodgingOption, 0, len(results))
	for _, r := range results {
		if r.Rating == nil || r.Geometry.Location == nil {
			continue
		}
		nightly := NightlyEstimate(r.PriceLevel, *r.Rating)
		if maxNightly > 0 && nightly > maxNightly {
			continue
		}
		options = append(options, domain.LodgingOption{
			Name:          r.Name,
			PricePerNight: nightly,
			TotalPrice:    round(nightly*float64(nights), 2),
			Rating:        *r.Rating,
			Lat:           r.Geometry.Location.Lat,
			Lng:           r.Geometry.Location.Lng,
			Link:          "https://www.google.com/maps/place/?q=place_id:" + r.PlaceID,
			Address:       r.FormattedAddress,
			PlaceID:       r.PlaceID,
		})
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Rating != options[j].Rating {
			return options[i].Rating > options[j].Rating
		}
		return options[i].PricePerNight < options[j].PricePerNight
	})
	if len(options) == 0 {
		g.logger.Warn("no_hotels_within_budget", "city", city, "max_nightly", maxNightly)
		return options, nil
	}
	top := options[0]
	g.logger.Info("hotel_selected", "city", city, "name", top.Name, "price_per_night", top.PricePerNight, "rating", top.Rating)
	return options[:1], nil
}

// ActivityPrice maps a price level to a per-person cost. A missing level
// stays nil so the selector can apply its own defaults.
func ActivityPrice(level *int) *float64 {
	if level == nil {
		return nil
	}
	price, ok := activityPriceByLevel[*level]
	if !ok {
		price = 15
	}
	return &price
}

// NightlyEstimate scales the tier price by rating, ten percent per star away from 4.
func NightlyEstimate(level *int, rating float64) float64 {
	base := defaultNightlyByTier
	if level != nil {
		if tier, ok := nightlyPriceByLevel[*level]; ok {
			base = tier
		}
	}
	return round(base*(1+(rating-4)*0.1), 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

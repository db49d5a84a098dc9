package mock

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

type fixtures struct {
	Routes       []routeFixture  `yaml:"routes"`
	DefaultRoute routeLeg        `yaml:"default_route"`
	Weather      weatherFixtures `yaml:"weather"`
	Hotels       []hotelFixture  `yaml:"hotels"`
	Places       placeFixtures   `yaml:"places"`
}

type routeLeg struct {
	DurationMinutes int     `yaml:"duration_minutes"`
	DistanceMiles   float64 `yaml:"distance_miles"`
	GasEstimate     float64 `yaml:"gas_estimate"`
}

type routeFixture struct {
	Between  []string `yaml:"between"`
	routeLeg `yaml:",inline"`
}

// connects matches either direction.
func (r routeFixture) connects(from, to string) bool {
	if len(r.Between) != 2 {
		return false
	}
	a, b := r.Between[0], r.Between[1]
	return (strings.Contains(from, a) && strings.Contains(to, b)) ||
		(strings.Contains(from, b) && strings.Contains(to, a))
}

type weatherDay struct {
	Summary    string  `yaml:"summary"`
	HighF      int     `yaml:"high_f"`
	LowF       int     `yaml:"low_f"`
	RainChance float64 `yaml:"rain_chance"`
}

type weatherFixtures struct {
	Default weatherDay            `yaml:"default"`
	Rainy   weatherDay            `yaml:"rainy"`
	Cities  map[string]weatherDay `yaml:"cities"`
}

type hotelFixture struct {
	Name          string  `yaml:"name"`
	PricePerNight float64 `yaml:"price_per_night"`
	Rating        float64 `yaml:"rating"`
	DLat          float64 `yaml:"dlat"`
	DLng          float64 `yaml:"dlng"`
	Street        string  `yaml:"street"`
}

type placeFixture struct {
	Name     string   `yaml:"name"`
	Tags     []string `yaml:"tags"`
	Keywords []string `yaml:"keywords"`
	Rating   float64  `yaml:"rating"`
	Price    *float64 `yaml:"price"`
	Lat      float64  `yaml:"lat"`
	Lng      float64  `yaml:"lng"`
	DLat     float64  `yaml:"dlat"`
	DLng     float64  `yaml:"dlng"`
	Street   string   `yaml:"street"`
	PlaceID  string   `yaml:"place_id"`
	Link     string   `yaml:"link"`
	Address  string   `yaml:"address"`
}

type placeFixtures struct {
	Cities    map[string][]placeFixture
	Templates []placeFixture
}

// UnmarshalYAML splits the "templates" key from per-city catalogues.
func (p *placeFixtures) UnmarshalYAML(unmarshal func(any) error) error {
	var raw map[string][]placeFixture
	if err := unmarshal(&raw); err != nil {
		return err
	}
	p.Templates = raw["templates"]
	delete(raw, "templates")
	p.Cities = raw
	return nil
}

func (p placeFixture) matches(query string) bool {
	for _, kw := range p.Keywords {
		if strings.Contains(query, kw) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(p.Name), query)
}

func (p placeFixture) place() domain.Place {
	return domain.Place{
		Name:    p.Name,
		Tags:    append([]string(nil), p.Tags...),
		Rating:  p.Rating,
		Price:   copyPrice(p.Price),
		Lat:     p.Lat,
		Lng:     p.Lng,
		PlaceID: p.PlaceID,
		Link:    p.Link,
		Address: p.Address,
	}
}

func (p placeFixture) placeAround(city string, center domain.GeoPoint, idx int) domain.Place {
	name := strings.ReplaceAll(p.Name, cityPlaceholder, city)
	return domain.Place{
		Name:    name,
		Tags:    append([]string(nil), p.Tags...),
		Rating:  p.Rating,
		Price:   copyPrice(p.Price),
		Lat:     center.Lat + p.DLat,
		Lng:     center.Lng + p.DLng,
		PlaceID: fmt.Sprintf("mock_place_%s_%d", strings.ToLower(strings.ReplaceAll(city, " ", "_")), idx),
		Link:    mapsSearchURL + url.QueryEscape(name),
		Address: p.Street + ", " + city,
	}
}

func copyPrice(price *float64) *float64 {
	if price == nil {
		return nil
	}
	v := *price
	return &v
}

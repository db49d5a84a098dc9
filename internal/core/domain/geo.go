package domain

import (
	"math"
	"strings"
)

const earthRadiusMiles = 3956.0

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMiles is the great-circle distance between two points.
func DistanceMiles(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

var cityCenters = map[string]GeoPoint{
	"austin":      {Lat: 30.2672, Lng: -97.7431},
	"dallas":      {Lat: 32.7767, Lng: -96.7970},
	"houston":     {Lat: 29.7604, Lng: -95.3698},
	"san antonio": {Lat: 29.4241, Lng: -98.4936},
	"new york":    {Lat: 40.7128, Lng: -74.0060},
	"los angeles": {Lat: 34.0522, Lng: -118.2437},
	"chicago":     {Lat: 41.8781, Lng: -87.6298},
	"miami":       {Lat: 25.7617, Lng: -80.1918},
	"seattle":     {Lat: 47.6062, Lng: -122.3321},
	"denver":      {Lat: 39.7392, Lng: -104.9903},
	"phoenix":     {Lat: 33.4484, Lng: -112.0740},
}

// DefaultCityCenter is used when a city is not in the lookup table.
var DefaultCityCenter = cityCenters["austin"]

// LookupCity resolves a free-text city ("Austin, TX") against the built-in table.
func LookupCity(city string) (GeoPoint, bool) {
	name := strings.ToLower(strings.TrimSpace(city))
	if idx := strings.Index(name, ","); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	point, ok := cityCenters[name]
	return point, ok
}

// GeocodeCity is LookupCity with the default center for unknown cities.
func GeocodeCity(city string) GeoPoint {
	if point, ok := LookupCity(city); ok {
		return point
	}
	return DefaultCityCenter
}

// CityName strips a trailing region ("Austin, TX" -> "Austin").
func CityName(location string) string {
	name := strings.TrimSpace(location)
	if idx := strings.Index(name, ","); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}

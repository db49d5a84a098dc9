package live

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Pop     float64 `json:"pop"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	} `json:"list"`
}

// ForecastWeather aggregates the 3-hour forecast over the stay. Without dates
// the next 24 hours are used.
func (g *Gateway) ForecastWeather(ctx context.Context, city string, start, end domain.Date) (domain.Forecast, error) {
	if g.weatherKey == "" {
		return domain.Forecast{}, missingKey("openweather forecast")
	}
	query := url.Values{
		"q":     {city},
		"appid": {g.weatherKey},
		"units": {"imperial"},
	}
	var resp forecastResponse
	if err := g.getJSON(ctx, "openweather", "forecast", g.weatherURL+"/forecast", query, &resp); err != nil {
		return domain.Forecast{}, err
	}

	entries := resp.List
	if !start.IsZero() {
		if end.IsZero() {
			end = start.AddDays(1)
		}
		from := start.Time.Unix()
		to := end.Time.Add(24*time.Hour - time.Second).Unix()
		entries = entries[:0:0]
		for _, e := range resp.List {
			if e.Dt >= from && e.Dt <= to {
				entries = append(entries, e)
			}
		}
	} else if len(entries) > 8 {
		entries = entries[:8]
	}
	if len(entries) == 0 {
		return domain.Forecast{}, domain.WrapError(domain.ErrGatewayFailed, "openweather forecast", fmt.Errorf("no forecast data for %s", city))
	}

	high, low := math.Inf(-1), math.Inf(1)
	rain := 0.0
	cloudy := false
	for _, e := range entries {
		high = math.Max(high, e.Main.Temp)
		low = math.Min(low, e.Main.Temp)
		rain = math.Max(rain, e.Pop)
		for _, w := range e.Weather {
			if strings.Contains(w.Main, "Cloud") {
				cloudy = true
			}
		}
	}

	summary := "Sunny"
	switch {
	case rain > domain.RainThreshold:
		summary = "Rainy"
	case cloudy:
		summary = "Partly Cloudy"
	}
	return domain.Forecast{
		Status:     domain.StatusSuccess,
		Summary:    summary,
		HighF:      int(math.Round(high)),
		LowF:       int(math.Round(low)),
		RainChance: round(rain, 2),
	}, nil
}

// Package live calls Google Maps and OpenWeather over HTTP.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/resilience"
)

const (
	DefaultMapsBaseURL    = "https://maps.googleapis.com/maps/api"
	DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
)

type Options struct {
	MapsAPIKey     string
	WeatherAPIKey  string
	MapsBaseURL    string
	WeatherBaseURL string
	Timeout        time.Duration
	Executor       *resilience.Executor
	Logger         *slog.Logger
}

type Gateway struct {
	mapsKey    string
	weatherKey string
	mapsURL    string
	weatherURL string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

var _ ports.ToolGateway = (*Gateway)(nil)

func New(opts Options) *Gateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	executor := opts.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.GatewayConfig(timeout), logger)
	}
	return &Gateway{
		mapsKey:    strings.TrimSpace(opts.MapsAPIKey),
		weatherKey: strings.TrimSpace(opts.WeatherAPIKey),
		mapsURL:    baseOrDefault(opts.MapsBaseURL, DefaultMapsBaseURL),
		weatherURL: baseOrDefault(opts.WeatherBaseURL, DefaultWeatherBaseURL),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
		logger:     logger,
	}
}

func (g *Gateway) getJSON(ctx context.Context, service, operation, endpoint string, query url.Values, out any) error {
	err := g.executor.Execute(ctx, service+"."+operation, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s request: %w", service, operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewStatusError(service, operation, resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}, resilience.ClassifyHTTP)
	if err != nil {
		return domain.WrapError(domain.ErrGatewayFailed, service+" "+operation, resilience.WrapTemporary(operation, err))
	}
	return nil
}

func missingKey(service string) error {
	return domain.WrapError(domain.ErrGatewayFailed, service, fmt.Errorf("no API key configured"))
}

func baseOrDefault(base, fallback string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = fallback
	}
	return strings.TrimRight(base, "/")
}

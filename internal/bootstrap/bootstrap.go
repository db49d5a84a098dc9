package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/itinerary-agent/internal/config"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
	"github.com/kirillkom/itinerary-agent/internal/core/usecase"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/cache/redis"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/enrichment"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/gateway/live"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/gateway/mock"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/llm/openai"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/queue/nats"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/repository/memory"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/itinerary-agent/internal/infrastructure/resilience"
)

type Options struct {
	Logger  *slog.Logger
	Metrics ports.AgentMetrics
}

type App struct {
	Config config.Config

	Queue   ports.TripQueue
	Repo    ports.TripRepository
	TripsUC *usecase.TripPlanUseCase

	closers []func()
}

// llmClient is satisfied by both LLM providers.
type llmClient interface {
	ports.PlanGenerator
	enrichment.Completer
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	gateway, err := app.buildGateway(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := app.buildRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Repo = repo

	if cfg.NATSURL != "" {
		queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, queueOptions(cfg, logger))
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.closers = append(app.closers, queue.Close)
	}

	llm, err := buildLLM(cfg, logger)
	if err != nil {
		return nil, err
	}

	var generator ports.PlanGenerator
	var completer enrichment.Completer
	if llm != nil {
		generator = llm
		if cfg.EnrichWithLLM {
			completer = llm
		}
	}

	planner, err := usecase.NewPlanner(generator, usecase.PlannerOptions{
		Timeout: cfg.PlannerTimeout,
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("init planner: %w", err)
	}
	executor := usecase.NewExecutor(gateway, planner, usecase.ExecutorOptions{
		StepTimeout: cfg.StepTimeout,
		Logger:      logger,
		Metrics:     opts.Metrics,
	})
	selector := usecase.NewActivitySelector(cfg.MaxActivities, logger)
	synthesizer := usecase.NewSynthesizer(usecase.SynthesizerOptions{
		Clothing:      enrichment.NewClothingAdvisor(completer, logger),
		Music:         enrichment.NewMusicAdvisor(completer, logger),
		History:       enrichment.NewHistoryWriter(completer, logger),
		EnrichTimeout: cfg.EnrichTimeout,
		Logger:        logger,
	})

	app.TripsUC = usecase.NewTripPlanUseCase(
		planner,
		executor,
		selector,
		synthesizer,
		repo,
		app.Queue,
		xlsx.NewExporter(),
		usecase.TripPlanOptions{
			ThreadTravelers: cfg.ThreadTravelers,
			Logger:          logger,
			Metrics:         opts.Metrics,
		},
	)

	logger.Info("bootstrap_ready",
		"gateway_mode", cfg.GatewayMode,
		"llm_provider", cfg.LLMProvider,
		"postgres", cfg.PostgresDSN != "",
		"nats", cfg.NATSURL != "",
		"redis", cfg.RedisURL != "",
	)
	ok = true
	return app, nil
}

// queueOptions publishes through the same retry and breaker policy as the
// LLM clients.
func queueOptions(cfg config.Config, logger *slog.Logger) nats.Options {
	return nats.Options{
		HandlerTimeout:     cfg.PlannerTimeout + cfg.StepTimeout*8 + cfg.EnrichTimeout,
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
		Logger:             logger,
	}
}

func (a *App) buildGateway(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.ToolGateway, error) {
	var gateway ports.ToolGateway
	switch cfg.GatewayMode {
	case config.GatewayModeLive:
		gateway = live.New(live.Options{
			MapsAPIKey:    cfg.GoogleMapsAPIKey,
			WeatherAPIKey: cfg.OpenWeatherAPIKey,
			Timeout:       cfg.GatewayTimeout,
			Executor:      resilience.NewExecutor(resilience.GatewayConfig(cfg.GatewayTimeout), logger),
			Logger:        logger,
		})
	case config.GatewayModeMock:
		mockGateway, err := mock.New(cfg.WeatherDemoMode, logger)
		if err != nil {
			return nil, fmt.Errorf("init mock gateway: %w", err)
		}
		gateway = mockGateway
	default:
		return nil, fmt.Errorf("unknown GATEWAY_MODE %q", cfg.GatewayMode)
	}

	if cfg.RedisURL == "" {
		return gateway, nil
	}
	rdb, err := redis.Open(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init gateway cache: %w", err)
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return redis.NewCachedGateway(gateway, rdb, cfg.CacheTTL, logger), nil
}

func (a *App) buildRepository(ctx context.Context, cfg config.Config) (ports.TripRepository, error) {
	if cfg.PostgresDSN == "" {
		return memory.NewTripRepository(), nil
	}
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	repo := postgres.NewTripRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

func buildLLM(cfg config.Config, logger *slog.Logger) (llmClient, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderNone:
		return nil, nil
	case config.LLMProviderOllama:
		executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
		return ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.PlannerTimeout, executor), nil
	case config.LLMProviderOpenAI:
		return openai.New(openai.Options{
			BaseURL:  cfg.LLMAPIBase,
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			Timeout:  cfg.PlannerTimeout,
			Executor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodsave-ai/foodsave/db"
	"github.com/foodsave-ai/foodsave/internal/agent"
	"github.com/foodsave-ai/foodsave/internal/config"
	"github.com/foodsave-ai/foodsave/internal/log"
	"github.com/foodsave-ai/foodsave/internal/observability"
	"github.com/foodsave-ai/foodsave/internal/pantry"
	"github.com/foodsave-ai/foodsave/internal/session"
)

// Setup creates and initializes the application. Call Close to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first: Genkit's TracerProvider must have its span
	// processor before genkit.Init.
	otelShutdown, err := observability.Setup(ctx, observability.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Telemetry.Environment,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	a.otelShutdown = otelShutdown

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	sessions, err := session.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	a.Sessions = sessions

	pantryStore, err := pantry.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating pantry store: %w", err)
	}
	a.Pantry = pantryStore

	if err := provideAgents(a); err != nil {
		return nil, err
	}

	return a, nil
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
//
// The Ollama plugin is always loaded because Bielik runs on Ollama
// regardless of the default provider. Ollama has no model discovery, so
// every model served through it is registered explicitly here.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}

	var g *genkit.Genkit
	switch cfg.Provider {
	case config.ProviderOllama:
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)

	default: // config.ProviderGemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}, ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
	}

	ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
		Name: cfg.BielikModel,
		Type: "chat",
	}, nil)

	logger.Info("initialized genkit",
		"provider", cfg.Provider,
		"model", cfg.FullModelName(),
		"bielik", cfg.FullBielikModelName(),
	)
	return g, nil
}

// provideAgents builds the domain agents and the orchestrator.
func provideAgents(a *App) error {
	cfg, logger := a.Config, a.Logger

	search, err := agent.NewSearch(agent.SearchConfig{
		BaseURL: cfg.SearXNG.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating search agent: %w", err)
	}

	conversation, err := agent.NewConversation(agent.ConversationConfig{
		Genkit:       a.Genkit,
		Logger:       logger,
		BielikModel:  cfg.FullBielikModelName(),
		DefaultModel: cfg.FullModelName(),
		Searcher:     search,
	})
	if err != nil {
		return fmt.Errorf("creating conversation agent: %w", err)
	}

	weather, err := agent.NewWeather(agent.WeatherConfig{
		Providers: []agent.WeatherProvider{
			{
				Name:     agent.ProviderWeatherAPI,
				BaseURL:  cfg.Weather.WeatherAPIBase,
				APIKey:   cfg.Weather.WeatherAPIKey,
				Priority: 1,
			},
			{
				Name:     agent.ProviderOpenWeatherMap,
				BaseURL:  cfg.Weather.OpenWeatherMapBase,
				APIKey:   cfg.Weather.OpenWeatherMapKey,
				Priority: 2,
			},
		},
		Logger:          logger,
		DefaultLocation: cfg.Weather.DefaultLocation,
	})
	if err != nil {
		return fmt.Errorf("creating weather agent: %w", err)
	}
	a.Weather = weather

	// OCR runs on the default (multimodal) model, never on Bielik.
	ocr, err := agent.NewVisionOCR(a.Genkit, cfg.FullModelName(), logger)
	if err != nil {
		return fmt.Errorf("creating vision OCR: %w", err)
	}
	receipt, err := agent.NewReceipt(agent.ReceiptConfig{Logger: logger, OCR: ocr})
	if err != nil {
		return fmt.Errorf("creating receipt agent: %w", err)
	}
	a.Receipts = receipt

	orchestrator, err := agent.New(agent.Config{
		Handlers: map[agent.Type]agent.Handler{
			agent.TypeGeneral:  conversation,
			agent.TypeCooking:  conversation.CookingHandler(),
			agent.TypeShopping: conversation.ShoppingHandler(),
			agent.TypeWeather:  weather,
			agent.TypeSearch:   search,
			agent.TypeReceipt:  receipt,
		},
		Sessions:           a.Sessions,
		Logger:             logger,
		MaxHistoryMessages: cfg.MaxHistoryMessages,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Orchestrator = orchestrator

	return nil
}

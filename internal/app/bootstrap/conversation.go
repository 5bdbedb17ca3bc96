package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/wolfman30/fieldservice-scheduler/internal/audit"
	appconfig "github.com/wolfman30/fieldservice-scheduler/internal/config"
	"github.com/wolfman30/fieldservice-scheduler/internal/conversation"
	"github.com/wolfman30/fieldservice-scheduler/internal/dispatch"
	"github.com/wolfman30/fieldservice-scheduler/internal/notify"
	"github.com/wolfman30/fieldservice-scheduler/internal/observability/metrics"
	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/internal/schedule"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// ErrProviderNotConfigured is returned for an LLM provider without credentials.
var ErrProviderNotConfigured = errors.New("bootstrap: llm provider not configured")

// BuildLLMClient returns the configured provider, wrapped with the fallback
// provider when one is set. It returns a nil client when neither has
// credentials. The returned cleanup releases provider connections.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	if cfg == nil {
		return nil, func() {}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	primary, closePrimary, err := buildProvider(ctx, cfg.LLMProvider, cfg, awsCfg)
	switch {
	case errors.Is(err, ErrProviderNotConfigured):
		logger.Warn("primary llm provider not configured", "provider", cfg.LLMProvider)
	case err != nil:
		return nil, cleanup, err
	default:
		closers = append(closers, closePrimary)
	}

	var fallback conversation.LLMClient
	if cfg.LLMFallbackProvider != "" && cfg.LLMFallbackProvider != cfg.LLMProvider {
		fb, closeFallback, err := buildProvider(ctx, cfg.LLMFallbackProvider, cfg, awsCfg)
		switch {
		case errors.Is(err, ErrProviderNotConfigured):
			logger.Warn("fallback llm provider not configured", "provider", cfg.LLMFallbackProvider)
		case err != nil:
			cleanup()
			return nil, func() {}, err
		default:
			closers = append(closers, closeFallback)
			fallback = fb
		}
	}

	if primary == nil {
		if fallback == nil {
			return nil, cleanup, nil
		}
		return fallback, cleanup, nil
	}
	return conversation.NewFallbackLLMClient(primary, fallback, logger), cleanup, nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg *aws.Config) (conversation.LLMClient, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, noop, ErrProviderNotConfigured
		}
		return conversation.NewOpenAILLMClient(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel), noop, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, noop, ErrProviderNotConfigured
		}
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	case "bedrock":
		if cfg.BedrockModelID == "" || awsCfg == nil {
			return nil, noop, ErrProviderNotConfigured
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID), noop, nil
	case "", "none":
		return nil, noop, ErrProviderNotConfigured
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}

// SchedulerDeps are the collaborators of the conversation engine.
type SchedulerDeps struct {
	Store    records.Store
	Redis    *redis.Client
	LLM      conversation.LLMClient
	Audit    *audit.Store
	Bookings *notify.BookingNotifier
	Metrics  *metrics.SchedulerMetrics
}

// BuildEngine assembles the dispatch components and the conversation engine.
// Session, history and fairness state live in Redis when a client is given.
func BuildEngine(cfg *appconfig.Config, deps SchedulerDeps, logger *logging.Logger) *conversation.Engine {
	if logger == nil {
		logger = logging.Default()
	}
	generator := schedule.NewGenerator(cfg.LunchStart, logger)
	availability := dispatch.NewAvailability(deps.Store)

	engineDeps := conversation.EngineDeps{
		Customers: deps.Store,
		Slots:     dispatch.NewSlotFinder(deps.Store, availability, generator, logger),
		Confirmer: dispatch.NewConfirmer(availability, deps.Store, generator, cfg.FallbackRange, logger),
		Metrics:   deps.Metrics,
	}

	var fairness dispatch.FairnessStore
	if deps.Redis != nil {
		fairness = dispatch.NewRedisFairnessStore(deps.Redis)
		engineDeps.Sessions = conversation.NewRedisSessionStore(deps.Redis, cfg.SessionTTL)
		engineDeps.History = conversation.NewRedisHistoryStore(deps.Redis, cfg.SessionTTL)
	}
	engineDeps.Offers = dispatch.NewRanker(deps.Store, availability, fairness, generator, logger,
		dispatch.WithSearchDays(cfg.SearchHorizonDays))

	if deps.LLM != nil {
		engineDeps.YesNo = conversation.NewLLMYesNoInterpreter(deps.LLM)
		engineDeps.DateTime = conversation.NewLLMDateTimeInterpreter(deps.LLM)
	} else {
		logger.Warn("no llm provider; using keyword and literal date interpreters")
		engineDeps.YesNo = conversation.KeywordYesNoInterpreter{}
		engineDeps.DateTime = conversation.LiteralDateTimeInterpreter{}
	}
	if deps.Audit != nil {
		engineDeps.Audit = deps.Audit
	}
	if deps.Bookings != nil {
		engineDeps.Bookings = deps.Bookings
	}
	return conversation.NewEngine(engineDeps, logger)
}

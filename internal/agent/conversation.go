package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// systemPrompt frames every LLM conversation. The assistant answers in
// the user's language; the prompt itself stays in Polish because that is
// the product's primary audience.
const systemPrompt = `Jesteś asystentem FoodSave. Pomagasz w zarządzaniu spiżarnią,
planowaniu posiłków, zakupach i ograniczaniu marnowania żywności.
Odpowiadaj zwięźle, w języku użytkownika.`

// fallbackLLMResponse is used when the model returns empty text.
const fallbackLLMResponse = "Przepraszam, nie potrafię teraz odpowiedzieć. Spróbuj przeformułować pytanie."

// webContextTimeout bounds the optional search-context lookup so a slow
// search backend cannot stall the whole answer.
const webContextTimeout = 8 * time.Second

// Searcher provides web context for a query. Implemented by the SearXNG
// client; nil disables web context entirely.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error)
}

// SearchHit is one web search result.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ConversationConfig configures the general conversation agent.
type ConversationConfig struct {
	Genkit *genkit.Genkit
	Logger log.Logger

	// BielikModel and DefaultModel are provider-qualified model names,
	// selected per command by the useBielik flag.
	BielikModel  string
	DefaultModel string

	// Searcher supplies web context when a command asks for it. Optional.
	Searcher Searcher

	// Retry and rate limiting for the LLM call. Zero values use defaults.
	Retry       RetryConfig
	RateLimiter *rate.Limiter
}

// Conversation is the general-purpose chat agent. It also backs the
// cooking and shopping agent types, which differ only in the context
// hint prepended to the task.
type Conversation struct {
	g            *genkit.Genkit
	logger       log.Logger
	bielikModel  string
	defaultModel string
	searcher     Searcher
	retry        RetryConfig
	limiter      *rate.Limiter
}

// NewConversation creates the conversation agent.
func NewConversation(cfg ConversationConfig) (*Conversation, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.BielikModel == "" || cfg.DefaultModel == "" {
		return nil, errors.New("both model names are required")
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Conversation{
		g:            cfg.Genkit,
		logger:       cfg.Logger,
		bielikModel:  cfg.BielikModel,
		defaultModel: cfg.DefaultModel,
		searcher:     cfg.Searcher,
		retry:        retry,
		limiter:      limiter,
	}, nil
}

// Handle implements Handler for TypeGeneral.
func (a *Conversation) Handle(ctx context.Context, cmd Command) (*Response, error) {
	return a.respond(ctx, cmd, "")
}

// CookingHandler returns a Handler for TypeCooking.
func (a *Conversation) CookingHandler() Handler {
	return HandlerFunc(func(ctx context.Context, cmd Command) (*Response, error) {
		return a.respond(ctx, cmd,
			"Kontekst: użytkownik pyta o gotowanie lub przepisy. Uwzględnij produkty ze spiżarni, jeśli są podane.")
	})
}

// ShoppingHandler returns a Handler for TypeShopping.
func (a *Conversation) ShoppingHandler() Handler {
	return HandlerFunc(func(ctx context.Context, cmd Command) (*Response, error) {
		return a.respond(ctx, cmd,
			"Kontekst: użytkownik planuje zakupy. Pomóż ułożyć listę i podpowiedz zamienniki.")
	})
}

func (a *Conversation) respond(ctx context.Context, cmd Command, contextHint string) (*Response, error) {
	model := a.defaultModel
	if cmd.UseBielik {
		model = a.bielikModel
	}

	webContext := a.webContext(ctx, cmd)

	var sb strings.Builder
	if contextHint != "" {
		sb.WriteString(contextHint)
		sb.WriteString("\n\n")
	}
	if webContext != "" {
		sb.WriteString("Wyniki z internetu:\n")
		sb.WriteString(webContext)
		sb.WriteString("\n\n")
	}
	sb.WriteString(cmd.Task)

	messages := append(copyMessages(cmd.History),
		ai.NewUserMessage(ai.NewTextPart(sb.String())))

	resp, err := a.generateWithRetry(ctx, model, messages)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		a.logger.Warn("model returned empty response",
			"model", model, "session_id", cmd.SessionID)
		text = fallbackLLMResponse
	}

	return &Response{
		Text: text,
		State: map[string]any{
			"model":          model,
			"use_perplexity": cmd.UsePerplexity,
			"history_length": len(cmd.History) + 2,
		},
	}, nil
}

// webContext fetches search results for the task when the command asks
// for external search. Failures degrade to no context, never to an error.
func (a *Conversation) webContext(ctx context.Context, cmd Command) string {
	if !cmd.UsePerplexity || a.searcher == nil {
		return ""
	}
	searchCtx, cancel := context.WithTimeout(ctx, webContextTimeout)
	defer cancel()

	hits, err := a.searcher.Search(searchCtx, cmd.Task, 3)
	if err != nil {
		a.logger.Debug("web context lookup failed", "error", err)
		return ""
	}

	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "- %s: %s\n", h.Title, h.Snippet)
	}
	return sb.String()
}

func (a *Conversation) generateWithRetry(ctx context.Context, model string, messages []*ai.Message) (*ai.ModelResponse, error) {
	var lastErr error
	delay := a.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= a.retry.MaxRetries; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := genkit.Generate(ctx, a.g,
			ai.WithModelName(model),
			ai.WithSystem(systemPrompt),
			ai.WithMessages(messages...),
		)
		if err == nil {
			a.logger.Debug("generate succeeded",
				"model", model,
				"attempts", attempt+1,
				"elapsed", time.Since(start))
			return resp, nil
		}
		lastErr = err

		if !retryableError(err) {
			return nil, err
		}
		if attempt == a.retry.MaxRetries {
			break
		}

		a.logger.Debug("retrying generate",
			"attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, a.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries: %w", a.retry.MaxRetries, lastErr)
}

// copyMessages shallow-copies the history slice so appends never alias
// the caller's backing array.
func copyMessages(msgs []*ai.Message) []*ai.Message {
	out := make([]*ai.Message, len(msgs))
	copy(out, msgs)
	return out
}

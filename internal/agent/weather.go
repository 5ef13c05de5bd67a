package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	gocache "github.com/patrickmn/go-cache"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// Weather provider names. Parsing of provider payloads is keyed on these.
const (
	ProviderWeatherAPI     = "weatherapi"
	ProviderOpenWeatherMap = "openweathermap"
)

// weatherCacheTTL is how long one location's reading stays fresh.
const weatherCacheTTL = 15 * time.Minute

// ErrNoWeatherProvider indicates no provider is configured or all failed.
var ErrNoWeatherProvider = errors.New("no weather provider available")

// WeatherProvider is one upstream weather API. Providers without an API
// key are skipped; lower Priority wins.
type WeatherProvider struct {
	Name     string
	BaseURL  string
	APIKey   string
	Priority int
}

// WeatherReport is a current-conditions reading for one location.
type WeatherReport struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Provider    string  `json:"provider"`
}

// WeatherConfig configures the weather agent.
type WeatherConfig struct {
	Providers []WeatherProvider
	Logger    log.Logger

	// HTTPClient is optional; a 10 s-timeout client is used by default.
	HTTPClient *http.Client

	// DefaultLocation answers tasks that name no location.
	DefaultLocation string
}

// Weather answers weather queries with provider fallback and a short
// response cache so repeated questions don't burn API quota.
type Weather struct {
	providers       []WeatherProvider
	http            *http.Client
	cache           *gocache.Cache
	logger          log.Logger
	defaultLocation string
}

// NewWeather creates the weather agent. Providers lacking an API key are
// dropped here, mirroring their runtime unavailability.
func NewWeather(cfg WeatherConfig) (*Weather, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	providers := make([]WeatherProvider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.APIKey == "" {
			cfg.Logger.Warn("weather provider disabled, no API key", "provider", p.Name)
			continue
		}
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].Priority < providers[j].Priority
	})

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	defaultLocation := cfg.DefaultLocation
	if defaultLocation == "" {
		defaultLocation = "Warszawa"
	}

	return &Weather{
		providers:       providers,
		http:            hc,
		cache:           gocache.New(weatherCacheTTL, 2*weatherCacheTTL),
		logger:          cfg.Logger,
		defaultLocation: defaultLocation,
	}, nil
}

// Handle implements Handler for TypeWeather.
func (w *Weather) Handle(ctx context.Context, cmd Command) (*Response, error) {
	location := extractLocation(cmd.Task, w.defaultLocation)

	report, err := w.Current(ctx, location)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Pogoda w %s: %.1f°C, %s.",
		report.Location, report.Temperature, report.Condition)

	return &Response{
		Text: text,
		Data: map[string]any{
			"location":    report.Location,
			"temperature": report.Temperature,
			"condition":   report.Condition,
			"provider":    report.Provider,
		},
	}, nil
}

// Current returns current conditions for a location, trying providers in
// priority order and serving cached readings within the TTL.
func (w *Weather) Current(ctx context.Context, location string) (*WeatherReport, error) {
	key := strings.ToLower(location)
	if cached, ok := w.cache.Get(key); ok {
		report := cached.(WeatherReport)
		return &report, nil
	}

	var lastErr error
	for _, p := range w.providers {
		report, err := w.fetch(ctx, p, location)
		if err != nil {
			w.logger.Warn("weather provider failed",
				"provider", p.Name, "location", location, "error", err)
			lastErr = err
			continue
		}
		w.cache.Set(key, *report, gocache.DefaultExpiration)
		return report, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoWeatherProvider, lastErr)
	}
	return nil, ErrNoWeatherProvider
}

func (w *Weather) fetch(ctx context.Context, p WeatherProvider, location string) (*WeatherReport, error) {
	var endpoint string
	switch p.Name {
	case ProviderWeatherAPI:
		endpoint = fmt.Sprintf("%s/current.json?key=%s&q=%s&lang=pl",
			p.BaseURL, url.QueryEscape(p.APIKey), url.QueryEscape(location))
	case ProviderOpenWeatherMap:
		endpoint = fmt.Sprintf("%s/weather?q=%s&appid=%s&units=metric&lang=pl",
			p.BaseURL, url.QueryEscape(location), url.QueryEscape(p.APIKey))
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", p.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", p.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", p.Name, err)
	}

	return parseProviderResponse(p.Name, location, body)
}

func parseProviderResponse(provider, location string, body []byte) (*WeatherReport, error) {
	switch provider {
	case ProviderWeatherAPI:
		var payload struct {
			Current struct {
				TempC     float64 `json:"temp_c"`
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"current"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("parsing weatherapi response: %w", err)
		}
		return &WeatherReport{
			Location:    location,
			Temperature: payload.Current.TempC,
			Condition:   payload.Current.Condition.Text,
			Provider:    provider,
		}, nil

	case ProviderOpenWeatherMap:
		var payload struct {
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("parsing openweathermap response: %w", err)
		}
		condition := ""
		if len(payload.Weather) > 0 {
			condition = payload.Weather[0].Description
		}
		return &WeatherReport{
			Location:    location,
			Temperature: payload.Main.Temp,
			Condition:   condition,
			Provider:    provider,
		}, nil
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

// locationPrepositions precede a place name in weather questions,
// Polish and English.
var locationPrepositions = map[string]bool{
	"w": true, "we": true, "dla": true, "na": true,
	"in": true, "for": true, "at": true,
}

// extractLocation pulls a place name out of a task like
// "jaka jest pogoda w Krakowie". Heuristic: the first capitalized word
// (or run of capitalized words) following a location preposition.
func extractLocation(task, fallback string) string {
	words := strings.Fields(task)
	for i := 0; i < len(words)-1; i++ {
		if !locationPrepositions[strings.ToLower(words[i])] {
			continue
		}
		var parts []string
		for j := i + 1; j < len(words); j++ {
			word := strings.Trim(words[j], ".,!?")
			if word == "" || !isCapitalized(word) {
				break
			}
			parts = append(parts, word)
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return fallback
}

func isCapitalized(word string) bool {
	return unicode.IsUpper([]rune(word)[0])
}

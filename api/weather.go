package api

import (
	"context"
	"net/http"

	"github.com/foodsave-ai/foodsave/internal/agent"
	"github.com/foodsave-ai/foodsave/internal/log"
)

// WeatherService answers current-conditions lookups.
type WeatherService interface {
	Current(ctx context.Context, location string) (*agent.WeatherReport, error)
}

type weatherHandler struct {
	weather WeatherService
	logger  log.Logger
}

func newWeatherHandler(weather WeatherService, logger log.Logger) *weatherHandler {
	return &weatherHandler{weather: weather, logger: logger}
}

func (h *weatherHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/weather", h.current)
}

// current returns conditions for every ?location= parameter. Locations
// that fail are skipped; the response carries what succeeded.
func (h *weatherHandler) current(w http.ResponseWriter, r *http.Request) {
	locations := r.URL.Query()["location"]
	if len(locations) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "at least one location is required")
		return
	}

	reports := make([]*agent.WeatherReport, 0, len(locations))
	for _, loc := range locations {
		report, err := h.weather.Current(r.Context(), loc)
		if err != nil {
			h.logger.Warn("weather lookup failed", "location", loc, "error", err)
			continue
		}
		reports = append(reports, report)
	}

	if len(reports) == 0 {
		writeError(w, http.StatusBadGateway, "weather_unavailable",
			"no weather provider could answer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

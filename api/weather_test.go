package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foodsave-ai/foodsave/internal/agent"
	"github.com/foodsave-ai/foodsave/internal/log"
)

type fakeWeather struct {
	reports map[string]*agent.WeatherReport
}

func (f *fakeWeather) Current(_ context.Context, location string) (*agent.WeatherReport, error) {
	if report, ok := f.reports[location]; ok {
		return report, nil
	}
	return nil, errors.New("unknown location")
}

func newWeatherTestServer(t *testing.T, weather WeatherService) *httptest.Server {
	t.Helper()
	srv, err := NewServer(Config{
		Processor: &fakeProcessor{result: &agent.Result{Success: true}},
		Weather:   weather,
		Logger:    log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestWeatherEndpoint(t *testing.T) {
	ts := newWeatherTestServer(t, &fakeWeather{reports: map[string]*agent.WeatherReport{
		"Kraków":   {Location: "Kraków", Temperature: 18.5, Condition: "słonecznie", Provider: "weatherapi"},
		"Warszawa": {Location: "Warszawa", Temperature: 16.0, Condition: "pochmurno", Provider: "weatherapi"},
	}})

	resp, err := http.Get(ts.URL + "/api/weather?location=Krak%C3%B3w&location=Warszawa&location=Atlantyda")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Reports []agent.WeatherReport `json:"reports"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	// The unknown location is skipped, the two known ones answer.
	if len(body.Reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(body.Reports))
	}
	if body.Reports[0].Location != "Kraków" {
		t.Errorf("first report = %+v", body.Reports[0])
	}
}

func TestWeatherEndpointNoLocation(t *testing.T) {
	ts := newWeatherTestServer(t, &fakeWeather{})

	resp, err := http.Get(ts.URL + "/api/weather")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWeatherEndpointAllFail(t *testing.T) {
	ts := newWeatherTestServer(t, &fakeWeather{})

	resp, err := http.Get(ts.URL + "/api/weather?location=Nigdzie")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

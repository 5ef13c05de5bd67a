package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/foodsave-ai/foodsave/internal/log"
)

const searxngPayload = `{
	"results": [
		{"title": "Dieta śródziemnomorska", "url": "https://example.com/a", "content": "Opis diety."},
		{"title": "", "url": "https://example.com/skip", "content": "bez tytułu"},
		{"title": "Przepisy sezonowe", "url": "https://example.com/b", "content": ""},
		{"title": "Trzeci wynik", "url": "https://example.com/c", "content": "coś"}
	]
}`

func newTestSearch(t *testing.T, srv *httptest.Server) *Search {
	t.Helper()
	s, err := NewSearch(SearchConfig{BaseURL: srv.URL, Logger: log.NewNop()})
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	return s
}

func TestSearchQueriesSearXNG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "diety na lato" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("format") != "json" || q.Get("language") != "pl" {
			t.Errorf("format/language = %q/%q", q.Get("format"), q.Get("language"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searxngPayload))
	}))
	defer srv.Close()

	hits, err := newTestSearch(t, srv).Search(context.Background(), "diety na lato", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	// Titleless results are dropped, and maxResults caps the rest.
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Title != "Dieta śródziemnomorska" {
		t.Errorf("first hit = %q", hits[0].Title)
	}
	if hits[1].Title != "Przepisy sezonowe" {
		t.Errorf("second hit = %q", hits[1].Title)
	}
}

func TestSearchBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestSearch(t, srv).Search(context.Background(), "x", 3); !errors.Is(err, ErrSearchUnavailable) {
		t.Errorf("err = %v, want ErrSearchUnavailable", err)
	}
}

func TestSearchHandleFormatsHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searxngPayload))
	}))
	defer srv.Close()

	resp, err := newTestSearch(t, srv).Handle(context.Background(), Command{Task: "diety"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if !strings.Contains(resp.Text, "1. Dieta śródziemnomorska") {
		t.Errorf("text = %q", resp.Text)
	}
	results, ok := resp.Data["results"].([]SearchHit)
	if !ok {
		t.Fatalf("data results type = %T", resp.Data["results"])
	}
	if len(results) != 3 {
		t.Errorf("results = %d, want 3", len(results))
	}
}

func TestSearchHandleNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	resp, err := newTestSearch(t, srv).Handle(context.Background(), Command{Task: "nic"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resp.Text, "żadnych wyników") {
		t.Errorf("text = %q", resp.Text)
	}
}

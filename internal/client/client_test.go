package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestExecuteTask_Success(t *testing.T) {
	var gotReq TaskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != agentsExecutePath {
			t.Errorf("path = %s, want %s", r.URL.Path, agentsExecutePath)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(TaskResponse{
			Success:   true,
			Response:  "Hi there",
			SessionID: gotReq.SessionID,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.ExecuteTask(context.Background(), TaskRequest{
		Task:          "Hello",
		SessionID:     "abc-123",
		UseBielik:     true,
		UsePerplexity: false,
		AgentStates:   &AgentStates{Weather: true},
	})
	if err != nil {
		t.Fatalf("ExecuteTask: %v", err)
	}
	if resp.Response != "Hi there" {
		t.Errorf("response = %q", resp.Response)
	}
	if gotReq.Task != "Hello" || !gotReq.UseBielik {
		t.Errorf("request not serialized correctly: %+v", gotReq)
	}
}

func TestExecuteTask_BackendReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(TaskResponse{
			Success:   false,
			Error:     "model unavailable",
			SessionID: "abc",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ExecuteTask(context.Background(), TaskRequest{Task: "x", SessionID: "abc"})

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("err = %v, want *BackendError", err)
	}
	if backendErr.Message != "model unavailable" {
		t.Errorf("message = %q", backendErr.Message)
	}
}

func TestExecuteTask_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ExecuteTask(context.Background(), TaskRequest{Task: "x", SessionID: "abc"})
	if !errors.Is(err, ErrStatus) {
		t.Errorf("err = %v, want ErrStatus", err)
	}
}

func TestExecuteTask_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body first: the server only cancels r.Context() on
		// client disconnect once the request body has been consumed.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	c := New(srv.URL)
	_, err := c.ExecuteTask(ctx, TaskRequest{Task: "x", SessionID: "abc"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPantryProducts_CRUD(t *testing.T) {
	listedID := uuid.New()
	createdID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == pantryProductsPath:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"products": []PantryProduct{
					{ID: listedID, Name: "Mleko Łaciate", Category: "Nabiał", Quantity: 2},
				},
			})
		case r.Method == http.MethodPost && r.URL.Path == pantryProductsPath:
			var p PantryProduct
			_ = json.NewDecoder(r.Body).Decode(&p)
			p.ID = createdID
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(p)
		case r.Method == http.MethodPut && r.URL.Path == pantryProductsPath+"/"+createdID.String():
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete && r.URL.Path == pantryProductsPath+"/"+createdID.String():
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	products, err := c.PantryProducts(ctx)
	if err != nil {
		t.Fatalf("PantryProducts: %v", err)
	}
	if len(products) != 1 || products[0].Category != "Nabiał" {
		t.Errorf("products = %+v", products)
	}

	created, err := c.AddPantryProduct(ctx, PantryProduct{Name: "Masło", Quantity: 1})
	if err != nil {
		t.Fatalf("AddPantryProduct: %v", err)
	}
	if created.ID != createdID {
		t.Errorf("created id = %s", created.ID)
	}

	if err := c.UpdatePantryProduct(ctx, *created); err != nil {
		t.Errorf("UpdatePantryProduct: %v", err)
	}
	if err := c.DeletePantryProduct(ctx, createdID); err != nil {
		t.Errorf("DeletePantryProduct: %v", err)
	}
}

func TestUploadReceipt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer func() { _ = file.Close() }()
		if hdr.Filename != "paragon.jpg" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("part content type = %q", ct)
		}
		_, _ = io.WriteString(w, `{"message":"Receipt processed successfully","data":{"store":"Biedronka","items":[{"name":"Mleko","quantity":1,"unit_price":3.49,"category":"Nabiał"}]}}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.UploadReceipt(context.Background(), "paragon.jpg", strings.NewReader("fake-jpeg-bytes"))
	if err != nil {
		t.Fatalf("UploadReceipt: %v", err)
	}
	if result.Store != "Biedronka" || len(result.Items) != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Items[0].UnitPrice != 3.49 {
		t.Errorf("unit price = %v", result.Items[0].UnitPrice)
	}
}

func TestUploadReceipt_RejectsUnsupportedType(t *testing.T) {
	c := New("http://unused")
	_, err := c.UploadReceipt(context.Background(), "notes.txt", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("err = %v, want unsupported file type", err)
	}
}

func TestUploadReceipt_RejectsOversizedFile(t *testing.T) {
	c := New("http://unused")
	big := io.LimitReader(neverEnding('a'), MaxReceiptSize+1)
	_, err := c.UploadReceipt(context.Background(), "big.png", big)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("err = %v, want size error", err)
	}
}

// neverEnding is an infinite reader of a single byte.
type neverEnding byte

func (b neverEnding) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}

func TestWeather_QueryEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locs := r.URL.Query()["location"]
		if len(locs) != 2 || locs[0] != "Warszawa" || locs[1] != "Kraków" {
			t.Errorf("locations = %v", locs)
		}
		_, _ = io.WriteString(w, `{"reports":[{"location":"Warszawa","temperature":21.5,"condition":"słonecznie"},{"location":"Kraków","temperature":19.0,"condition":"pochmurno"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	reports, err := c.Weather(context.Background(), "Warszawa", "Kraków")
	if err != nil {
		t.Fatalf("Weather: %v", err)
	}
	if len(reports) != 2 || reports[0].Temperature != 21.5 {
		t.Errorf("reports = %+v", reports)
	}
}

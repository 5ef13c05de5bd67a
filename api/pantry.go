package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/foodsave-ai/foodsave/internal/log"
	"github.com/foodsave-ai/foodsave/internal/pantry"
)

// PantryStore is the slice of the pantry store the HTTP layer needs.
type PantryStore interface {
	List(ctx context.Context, category string) ([]*pantry.Product, error)
	Add(ctx context.Context, p pantry.Product) (*pantry.Product, error)
	Update(ctx context.Context, p pantry.Product) (*pantry.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Expiring(ctx context.Context, days int) ([]*pantry.Product, error)
}

type pantryHandler struct {
	store  PantryStore
	logger log.Logger
}

func newPantryHandler(store PantryStore, logger log.Logger) *pantryHandler {
	return &pantryHandler{store: store, logger: logger}
}

func (h *pantryHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/pantry/products", h.list)
	mux.HandleFunc("POST /api/pantry/products", h.add)
	mux.HandleFunc("PUT /api/pantry/products/{id}", h.update)
	mux.HandleFunc("DELETE /api/pantry/products/{id}", h.delete)
	mux.HandleFunc("GET /api/pantry/products/expiring", h.expiring)
}

func (h *pantryHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("listing pantry products", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list products")
		return
	}
	if products == nil {
		products = []*pantry.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *pantryHandler) add(w http.ResponseWriter, r *http.Request) {
	var p pantry.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	created, err := h.store.Add(r.Context(), p)
	if err != nil {
		if errors.Is(err, pantry.ErrInvalidProduct) {
			writeError(w, http.StatusBadRequest, "invalid_product", err.Error())
			return
		}
		h.logger.Error("adding pantry product", "error", err)
		writeError(w, http.StatusInternalServerError, "add_failed", "failed to add product")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *pantryHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid product id")
		return
	}

	var p pantry.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	p.ID = id

	updated, err := h.store.Update(r.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, pantry.ErrProductNotFound):
			writeError(w, http.StatusNotFound, "not_found", "product not found")
		case errors.Is(err, pantry.ErrInvalidProduct):
			writeError(w, http.StatusBadRequest, "invalid_product", err.Error())
		default:
			h.logger.Error("updating pantry product", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "update_failed", "failed to update product")
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *pantryHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid product id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pantry.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		h.logger.Error("deleting pantry product", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *pantryHandler) expiring(w http.ResponseWriter, r *http.Request) {
	days := parseIntParam(r, "days", 7, 1, 365)

	products, err := h.store.Expiring(r.Context(), days)
	if err != nil {
		h.logger.Error("listing expiring products", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list expiring products")
		return
	}
	if products == nil {
		products = []*pantry.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products, "days": days})
}

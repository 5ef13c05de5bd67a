package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/foodsave-ai/foodsave/internal/agent"
	"github.com/foodsave-ai/foodsave/internal/log"
)

// MaxReceiptSize is the upload size limit for receipt files.
const MaxReceiptSize = 10 << 20 // 10 MB

// allowedReceiptTypes are the accepted upload content types.
var allowedReceiptTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"application/pdf",
}

// ReceiptAnalyzer turns an uploaded receipt into structured data.
type ReceiptAnalyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, contentType string) (*agent.ReceiptData, error)
}

type receiptsHandler struct {
	analyzer ReceiptAnalyzer
	logger   log.Logger
}

func newReceiptsHandler(analyzer ReceiptAnalyzer, logger log.Logger) *receiptsHandler {
	return &receiptsHandler{analyzer: analyzer, logger: logger}
}

func (h *receiptsHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v2/receipts/upload", h.upload)
}

// upload accepts a multipart "file" part, validates type and size, and
// returns the parsed receipt.
func (h *receiptsHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxReceiptSize+4096)

	if err := r.ParseMultipartForm(MaxReceiptSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large",
			"receipt file exceeds the 10 MB limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file part is required")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !slices.Contains(allowedReceiptTypes, contentType) {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_type",
			"supported types: JPEG, PNG, WebP, PDF")
		return
	}
	if header.Size > MaxReceiptSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large",
			"receipt file exceeds the 10 MB limit")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxReceiptSize))
	if err != nil {
		h.logger.Error("reading receipt upload", "error", err)
		writeError(w, http.StatusInternalServerError, "upload_failed", "failed to read file")
		return
	}

	result, err := h.analyzer.AnalyzeImage(r.Context(), data, contentType)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyReceipt) {
			writeError(w, http.StatusUnprocessableEntity, "no_items",
				"no products could be recognized on the receipt")
			return
		}
		h.logger.Error("analyzing receipt", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "analysis_failed", "failed to analyze receipt")
		return
	}

	h.logger.Info("receipt analyzed",
		"filename", header.Filename, "items", len(result.Items), "store", result.Store)
	// Envelope shape matches what the frontend and Client.UploadReceipt
	// consume: parsed fields nested under "data".
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Receipt processed successfully",
		"data": map[string]any{
			"store": result.Store,
			"total": result.Total,
			"items": result.Items,
		},
	})
}

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

const receiptUploadPath = "/api/v2/receipts/upload"

// MaxReceiptSize is the largest receipt file the backend accepts.
const MaxReceiptSize = 10 << 20 // 10 MB

// ReceiptItem is one parsed line item from a receipt.
type ReceiptItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Category  string  `json:"category"`
}

// ReceiptResult is the outcome of uploading and parsing a receipt.
type ReceiptResult struct {
	Store string        `json:"store,omitempty"`
	Total float64       `json:"total,omitempty"`
	Items []ReceiptItem `json:"items"`
}

// contentTypeFor maps a receipt filename to its MIME type.
// The backend only accepts JPEG, PNG, WebP images and PDFs.
func contentTypeFor(filename string) (string, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".png":
		return "image/png", true
	case ".webp":
		return "image/webp", true
	case ".pdf":
		return "application/pdf", true
	}
	return "", false
}

// UploadReceipt sends a receipt file for OCR and parsing.
// The reader is consumed fully; files over MaxReceiptSize are rejected
// locally before any bytes go over the wire.
func (c *Client) UploadReceipt(ctx context.Context, filename string, r io.Reader) (*ReceiptResult, error) {
	contentType, ok := contentTypeFor(filename)
	if !ok {
		return nil, fmt.Errorf("unsupported receipt file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxReceiptSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading receipt: %w", err)
	}
	if len(data) > MaxReceiptSize {
		return nil, fmt.Errorf("receipt file exceeds %d bytes", MaxReceiptSize)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename))}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("creating multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart: %w", err)
	}

	var resp struct {
		Message string         `json:"message"`
		Data    *ReceiptResult `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, receiptUploadPath, mw.FormDataContentType(), &body, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &BackendError{Message: "receipt processed but no data returned"}
	}
	return resp.Data, nil
}

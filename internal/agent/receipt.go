package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// ErrEmptyReceipt indicates no line items could be parsed from the text.
var ErrEmptyReceipt = errors.New("no items found in receipt text")

// ReceiptItem is one purchased product parsed from a receipt.
type ReceiptItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Category  string  `json:"category"`
}

// ReceiptData is the structured result of receipt analysis.
type ReceiptData struct {
	Store string        `json:"store"`
	Total float64       `json:"total"`
	Items []ReceiptItem `json:"items"`
}

// Polish fiscal receipts print prices with a comma decimal separator and
// mark quantity lines as "2 x 3,49" or "2 szt. x 3,49". The trailing
// letter after the price is the VAT class and is ignored.
var (
	// "Mleko 3,2% 2 x 3,49 6,98A"
	qtyLineRe = regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)\s*(?:szt\.?\s*)?[xX*]\s*(\d+[.,]\d{2})(?:\s+\d+[.,]\d{2})?\s*[A-D]?$`)
	// "Chleb wiejski 4,99B"
	priceLineRe = regexp.MustCompile(`^(.+?)\s+(\d+[.,]\d{2})\s*[A-D]?$`)
	// "SUMA PLN 57,32" / "RAZEM 57,32"
	totalLineRe = regexp.MustCompile(`(?i)^(?:suma|razem|do zapłaty|total)\b.*?(\d+[.,]\d{2})\s*$`)
)

// knownStores are chains recognized in the receipt header.
var knownStores = []string{
	"Biedronka", "Lidl", "Kaufland", "Auchan", "Carrefour",
	"Żabka", "Netto", "Dino", "Aldi", "Tesco",
}

// productCategories maps a category name to name substrings that select
// it. Matching is case-insensitive, first match wins in declaration
// order below.
var productCategories = []struct {
	name     string
	keywords []string
}{
	{"nabiał", []string{"mleko", "ser", "jogurt", "masło", "śmietana", "kefir", "twaróg", "jaja", "jajka"}},
	{"pieczywo", []string{"chleb", "bułka", "bułki", "bagietka", "rogal"}},
	{"mięso", []string{"kurczak", "wołowina", "wieprzow", "szynka", "kiełbasa", "mięso", "filet", "parówki"}},
	{"warzywa", []string{"pomidor", "ogórek", "marchew", "ziemniak", "cebula", "papryka", "sałata", "kapusta"}},
	{"owoce", []string{"jabłk", "banan", "pomarańcz", "cytryn", "truskawk", "winogron", "gruszk"}},
	{"napoje", []string{"woda", "sok", "napój", "cola", "herbata", "kawa"}},
	{"słodycze", []string{"czekolada", "ciastka", "cukierki", "baton", "wafel"}},
	{"chemia", []string{"mydło", "proszek", "płyn", "papier toaletowy", "szampon"}},
}

const defaultCategory = "inne"

// TextExtractor pulls raw text out of a receipt image. Implemented by
// VisionOCR; nil disables image analysis (text parsing still works).
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
}

// ErrOCRUnavailable indicates no text extractor is configured.
var ErrOCRUnavailable = errors.New("receipt OCR not configured")

// Receipt analyses receipts into structured line items. Plain OCR text is
// parsed directly; images go through the configured TextExtractor first.
type Receipt struct {
	logger log.Logger
	ocr    TextExtractor
}

// ReceiptConfig configures the receipt analysis agent.
type ReceiptConfig struct {
	Logger log.Logger

	// OCR is optional; without it AnalyzeImage returns ErrOCRUnavailable.
	OCR TextExtractor
}

// NewReceipt creates the receipt analysis agent.
func NewReceipt(cfg ReceiptConfig) (*Receipt, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Receipt{logger: cfg.Logger, ocr: cfg.OCR}, nil
}

// AnalyzeImage extracts text from a receipt image and parses it.
func (r *Receipt) AnalyzeImage(ctx context.Context, data []byte, contentType string) (*ReceiptData, error) {
	if r.ocr == nil {
		return nil, ErrOCRUnavailable
	}
	text, err := r.ocr.ExtractText(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("extracting receipt text: %w", err)
	}
	return r.Parse(text)
}

// Handle implements Handler for TypeReceipt. The command's task carries
// the OCR text.
func (r *Receipt) Handle(ctx context.Context, cmd Command) (*Response, error) {
	data, err := r.Parse(cmd.Task)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if data.Store != "" {
		fmt.Fprintf(&sb, "Paragon ze sklepu %s. ", data.Store)
	}
	fmt.Fprintf(&sb, "Znalazłem %d %s", len(data.Items), itemsWord(len(data.Items)))
	if data.Total > 0 {
		fmt.Fprintf(&sb, " na łączną kwotę %.2f zł", data.Total)
	}
	sb.WriteString(".")

	return &Response{
		Text: sb.String(),
		Data: map[string]any{
			"store": data.Store,
			"total": data.Total,
			"items": data.Items,
		},
	}, nil
}

// Parse extracts store, total and line items from OCR receipt text.
func (r *Receipt) Parse(text string) (*ReceiptData, error) {
	data := &ReceiptData{}
	lines := strings.Split(text, "\n")

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if data.Store == "" && i < 5 {
			if store := matchStore(line); store != "" {
				data.Store = store
				continue
			}
		}

		if m := totalLineRe.FindStringSubmatch(line); m != nil {
			data.Total = parseAmount(m[1])
			continue
		}

		if item, ok := parseItemLine(line); ok {
			data.Items = append(data.Items, item)
		}
	}

	if len(data.Items) == 0 {
		return nil, ErrEmptyReceipt
	}

	// OCR regularly drops the total line; reconstruct it from items.
	if data.Total == 0 {
		for _, it := range data.Items {
			data.Total += it.Quantity * it.UnitPrice
		}
	}

	r.logger.Debug("receipt parsed",
		"store", data.Store, "items", len(data.Items), "total", data.Total)
	return data, nil
}

func parseItemLine(line string) (ReceiptItem, bool) {
	if m := qtyLineRe.FindStringSubmatch(line); m != nil {
		name := cleanName(m[1])
		if name == "" {
			return ReceiptItem{}, false
		}
		return ReceiptItem{
			Name:      name,
			Quantity:  parseAmount(m[2]),
			UnitPrice: parseAmount(m[3]),
			Category:  categorize(name),
		}, true
	}

	if m := priceLineRe.FindStringSubmatch(line); m != nil {
		name := cleanName(m[1])
		if name == "" || looksLikeMetadata(name) {
			return ReceiptItem{}, false
		}
		return ReceiptItem{
			Name:      name,
			Quantity:  1,
			UnitPrice: parseAmount(m[2]),
			Category:  categorize(name),
		}, true
	}

	return ReceiptItem{}, false
}

// metadataWords mark non-product lines that still match the price
// pattern, like VAT summaries and payment lines.
var metadataWords = []string{
	"ptu", "vat", "podatek", "gotówka", "karta", "reszta",
	"rabat", "nip", "paragon fiskalny", "sprzedaż",
}

func looksLikeMetadata(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range metadataWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func matchStore(line string) string {
	lower := strings.ToLower(line)
	for _, store := range knownStores {
		if strings.Contains(lower, strings.ToLower(store)) {
			return store
		}
	}
	return ""
}

func categorize(name string) string {
	lower := strings.ToLower(name)
	for _, cat := range productCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}
	return defaultCategory
}

func cleanName(s string) string {
	return strings.TrimSpace(strings.Trim(s, "-*"))
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// itemsWord returns the Polish plural form for a product count.
func itemsWord(n int) string {
	switch {
	case n == 1:
		return "produkt"
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 12 || n%100 > 14):
		return "produkty"
	default:
		return "produktów"
	}
}

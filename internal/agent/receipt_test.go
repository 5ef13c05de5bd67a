package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/foodsave-ai/foodsave/internal/log"
)

const sampleReceipt = `BIEDRONKA "Codziennie niskie ceny"
ul. Przykładowa 1, Warszawa
PARAGON FISKALNY
Mleko 3,2% 2 x 3,49 6,98A
Chleb wiejski 4,99B
Pomidory luz 0,5 x 8,99 4,50A
Czekolada gorzka 6,49A
PTU A 8,00% 1,45
SUMA PLN 22,96
Gotówka 30,00
Reszta 7,04`

func newTestReceipt(t *testing.T) *Receipt {
	t.Helper()
	r, err := NewReceipt(ReceiptConfig{Logger: log.NewNop()})
	if err != nil {
		t.Fatalf("NewReceipt: %v", err)
	}
	return r
}

func TestReceiptParse(t *testing.T) {
	data, err := newTestReceipt(t).Parse(sampleReceipt)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if data.Store != "Biedronka" {
		t.Errorf("store = %q, want Biedronka", data.Store)
	}
	if data.Total != 22.96 {
		t.Errorf("total = %v, want 22.96", data.Total)
	}
	if len(data.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(data.Items))
	}

	tests := []struct {
		name      string
		quantity  float64
		unitPrice float64
		category  string
	}{
		{"Mleko 3,2%", 2, 3.49, "nabiał"},
		{"Chleb wiejski", 1, 4.99, "pieczywo"},
		{"Pomidory luz", 0.5, 8.99, "warzywa"},
		{"Czekolada gorzka", 1, 6.49, "słodycze"},
	}
	for i, want := range tests {
		got := data.Items[i]
		if got.Name != want.name {
			t.Errorf("item %d name = %q, want %q", i, got.Name, want.name)
		}
		if got.Quantity != want.quantity {
			t.Errorf("item %d quantity = %v, want %v", i, got.Quantity, want.quantity)
		}
		if got.UnitPrice != want.unitPrice {
			t.Errorf("item %d unit price = %v, want %v", i, got.UnitPrice, want.unitPrice)
		}
		if got.Category != want.category {
			t.Errorf("item %d category = %q, want %q", i, got.Category, want.category)
		}
	}
}

func TestReceiptParseSkipsMetadataLines(t *testing.T) {
	data, err := newTestReceipt(t).Parse(sampleReceipt)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, item := range data.Items {
		lower := strings.ToLower(item.Name)
		for _, forbidden := range []string{"ptu", "gotówka", "reszta"} {
			if strings.Contains(lower, forbidden) {
				t.Errorf("metadata line parsed as item: %q", item.Name)
			}
		}
	}
}

func TestReceiptParseComputesMissingTotal(t *testing.T) {
	text := "Mleko 2 x 3,00 6,00A\nChleb 4,00B"
	data, err := newTestReceipt(t).Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if data.Total != 10.00 {
		t.Errorf("total = %v, want 10.00 computed from items", data.Total)
	}
}

func TestReceiptParseEmpty(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"blank text", "   \n\n  "},
		{"no parsable lines", "jakiś tekst bez cen\ni bez produktów"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newTestReceipt(t).Parse(tt.text); !errors.Is(err, ErrEmptyReceipt) {
				t.Errorf("err = %v, want ErrEmptyReceipt", err)
			}
		})
	}
}

func TestReceiptHandle(t *testing.T) {
	resp, err := newTestReceipt(t).Handle(context.Background(), Command{Task: sampleReceipt})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resp.Text, "Biedronka") {
		t.Errorf("text = %q, want store name", resp.Text)
	}
	if !strings.Contains(resp.Text, "4 produkty") {
		t.Errorf("text = %q, want item count", resp.Text)
	}
	items, ok := resp.Data["items"].([]ReceiptItem)
	if !ok || len(items) != 4 {
		t.Errorf("data items = %v", resp.Data["items"])
	}
}

func TestItemsWord(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "produkt"},
		{2, "produkty"},
		{4, "produkty"},
		{5, "produktów"},
		{12, "produktów"},
		{22, "produkty"},
	}
	for _, tt := range tests {
		if got := itemsWord(tt.n); got != tt.want {
			t.Errorf("itemsWord(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// ocrPrompt instructs the vision model to transcribe, not interpret.
const ocrPrompt = `Przepisz cały tekst z tego paragonu, linia po linii,
dokładnie tak jak jest wydrukowany. Nie tłumacz, nie podsumowuj,
nie dodawaj komentarzy.`

// VisionOCR extracts receipt text with a multimodal model.
type VisionOCR struct {
	g      *genkit.Genkit
	model  string
	logger log.Logger
}

// NewVisionOCR creates a genkit-backed text extractor. model must be a
// provider-qualified multimodal model name.
func NewVisionOCR(g *genkit.Genkit, model string, logger log.Logger) (*VisionOCR, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if model == "" {
		return nil, errors.New("model name is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &VisionOCR{g: g, model: model, logger: logger}, nil
}

// ExtractText implements TextExtractor.
func (v *VisionOCR) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := genkit.Generate(ctx, v.g,
		ai.WithModelName(v.model),
		ai.WithMessages(ai.NewUserMessage(
			ai.NewTextPart(ocrPrompt),
			ai.NewMediaPart(contentType, dataURL),
		)),
	)
	if err != nil {
		return "", fmt.Errorf("vision model: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	v.logger.Debug("receipt text extracted", "bytes", len(data), "text_len", len(text))
	return text, nil
}

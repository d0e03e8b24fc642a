package receipts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// DefaultOCRModel is the Gemini model used to transcribe receipt images.
const DefaultOCRModel = "gemini-2.5-flash"

// ErrNoText is returned when the extractor produced no text.
var ErrNoText = errors.New("receipts: no text extracted")

// TextExtractor turns a receipt image into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// ImageArchiver stores the original receipt image and returns its URI.
type ImageArchiver interface {
	Archive(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error)
}

// ImageFetcher reads back an archived image by the URI Archive returned.
type ImageFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

const transcribePrompt = "You are an OCR engine for shop receipts.\n\n" +
	"Transcribe the attached receipt image to plain text.\n" +
	"- Keep one receipt line per output line, in the original order.\n" +
	"- Keep prices exactly as printed, with two decimal places.\n" +
	"- Do not add commentary, headings, Markdown or code fences.\n"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor implements TextExtractor with a Gemini multimodal model.
type GeminiExtractor struct {
	models contentGenerator
	model  string
}

// NewGeminiExtractor creates a client from the environment (GOOGLE_API_KEY,
// or GOOGLE_CLOUD_PROJECT with GOOGLE_GENAI_USE_VERTEXAI).
func NewGeminiExtractor(ctx context.Context, model string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultOCRModel
	}
	return &GeminiExtractor{models: client.Models, model: model}, nil
}

// ExtractText sends the image inline and returns the transcription.
func (g *GeminiExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("ExtractText: empty image")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("ExtractText: unsupported content type %q", mimeType)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: transcribePrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
			},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("ExtractText: generate content: %w", err)
	}

	text := stripFences(resp.Text())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

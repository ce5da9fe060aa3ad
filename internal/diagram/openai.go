package diagram

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIRenderer renders diagrams through the OpenAI image API.
type OpenAIRenderer struct {
	client *openai.Client
	model  string
}

var _ Renderer = (*OpenAIRenderer)(nil)

func NewOpenAIRenderer(apiKey, model string) *OpenAIRenderer {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAIRenderer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (r *OpenAIRenderer) Render(ctx context.Context, description string) ([]byte, error) {
	prompt := "Clean, minimal, textbook-style physics/math diagram on a white background, " +
		"no shading or decoration, clear labels. " + description

	resp, err := r.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          r.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image generation returned no data")
	}

	image, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return image, nil
}

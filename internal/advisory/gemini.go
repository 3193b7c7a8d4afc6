package advisory

import (
	"context"
	"errors"
	"log"
	"time"

	genai "google.golang.org/genai"
)

// ErrEmptyCompletion is returned when the model produced no usable text.
var ErrEmptyCompletion = errors.New("advisory: empty completion from model")

// GeminiClient is a thin wrapper around the official genai client. The
// service enforces no schema; all structure is imposed downstream by the
// normalizer. When the primary model identifier is rejected, the fallback
// model is tried in sequence.
type GeminiClient struct {
	cli           *genai.Client
	model         string
	fallbackModel string
	rl            *rpsLimiter
}

func NewGeminiClient(ctx context.Context, model, fallbackModel string, rps float64, burst int) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		cli:           cli,
		model:         model,
		fallbackModel: fallbackModel,
		rl:            newRPSLimiter(rps, burst),
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

func (g *GeminiClient) Close() error {
	g.rl.Stop()
	return nil
}

// GenerateText sends one free-text prompt, optionally with an inline image
// payload, and returns one free-text completion.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string, image []byte) (string, error) {
	models := []string{g.model}
	if g.fallbackModel != "" && g.fallbackModel != g.model {
		models = append(models, g.fallbackModel)
	}

	parts := []*genai.Part{{Text: prompt}}
	if len(image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: image},
		})
	}

	var lastErr error
	for i, model := range models {
		if err := g.rl.Acquire(ctx); err != nil {
			return "", err
		}
		resp, err := g.cli.Models.GenerateContent(ctx, model,
			[]*genai.Content{{Parts: parts}},
			nil,
		)
		if err != nil {
			lastErr = err
			log.Printf("advisory: model %s rejected, %d fallback(s) left: %v", model, len(models)-i-1, err)
			time.Sleep(time.Duration(300*(1<<i)) * time.Millisecond)
			continue
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrEmptyCompletion
			continue
		}
		txt := resp.Candidates[0].Content.Parts[0].Text
		if txt == "" {
			lastErr = ErrEmptyCompletion
			continue
		}
		return txt, nil
	}
	return "", lastErr
}

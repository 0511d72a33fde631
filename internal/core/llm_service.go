package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultGenerateModelName = "gemini-2.0-flash"

	defaultTemperature     = float32(0.2)
	defaultTopK            = int32(40)
	defaultTopP            = float32(0.95)
	defaultMaxOutputTokens = int32(1024)
)

// GenerateRequest mirrors the proxy body. Zero or missing sampling values
// fall back to the defaults above.
type GenerateRequest struct {
	Prompt          string   `json:"prompt"`
	Temperature     *float32 `json:"temperature"`
	TopK            *int32   `json:"topK"`
	TopP            *float32 `json:"topP"`
	MaxOutputTokens *int32   `json:"maxOutputTokens"`
}

type GeneratedPart struct {
	Text string `json:"text"`
}

type GeneratedContent struct {
	Role  string          `json:"role"`
	Parts []GeneratedPart `json:"parts"`
}

type GeneratedCandidate struct {
	Content      GeneratedContent `json:"content"`
	FinishReason string           `json:"finishReason,omitempty"`
}

// GenerateResponse keeps the candidates/content/parts shape of the Gemini
// REST API so clients can read it the same way.
type GenerateResponse struct {
	Candidates []GeneratedCandidate `json:"candidates"`
	Text       string               `json:"text"`
}

type LLMService struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

// NewLLMService returns a service with no client when apiKey is empty;
// Generate then reports ErrUnavailable.
func NewLLMService(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*LLMService, error) {
	if modelName == "" {
		modelName = defaultGenerateModelName
	}
	s := &LLMService{modelName: modelName, logger: logger}
	if apiKey == "" {
		logger.Warn("GEMINI_API_KEY not set, Gemini proxy disabled")
		return s, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	s.client = client
	return s, nil
}

func (s *LLMService) Close() error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close GenAI client: %w", err)
	}
	s.logger.Info("GenAI client closed")
	return nil
}

func orFloat(p *float32, def float32) *float32 {
	if p == nil || *p == 0 {
		return &def
	}
	return p
}

func orInt(p *int32, def int32) *int32 {
	if p == nil || *p == 0 {
		return &def
	}
	return p
}

func (s *LLMService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, validation("Prompt parameter is required")
	}
	if s.client == nil {
		return nil, newError(ErrUnavailable, "Gemini API is not configured")
	}

	model := s.client.GenerativeModel(s.modelName)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     orFloat(req.Temperature, defaultTemperature),
		TopK:            orInt(req.TopK, defaultTopK),
		TopP:            orFloat(req.TopP, defaultTopP),
		MaxOutputTokens: orInt(req.MaxOutputTokens, defaultMaxOutputTokens),
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(ErrUpstreamTimeout, "Gemini API request timed out")
		}
		return nil, fmt.Errorf("gemini generate request failed: %w", err)
	}

	out := &GenerateResponse{Candidates: []GeneratedCandidate{}}
	var text strings.Builder
	for i, c := range resp.Candidates {
		gc := GeneratedCandidate{FinishReason: c.FinishReason.String()}
		if c.Content != nil {
			gc.Content.Role = c.Content.Role
			for _, part := range c.Content.Parts {
				if txt, ok := part.(genai.Text); ok {
					gc.Content.Parts = append(gc.Content.Parts, GeneratedPart{Text: string(txt)})
					if i == 0 {
						text.WriteString(string(txt))
					}
				} else {
					s.logger.Debug("skipping non-text Gemini part", zap.String("type", fmt.Sprintf("%T", part)))
				}
			}
		}
		out.Candidates = append(out.Candidates, gc)
	}
	out.Text = text.String()
	return out, nil
}

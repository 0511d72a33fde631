package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRetrieveTimeout = 30 * time.Second
	DefaultChatbotTimeout  = 90 * time.Second
	DefaultGenerateTimeout = 90 * time.Second
)

// ProxyConfig holds the upstream endpoints. Zero timeouts take the defaults.
type ProxyConfig struct {
	RetrieveURL    string
	ChatbotDevURL  string
	ChatbotProdURL string

	RetrieveTimeout time.Duration
	ChatbotTimeout  time.Duration
	GenerateTimeout time.Duration
}

// ProxyService forwards requests to the RAG and LLM backends. It never
// retries; a timed-out call surfaces as ErrUpstreamTimeout.
type ProxyService struct {
	cfg      ProxyConfig
	client   *http.Client
	settings *SettingsService
	llm      *LLMService
	logger   *zap.Logger
}

func NewProxyService(cfg ProxyConfig, settings *SettingsService, llm *LLMService, logger *zap.Logger) *ProxyService {
	if cfg.RetrieveTimeout <= 0 {
		cfg.RetrieveTimeout = DefaultRetrieveTimeout
	}
	if cfg.ChatbotTimeout <= 0 {
		cfg.ChatbotTimeout = DefaultChatbotTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = DefaultGenerateTimeout
	}
	return &ProxyService{
		cfg:      cfg,
		client:   &http.Client{},
		settings: settings,
		llm:      llm,
		logger:   logger,
	}
}

// requireText checks that body is a JSON object with a non-empty text field.
func requireText(body []byte) error {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || strings.TrimSpace(payload.Text) == "" {
		return validation("Text parameter is required")
	}
	return nil
}

// Retrieve forwards body unchanged to the RAG retrieve endpoint.
func (s *ProxyService) Retrieve(ctx context.Context, body []byte) (json.RawMessage, error) {
	if err := requireText(body); err != nil {
		return nil, err
	}
	return s.forward(ctx, "RAG API", s.cfg.RetrieveURL, s.cfg.RetrieveTimeout, body)
}

// Chatbot forwards body to the RAG chatbot of the currently selected
// environment. The environment is read on every call.
func (s *ProxyService) Chatbot(ctx context.Context, body []byte) (json.RawMessage, error) {
	if err := requireText(body); err != nil {
		return nil, err
	}

	env, err := s.settings.ChatbotEnvironment(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	target := s.cfg.ChatbotDevURL
	if env == EnvironmentProd {
		target = s.cfg.ChatbotProdURL
	}
	return s.forward(ctx, "RAG chatbot", target, s.cfg.ChatbotTimeout, body)
}

func (s *ProxyService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()
	return s.llm.Generate(ctx, req)
}

func (s *ProxyService) forward(ctx context.Context, name, target string, timeout time.Duration, body []byte) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug("forwarding proxy request", zap.String("upstream", name), zap.String("url", target))
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(ErrUpstreamTimeout, "%s request timed out", name)
		}
		return nil, fmt.Errorf("%s request failed: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(ErrUpstreamTimeout, "%s request timed out", name)
		}
		return nil, fmt.Errorf("failed to read %s response: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s responded with status: %d", name, resp.StatusCode)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s returned a non-JSON body", name)
	}
	return json.RawMessage(data), nil
}

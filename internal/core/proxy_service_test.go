package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestProxy(t *testing.T, cfg ProxyConfig) (*ProxyService, *SettingsService) {
	t.Helper()
	settings := NewSettingsService(newTestDB(t), zap.NewNop())
	llm, err := NewLLMService(context.Background(), "", "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewLLMService: %v", err)
	}
	return NewProxyService(cfg, settings, llm, zap.NewNop()), settings
}

func TestRetrieveForwardsBodyVerbatim(t *testing.T) {
	var got string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[1,2]}`))
	}))
	defer upstream.Close()

	proxy, _ := newTestProxy(t, ProxyConfig{RetrieveURL: upstream.URL})
	body := `{"text":"reset password","k":5}`
	out, err := proxy.Retrieve(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got != body {
		t.Fatalf("upstream received %q, want %q", got, body)
	}
	if string(out) != `{"results":[1,2]}` {
		t.Fatalf("unexpected response %s", out)
	}

	if _, err := proxy.Retrieve(context.Background(), []byte(`{"text":""}`)); kindOf(err) != ErrValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRetrieveTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer upstream.Close()

	proxy, _ := newTestProxy(t, ProxyConfig{RetrieveURL: upstream.URL, RetrieveTimeout: 50 * time.Millisecond})
	_, err := proxy.Retrieve(context.Background(), []byte(`{"text":"slow"}`))
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected upstream timeout, got %v", err)
	}
}

func TestUpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer upstream.Close()

	proxy, _ := newTestProxy(t, ProxyConfig{RetrieveURL: upstream.URL})
	_, err := proxy.Retrieve(context.Background(), []byte(`{"text":"x"}`))
	if err == nil || kindOf(err) != nil {
		t.Fatalf("expected an internal error, got %v", err)
	}
}

func TestChatbotFollowsEnvironmentSetting(t *testing.T) {
	hit := func(name string, calls *[]string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*calls = append(*calls, name)
			w.Write([]byte(`{"answer":"` + name + `"}`))
		}))
	}
	var calls []string
	dev := hit("dev", &calls)
	defer dev.Close()
	prod := hit("prod", &calls)
	defer prod.Close()

	proxy, settings := newTestProxy(t, ProxyConfig{ChatbotDevURL: dev.URL, ChatbotProdURL: prod.URL})
	ctx := context.Background()
	body := []byte(`{"text":"hi","history":[]}`)

	if _, err := proxy.Chatbot(ctx, body); err != nil {
		t.Fatalf("Chatbot(dev): %v", err)
	}
	if err := settings.SetChatbotEnvironment(ctx, EnvironmentProd); err != nil {
		t.Fatalf("SetChatbotEnvironment: %v", err)
	}
	if _, err := proxy.Chatbot(ctx, body); err != nil {
		t.Fatalf("Chatbot(prod): %v", err)
	}
	if len(calls) != 2 || calls[0] != "dev" || calls[1] != "prod" {
		t.Fatalf("unexpected upstream calls %v", calls)
	}

	if err := settings.SetChatbotEnvironment(ctx, "staging"); kindOf(err) != ErrValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateWithoutAPIKey(t *testing.T) {
	proxy, _ := newTestProxy(t, ProxyConfig{})
	_, err := proxy.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := proxy.Generate(context.Background(), GenerateRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty prompt, got %v", err)
	}
}

package api

import (
	"encoding/json"
	"io"
	"net/http"

	"gwi.com/knsystem/internal/core"
)

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return body, true
}

func writeRaw(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *APIHandler) RAGRetrieveHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	data, err := h.svc.Proxy.Retrieve(r.Context(), body)
	if err != nil {
		h.respondError(w, r, err, "Failed to retrieve data from RAG API")
		return
	}
	writeRaw(w, data)
}

func (h *APIHandler) RAGChatbotHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	data, err := h.svc.Proxy.Chatbot(r.Context(), body)
	if err != nil {
		h.respondError(w, r, err, "Failed to get response from RAG chatbot")
		return
	}
	writeRaw(w, data)
}

func (h *APIHandler) GeminiGenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req core.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.svc.Proxy.Generate(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err, "Failed to generate content from Gemini API")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type EnvironmentRequest struct {
	Environment string `json:"environment"`
}

func (h *APIHandler) GetChatbotEnvironmentHandler(w http.ResponseWriter, r *http.Request) {
	env, err := h.svc.Settings.ChatbotEnvironment(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch chatbot environment setting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "environment": env})
}

func (h *APIHandler) SetChatbotEnvironmentHandler(w http.ResponseWriter, r *http.Request) {
	var req EnvironmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Settings.SetChatbotEnvironment(r.Context(), req.Environment); err != nil {
		h.respondError(w, r, err, "Failed to update chatbot environment setting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "Chatbot environment updated to " + req.Environment,
		"environment": req.Environment,
	})
}

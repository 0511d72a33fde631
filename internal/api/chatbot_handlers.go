package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gwi.com/knsystem/internal/core"
)

func (h *APIHandler) SubmitFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var in core.FeedbackInput
	if !decodeJSON(w, r, &in) {
		return
	}
	id, err := h.svc.Feedback.Submit(r.Context(), caller(r), in)
	if err != nil {
		h.respondError(w, r, err, "Error submitting feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Feedback submitted successfully",
		"feedbackId": id,
	})
}

func (h *APIHandler) FeedbackStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Feedback.Stats(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		h.respondError(w, r, err, "Error fetching feedback statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "stats": stats})
}

func (h *APIHandler) FeedbackUserStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Feedback.UserStats(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Error fetching user statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "stats": stats})
}

func (h *APIHandler) ListFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.Feedback.List(r.Context(), caller(r), q.Get("feedbackType"), q.Get("source"))
	if err != nil {
		h.respondError(w, r, err, "Error fetching feedbacks")
		return
	}
	writeOK(w, "", items)
}

func (h *APIHandler) DeleteFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Feedback.Delete(r.Context(), caller(r), id); err != nil {
		h.respondError(w, r, err, "Error deleting feedback")
		return
	}
	writeOK(w, "Feedback deleted successfully", nil)
}

type SaveMessageRequest struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Message   string `json:"message"`
}

func (h *APIHandler) SaveChatMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req SaveMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Chat.SaveMessage(r.Context(), caller(r), req.SessionID, req.Role, req.Message)
	if err != nil {
		h.respondError(w, r, err, "Error saving conversation message")
		return
	}
	writeOK(w, "Message saved successfully", m)
}

func (h *APIHandler) ListChatSessionsHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Chat.ListSessions(r.Context(), r.URL.Query().Get("search"), pageFromQuery(r))
	if err != nil {
		h.respondError(w, r, err, "Error fetching chatbot conversations")
		return
	}
	writePage(w, res)
}

func (h *APIHandler) GetChatSessionHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.svc.Chat.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, r, err, "Error fetching chatbot conversation")
		return
	}
	writeOK(w, "", messages)
}

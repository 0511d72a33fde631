package api

import (
	"net/http"
	"strconv"

	"gwi.com/knsystem/internal/store"
)

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ConversationFilter{
		Search:        q.Get("search"),
		SortField:     q.Get("sortField"),
		SortDirection: q.Get("sortDirection"),
		OnlyAnalyzed:  q.Get("onlyAnalyzed") == "true",
	}

	res, err := h.svc.Conversations.List(r.Context(), filter, pageFromQuery(r))
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch conversations")
		return
	}
	writePage(w, res)
}

func (h *APIHandler) ConversationIDsHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Conversations.IDs(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch conversation IDs")
		return
	}
	writeOK(w, "", ids)
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	messages, err := h.svc.Conversations.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch conversation")
		return
	}
	writeOK(w, "", messages)
}

func (h *APIHandler) ConversationStatsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	st, err := h.svc.Conversations.Stats(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch conversation stats")
		return
	}
	writeOK(w, "", st)
}

func (h *APIHandler) ConversationsByLockHandler(w http.ResponseWriter, r *http.Request) {
	lock, ok := idParam(w, r, "lockNumber")
	if !ok {
		return
	}
	ids, err := h.svc.Conversations.ByLock(r.Context(), lock)
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch conversations by lock number")
		return
	}
	writeOK(w, "", ids)
}

func (h *APIHandler) DailyCountsHandler(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	counts, err := h.svc.Conversations.DailyCounts(r.Context(), days)
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch daily conversation counts")
		return
	}
	writeOK(w, "", counts)
}

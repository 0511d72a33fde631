package api

import (
	"net/http"

	"gwi.com/knsystem/internal/core"
	"gwi.com/knsystem/internal/store"
	"gwi.com/knsystem/internal/utils"
)

func pageFromQuery(r *http.Request) utils.Page {
	q := r.URL.Query()
	return utils.NewPage(q.Get("page"), q.Get("limit"))
}

func (h *APIHandler) ListKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.KnowledgeFilter{Search: q.Get("search"), Domain: q.Get("domain")}

	res, err := h.svc.Knowledge.List(r.Context(), filter, pageFromQuery(r))
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch knowledge entries")
		return
	}
	writePage(w, res)
}

func (h *APIHandler) GetKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	k, err := h.svc.Knowledge.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch knowledge entry")
		return
	}
	writeOK(w, "", k)
}

func (h *APIHandler) CreateKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	var in core.KnowledgeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	k, err := h.svc.Knowledge.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err, "Failed to create knowledge entry")
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Knowledge entry created successfully", Data: k})
}

func (h *APIHandler) UpdateKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in core.KnowledgeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	k, err := h.svc.Knowledge.Update(r.Context(), id, in)
	if err != nil {
		h.respondError(w, r, err, "Failed to update knowledge entry")
		return
	}
	writeOK(w, "Knowledge entry updated successfully", k)
}

func (h *APIHandler) DeleteKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Knowledge.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err, "Failed to delete knowledge entry")
		return
	}
	writeOK(w, "Knowledge entry deleted successfully", nil)
}

func (h *APIHandler) KnowledgeDomainsHandler(w http.ResponseWriter, r *http.Request) {
	domains, err := h.svc.Knowledge.Domains(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch domains")
		return
	}
	writeOK(w, "", domains)
}

func (h *APIHandler) UniqueKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Knowledge.UniqueKnowledgeCount(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch unique knowledge count")
		return
	}
	writeOK(w, "", map[string]int{"uniqueCount": n})
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// flexInt accepts a JSON number or a numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		var fl float64
		if jsonErr := json.Unmarshal([]byte(s), &fl); jsonErr != nil {
			return err
		}
		n = int64(fl)
	}
	*f = flexInt(n)
	return nil
}

type NoteRequest struct {
	ConversationID flexInt  `json:"conversationId"`
	Note           string   `json:"note"`
	Tags           []string `json:"tags"`
}

func (h *APIHandler) ListNotesHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := idParam(w, r, "conversationID")
	if !ok {
		return
	}
	notes, err := h.svc.Notes.List(r.Context(), conversationID)
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch conversation notes")
		return
	}
	writeOK(w, "", notes)
}

func (h *APIHandler) CreateNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.Notes.Create(r.Context(), caller(r), int64(req.ConversationID), req.Note, req.Tags)
	if err != nil {
		h.respondError(w, r, err, "Failed to add conversation note")
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Note added successfully", Data: note})
}

func (h *APIHandler) UpdateNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.Notes.Update(r.Context(), caller(r), id, req.Note, req.Tags)
	if err != nil {
		h.respondError(w, r, err, "Failed to update conversation note")
		return
	}
	writeOK(w, "Note updated successfully", note)
}

func (h *APIHandler) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Notes.Delete(r.Context(), caller(r), id); err != nil {
		h.respondError(w, r, err, "Failed to delete conversation note")
		return
	}
	writeOK(w, "Note deleted successfully", nil)
}

type TagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *APIHandler) ListTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags.List(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch tags")
		return
	}
	writeOK(w, "", tags)
}

func (h *APIHandler) CreateTagHandler(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag, err := h.svc.Tags.Create(r.Context(), req.Name, req.Color)
	if err != nil {
		h.respondError(w, r, err, "Failed to add tag")
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Tag added successfully", Data: tag})
}

func (h *APIHandler) UpdateTagHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag, err := h.svc.Tags.Update(r.Context(), id, req.Name, req.Color)
	if err != nil {
		h.respondError(w, r, err, "Failed to update tag")
		return
	}
	writeOK(w, "Tag updated successfully", tag)
}

func (h *APIHandler) DeleteTagHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Tags.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err, "Failed to delete tag")
		return
	}
	writeOK(w, "Tag deleted successfully", nil)
}

func (h *APIHandler) TagStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Tags.Stats(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to fetch tag statistics")
		return
	}
	writeOK(w, "", stats)
}

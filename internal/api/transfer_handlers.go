package api

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	uploadField       = "file"
	multipartOverhead = 1 << 20
)

func writeCSVFile(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *APIHandler) ExportKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Transfer.ExportKnowledge(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to export knowledge entries")
		return
	}
	writeCSVFile(w, "knowledge_export.csv", data)
}

func (h *APIHandler) ExportConversationsHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Transfer.ExportConversations(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to export conversations")
		return
	}
	writeCSVFile(w, "conversations.csv", data)
}

func (h *APIHandler) ExportNotesHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Transfer.ExportNotes(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to export conversation notes")
		return
	}
	writeCSVFile(w, "conversation_notes.csv", data)
}

func (h *APIHandler) ImportConversationsHandler(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeFailure(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	// The reader limit above also admits the envelope, so check the file itself.
	if header.Size > h.maxUploadBytes {
		writeFailure(w, http.StatusRequestEntityTooLarge, "File is too large")
		return
	}

	res, err := h.svc.Transfer.ImportConversations(r.Context(), file)
	if err != nil {
		h.respondError(w, r, err, "Failed to import conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   fmt.Sprintf("Import completed. %d of %d records imported successfully.", res.Imported, res.Processed),
		"processed": res.Processed,
		"imported":  res.Imported,
	})
}

type ClearRequest struct {
	ConfirmationText string `json:"confirmationText"`
}

func (h *APIHandler) ClearConversationsHandler(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.svc.Transfer.ClearConversations(r.Context(), req.ConfirmationText)
	if err != nil {
		h.respondError(w, r, err, "Failed to clear conversation table")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      fmt.Sprintf("Successfully cleared %d records from the conversation table", n),
		"deletedCount": n,
	})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gwi.com/knsystem/internal/core"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type PageResponse struct {
	Success    bool        `json:"success"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	Data       interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIResponse{Success: false, Message: message})
}

func writePage[T any](w http.ResponseWriter, res core.PageResult[T]) {
	writeJSON(w, http.StatusOK, PageResponse{
		Success:    true,
		Total:      res.Total,
		Page:       res.Page.Page,
		TotalPages: res.TotalPages(),
		Data:       res.Items,
	})
}

func statusFor(kind error) int {
	switch kind {
	case core.ErrValidation:
		return http.StatusBadRequest
	case core.ErrUnauthorized:
		return http.StatusUnauthorized
	case core.ErrForbidden:
		return http.StatusForbidden
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrConflict:
		return http.StatusConflict
	case core.ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	case core.ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a typed service error as-is. Anything else is logged
// and answered with fallback; the raw error is only echoed in development.
func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var svcErr *core.Error
	if errors.As(err, &svcErr) {
		writeFailure(w, statusFor(svcErr.Kind), svcErr.Message)
		return
	}

	h.logger.Error(fallback,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	resp := APIResponse{Success: false, Message: fallback}
	if h.devMode {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

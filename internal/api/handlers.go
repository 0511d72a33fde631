package api

import (
	"net/http"

	"go.uber.org/zap"
	"gwi.com/knsystem/internal/auth"
	"gwi.com/knsystem/internal/core"
)

// Services groups the domain services the handlers delegate to.
type Services struct {
	Auth          *core.AuthService
	Knowledge     *core.KnowledgeService
	Conversations *core.ConversationService
	Notes         *core.NotesService
	Tags          *core.TagsService
	Feedback      *core.FeedbackService
	Chat          *core.ChatService
	Transfer      *core.TransferService
	Proxy         *core.ProxyService
	Settings      *core.SettingsService
}

type APIHandler struct {
	svc            Services
	tokens         *auth.TokenManager
	logger         *zap.Logger
	devMode        bool
	maxUploadBytes int64
}

type HandlerOptions struct {
	DevMode        bool
	MaxUploadBytes int64
}

func NewAPIHandler(svc Services, tokens *auth.TokenManager, logger *zap.Logger, opts HandlerOptions) *APIHandler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &APIHandler{
		svc:            svc,
		tokens:         tokens,
		logger:         logger,
		devMode:        opts.DevMode,
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.svc.Auth.Signup(r.Context(), req.Username, req.Email, req.Password); err != nil {
		h.respondError(w, r, err, "Error creating user")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":            true,
		"message":            "Registration successful! Your account needs to be activated by an administrator before you can log in.",
		"requiresActivation": true,
	})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err, "Error during login")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Auth.Me(r.Context(), caller(r))
	if err != nil {
		h.respondError(w, r, err, "Error retrieving user information")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *APIHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Auth.ChangePassword(r.Context(), caller(r), req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(w, r, err, "Error changing password")
		return
	}
	writeOK(w, "Password changed successfully", nil)
}

func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Auth.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Error retrieving users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": users})
}

type RoleRequest struct {
	Role string `json:"role"`
}

func (h *APIHandler) UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(w, r, "userID")
	if !ok {
		return
	}
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Auth.SetRole(r.Context(), userID, req.Role); err != nil {
		h.respondError(w, r, err, "Error updating user role")
		return
	}
	writeOK(w, "User role updated to "+req.Role+" successfully", nil)
}

type ActivationRequest struct {
	Activate *bool `json:"activate"`
}

func (h *APIHandler) ActivateUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(w, r, "userID")
	if !ok {
		return
	}
	var req ActivationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Auth.SetActivation(r.Context(), userID, req.Activate); err != nil {
		h.respondError(w, r, err, "Error updating user activation status")
		return
	}
	state := "deactivated"
	if *req.Activate {
		state = "activated"
	}
	writeOK(w, "User "+state+" successfully", nil)
}

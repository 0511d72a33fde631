package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"gwi.com/knsystem/internal/auth"
)

const maxJSONBodyBytes = 1 << 20

func NewRouter(apiHandler *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(apiHandler.logger))
	r.Use(recoverer(apiHandler.logger))
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	requireStaff := RequireRoles(auth.StaffRoles...)
	requireAdmin := RequireRoles(auth.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// The CSV upload sets its own, larger limit.
		r.With(apiHandler.Authenticate, requireStaff).
			Post("/import/conversations", apiHandler.ImportConversationsHandler)

		r.Group(func(r chi.Router) {
			r.Use(maxBody(maxJSONBodyBytes))

			// Public routes
			r.Post("/auth/signup", apiHandler.SignupHandler)
			r.Post("/auth/login", apiHandler.LoginHandler)

			// Any authenticated caller, including the chatbot account
			r.Group(func(r chi.Router) {
				r.Use(apiHandler.Authenticate)

				r.Get("/auth/me", apiHandler.MeHandler)
				r.Post("/auth/change-password", apiHandler.ChangePasswordHandler)

				r.Get("/knowledge", apiHandler.ListKnowledgeHandler)
				r.Get("/knowledge/domains", apiHandler.KnowledgeDomainsHandler)
				r.Get("/knowledge/stats/unique-knowledge", apiHandler.UniqueKnowledgeHandler)
				r.Get("/knowledge/{id}", apiHandler.GetKnowledgeHandler)

				r.Post("/chatbot/feedback", apiHandler.SubmitFeedbackHandler)
				r.Post("/chatbot/conversation/save", apiHandler.SaveChatMessageHandler)

				r.Post("/proxy/rag/retrieve", apiHandler.RAGRetrieveHandler)
				r.Post("/proxy/rag-chatbot", apiHandler.RAGChatbotHandler)
				r.Post("/proxy/gemini/generate", apiHandler.GeminiGenerateHandler)

				r.Get("/settings/chatbot-environment", apiHandler.GetChatbotEnvironmentHandler)
			})

			// Admin and user accounts
			r.Group(func(r chi.Router) {
				r.Use(apiHandler.Authenticate)
				r.Use(requireStaff)

				r.Post("/knowledge", apiHandler.CreateKnowledgeHandler)
				r.Put("/knowledge/{id}", apiHandler.UpdateKnowledgeHandler)
				r.Delete("/knowledge/{id}", apiHandler.DeleteKnowledgeHandler)

				r.Route("/conversation", func(r chi.Router) {
					r.Get("/list", apiHandler.ListConversationsHandler)
					r.Get("/ids", apiHandler.ConversationIDsHandler)
					r.Get("/daily-counts", apiHandler.DailyCountsHandler)
					r.Get("/stats/{id}", apiHandler.ConversationStatsHandler)
					r.Get("/by-lock/{lockNumber}", apiHandler.ConversationsByLockHandler)
					r.Get("/{id}", apiHandler.GetConversationHandler)
				})

				r.Get("/notes/{conversationID}", apiHandler.ListNotesHandler)
				r.Post("/notes", apiHandler.CreateNoteHandler)
				r.Put("/notes/{id}", apiHandler.UpdateNoteHandler)
				r.Delete("/notes/{id}", apiHandler.DeleteNoteHandler)

				r.Get("/tags", apiHandler.ListTagsHandler)
				r.Get("/tags/stats", apiHandler.TagStatsHandler)
				r.Post("/tags", apiHandler.CreateTagHandler)
				r.Put("/tags/{id}", apiHandler.UpdateTagHandler)
				r.Delete("/tags/{id}", apiHandler.DeleteTagHandler)

				r.Get("/chatbot/feedback-stats", apiHandler.FeedbackStatsHandler)
				r.Get("/chatbot/user-stats", apiHandler.FeedbackUserStatsHandler)
				r.Get("/chatbot/feedbacks", apiHandler.ListFeedbackHandler)
				r.Delete("/chatbot/feedback/{id}", apiHandler.DeleteFeedbackHandler)
				r.Get("/chatbot/conversations", apiHandler.ListChatSessionsHandler)
				r.Get("/chatbot/conversations/{sessionID}", apiHandler.GetChatSessionHandler)

				r.Get("/export/knowledge", apiHandler.ExportKnowledgeHandler)
				r.Get("/export/conversations", apiHandler.ExportConversationsHandler)
				r.Get("/export/conversation-notes", apiHandler.ExportNotesHandler)
				r.Post("/import/clear-conversations", apiHandler.ClearConversationsHandler)
			})

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(apiHandler.Authenticate)
				r.Use(requireAdmin)

				r.Get("/auth/users", apiHandler.ListUsersHandler)
				r.Patch("/auth/users/{userID}/role", apiHandler.UpdateRoleHandler)
				r.Patch("/auth/activate/{userID}", apiHandler.ActivateUserHandler)
				r.Put("/settings/chatbot-environment", apiHandler.SetChatbotEnvironmentHandler)
			})
		})
	})

	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
		handlers.AllowCredentials(),
	)(r)
}

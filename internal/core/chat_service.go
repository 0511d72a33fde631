package core

import (
	"context"
	"strings"

	"gwi.com/knsystem/internal/auth"
	"gwi.com/knsystem/internal/store"
	"gwi.com/knsystem/internal/utils"
)

// ChatService keeps the transcript of chatbot sessions. A session exists
// only as the set of messages sharing a session_id.
type ChatService struct {
	dbStore *store.SQLiteStore
}

func NewChatService(db *store.SQLiteStore) *ChatService {
	return &ChatService{dbStore: db}
}

func (s *ChatService) SaveMessage(ctx context.Context, caller auth.Identity, sessionID, role, message string) (*store.ChatbotMessage, error) {
	if strings.TrimSpace(sessionID) == "" || role == "" || message == "" {
		return nil, validation("Session ID, role, and message are required")
	}
	if role != "user" && role != "assistant" {
		return nil, validation("Role must be either user or assistant")
	}

	m := &store.ChatbotMessage{
		SessionID: sessionID,
		UserID:    caller.ID,
		Username:  caller.Username,
		Role:      role,
		Message:   message,
	}
	if err := s.dbStore.CreateChatbotMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ChatService) ListSessions(ctx context.Context, search string, page utils.Page) (PageResult[store.ChatSession], error) {
	items, total, err := s.dbStore.ListChatSessions(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return PageResult[store.ChatSession]{}, err
	}
	return PageResult[store.ChatSession]{Items: items, Total: total, Page: page}, nil
}

func (s *ChatService) GetSession(ctx context.Context, sessionID string) ([]store.ChatbotMessage, error) {
	messages, err := s.dbStore.GetChatSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, newError(ErrNotFound, "Conversation not found")
	}
	return messages, nil
}

package core

import (
	"context"

	"gwi.com/knsystem/internal/store"
	"gwi.com/knsystem/internal/utils"
)

const (
	DefaultDailyCountDays = 10
	conversationNotFound  = "Conversation not found"
)

// ConversationService answers read-only questions about imported
// conversation transcripts. Conversations are never stored as such; they
// are the rows of AnalayzeData grouped by Conversation_ID.
type ConversationService struct {
	dbStore *store.SQLiteStore
}

func NewConversationService(db *store.SQLiteStore) *ConversationService {
	return &ConversationService{dbStore: db}
}

func (s *ConversationService) List(ctx context.Context, f store.ConversationFilter, page utils.Page) (PageResult[store.ConversationSummary], error) {
	items, total, err := s.dbStore.ListConversations(ctx, f, page)
	if err != nil {
		return PageResult[store.ConversationSummary]{}, err
	}
	return PageResult[store.ConversationSummary]{Items: items, Total: total, Page: page}, nil
}

func (s *ConversationService) IDs(ctx context.Context) ([]int64, error) {
	return s.dbStore.ConversationIDs(ctx)
}

func (s *ConversationService) Get(ctx context.Context, id int64) ([]store.ConversationMessage, error) {
	messages, err := s.dbStore.GetConversationMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, newError(ErrNotFound, conversationNotFound)
	}
	return messages, nil
}

func (s *ConversationService) Stats(ctx context.Context, id int64) (store.ConversationStats, error) {
	st, err := s.dbStore.GetConversationStats(ctx, id)
	if err != nil {
		return st, err
	}
	if st.TotalMessages == 0 {
		return st, newError(ErrNotFound, conversationNotFound)
	}
	return st, nil
}

func (s *ConversationService) ByLock(ctx context.Context, lockNumber int64) ([]int64, error) {
	return s.dbStore.ConversationsByLock(ctx, lockNumber)
}

func (s *ConversationService) DailyCounts(ctx context.Context, days int) ([]store.DailyCount, error) {
	if days <= 0 {
		days = DefaultDailyCountDays
	}
	return s.dbStore.DailyConversationCounts(ctx, days)
}

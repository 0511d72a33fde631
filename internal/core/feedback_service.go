package core

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gwi.com/knsystem/internal/auth"
	"gwi.com/knsystem/internal/store"
)

const (
	SourceChatbot      = "chatbot"
	SourceConversation = "conversation"

	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

var feedbackSources = []string{SourceChatbot, SourceConversation}

type FeedbackService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
}

func NewFeedbackService(db *store.SQLiteStore, logger *zap.Logger) *FeedbackService {
	return &FeedbackService{dbStore: db, logger: logger}
}

// FeedbackInput is a submitted rating. Only Message, Response and
// FeedbackType are mandatory; a negative rating without a reason is accepted.
type FeedbackInput struct {
	Message        string  `json:"message"`
	Response       string  `json:"response"`
	FeedbackType   string  `json:"feedbackType"`
	Reason         *string `json:"reason"`
	Source         string  `json:"source"`
	ConversationID *string `json:"conversationId"`
	MessageIndex   *int64  `json:"messageIndex"`
	SessionID      *string `json:"sessionId"`
	Tag            *string `json:"tag"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type SourceStats struct {
	store.FeedbackCounts
	TagStats []TagCount `json:"tagStats"`
}

type FeedbackStats struct {
	store.FeedbackCounts
	TagStats []TagCount            `json:"tagStats"`
	BySource map[string]SourceStats `json:"bySource"`
}

func (s *FeedbackService) Submit(ctx context.Context, caller auth.Identity, in FeedbackInput) (int64, error) {
	if in.Message == "" || in.Response == "" || in.FeedbackType == "" {
		return 0, validation("Message, response, and feedback type are required")
	}
	if in.FeedbackType != FeedbackPositive && in.FeedbackType != FeedbackNegative {
		return 0, validation("Feedback type must be either positive or negative")
	}
	if in.Source == "" {
		in.Source = SourceChatbot
	}
	if in.Source != SourceChatbot && in.Source != SourceConversation {
		return 0, validation("Source must be either chatbot or conversation")
	}

	f := &store.Feedback{
		UserID:         caller.ID,
		Username:       caller.Username,
		Message:        in.Message,
		Response:       in.Response,
		FeedbackType:   in.FeedbackType,
		Reason:         in.Reason,
		Source:         in.Source,
		ConversationID: in.ConversationID,
		MessageIndex:   in.MessageIndex,
		SessionID:      in.SessionID,
		Tag:            in.Tag,
	}
	if err := s.dbStore.CreateFeedback(ctx, f); err != nil {
		return 0, err
	}
	return f.ID, nil
}

// Stats aggregates feedback for one source, or for all sources when source
// is empty. Per-source figures are always included.
func (s *FeedbackService) Stats(ctx context.Context, source string) (FeedbackStats, error) {
	if source != "" && source != SourceChatbot && source != SourceConversation {
		return FeedbackStats{}, validation("Source must be either chatbot or conversation")
	}

	tallies, err := s.dbStore.FeedbackTallies(ctx)
	if err != nil {
		return FeedbackStats{}, err
	}
	rawTags, err := s.dbStore.NegativeFeedbackTags(ctx)
	if err != nil {
		return FeedbackStats{}, err
	}

	out := FeedbackStats{BySource: make(map[string]SourceStats, len(feedbackSources))}
	perSource := make(map[string]*store.FeedbackCounts, len(feedbackSources))
	for _, src := range feedbackSources {
		perSource[src] = &store.FeedbackCounts{}
	}
	for _, t := range tallies {
		if c, ok := perSource[t.Source]; ok {
			c.Add(t.FeedbackType, t.Count)
		}
		if source == "" || t.Source == source {
			out.Add(t.FeedbackType, t.Count)
		}
	}

	for _, src := range feedbackSources {
		out.BySource[src] = SourceStats{
			FeedbackCounts: *perSource[src],
			TagStats:       countTags(rawTags, src),
		}
	}
	out.TagStats = countTags(rawTags, source)
	return out, nil
}

// countTags splits comma-joined tag strings and counts each trimmed tag.
// An empty source counts every row. Ties are broken alphabetically.
func countTags(rows []store.SourceTag, source string) []TagCount {
	counts := map[string]int{}
	for _, r := range rows {
		if source != "" && r.Source != source {
			continue
		}
		for _, tag := range strings.Split(r.Tag, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				counts[tag]++
			}
		}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func (s *FeedbackService) UserStats(ctx context.Context) ([]store.UserMessageCount, error) {
	return s.dbStore.FeedbackUserStats(ctx)
}

func (s *FeedbackService) List(ctx context.Context, caller auth.Identity, feedbackType, source string) ([]store.Feedback, error) {
	if caller.Role == auth.RoleChatbot {
		return nil, newError(ErrForbidden, "Access denied")
	}
	return s.dbStore.ListFeedback(ctx, feedbackType, source)
}

func (s *FeedbackService) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if caller.Role == auth.RoleChatbot {
		return newError(ErrForbidden, "Access denied")
	}
	if err := s.dbStore.DeleteFeedback(ctx, id); err != nil {
		return translate(err, "Feedback not found")
	}
	s.logger.Info("feedback deleted", zap.Int64("feedback_id", id), zap.String("by", caller.Username))
	return nil
}

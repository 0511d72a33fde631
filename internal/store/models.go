package store

import "time"

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Do not expose this in JSON responses
	IsActivated  bool       `json:"is_activated"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

type Knowledge struct {
	UniqueID         int64  `json:"UniqueID"`
	KnowledgeNumber  int64  `json:"knowledge_number"`
	Problem          string `json:"problem"`
	DetailedSolution string `json:"detailed_solution"`
	Domain           string `json:"domain"`
}

type KnowledgeFilter struct {
	Search string
	Domain string
}

// ConversationMessage is one AnalayzeData row.
type ConversationMessage struct {
	ID             int64   `json:"id"`
	ConversationID int64   `json:"Conversation_ID"`
	IsBot          bool    `json:"IS_BOT"`
	Message        string  `json:"message"`
	Time           string  `json:"Time"`
	LockNumber     int64   `json:"LockNumber"`
	Metric1        *string `json:"Metric1"`
	Metric2        *string `json:"Metric2"`
}

// ConversationSummary is the read-only projection of all rows sharing a
// Conversation_ID.
type ConversationSummary struct {
	ConversationID   int64  `json:"Conversation_ID"`
	MessageCount     int    `json:"message_count"`
	FirstMessageTime string `json:"first_message_time"`
	LastMessageTime  string `json:"last_message_time"`
	Analyzed         int    `json:"analyzed"` // 1 when every bot message has conversation feedback
}

type ConversationFilter struct {
	Search        string
	SortField     string
	SortDirection string
	OnlyAnalyzed  bool
}

type ConversationStats struct {
	TotalMessages int `json:"totalMessages"`
	BotMessages   int `json:"botMessages"`
	UserMessages  int `json:"userMessages"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Note struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Note           string    `json:"note"`
	Tags           string    `json:"tags"`
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type TagStat struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type Feedback struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	FeedbackType   string    `json:"feedback_type"`
	Reason         *string   `json:"reason"`
	Source         string    `json:"source"`
	ConversationID *string   `json:"conversation_id"`
	MessageIndex   *int64    `json:"message_index"`
	SessionID      *string   `json:"session_id"`
	Tag            *string   `json:"tag"`
	CreatedAt      time.Time `json:"created_at"`
}

type FeedbackCounts struct {
	TotalPositive int `json:"totalPositive"`
	TotalNegative int `json:"totalNegative"`
	Total         int `json:"total"`
}

func (c *FeedbackCounts) Add(feedbackType string, n int) {
	switch feedbackType {
	case "positive":
		c.TotalPositive += n
	case "negative":
		c.TotalNegative += n
	}
	c.Total += n
}

// FeedbackTally is the row count for one (source, feedback_type) pair.
type FeedbackTally struct {
	Source       string
	FeedbackType string
	Count        int
}

// SourceTag is the raw tag column of one negative feedback row.
type SourceTag struct {
	Source string
	Tag    string
}

type UserMessageCount struct {
	Username     string `json:"username"`
	MessageCount int    `json:"messageCount"`
}

type ChatbotMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatSession struct {
	SessionID       string `json:"session_id"`
	Username        string `json:"username"`
	UserID          int64  `json:"user_id"`
	MessageCount    int    `json:"message_count"`
	LastMessageTime string `json:"last_message_time"`
	LastMessage     string `json:"last_message"`
}

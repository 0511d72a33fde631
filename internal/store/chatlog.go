package store

import (
	"context"
	"database/sql"
	"fmt"

	"gwi.com/knsystem/internal/utils"
)

const chatbotMessageColumns = "id, session_id, user_id, username, role, message, created_at"

func (s *SQLiteStore) CreateChatbotMessage(ctx context.Context, m *ChatbotMessage) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO chatbot_conversations (session_id, user_id, username, role, message) VALUES (?, ?, ?, ?, ?)",
		m.SessionID, m.UserID, m.Username, m.Role, m.Message)
	if err != nil {
		return fmt.Errorf("failed to insert chatbot message: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	if err := s.db.QueryRowContext(ctx,
		"SELECT created_at FROM chatbot_conversations WHERE id = ?", m.ID).Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("failed to read back chatbot message: %w", err)
	}
	return nil
}

// chatSessionWhere keeps every row of a session once any of its rows
// matches the search.
func chatSessionWhere(search string) (string, []interface{}) {
	if search == "" {
		return "", nil
	}
	like := "%" + search + "%"
	return ` WHERE c.session_id IN (
            SELECT session_id FROM chatbot_conversations
            WHERE message LIKE ? OR username LIKE ? OR session_id LIKE ?)`,
		[]interface{}{like, like, like}
}

func (s *SQLiteStore) ListChatSessions(ctx context.Context, search string, page utils.Page) ([]ChatSession, int, error) {
	where, args := chatSessionWhere(search)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT c.session_id) FROM chatbot_conversations c"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count chat sessions: %w", err)
	}

	query := `
        SELECT
            c.session_id,
            MAX(c.username),
            MAX(c.user_id),
            COUNT(*) AS message_count,
            MAX(c.created_at) AS last_message_time,
            (SELECT m.message FROM chatbot_conversations m
             WHERE m.session_id = c.session_id
             ORDER BY m.created_at DESC, m.id DESC LIMIT 1) AS last_message
        FROM chatbot_conversations c` + where + `
        GROUP BY c.session_id
        ORDER BY last_message_time DESC, c.session_id ASC
        LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ChatSession{}
	for rows.Next() {
		var cs ChatSession
		var lastTime, lastMessage sql.NullString
		if err := rows.Scan(&cs.SessionID, &cs.Username, &cs.UserID, &cs.MessageCount, &lastTime, &lastMessage); err != nil {
			return nil, 0, fmt.Errorf("failed to scan chat session: %w", err)
		}
		cs.LastMessageTime = lastTime.String
		cs.LastMessage = lastMessage.String
		sessions = append(sessions, cs)
	}
	return sessions, total, rows.Err()
}

func (s *SQLiteStore) GetChatSession(ctx context.Context, sessionID string) ([]ChatbotMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chatbotMessageColumns+" FROM chatbot_conversations WHERE session_id = ? ORDER BY id ASC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat session: %w", err)
	}
	defer rows.Close()

	messages := []ChatbotMessage{}
	for rows.Next() {
		var m ChatbotMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Username, &m.Role, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chatbot message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

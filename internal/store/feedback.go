package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const feedbackColumns = "id, user_id, username, message, response, feedback_type, reason, source, conversation_id, message_index, session_id, tag, created_at"

func scanFeedback(row scanner) (*Feedback, error) {
	var f Feedback
	var userID, messageIndex sql.NullInt64
	var username, source, reason, conversationID, sessionID, tag sql.NullString
	if err := row.Scan(&f.ID, &userID, &username, &f.Message, &f.Response, &f.FeedbackType,
		&reason, &source, &conversationID, &messageIndex, &sessionID, &tag, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.UserID = userID.Int64
	f.Username = username.String
	f.Source = source.String
	if f.Source == "" {
		f.Source = "chatbot"
	}
	f.Reason = stringPtr(reason)
	f.ConversationID = stringPtr(conversationID)
	f.MessageIndex = int64Ptr(messageIndex)
	f.SessionID = stringPtr(sessionID)
	f.Tag = stringPtr(tag)
	return &f, nil
}

func (s *SQLiteStore) CreateFeedback(ctx context.Context, f *Feedback) error {
	var messageIndex interface{}
	if f.MessageIndex != nil {
		messageIndex = *f.MessageIndex
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO chatbot_feedback
            (user_id, username, message, response, feedback_type, reason, source, conversation_id, message_index, session_id, tag)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.UserID, f.Username, f.Message, f.Response, f.FeedbackType, ptrValue(f.Reason), f.Source,
		ptrValue(f.ConversationID), messageIndex, ptrValue(f.SessionID), ptrValue(f.Tag))
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	f.ID, _ = res.LastInsertId()
	return nil
}

// ListFeedback returns feedback newest first. Empty filters match all rows.
func (s *SQLiteStore) ListFeedback(ctx context.Context, feedbackType, source string) ([]Feedback, error) {
	var conds []string
	var args []interface{}
	if feedbackType != "" {
		conds = append(conds, "feedback_type = ?")
		args = append(args, feedbackType)
	}
	if source != "" {
		conds = append(conds, "COALESCE(source, 'chatbot') = ?")
		args = append(args, source)
	}

	query := "SELECT " + feedbackColumns + " FROM chatbot_feedback"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	items := []Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) DeleteFeedback(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chatbot_feedback WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return checkAffected(res)
}

// FeedbackTallies counts feedback rows per source and type. Rows stored
// without a source are reported as chatbot.
func (s *SQLiteStore) FeedbackTallies(ctx context.Context) ([]FeedbackTally, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT COALESCE(source, 'chatbot') AS src, feedback_type, COUNT(*)
        FROM chatbot_feedback
        GROUP BY src, feedback_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback tallies: %w", err)
	}
	defer rows.Close()

	tallies := []FeedbackTally{}
	for rows.Next() {
		var t FeedbackTally
		if err := rows.Scan(&t.Source, &t.FeedbackType, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan feedback tally: %w", err)
		}
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}

// NegativeFeedbackTags returns the raw tag column of every negative
// feedback row that has one.
func (s *SQLiteStore) NegativeFeedbackTags(ctx context.Context) ([]SourceTag, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT COALESCE(source, 'chatbot'), tag
        FROM chatbot_feedback
        WHERE feedback_type = 'negative' AND tag IS NOT NULL AND tag != ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback tags: %w", err)
	}
	defer rows.Close()

	tags := []SourceTag{}
	for rows.Next() {
		var st SourceTag
		if err := rows.Scan(&st.Source, &st.Tag); err != nil {
			return nil, fmt.Errorf("failed to scan feedback tag: %w", err)
		}
		tags = append(tags, st)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) FeedbackUserStats(ctx context.Context) ([]UserMessageCount, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT COALESCE(username, ''), COUNT(*) AS message_count
        FROM chatbot_feedback
        GROUP BY username
        ORDER BY message_count DESC, username ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback user stats: %w", err)
	}
	defer rows.Close()

	stats := []UserMessageCount{}
	for rows.Next() {
		var u UserMessageCount
		if err := rows.Scan(&u.Username, &u.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan user stat: %w", err)
		}
		stats = append(stats, u)
	}
	return stats, rows.Err()
}

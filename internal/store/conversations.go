package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gwi.com/knsystem/internal/utils"
)

// A conversation counts as analyzed once it has as many distinct reviewed
// message indexes as it has bot messages, and at least one bot message.
const conversationSummaryQuery = `
    SELECT
        c.Conversation_ID,
        COUNT(*) AS message_count,
        MIN(c.Time) AS first_message_time,
        MAX(c.Time) AS last_message_time,
        CASE
            WHEN bc.bot_count = fc.feedback_count AND bc.bot_count > 0 THEN 1
            ELSE 0
        END AS analyzed
    FROM AnalayzeData c
    LEFT JOIN (
        SELECT Conversation_ID, COUNT(*) AS bot_count
        FROM AnalayzeData
        WHERE IS_BOT = 1
        GROUP BY Conversation_ID
    ) bc ON c.Conversation_ID = bc.Conversation_ID
    LEFT JOIN (
        SELECT CAST(conversation_id AS INTEGER) AS conversation_id, COUNT(DISTINCT message_index) AS feedback_count
        FROM chatbot_feedback
        WHERE source = 'conversation' AND conversation_id GLOB '[0-9]*' AND conversation_id NOT GLOB '*[^0-9]*'
        GROUP BY CAST(conversation_id AS INTEGER)
    ) fc ON c.Conversation_ID = fc.conversation_id`

// conversationSortColumns is the allow-list of sortable columns. Only
// values from this map ever reach the ORDER BY clause.
var conversationSortColumns = map[string]string{
	"Conversation_ID": "s.Conversation_ID",
	"message_count":   "s.message_count",
}

const conversationColumns = "id, Conversation_ID, IS_BOT, message, Time, LockNumber, Metric1, Metric2"

func scanConversationMessage(row scanner) (*ConversationMessage, error) {
	var m ConversationMessage
	var isBot, lock sql.NullInt64
	var message, t, metric1, metric2 sql.NullString
	if err := row.Scan(&m.ID, &m.ConversationID, &isBot, &message, &t, &lock, &metric1, &metric2); err != nil {
		return nil, err
	}
	m.IsBot = isBot.Int64 == 1
	m.Message = message.String
	m.Time = t.String
	m.LockNumber = lock.Int64
	m.Metric1 = stringPtr(metric1)
	m.Metric2 = stringPtr(metric2)
	return &m, nil
}

// conversationProjection returns the grouped query filtered by search and
// wrapped so the analyzed flag can be filtered on. Both the page query and
// the count query select from it, keeping their predicates identical.
func conversationProjection(f ConversationFilter) (string, []interface{}) {
	query := conversationSummaryQuery
	var args []interface{}

	if f.Search != "" {
		if n, ok := utils.NumericSearch(f.Search); ok {
			query += " WHERE c.Conversation_ID = ?"
			args = append(args, n)
		} else {
			query += " WHERE c.Conversation_ID IN (SELECT Conversation_ID FROM AnalayzeData WHERE message LIKE ?)"
			args = append(args, "%"+f.Search+"%")
		}
	}
	query += " GROUP BY c.Conversation_ID"

	projection := "FROM (" + query + ") s"
	if f.OnlyAnalyzed {
		projection += " WHERE s.analyzed = 1"
	}
	return projection, args
}

func conversationOrder(f ConversationFilter) string {
	column, ok := conversationSortColumns[f.SortField]
	if !ok {
		column = conversationSortColumns["Conversation_ID"]
	}
	direction := "DESC"
	if strings.EqualFold(f.SortDirection, "asc") {
		direction = "ASC"
	}

	order := " ORDER BY " + column + " " + direction
	if column != "s.Conversation_ID" {
		order += ", s.Conversation_ID ASC"
	}
	return order
}

func (s *SQLiteStore) ListConversations(ctx context.Context, f ConversationFilter, page utils.Page) ([]ConversationSummary, int, error) {
	projection, args := conversationProjection(f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) "+projection, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	query := "SELECT s.Conversation_ID, s.message_count, s.first_message_time, s.last_message_time, s.analyzed " +
		projection + conversationOrder(f) + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	summaries := []ConversationSummary{}
	for rows.Next() {
		var c ConversationSummary
		var first, last sql.NullString
		if err := rows.Scan(&c.ConversationID, &c.MessageCount, &first, &last, &c.Analyzed); err != nil {
			return nil, 0, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		c.FirstMessageTime = first.String
		c.LastMessageTime = last.String
		summaries = append(summaries, c)
	}
	return summaries, total, rows.Err()
}

func (s *SQLiteStore) ConversationIDs(ctx context.Context) ([]int64, error) {
	return s.queryIDs(ctx, "SELECT DISTINCT Conversation_ID FROM AnalayzeData ORDER BY Conversation_ID")
}

// ConversationsByLock lists conversations touching a lock number, the most
// recently active first.
func (s *SQLiteStore) ConversationsByLock(ctx context.Context, lockNumber int64) ([]int64, error) {
	return s.queryIDs(ctx, `
        SELECT Conversation_ID
        FROM AnalayzeData
        WHERE LockNumber = ?
        GROUP BY Conversation_ID
        ORDER BY MAX(Time) DESC, Conversation_ID ASC`, lockNumber)
}

func (s *SQLiteStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) GetConversationMessages(ctx context.Context, conversationID int64) ([]ConversationMessage, error) {
	return s.queryConversationMessages(ctx,
		"SELECT "+conversationColumns+" FROM AnalayzeData WHERE Conversation_ID = ? ORDER BY Time ASC, id ASC", conversationID)
}

func (s *SQLiteStore) AllConversationMessages(ctx context.Context) ([]ConversationMessage, error) {
	return s.queryConversationMessages(ctx,
		"SELECT "+conversationColumns+" FROM AnalayzeData ORDER BY Conversation_ID ASC, id ASC")
}

func (s *SQLiteStore) queryConversationMessages(ctx context.Context, query string, args ...interface{}) ([]ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []ConversationMessage{}
	for rows.Next() {
		m, err := scanConversationMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) GetConversationStats(ctx context.Context, conversationID int64) (ConversationStats, error) {
	var st ConversationStats
	err := s.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN IS_BOT = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN IS_BOT = 0 THEN 1 ELSE 0 END), 0)
        FROM AnalayzeData
        WHERE Conversation_ID = ?`, conversationID).Scan(&st.TotalMessages, &st.BotMessages, &st.UserMessages)
	if err != nil {
		return st, fmt.Errorf("failed to query conversation stats: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) DailyConversationCounts(ctx context.Context, days int) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT DATE(Time) AS day, COUNT(DISTINCT Conversation_ID)
        FROM AnalayzeData
        WHERE DATE(Time) >= DATE('now', '-' || ? || ' days')
        GROUP BY DATE(Time)
        ORDER BY day DESC
        LIMIT ?`, days, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	counts := []DailyCount{}
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// InsertConversationMessages appends rows one statement at a time. It
// returns how many rows were stored; failures of individual rows are
// combined into the returned error without stopping the rest.
func (s *SQLiteStore) InsertConversationMessages(ctx context.Context, messages []ConversationMessage) (int, error) {
	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO AnalayzeData (Conversation_ID, IS_BOT, message, Time, LockNumber, Metric1, Metric2) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	var errs error
	for i, m := range messages {
		isBot := 0
		if m.IsBot {
			isBot = 1
		}
		res, err := stmt.ExecContext(ctx, m.ConversationID, isBot, m.Message, m.Time, m.LockNumber, ptrValue(m.Metric1), ptrValue(m.Metric2))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		if id, err := res.LastInsertId(); err == nil {
			messages[i].ID = id
		}
		inserted++
	}
	return inserted, errs
}

func (s *SQLiteStore) ClearConversations(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM AnalayzeData")
	if err != nil {
		return 0, fmt.Errorf("failed to clear conversations: %w", err)
	}
	return res.RowsAffected()
}

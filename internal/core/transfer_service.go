package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gwi.com/knsystem/internal/store"
	"gwi.com/knsystem/internal/utils"
)

const (
	ClearConfirmation = "Delete"
	sqliteTimeLayout  = "2006-01-02 15:04:05"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	knowledgeExportHeader    = []string{"UniqueID", "knowledge_number", "problem", "detailed_solution", "domain"}
	conversationExportHeader = []string{"Conversation_ID", "IS_BOT", "message", "Time", "LockNumber", "Metric1", "Metric2"}
	noteExportHeader         = []string{"id", "conversation_id", "note", "tags", "username", "created_at", "updated_at"}
)

// Import columns, in the positional order used when a file has no header.
const (
	colConversationID = iota
	colIsBot
	colMessage
	colTime
	colLockNumber
	colMetric1
	colMetric2
	importColumnCount
)

// importAliases lists, per column, the header names accepted for it in
// order of preference. Matching is case-insensitive.
var importAliases = [importColumnCount][]string{
	colConversationID: {"Conversation_ID", "ConversationID", "conversationId", "conversation_id"},
	colIsBot:          {"IS_BOT", "IsBot", "is_bot"},
	colMessage:        {"message", "text"},
	colTime:           {"Time", "timestamp", "date"},
	colLockNumber:     {"LockNumber", "lock_number"},
	colMetric1:        {"Metric1"},
	colMetric2:        {"Metric2"},
}

type TransferService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
	now     func() time.Time
}

func NewTransferService(db *store.SQLiteStore, logger *zap.Logger) *TransferService {
	return &TransferService{dbStore: db, logger: logger, now: time.Now}
}

type ImportResult struct {
	Processed int `json:"processed"`
	Imported  int `json:"imported"`
}

// columnMap resolves each import column to a CSV index, or -1 when absent.
type columnMap [importColumnCount]int

func positionalColumns() columnMap {
	var m columnMap
	for i := range m {
		m[i] = i
	}
	return m
}

// headerColumns reports whether row looks like a header and, if so, where
// each column lives. A row is a header when any cell matches any alias.
func headerColumns(row []string) (columnMap, bool) {
	index := make(map[string]int, len(row))
	for i, cell := range row {
		key := strings.ToLower(strings.TrimSpace(cell))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	var m columnMap
	found := false
	for col, aliases := range importAliases {
		m[col] = -1
		for _, alias := range aliases {
			if i, ok := index[strings.ToLower(alias)]; ok {
				m[col] = i
				found = true
				break
			}
		}
	}
	return m, found
}

func (m columnMap) value(row []string, col int) string {
	i := m[col]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseIsBot(s string) bool {
	if b, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
		return b
	}
	return utils.LooseInt(s) != 0
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ImportConversations appends the rows of a CSV upload to AnalayzeData.
// Rows without a conversation id or message are skipped; rows that fail to
// insert are logged and counted as not imported.
func (s *TransferService) ImportConversations(ctx context.Context, r io.Reader) (ImportResult, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var result ImportResult
	var rows []store.ConversationMessage
	var columns columnMap
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, newError(ErrValidation, "Invalid CSV file: %v", err)
		}

		if first {
			first = false
			if m, ok := headerColumns(record); ok {
				columns = m
				continue
			}
			columns = positionalColumns()
		}
		result.Processed++

		convID := columns.value(record, colConversationID)
		message := columns.value(record, colMessage)
		if convID == "" || message == "" {
			s.logger.Debug("skipping import row without conversation id or message", zap.Int("row", result.Processed))
			continue
		}

		at := columns.value(record, colTime)
		if at == "" {
			at = s.now().UTC().Format(time.RFC3339)
		}
		rows = append(rows, store.ConversationMessage{
			ConversationID: utils.LooseInt(convID),
			IsBot:          parseIsBot(columns.value(record, colIsBot)),
			Message:        message,
			Time:           at,
			LockNumber:     utils.LooseInt(columns.value(record, colLockNumber)),
			Metric1:        optional(columns.value(record, colMetric1)),
			Metric2:        optional(columns.value(record, colMetric2)),
		})
	}

	imported, err := s.dbStore.InsertConversationMessages(ctx, rows)
	result.Imported = imported
	if err != nil {
		if imported == 0 && len(rows) > 0 {
			return result, err
		}
		for _, rowErr := range multierr.Errors(err) {
			s.logger.Warn("failed to import conversation row", zap.Error(rowErr))
		}
	}
	s.logger.Info("conversation import finished",
		zap.Int("processed", result.Processed), zap.Int("imported", result.Imported))
	return result, nil
}

// ClearConversations deletes every imported row. The confirmation must be
// exactly "Delete".
func (s *TransferService) ClearConversations(ctx context.Context, confirmation string) (int64, error) {
	if confirmation != ClearConfirmation {
		return 0, validation(`Confirmation text "Delete" is required to clear the table`)
	}
	n, err := s.dbStore.ClearConversations(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("conversation table cleared", zap.Int64("deleted", n))
	return n, nil
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ExportKnowledge fails with NotFound when there is nothing to export,
// unlike the other exports which return a header-only file.
func (s *TransferService) ExportKnowledge(ctx context.Context) ([]byte, error) {
	entries, err := s.dbStore.AllKnowledge(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, newError(ErrNotFound, "No knowledge entries found to export")
	}
	rows := make([][]string, 0, len(entries))
	for _, k := range entries {
		rows = append(rows, []string{itoa(k.UniqueID), itoa(k.KnowledgeNumber), k.Problem, k.DetailedSolution, k.Domain})
	}
	return writeCSV(knowledgeExportHeader, rows)
}

func (s *TransferService) ExportConversations(ctx context.Context) ([]byte, error) {
	messages, err := s.dbStore.AllConversationMessages(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(messages))
	for _, m := range messages {
		isBot := "0"
		if m.IsBot {
			isBot = "1"
		}
		rows = append(rows, []string{
			itoa(m.ConversationID), isBot, m.Message, m.Time, itoa(m.LockNumber), deref(m.Metric1), deref(m.Metric2),
		})
	}
	return writeCSV(conversationExportHeader, rows)
}

func (s *TransferService) ExportNotes(ctx context.Context) ([]byte, error) {
	notes, err := s.dbStore.AllNotes(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, []string{
			itoa(n.ID), itoa(n.ConversationID), n.Note, n.Tags, n.Username,
			n.CreatedAt.UTC().Format(sqliteTimeLayout), n.UpdatedAt.UTC().Format(sqliteTimeLayout),
		})
	}
	return writeCSV(noteExportHeader, rows)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const noteColumns = "id, conversation_id, note, tags, user_id, username, created_at, updated_at"

func scanNote(row scanner) (*Note, error) {
	var n Note
	var conversationID, userID sql.NullInt64
	var note, tags, username sql.NullString
	if err := row.Scan(&n.ID, &conversationID, &note, &tags, &userID, &username, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.ConversationID = conversationID.Int64
	n.Note = note.String
	n.Tags = tags.String
	n.UserID = userID.Int64
	n.Username = username.String
	return &n, nil
}

func (s *SQLiteStore) queryNotes(ctx context.Context, query string, args ...interface{}) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

func (s *SQLiteStore) ListNotes(ctx context.Context, conversationID int64) ([]Note, error) {
	return s.queryNotes(ctx,
		"SELECT "+noteColumns+" FROM conversation_notes WHERE conversation_id = ? ORDER BY created_at DESC, id DESC", conversationID)
}

func (s *SQLiteStore) AllNotes(ctx context.Context) ([]Note, error) {
	return s.queryNotes(ctx, "SELECT "+noteColumns+" FROM conversation_notes ORDER BY conversation_id ASC, id ASC")
}

func (s *SQLiteStore) GetNote(ctx context.Context, id int64) (*Note, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM conversation_notes WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) CreateNote(ctx context.Context, n *Note) (*Note, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO conversation_notes (conversation_id, note, tags, user_id, username) VALUES (?, ?, ?, ?, ?)",
		n.ConversationID, n.Note, nullString(n.Tags), n.UserID, n.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetNote(ctx, id)
}

func (s *SQLiteStore) UpdateNote(ctx context.Context, id int64, note, tags string) (*Note, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE conversation_notes SET note = ?, tags = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		note, nullString(tags), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return s.GetNote(ctx, id)
}

func (s *SQLiteStore) DeleteNote(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversation_notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return checkAffected(res)
}

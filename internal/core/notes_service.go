package core

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gwi.com/knsystem/internal/auth"
	"gwi.com/knsystem/internal/store"
)

const noteNotFound = "Note not found"

type NotesService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
}

func NewNotesService(db *store.SQLiteStore, logger *zap.Logger) *NotesService {
	return &NotesService{dbStore: db, logger: logger}
}

// joinTags stores tags as one comma-separated string, dropping blanks.
func joinTags(tags []string) string {
	kept := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, ",")
}

func (s *NotesService) List(ctx context.Context, conversationID int64) ([]store.Note, error) {
	return s.dbStore.ListNotes(ctx, conversationID)
}

func (s *NotesService) Create(ctx context.Context, caller auth.Identity, conversationID int64, note string, tags []string) (*store.Note, error) {
	if conversationID == 0 || strings.TrimSpace(note) == "" {
		return nil, validation("Conversation ID and note are required")
	}
	return s.dbStore.CreateNote(ctx, &store.Note{
		ConversationID: conversationID,
		Note:           note,
		Tags:           joinTags(tags),
		UserID:         caller.ID,
		Username:       caller.Username,
	})
}

// authorize loads the note and checks that the caller owns it or is an admin.
func (s *NotesService) authorize(ctx context.Context, caller auth.Identity, id int64, action string) error {
	existing, err := s.dbStore.GetNote(ctx, id)
	if err != nil {
		return translate(err, noteNotFound)
	}
	if existing.UserID != caller.ID && !caller.IsAdmin() {
		return newError(ErrForbidden, "You do not have permission to %s this note", action)
	}
	return nil
}

func (s *NotesService) Update(ctx context.Context, caller auth.Identity, id int64, note string, tags []string) (*store.Note, error) {
	if strings.TrimSpace(note) == "" {
		return nil, validation("Note content is required")
	}
	if err := s.authorize(ctx, caller, id, "edit"); err != nil {
		return nil, err
	}
	updated, err := s.dbStore.UpdateNote(ctx, id, note, joinTags(tags))
	return updated, translate(err, noteNotFound)
}

func (s *NotesService) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if err := s.authorize(ctx, caller, id, "delete"); err != nil {
		return err
	}
	if err := s.dbStore.DeleteNote(ctx, id); err != nil {
		return translate(err, noteNotFound)
	}
	s.logger.Debug("note deleted", zap.Int64("note_id", id), zap.String("by", caller.Username))
	return nil
}

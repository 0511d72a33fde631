package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gwi.com/knsystem/internal/auth"
	"gwi.com/knsystem/internal/store"
)

func newTestDB(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "core.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func kindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

func TestSignupCreatesInactiveUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, auth.NewTokenManager("secret", 0), zap.NewNop())
	ctx := context.Background()

	user, err := svc.Signup(ctx, "alice", "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.IsActivated || user.Role != auth.RoleUser {
		t.Fatalf("expected inactive user role, got %+v", user)
	}

	if _, err := svc.Signup(ctx, "bob", "alice@example.com", "pw"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
	if _, err := svc.Signup(ctx, "", "x@example.com", "pw"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginDoesNotRevealUsernames(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, auth.NewTokenManager("secret", 0), zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "carol", "carol@example.com", "right"); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	_, unknownErr := svc.Login(ctx, "nobody", "whatever")
	_, wrongErr := svc.Login(ctx, "carol", "wrong")
	if !errors.Is(unknownErr, ErrUnauthorized) || !errors.Is(wrongErr, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for both, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("messages differ: %q vs %q", unknownErr.Error(), wrongErr.Error())
	}

	// Correct password on an inactive account is refused after the check.
	if _, err := svc.Login(ctx, "carol", "right"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for inactive account, got %v", err)
	}
}

func TestActivateThenLoginCarriesRole(t *testing.T) {
	db := newTestDB(t)
	tokens := auth.NewTokenManager("secret", 0)
	svc := NewAuthService(db, tokens, zap.NewNop())
	ctx := context.Background()

	user, err := svc.Signup(ctx, "dave", "dave@example.com", "pw")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	activate := true
	if err := svc.SetActivation(ctx, user.ID, &activate); err != nil {
		t.Fatalf("SetActivation: %v", err)
	}
	if err := svc.SetRole(ctx, user.ID, auth.RoleAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	res, err := svc.Login(ctx, "dave", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, err := tokens.ValidateJWT(res.Token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if id.ID != user.ID || id.Role != auth.RoleAdmin {
		t.Fatalf("unexpected claims %+v", id)
	}
	if err := svc.SetRole(ctx, user.ID, "chatbot"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for chatbot role, got %v", err)
	}
	if err := svc.SetActivation(ctx, 9999, &activate); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.SetActivation(ctx, user.ID, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing flag, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, auth.NewTokenManager("secret", 0), zap.NewNop())
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "root", "root@example.com", "old"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	res, err := svc.Login(ctx, "root", "old")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	caller := auth.Identity{ID: res.User.ID, Username: "root", Role: auth.RoleAdmin}

	if err := svc.ChangePassword(ctx, caller, "bad", "new"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := svc.ChangePassword(ctx, caller, "old", "new"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, "root", "new"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// Seeding again is a no-op once the account exists.
	if err := svc.EnsureAdmin(ctx, "root", "root@example.com", "other"); err != nil {
		t.Fatalf("EnsureAdmin again: %v", err)
	}
}

func TestNotesOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotesService(db, zap.NewNop())
	ctx := context.Background()

	owner := auth.Identity{ID: 1, Username: "owner", Role: auth.RoleUser}
	other := auth.Identity{ID: 2, Username: "other", Role: auth.RoleUser}
	admin := auth.Identity{ID: 3, Username: "admin", Role: auth.RoleAdmin}

	note, err := svc.Create(ctx, owner, 42, "first look", []string{"billing", " ", "urgent"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if note.Tags != "billing,urgent" || note.Username != "owner" {
		t.Fatalf("unexpected note %+v", note)
	}

	if _, err := svc.Update(ctx, other, note.ID, "hijack", nil); kindOf(err) != ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	updated, err := svc.Update(ctx, admin, note.ID, "reviewed", []string{"done"})
	if err != nil {
		t.Fatalf("admin Update: %v", err)
	}
	if updated.Note != "reviewed" || updated.Tags != "done" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if err := svc.Delete(ctx, other, note.ID); kindOf(err) != ErrForbidden {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if err := svc.Delete(ctx, owner, note.ID); err != nil {
		t.Fatalf("owner Delete: %v", err)
	}
	if err := svc.Delete(ctx, owner, note.ID); kindOf(err) != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Create(ctx, owner, 0, "x", nil); kindOf(err) != ErrValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTagsServiceStats(t *testing.T) {
	db := newTestDB(t)
	tags := NewTagsService(db)
	notes := NewNotesService(db, zap.NewNop())
	ctx := context.Background()
	caller := auth.Identity{ID: 1, Username: "u", Role: auth.RoleUser}

	billing, err := tags.Create(ctx, "billing", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if billing.Color != DefaultTagColor {
		t.Fatalf("expected default color, got %q", billing.Color)
	}
	if _, err := tags.Create(ctx, "billing", "#000"); kindOf(err) != ErrConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := tags.Create(ctx, "Billing", "#000"); err != nil {
		t.Fatalf("names are case-sensitive, got %v", err)
	}
	renamed, err := tags.Update(ctx, billing.ID, "invoices", "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if renamed.Color != DefaultTagColor {
		t.Fatalf("empty color should keep the old one, got %q", renamed.Color)
	}

	for _, tg := range [][]string{{"invoices"}, {"invoices", "Billing"}, {"Billing"}} {
		if _, err := notes.Create(ctx, caller, 1, "n", tg); err != nil {
			t.Fatalf("notes.Create: %v", err)
		}
	}
	stats, err := tags.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalWithNotes != 3 {
		t.Fatalf("expected 3 tagged notes, got %d", stats.TotalWithNotes)
	}
	for _, st := range stats.Tags {
		if st.Count != 2 || st.Percentage != 67 {
			t.Fatalf("unexpected stat %+v", st)
		}
	}
}

func TestNegativeFeedbackWithoutReason(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db, zap.NewNop())
	ctx := context.Background()
	caller := auth.Identity{ID: 7, Username: "bot", Role: auth.RoleChatbot}

	id, err := svc.Submit(ctx, caller, FeedbackInput{Message: "q", Response: "a", FeedbackType: FeedbackNegative})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a feedback id")
	}
	if _, err := svc.Submit(ctx, caller, FeedbackInput{Message: "q", Response: "a", FeedbackType: "meh"}); kindOf(err) != ErrValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := svc.List(ctx, caller, "", ""); kindOf(err) != ErrForbidden {
		t.Fatalf("chatbot role must not list feedback, got %v", err)
	}
	if err := svc.Delete(ctx, caller, id); kindOf(err) != ErrForbidden {
		t.Fatalf("chatbot role must not delete feedback, got %v", err)
	}
}

func TestFeedbackStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db, zap.NewNop())
	ctx := context.Background()
	caller := auth.Identity{ID: 1, Username: "ann", Role: auth.RoleUser}

	tag := func(s string) *string { return &s }
	inputs := []FeedbackInput{
		{Message: "m", Response: "r", FeedbackType: FeedbackPositive},
		{Message: "m", Response: "r", FeedbackType: FeedbackNegative, Tag: tag("wrong, slow")},
		{Message: "m", Response: "r", FeedbackType: FeedbackNegative, Tag: tag("slow")},
		{Message: "m", Response: "r", FeedbackType: FeedbackNegative, Source: SourceConversation, Tag: tag("rude,wrong")},
		{Message: "m", Response: "r", FeedbackType: FeedbackPositive, Source: SourceConversation, Tag: tag("ignored")},
	}
	for _, in := range inputs {
		if _, err := svc.Submit(ctx, caller, in); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	all, err := svc.Stats(ctx, "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if all.Total != 5 || all.TotalPositive != 2 || all.TotalNegative != 3 {
		t.Fatalf("unexpected totals %+v", all.FeedbackCounts)
	}
	want := []TagCount{{"slow", 2}, {"wrong", 2}, {"rude", 1}}
	if len(all.TagStats) != len(want) {
		t.Fatalf("unexpected tag stats %+v", all.TagStats)
	}
	for i := range want {
		if all.TagStats[i] != want[i] {
			t.Fatalf("tag stats[%d] = %+v, want %+v", i, all.TagStats[i], want[i])
		}
	}
	if c := all.BySource[SourceConversation]; c.Total != 2 || len(c.TagStats) != 2 {
		t.Fatalf("unexpected conversation source stats %+v", c)
	}

	chatbot, err := svc.Stats(ctx, SourceChatbot)
	if err != nil {
		t.Fatalf("Stats(chatbot): %v", err)
	}
	if chatbot.Total != 3 || len(chatbot.TagStats) != 2 {
		t.Fatalf("unexpected chatbot stats %+v", chatbot)
	}

	users, err := svc.UserStats(ctx)
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	if len(users) != 1 || users[0].Username != "ann" || users[0].MessageCount != 5 {
		t.Fatalf("unexpected user stats %+v", users)
	}
}

func TestChatServiceSessions(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)
	ctx := context.Background()
	caller := auth.Identity{ID: 4, Username: "eve", Role: auth.RoleChatbot}

	if _, err := svc.SaveMessage(ctx, caller, "s-1", "system", "x"); kindOf(err) != ErrValidation {
		t.Fatalf("expected validation error for role, got %v", err)
	}
	saved, err := svc.SaveMessage(ctx, caller, "s-1", "user", "hi")
	if err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if saved.ID == 0 || saved.CreatedAt.IsZero() {
		t.Fatalf("saved message missing id or timestamp: %+v", saved)
	}
	msgs, err := svc.GetSession(ctx, "s-1")
	if err != nil || len(msgs) != 1 || msgs[0].Username != "eve" {
		t.Fatalf("unexpected session %+v %v", msgs, err)
	}
	if _, err := svc.GetSession(ctx, "missing"); kindOf(err) != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConversationGetAndStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db)
	ctx := context.Background()

	if _, err := db.InsertConversationMessages(ctx, []store.ConversationMessage{
		{ConversationID: 12, Message: "hello", Time: "2024-02-01T09:00:00Z"},
		{ConversationID: 12, IsBot: true, Message: "hi", Time: "2024-02-01T09:00:01Z"},
		{ConversationID: 12, Message: "thanks", Time: "2024-02-01T09:00:02Z"},
	}); err != nil {
		t.Fatalf("InsertConversationMessages: %v", err)
	}

	msgs, err := svc.Get(ctx, 12)
	if err != nil || len(msgs) != 3 || msgs[0].Message != "hello" || !msgs[1].IsBot {
		t.Fatalf("unexpected conversation %+v %v", msgs, err)
	}
	st, err := svc.Stats(ctx, 12)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalMessages != 3 || st.BotMessages != 1 || st.UserMessages != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}

	if _, err := svc.Get(ctx, 99); kindOf(err) != ErrNotFound {
		t.Fatalf("Get unknown: expected not found, got %v", err)
	}
	if _, err := svc.Stats(ctx, 99); kindOf(err) != ErrNotFound {
		t.Fatalf("Stats unknown: expected not found, got %v", err)
	}
}

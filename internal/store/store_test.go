package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gwi.com/knsystem/internal/utils"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func msg(convID int64, isBot bool, text, at string) ConversationMessage {
	return ConversationMessage{ConversationID: convID, IsBot: isBot, Message: text, Time: at}
}

func TestCreateUserConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "alice", "a@x.io", "hash", "user", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.CreateUser(ctx, "alice", "other@x.io", "hash", "user", false); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListConversationsAnalyzedFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertConversationMessages(ctx, []ConversationMessage{
		msg(1, false, "hello", "2024-01-01T10:00:00Z"),
		msg(1, true, "hi there", "2024-01-01T10:00:01Z"),
		msg(1, true, "anything else?", "2024-01-01T10:00:02Z"),
		msg(2, false, "help", "2024-01-02T10:00:00Z"),
		msg(2, true, "sure", "2024-01-02T10:00:01Z"),
	})
	if err != nil {
		t.Fatalf("InsertConversationMessages: %v", err)
	}

	conv := "1"
	for _, idx := range []int64{0, 1, 1} {
		i := idx
		f := &Feedback{Message: "m", Response: "r", FeedbackType: "positive", Source: "conversation", ConversationID: &conv, MessageIndex: &i}
		if err := s.CreateFeedback(ctx, f); err != nil {
			t.Fatalf("CreateFeedback: %v", err)
		}
	}

	list, total, err := s.ListConversations(ctx, ConversationFilter{SortDirection: "asc"}, utils.NewPage("1", "10"))
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("expected 2 conversations, got total=%d len=%d", total, len(list))
	}
	if list[0].ConversationID != 1 || list[0].Analyzed != 1 || list[0].MessageCount != 3 {
		t.Fatalf("unexpected first summary %+v", list[0])
	}
	if list[1].Analyzed != 0 {
		t.Fatalf("conversation 2 should not be analyzed: %+v", list[1])
	}

	only, total, err := s.ListConversations(ctx, ConversationFilter{OnlyAnalyzed: true}, utils.NewPage("1", "10"))
	if err != nil {
		t.Fatalf("ListConversations(onlyAnalyzed): %v", err)
	}
	if total != 1 || len(only) != 1 || only[0].ConversationID != 1 {
		t.Fatalf("expected only conversation 1, got total=%d %+v", total, only)
	}
}

func TestAnalyzedIgnoresNonNumericFeedbackIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertConversationMessages(ctx, []ConversationMessage{
		msg(0, true, "bot reply", "2024-01-01T10:00:00Z"),
	}); err != nil {
		t.Fatalf("InsertConversationMessages: %v", err)
	}
	conv := "abc"
	idx := int64(0)
	f := &Feedback{Message: "m", Response: "r", FeedbackType: "positive", Source: "conversation", ConversationID: &conv, MessageIndex: &idx}
	if err := s.CreateFeedback(ctx, f); err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}

	list, _, err := s.ListConversations(ctx, ConversationFilter{}, utils.NewPage("1", "10"))
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 1 || list[0].ConversationID != 0 || list[0].Analyzed != 0 {
		t.Fatalf("feedback for %q must not mark conversation 0 analyzed: %+v", conv, list)
	}
}

func TestListConversationsPagesCoverAllRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var rows []ConversationMessage
	for id := int64(1); id <= 25; id++ {
		for j := int64(0); j < id%3+1; j++ {
			rows = append(rows, msg(id, j%2 == 1, "text", "2024-02-01T00:00:00Z"))
		}
	}
	if _, err := s.InsertConversationMessages(ctx, rows); err != nil {
		t.Fatalf("InsertConversationMessages: %v", err)
	}

	f := ConversationFilter{SortField: "message_count", SortDirection: "desc"}
	seen := map[int64]bool{}
	var total int
	for p := 1; p <= 3; p++ {
		page, n, err := s.ListConversations(ctx, f, utils.Page{Page: p, Limit: 10})
		if err != nil {
			t.Fatalf("page %d: %v", p, err)
		}
		total = n
		for _, c := range page {
			if seen[c.ConversationID] {
				t.Fatalf("conversation %d returned twice", c.ConversationID)
			}
			seen[c.ConversationID] = true
		}
	}
	if total != 25 || len(seen) != 25 {
		t.Fatalf("expected 25 distinct conversations, total=%d seen=%d", total, len(seen))
	}
}

func TestConversationSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertConversationMessages(ctx, []ConversationMessage{
		msg(10, false, "printer jam", "2024-01-01T00:00:00Z"),
		msg(10, true, "try again", "2024-01-01T00:00:01Z"),
		msg(11, false, "network down", "2024-01-01T00:00:00Z"),
	}); err != nil {
		t.Fatalf("InsertConversationMessages: %v", err)
	}

	list, total, err := s.ListConversations(ctx, ConversationFilter{Search: "printer"}, utils.NewPage("", ""))
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	// Aggregates cover the whole conversation, not only matching rows.
	if total != 1 || list[0].ConversationID != 10 || list[0].MessageCount != 2 {
		t.Fatalf("unexpected text search result total=%d %+v", total, list)
	}

	list, _, err = s.ListConversations(ctx, ConversationFilter{Search: "11"}, utils.NewPage("", ""))
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 1 || list[0].ConversationID != 11 {
		t.Fatalf("unexpected numeric search result %+v", list)
	}
}

func TestConversationsByLockAndDailyCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	today := now.Format("2006-01-02 15:04:05")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02 15:04:05")
	rows := []ConversationMessage{
		{ConversationID: 1, Message: "a", Time: yesterday, LockNumber: 7},
		{ConversationID: 2, Message: "b", Time: today, LockNumber: 7},
		{ConversationID: 3, Message: "c", Time: today, LockNumber: 8},
	}
	if _, err := s.InsertConversationMessages(ctx, rows); err != nil {
		t.Fatalf("InsertConversationMessages: %v", err)
	}

	ids, err := s.ConversationsByLock(ctx, 7)
	if err != nil {
		t.Fatalf("ConversationsByLock: %v", err)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 1 {
		t.Fatalf("expected [2 1], got %v", ids)
	}

	empty, err := s.ConversationsByLock(ctx, 99)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %v %v", empty, err)
	}

	counts, err := s.DailyConversationCounts(ctx, 10)
	if err != nil {
		t.Fatalf("DailyConversationCounts: %v", err)
	}
	if len(counts) != 2 || counts[0].Date != now.Format("2006-01-02") || counts[0].Count != 2 || counts[1].Count != 1 {
		t.Fatalf("unexpected daily counts %+v", counts)
	}
}

func TestKnowledgeNumericAndDomainSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []Knowledge{
		{KnowledgeNumber: 42, Problem: "login fails", DetailedSolution: "reset", Domain: "auth"},
		{KnowledgeNumber: 7, Problem: "error 42 on boot", DetailedSolution: "reflash", Domain: "hw"},
		{KnowledgeNumber: 8, Problem: "slow", DetailedSolution: "see 42", Domain: "auth"},
	} {
		k := k
		if err := s.CreateKnowledge(ctx, &k); err != nil {
			t.Fatalf("CreateKnowledge: %v", err)
		}
	}

	list, total, err := s.ListKnowledge(ctx, KnowledgeFilter{Search: "42", Domain: "auth"}, utils.NewPage("1", "10"))
	if err != nil {
		t.Fatalf("ListKnowledge: %v", err)
	}
	if total != 2 || len(list) != 2 || list[0].KnowledgeNumber != 42 || list[1].KnowledgeNumber != 8 {
		t.Fatalf("unexpected result total=%d %+v", total, list)
	}

	domains, err := s.KnowledgeDomains(ctx)
	if err != nil {
		t.Fatalf("KnowledgeDomains: %v", err)
	}
	if len(domains) != 2 || domains[0] != "auth" || domains[1] != "hw" {
		t.Fatalf("unexpected domains %v", domains)
	}

	if err := s.DeleteKnowledge(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUniqueKnowledgeCountCollapsesNumbers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []Knowledge{
		{KnowledgeNumber: 5, Problem: "jammed lock", DetailedSolution: "oil it"},
		{KnowledgeNumber: 5, Problem: "jammed lock, cold weather", DetailedSolution: "warm it"},
	} {
		k := k
		if err := s.CreateKnowledge(ctx, &k); err != nil {
			t.Fatalf("CreateKnowledge: %v", err)
		}
	}

	n, err := s.UniqueKnowledgeCount(ctx)
	if err != nil {
		t.Fatalf("UniqueKnowledgeCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 unique knowledge number, got %d", n)
	}
}

func TestTagStatsCountsSubstrings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTag(ctx, "bug", "#ff0000"); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if _, err := s.CreateTag(ctx, "bugfix", "#00ff00"); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if _, err := s.CreateTag(ctx, "bug", "#0000ff"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate tag, got %v", err)
	}

	for _, tags := range []string{"bugfix", "bug,ui", "", "Bug,Urgent"} {
		if _, err := s.CreateNote(ctx, &Note{ConversationID: 1, Note: "n", Tags: tags, UserID: 1, Username: "u"}); err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
	}

	total, stats, err := s.TagStats(ctx)
	if err != nil {
		t.Fatalf("TagStats: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 tagged notes, got %d", total)
	}
	// Matching ignores ASCII case, so "Bug,Urgent" counts for "bug".
	if len(stats) != 2 || stats[0].Name != "bug" || stats[0].Count != 3 || stats[1].Count != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestChatSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, m := range []ChatbotMessage{
		{SessionID: "s1", UserID: 1, Username: "ann", Role: "user", Message: "where is my order"},
		{SessionID: "s1", UserID: 1, Username: "ann", Role: "assistant", Message: "shipped"},
		{SessionID: "s2", UserID: 2, Username: "bob", Role: "user", Message: "hello"},
	} {
		m := m
		if err := s.CreateChatbotMessage(ctx, &m); err != nil {
			t.Fatalf("CreateChatbotMessage: %v", err)
		}
		if m.ID == 0 || m.CreatedAt.IsZero() {
			t.Fatalf("insert did not populate id and created_at: %+v", m)
		}
	}

	sessions, total, err := s.ListChatSessions(ctx, "order", utils.NewPage("1", "10"))
	if err != nil {
		t.Fatalf("ListChatSessions: %v", err)
	}
	if total != 1 || len(sessions) != 1 {
		t.Fatalf("expected one matching session, got total=%d %+v", total, sessions)
	}
	if sessions[0].SessionID != "s1" || sessions[0].MessageCount != 2 || sessions[0].LastMessage != "shipped" {
		t.Fatalf("unexpected session %+v", sessions[0])
	}

	msgs, err := s.GetChatSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetChatSession: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestSettingsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	env, err := s.GetSetting(ctx, SettingChatbotEnvironment)
	if err != nil || env != "dev" {
		t.Fatalf("expected seeded dev, got %q %v", env, err)
	}
	if err := s.UpsertSetting(ctx, SettingChatbotEnvironment, "prod"); err != nil {
		t.Fatalf("UpsertSetting: %v", err)
	}
	if env, _ = s.GetSetting(ctx, SettingChatbotEnvironment); env != "prod" {
		t.Fatalf("expected prod, got %q", env)
	}
	if _, err := s.GetSetting(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalcore/internal/memorystore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := memorystore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	return &Service{Store: store}
}

func TestQueryCacheKeyIsStableAcrossCaseAndWhitespace(t *testing.T) {
	a := QueryCacheKey("  아스피린 부작용  ")
	b := QueryCacheKey("아스피린 부작용")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16+len("cache:query:"))
}

func TestCacheSetThenGetIncrementsHitCount(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, ok := s.CacheGet(ctx, "아스피린")
	assert.False(t, ok)

	s.CacheSet(ctx, "아스피린", "아스피린은 진통제입니다", []string{"drug:123"})

	entry, ok := s.CacheGet(ctx, "아스피린")
	require.True(t, ok)
	assert.Equal(t, 2, entry.HitCount)
	assert.Equal(t, "아스피린은 진통제입니다", entry.Response)

	entry, ok = s.CacheGet(ctx, "아스피린")
	require.True(t, ok)
	assert.Equal(t, 3, entry.HitCount)
}

func TestAppendHistoryTrimsToMaxHistory(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for i := 0; i < maxHistory+5; i++ {
		s.AppendHistory(ctx, "sess1", ConversationTurn{Role: "user", Content: "turn"})
	}

	turns := s.History(ctx, "sess1")
	assert.Len(t, turns, maxHistory)
}

func TestHistoryPreservesOrderAndSkipsMalformed(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	s.AppendHistory(ctx, "sess2", ConversationTurn{Role: "user", Content: "first"})
	require.NoError(t, s.Store.RPush(ctx, historyKey("sess2"), "not-json"))
	s.AppendHistory(ctx, "sess2", ConversationTurn{Role: "assistant", Content: "second"})

	turns := s.History(ctx, "sess2")
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Content)
	assert.Equal(t, "second", turns[1].Content)
}

func TestRecentContextTruncatesLongResponses(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	long := ""
	for i := 0; i < 300; i++ {
		long += "a"
	}
	s.AppendHistory(ctx, "sess3", ConversationTurn{Role: "assistant", Content: long})

	out := s.RecentContext(ctx, "sess3", 5)
	assert.Contains(t, out, "[assistant]")
	assert.LessOrEqual(t, len(out), recentResponseTruncate+len("[assistant] \n"))
}

func TestRecentContextLimitsTurnCount(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.AppendHistory(ctx, "sess4", ConversationTurn{Role: "user", Content: "x"})
	}
	out := s.RecentContext(ctx, "sess4", 2)
	assert.Equal(t, 2, countLines(out))
}

func TestDeleteHistoryClearsSession(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	s.AppendHistory(ctx, "sess-del", ConversationTurn{Role: "user", Content: "hi"})
	require.Len(t, s.History(ctx, "sess-del"), 1)

	require.NoError(t, s.DeleteHistory(ctx, "sess-del"))
	assert.Empty(t, s.History(ctx, "sess-del"))
}

func TestCreateSessionThenUpdateActivityKeepsMetadata(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	s.CreateSession(ctx, "sess5", map[string]any{"user_id": "u1"})
	s.UpdateSessionActivity(ctx, "sess5")

	var rec SessionRecord
	ok, err := s.Store.GetJSON(ctx, sessionKey("sess5"), &rec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", rec.Metadata["user_id"])
	assert.False(t, rec.LastActive.Before(rec.CreatedAt))
}

func TestUpdateActivityCreatesSessionWhenMissing(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	s.UpdateSessionActivity(ctx, "sess6")

	var rec SessionRecord
	ok, err := s.Store.GetJSON(ctx, sessionKey("sess6"), &rec)
	require.NoError(t, err)
	require.True(t, ok)
}

type fakePersistentWriter struct {
	sessions []string
	turns    int
}

func (f *fakePersistentWriter) UpsertSession(_ context.Context, sessionID string) error {
	f.sessions = append(f.sessions, sessionID)
	return nil
}

func (f *fakePersistentWriter) AppendConversationHistory(_ context.Context, _ string, _ int, _ ConversationTurn) error {
	f.turns++
	return nil
}

func TestAppendHistoryMirrorsToPersistentWriterWhenConfigured(t *testing.T) {
	s := newTestService(t)
	fw := &fakePersistentWriter{}
	s.Persistent = fw
	ctx := context.Background()

	s.AppendHistory(ctx, "sess7", ConversationTurn{Role: "user", Content: "hi"})

	assert.Equal(t, []string{"sess7"}, fw.sessions)
	assert.Equal(t, 1, fw.turns)
}

func countLines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}

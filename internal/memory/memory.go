// Package memory implements the §4.10 cache/history/session service
// atop a memorystore.Store backend: a content-addressed query-response
// cache, a per-session conversation ring buffer, and lightweight
// session bookkeeping. All writes here are best-effort — failures are
// swallowed by the caller, never raised, matching the memory fabric's
// soft-dependency posture.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// maxHistory is the ring-buffer cap per session (§4.10).
	maxHistory = 20
	// defaultTTL is the session/history/cache entry lifetime.
	defaultTTL = 24 * time.Hour
	// recentResponseTruncate caps each turn's response in a formatted
	// recent-context block.
	recentResponseTruncate = 200
)

// Store is the narrow memorystore capability this service depends on.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	RPush(ctx context.Context, key string, value string) error
	LRange(ctx context.Context, key string, start, end int) ([]string, error)
	LLen(ctx context.Context, key string) (int, error)
	LTrim(ctx context.Context, key string, start, end int) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// CacheEntry is the stored shape of a query-response cache hit.
type CacheEntry struct {
	Query    string    `json:"query"`
	Response string    `json:"response"`
	Sources  []string  `json:"sources"`
	CachedAt time.Time `json:"cached_at"`
	HitCount int       `json:"hit_count"`
}

// ConversationTurn is one entry in a session's history ring buffer.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRecord holds session metadata plus liveness timestamps.
type SessionRecord struct {
	CreatedAt  time.Time      `json:"created_at"`
	LastActive time.Time      `json:"last_active"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// PersistentSessionWriter is the optional relational sink for
// persistent-memory mode — a Session row and a ConversationHistory row
// per turn. Failures here are logged, never raised.
type PersistentSessionWriter interface {
	UpsertSession(ctx context.Context, sessionID string) error
	AppendConversationHistory(ctx context.Context, sessionID string, turnNumber int, turn ConversationTurn) error
}

// Service implements the cache/history/session operations.
type Service struct {
	Store      Store
	Persistent PersistentSessionWriter // nil unless persistent memory is enabled
}

// QueryCacheKey computes `cache:query:{h}` where h is the first 16 hex
// chars of SHA-256(lower(trim(query))).
func QueryCacheKey(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return "cache:query:" + hex.EncodeToString(sum[:])[:16]
}

// CacheGet reads a cached response. On hit it increments hit_count and
// re-stores with a refreshed TTL before returning.
func (s *Service) CacheGet(ctx context.Context, query string) (CacheEntry, bool) {
	key := QueryCacheKey(query)
	var entry CacheEntry
	ok, err := s.Store.GetJSON(ctx, key, &entry)
	if err != nil || !ok {
		return CacheEntry{}, false
	}
	entry.HitCount++
	_ = s.Store.SetJSON(ctx, key, entry, defaultTTL)
	return entry, true
}

// CacheSet stores a fresh cache entry with hit_count=1.
func (s *Service) CacheSet(ctx context.Context, query, response string, sources []string) {
	entry := CacheEntry{Query: query, Response: response, Sources: sources, CachedAt: time.Now(), HitCount: 1}
	_ = s.Store.SetJSON(ctx, QueryCacheKey(query), entry, defaultTTL)
}

func historyKey(sessionID string) string { return "history:" + sessionID }
func sessionKey(sessionID string) string { return "session:" + sessionID }

// AppendHistory RPUSHes a turn onto the session's list, trims it to
// maxHistory, refreshes the TTL, and — if persistent memory is
// configured — best-effort mirrors it into the relational store.
func (s *Service) AppendHistory(ctx context.Context, sessionID string, turn ConversationTurn) {
	key := historyKey(sessionID)
	encoded, err := json.Marshal(turn)
	if err != nil {
		return
	}
	if err := s.Store.RPush(ctx, key, string(encoded)); err != nil {
		return
	}
	n, err := s.Store.LLen(ctx, key)
	if err == nil && n > maxHistory {
		_ = s.Store.LTrim(ctx, key, n-maxHistory, -1)
	}
	_ = s.Store.Expire(ctx, key, defaultTTL)

	if s.Persistent != nil {
		_ = s.Persistent.UpsertSession(ctx, sessionID)
		turnNumber := n
		if turnNumber <= 0 {
			turnNumber = 1
		}
		_ = s.Persistent.AppendConversationHistory(ctx, sessionID, turnNumber, turn)
	}
}

// History LRANGEs the full session list, JSON-decodes each entry,
// skips malformed ones, and preserves oldest-first order.
func (s *Service) History(ctx context.Context, sessionID string) []ConversationTurn {
	raw, err := s.Store.LRange(ctx, historyKey(sessionID), 0, -1)
	if err != nil {
		return nil
	}
	out := make([]ConversationTurn, 0, len(raw))
	for _, r := range raw {
		var t ConversationTurn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// DeleteHistory drops the session's conversation ring buffer entirely.
func (s *Service) DeleteHistory(ctx context.Context, sessionID string) error {
	return s.Store.Delete(ctx, historyKey(sessionID))
}

// RecentContext formats up to limit of the most recent turns, each
// response truncated to recentResponseTruncate chars.
func (s *Service) RecentContext(ctx context.Context, sessionID string, limit int) string {
	turns := s.History(ctx, sessionID)
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	var b strings.Builder
	for _, t := range turns {
		content := t.Content
		if len(content) > recentResponseTruncate {
			content = content[:recentResponseTruncate]
		}
		fmt.Fprintf(&b, "[%s] %s\n", t.Role, content)
	}
	return b.String()
}

// CreateSession sets initial session metadata with created_at and
// last_active both set to now.
func (s *Service) CreateSession(ctx context.Context, sessionID string, metadata map[string]any) {
	now := time.Now()
	rec := SessionRecord{CreatedAt: now, LastActive: now, Metadata: metadata}
	_ = s.Store.SetJSON(ctx, sessionKey(sessionID), rec, defaultTTL)
}

// UpdateSessionActivity refreshes last_active only, leaving
// created_at/metadata untouched.
func (s *Service) UpdateSessionActivity(ctx context.Context, sessionID string) {
	var rec SessionRecord
	ok, err := s.Store.GetJSON(ctx, sessionKey(sessionID), &rec)
	if err != nil || !ok {
		s.CreateSession(ctx, sessionID, nil)
		return
	}
	rec.LastActive = time.Now()
	_ = s.Store.SetJSON(ctx, sessionKey(sessionID), rec, defaultTTL)
}

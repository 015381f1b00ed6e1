// Package convstore owns the merged conversation view: a bounded live
// push set reconciled with on-demand paginated backfill.
package convstore

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

// Fetcher pulls conversations strictly older than the cursor.
type Fetcher interface {
	FetchOlder(ctx context.Context, userID string, cursorUpdatedAt int64, pageSize int) ([]model.Conversation, error)
}

type Config struct {
	UserID   string
	PageSize int

	Fetcher Fetcher

	// OnChange receives the merged view after every mutation.
	OnChange func([]model.Conversation)
}

// Store merges the live subscription window with retained backfill pages.
// Live entries always win on id conflict; backfill is kept around even
// when an item falls out of the live window so already-seen threads do
// not vanish mid-session.
type Store struct {
	userID   string
	pageSize int
	fetcher  Fetcher
	onChange func([]model.Conversation)

	mu       sync.Mutex
	live     []model.Conversation
	older    map[string]model.Conversation
	hasMore  bool
	inFlight bool
	closed   bool
}

func New(config Config) *Store {
	if config.PageSize <= 0 {
		config.PageSize = 20
	}
	return &Store{
		userID:   config.UserID,
		pageSize: config.PageSize,
		fetcher:  config.Fetcher,
		onChange: config.OnChange,
		older:    make(map[string]model.Conversation),
		hasMore:  true,
	}
}

// Merge builds the deduplicated, sorted view. Live entries are inserted
// first and win every id conflict; older entries fill the gaps. Sorting
// is pinned before unpinned, then descending updatedAt, with id as a
// stable tiebreak so equal timestamps render deterministically.
func Merge(live, older []model.Conversation) []model.Conversation {
	byID := make(map[string]model.Conversation, len(live)+len(older))
	for _, c := range live {
		byID[c.ID] = c
	}
	for _, c := range older {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}

	out := make([]model.Conversation, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ApplyLive replaces the live window with a fresh subscription snapshot.
// Snapshots are applied in delivery order.
func (s *Store) ApplyLive(snapshot []model.Conversation) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.live = append(s.live[:0:0], snapshot...)
	view := s.mergedLocked()
	s.mu.Unlock()

	s.notify(view)
}

// LoadOlder fetches one page past the current oldest item. Calls while a
// fetch is in flight, after the last page, or after Close are no-ops.
// Any fetch error stops pagination rather than retrying.
func (s *Store) LoadOlder(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.inFlight || !s.hasMore || s.fetcher == nil {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	cursor := s.oldestLocked()
	s.mu.Unlock()

	items, err := s.fetcher.FetchOlder(ctx, s.userID, cursor, s.pageSize)

	s.mu.Lock()
	s.inFlight = false
	if s.closed {
		s.mu.Unlock()
		return
	}
	if err != nil {
		// Fail closed: a degraded list beats an infinite retry loop.
		s.hasMore = false
		s.mu.Unlock()
		slog.Error("older conversations fetch failed", "user_id", s.userID, "error", err)
		return
	}
	for _, c := range items {
		s.older[c.ID] = c
	}
	s.hasMore = len(items) >= s.pageSize
	view := s.mergedLocked()
	s.mu.Unlock()

	s.notify(view)
}

// Merged returns the current deduplicated, sorted view.
func (s *Store) Merged() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergedLocked()
}

// HasMore reports whether another LoadOlder call may yield items.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Close marks the store dead. Fetch results resolving afterwards are
// discarded. Idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Store) mergedLocked() []model.Conversation {
	older := make([]model.Conversation, 0, len(s.older))
	for _, c := range s.older {
		older = append(older, c)
	}
	return Merge(s.live, older)
}

// oldestLocked is the pagination cursor: the smallest updatedAt currently
// in view, or 0 when the view is empty (fetcher treats 0 as "newest").
func (s *Store) oldestLocked() int64 {
	var oldest int64
	first := true
	for _, c := range s.live {
		if first || c.UpdatedAt < oldest {
			oldest = c.UpdatedAt
			first = false
		}
	}
	for _, c := range s.older {
		if first || c.UpdatedAt < oldest {
			oldest = c.UpdatedAt
			first = false
		}
	}
	return oldest
}

func (s *Store) notify(view []model.Conversation) {
	if s.onChange != nil {
		s.onChange(view)
	}
}

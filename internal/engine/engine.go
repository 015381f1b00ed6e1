// Package engine wires the reconciliation core together: the merged
// conversation view flows into the read-state tracker and the typing
// fan-out, and comes back out as annotated rows for presentation code.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/mzazimhenga22/movieflix-sub004/internal/convstore"
	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
	"github.com/mzazimhenga22/movieflix-sub004/internal/presence"
	"github.com/mzazimhenga22/movieflix-sub004/internal/readstate"
)

// Row is one conversation annotated with the derived, non-authoritative
// fields. Identity fields are never mutated here.
type Row struct {
	model.Conversation
	Unread    bool
	Typing    bool
	IsRequest bool
}

// Feed is the live-subscription surface the messenger consumes.
type Feed interface {
	SubscribeConversations(userID string, limit int, cb func([]model.Conversation)) (unsubscribe func())
}

type Config struct {
	UserID    string
	LiveLimit int
	PageSize  int

	Fetcher    convstore.Fetcher
	Local      readstate.LocalStore
	Remote     readstate.RemoteAcker
	Subscriber presence.Subscriber

	PresenceLimit int
	SkewTolerance time.Duration // zero keeps the tracker default

	// OnView receives the annotated rows after every change.
	OnView func([]Row)
}

type Messenger struct {
	userID    string
	liveLimit int
	store     *convstore.Store
	reads     *readstate.Tracker
	fanout    *presence.Fanout
	onView    func([]Row)

	mu          sync.Mutex
	view        []model.Conversation
	unsubscribe func()
	closed      bool
}

func New(config Config) *Messenger {
	m := &Messenger{
		userID:    config.UserID,
		liveLimit: config.LiveLimit,
		onView:    config.OnView,
	}
	m.reads = readstate.New(readstate.Config{
		UserID:        config.UserID,
		Local:         config.Local,
		Remote:        config.Remote,
		SkewTolerance: config.SkewTolerance,
	})
	m.fanout = presence.New(presence.Config{
		UserID:     config.UserID,
		Limit:      config.PresenceLimit,
		Subscriber: config.Subscriber,
		OnChange:   func(string, bool) { m.publish() },
	})
	m.store = convstore.New(convstore.Config{
		UserID:   config.UserID,
		PageSize: config.PageSize,
		Fetcher:  config.Fetcher,
		OnChange: m.applyView,
	})
	return m
}

// Start opens the live subscription. Safe to call once.
func (m *Messenger) Start(feed Feed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.unsubscribe != nil {
		return
	}
	m.unsubscribe = feed.SubscribeConversations(m.userID, m.liveLimit, m.store.ApplyLive)
}

func (m *Messenger) applyView(view []model.Conversation) {
	m.mu.Lock()
	m.view = view
	m.mu.Unlock()

	m.fanout.Update(view)
	m.publish()
}

func (m *Messenger) publish() {
	if m.onView == nil {
		return
	}
	m.onView(m.Rows())
}

// Rows returns the current annotated view.
func (m *Messenger) Rows() []Row {
	m.mu.Lock()
	view := m.view
	m.mu.Unlock()

	rows := make([]Row, 0, len(view))
	for _, c := range view {
		rows = append(rows, Row{
			Conversation: c,
			Unread:       m.reads.IsUnread(c),
			Typing:       m.fanout.Typing(c.ID),
			IsRequest:    c.IsRequestFor(m.userID),
		})
	}
	return rows
}

// LoadOlder pulls one more backfill page (end-of-list signal).
func (m *Messenger) LoadOlder(ctx context.Context) {
	m.store.LoadOlder(ctx)
}

// HasMore reports whether backfill is exhausted.
func (m *Messenger) HasMore() bool {
	return m.store.HasMore()
}

// MarkRead flags a conversation as read and republishes the view.
func (m *Messenger) MarkRead(ctx context.Context, conversationID string) {
	m.reads.MarkRead(ctx, conversationID)
	m.publish()
}

// Close disposes the live subscription, the typing fan-out and the store.
// Idempotent; late subscription callbacks become no-ops.
func (m *Messenger) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsub := m.unsubscribe
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.fanout.Close()
	m.store.Close()
}

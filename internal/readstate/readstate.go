// Package readstate reconciles two read authorities per conversation: the
// server-recorded last-read timestamp and an optimistic device-local one.
// The effective value is their max, so the unread flag can never regress
// because of network lag or a failed remote acknowledgement.
package readstate

import (
	"context"
	"log/slog"
	"time"

	"github.com/c-pro/geche"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

// DefaultSkewTolerance absorbs sub-second clock skew between the device
// writing a read mark and the server stamping updatedAt. The value is a
// tunable, not a contract.
const DefaultSkewTolerance = 500 * time.Millisecond

// LocalStore persists the per-user read-mark map across sessions.
type LocalStore interface {
	Get(conversationID string) (int64, error)
	Set(conversationID string, readAtMs int64) error
	All() (map[string]int64, error)
}

// RemoteAcker propagates a read mark to the remote store. Best effort;
// failures are absorbed.
type RemoteAcker interface {
	AckRead(ctx context.Context, conversationID, userID string, readAtMs int64) error
}

type Config struct {
	UserID string
	Local  LocalStore
	Remote RemoteAcker

	// SkewTolerance defaults to DefaultSkewTolerance when zero. Use a
	// negative value for exact comparison.
	SkewTolerance time.Duration
}

type Tracker struct {
	userID string
	skew   time.Duration
	local  LocalStore
	remote RemoteAcker

	marks geche.Geche[string, int64]
	now   func() time.Time
}

func New(config Config) *Tracker {
	skew := config.SkewTolerance
	if skew == 0 {
		skew = DefaultSkewTolerance
	} else if skew < 0 {
		skew = 0
	}
	t := &Tracker{
		userID: config.UserID,
		skew:   skew,
		local:  config.Local,
		remote: config.Remote,
		marks:  geche.NewMapCache[string, int64](),
		now:    time.Now,
	}
	t.preload()
	return t
}

// preload warms the in-memory mark map from local persistence so the hot
// path never touches disk. Storage failure degrades to empty marks.
func (t *Tracker) preload() {
	if t.local == nil {
		return
	}
	all, err := t.local.All()
	if err != nil {
		slog.Error("read-state preload failed", "user_id", t.userID, "error", err)
		return
	}
	for id, ms := range all {
		t.marks.Set(id, ms)
	}
}

// Effective returns the effective last-read time for the conversation:
// max of the server mark and the local optimistic mark, missing values
// treated as zero.
func (t *Tracker) Effective(c model.Conversation) int64 {
	server := c.LastReadAtBy[t.userID]
	local, err := t.marks.Get(c.ID)
	if err != nil {
		local = 0
	}
	if local > server {
		return local
	}
	return server
}

// IsUnread reports whether the conversation carries an unseen message for
// this user: a last message exists, someone else sent it, and the
// effective last-read time does not cover updatedAt within the skew
// tolerance.
func (t *Tracker) IsUnread(c model.Conversation) bool {
	if c.LastMessage == "" || c.LastMessageSender == "" {
		return false
	}
	if c.LastMessageSender == t.userID {
		return false
	}
	return t.Effective(c)+t.skew.Milliseconds() < c.UpdatedAt
}

// MarkRead records the conversation as read at "now". The in-memory mark
// is updated synchronously and monotonically; persistence and the remote
// acknowledgement are fired asynchronously and never roll the mark back.
func (t *Tracker) MarkRead(ctx context.Context, conversationID string) {
	ms := t.now().UnixMilli()
	if prev, err := t.marks.Get(conversationID); err == nil && prev >= ms {
		return
	}
	t.marks.Set(conversationID, ms)

	go t.persist(ctx, conversationID, ms)
}

func (t *Tracker) persist(ctx context.Context, conversationID string, ms int64) {
	if t.local != nil {
		if err := t.local.Set(conversationID, ms); err != nil {
			slog.Error("read mark persist failed", "conversation_id", conversationID, "error", err)
		}
	}
	if t.remote != nil {
		if err := t.remote.AckRead(ctx, conversationID, t.userID, ms); err != nil {
			slog.Error("read mark remote ack failed", "conversation_id", conversationID, "error", err)
		}
	}
}

package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

type fakeFeed struct {
	mu       sync.Mutex
	cb       func([]model.Conversation)
	unsubbed int
}

func (f *fakeFeed) SubscribeConversations(_ string, _ int, cb func([]model.Conversation)) func() {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubbed++
	}
}

func (f *fakeFeed) push(convs []model.Conversation) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	cb(convs)
}

type fakeTyping struct {
	mu        sync.Mutex
	callbacks map[string]func(bool, error)
}

func (f *fakeTyping) SubscribeTyping(conversationID, _ string, cb func(bool, error)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callbacks == nil {
		f.callbacks = map[string]func(bool, error){}
	}
	f.callbacks[conversationID] = cb
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.callbacks, conversationID)
	}
}

func (f *fakeTyping) fire(conversationID string, typing bool) {
	f.mu.Lock()
	cb := f.callbacks[conversationID]
	f.mu.Unlock()
	if cb != nil {
		cb(typing, nil)
	}
}

func direct(id, peer string, updatedAt int64, sender string) model.Conversation {
	return model.Conversation{
		ID:                id,
		MemberIDs:         []string{"me", peer},
		LastMessage:       "hi",
		LastMessageSender: sender,
		UpdatedAt:         updatedAt,
	}
}

func TestMessenger_AnnotatedRows(t *testing.T) {
	feed := &fakeFeed{}
	typing := &fakeTyping{}

	var mu sync.Mutex
	var latest []Row
	m := New(Config{
		UserID:        "me",
		LiveLimit:     50,
		SkewTolerance: -1,
		Subscriber:    typing,
		OnView: func(rows []Row) {
			mu.Lock()
			latest = rows
			mu.Unlock()
		},
	})
	defer m.Close()
	m.Start(feed)

	feed.push([]model.Conversation{
		direct("a", "p1", 200, "p1"),
		direct("b", "p2", 100, "me"),
	})

	mu.Lock()
	rows := latest
	mu.Unlock()
	require.Len(t, rows, 2)
	require.True(t, rows[0].Unread, "peer message should be unread")
	require.False(t, rows[1].Unread, "own message should not be unread")

	typing.fire("a", true)
	rows = m.Rows()
	require.True(t, rows[0].Typing)
	require.False(t, rows[1].Typing)
}

func TestMessenger_MarkReadFlipsUnread(t *testing.T) {
	feed := &fakeFeed{}
	m := New(Config{
		UserID:        "me",
		SkewTolerance: -1,
		Subscriber:    &fakeTyping{},
	})
	defer m.Close()
	m.Start(feed)

	feed.push([]model.Conversation{direct("a", "p1", 200, "p1")})
	require.True(t, m.Rows()[0].Unread)

	m.MarkRead(context.Background(), "a")
	require.False(t, m.Rows()[0].Unread)
}

func TestMessenger_RequestAnnotation(t *testing.T) {
	feed := &fakeFeed{}
	m := New(Config{UserID: "me", Subscriber: &fakeTyping{}})
	defer m.Close()
	m.Start(feed)

	pending := direct("a", "p1", 200, "p1")
	pending.Status = model.ConversationPending
	pending.RequestInitiatorID = "p1"

	initiated := direct("b", "p2", 100, "me")
	initiated.Status = model.ConversationPending
	initiated.RequestInitiatorID = "me"

	feed.push([]model.Conversation{pending, initiated})

	rows := m.Rows()
	require.True(t, rows[0].IsRequest, "non-initiator sees a request")
	require.False(t, rows[1].IsRequest, "initiator sees a normal thread")
}

func TestMessenger_CloseDisposesSubscription(t *testing.T) {
	feed := &fakeFeed{}
	m := New(Config{UserID: "me", Subscriber: &fakeTyping{}})
	m.Start(feed)

	m.Close()
	m.Close()
	require.Equal(t, 1, feed.unsubbed)
}

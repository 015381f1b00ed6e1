package livefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

type fakeConn struct {
	mu        sync.Mutex
	wrote     []clientFrame
	incoming  chan serverFrame
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan serverFrame, 16)}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	frame, ok := v.(clientFrame)
	if !ok {
		return errors.New("unexpected frame type")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wrote = append(f.wrote, frame)
	return nil
}

func (f *fakeConn) ReadJSON(v interface{}) error {
	frame, ok := <-f.incoming
	if !ok {
		return errors.New("connection closed")
	}
	*(v.(*serverFrame)) = frame
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.incoming) })
	return nil
}

func (f *fakeConn) frames() []clientFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]clientFrame(nil), f.wrote...)
}

func (f *fakeConn) lastReqID() string {
	for _, fr := range f.frames() {
		if fr.Op == "request" {
			return fr.ReqID
		}
	}
	return ""
}

func startClient(t *testing.T) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	c := NewClient(conn)
	done := make(chan struct{})
	go func() {
		_ = c.Run(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		c.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("client pump did not stop")
		}
	})
	return c, conn
}

func TestSubscribeConversations(t *testing.T) {
	c, conn := startClient(t)

	got := make(chan []model.Conversation, 1)
	unsub := c.SubscribeConversations("u1", 50, func(convs []model.Conversation) {
		got <- convs
	})
	defer unsub()

	conn.incoming <- serverFrame{
		Topic: "conversations:u1",
		Docs: []map[string]any{
			{"id": "c1", "updatedAt": float64(100)},
			{"lastMessage": "malformed, no id"},
			{"id": "c2", "updatedAt": float64(200)},
		},
	}

	select {
	case convs := <-got:
		require.Len(t, convs, 2)
		require.Equal(t, "c1", convs[0].ID)
	case <-time.After(time.Second):
		t.Fatal("snapshot never delivered")
	}

	frames := conn.frames()
	require.NotEmpty(t, frames)
	require.Equal(t, "subscribe", frames[0].Op)
	require.Equal(t, "conversations:u1", frames[0].Topic)
}

func TestUnsubscribeDropsLateFrames(t *testing.T) {
	c, conn := startClient(t)

	got := make(chan []model.Conversation, 4)
	unsub := c.SubscribeConversations("u1", 50, func(convs []model.Conversation) {
		got <- convs
	})

	unsub()
	unsub() // idempotent

	conn.incoming <- serverFrame{
		Topic: "conversations:u1",
		Docs:  []map[string]any{{"id": "late"}},
	}

	select {
	case <-got:
		t.Fatal("late frame delivered after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}

	var unsubFrames int
	for _, fr := range conn.frames() {
		if fr.Op == "unsubscribe" {
			unsubFrames++
		}
	}
	require.Equal(t, 1, unsubFrames, "unsubscribe frame should be sent exactly once")
}

func TestSubscribeTyping(t *testing.T) {
	c, conn := startClient(t)

	type signal struct {
		typing bool
		err    error
	}
	got := make(chan signal, 2)
	unsub := c.SubscribeTyping("conv1", "peer", func(typing bool, err error) {
		got <- signal{typing, err}
	})
	defer unsub()

	typing := true
	conn.incoming <- serverFrame{Topic: "typing:conv1", Typing: &typing}
	require.Equal(t, signal{true, nil}, <-got)

	conn.incoming <- serverFrame{Topic: "typing:conv1", Error: "stream reset"}
	s := <-got
	require.False(t, s.typing)
	require.Error(t, s.err)
}

func TestFetchOlder(t *testing.T) {
	c, conn := startClient(t)

	result := make(chan []model.Conversation, 1)
	errCh := make(chan error, 1)
	go func() {
		convs, err := c.FetchOlder(context.Background(), "u1", 500, 2)
		errCh <- err
		result <- convs
	}()

	var reqID string
	require.Eventually(t, func() bool {
		reqID = conn.lastReqID()
		return reqID != ""
	}, time.Second, 5*time.Millisecond)

	conn.incoming <- serverFrame{
		ReqID: reqID,
		Docs:  []map[string]any{{"id": "old1", "updatedAt": float64(400)}},
	}

	require.NoError(t, <-errCh)
	convs := <-result
	require.Len(t, convs, 1)
	require.Equal(t, "old1", convs[0].ID)
}

func TestRequestErrorFrame(t *testing.T) {
	c, conn := startClient(t)

	errCh := make(chan error, 1)
	go func() {
		err := c.AckRead(context.Background(), "conv1", "u1", 123)
		errCh <- err
	}()

	var reqID string
	require.Eventually(t, func() bool {
		reqID = conn.lastReqID()
		return reqID != ""
	}, time.Second, 5*time.Millisecond)

	conn.incoming <- serverFrame{ReqID: reqID, Error: "permission denied"}
	require.ErrorContains(t, <-errCh, "permission denied")
}

func TestCloseFailsPendingRequests(t *testing.T) {
	c, conn := startClient(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.FetchPromotablePool(context.Background(), "conversation-list")
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return conn.lastReqID() != ""
	}, time.Second, 5*time.Millisecond)

	c.Close()
	require.Error(t, <-errCh)
}
